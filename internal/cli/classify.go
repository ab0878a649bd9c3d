package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-remind-backend/internal/intent"
	"github.com/tbourn/go-remind-backend/internal/services"
)

var classifyTopic string

func init() {
	cmd := &cobra.Command{
		Use:   `classify --topic <topic> "<utterance>"`,
		Short: "Classify an utterance and show the display mode it resolves to",
		Args:  cobra.MinimumNArgs(1),
		Run:   runClassify,
	}
	cmd.Flags().StringVarP(&classifyTopic, "topic", "t", "", "Topic the patient is talking about")
	_ = cmd.MarkFlagRequired("topic")

	RootCmd.AddCommand(cmd)
}

func runClassify(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg)
	if err != nil {
		exitErr("init", err)
	}
	defer a.Close()

	utterance := strings.Join(args, " ")
	d, err := a.classifier.TryClassify(ctx, utterance, classifyTopic)
	fallback := err != nil
	if fallback {
		d = intent.Fallback(classifyTopic)
	}

	out := map[string]any{
		"intent":   d,
		"fallback": fallback,
	}
	if fallback {
		out["error"] = err.Error()
	}
	if mems, _, err := a.memories.Search(ctx, classifyTopic, "cli"); err == nil && len(mems) > 0 {
		res := a.patients.Resolver.Resolve(d, services.Partition(mems))
		out["display_mode"] = res.Mode
		out["media"] = res.Media
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
