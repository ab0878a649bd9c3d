package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-remind-backend/internal/llm"
	"github.com/tbourn/go-remind-backend/internal/prompts"
)

// NarrationMemories is how many memories are given to the narration prompt.
const NarrationMemories = 5

// NarrationRequest is the input of one narration.
type NarrationRequest struct {
	Topic     string
	Utterance string
	Memories  []ScoredMemory
	History   string
	// Avoid lists earlier agent messages the narration must not repeat.
	Avoid []string
}

// Narrator writes the short spoken text accompanying displayed media.
type Narrator struct {
	Gen     llm.Generator
	Prompts *prompts.Set
	Timeout time.Duration
	Locale  language.Tag
}

// Narrate never fails: without a usable model answer it returns
// FallbackNarration.
func (n *Narrator) Narrate(ctx context.Context, req NarrationRequest) string {
	tr := otel.Tracer("services/Narrator")
	ctx, span := tr.Start(ctx, "Narrate", trace.WithAttributes(attribute.String("topic", req.Topic)))
	defer span.End()

	text, err := n.generate(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("topic", req.Topic).Msg("narration failed, using fallback")
		span.SetAttributes(attribute.Bool("narration.fallback", true))
		return FallbackNarration(req.Topic, n.Locale)
	}
	return text
}

func (n *Narrator) generate(ctx context.Context, req NarrationRequest) (string, error) {
	if n.Gen == nil {
		return "", llm.ErrNoBackends
	}
	ps := n.Prompts
	if ps == nil {
		ps = prompts.Default()
	}
	mems := req.Memories
	if len(mems) > NarrationMemories {
		mems = mems[:NarrationMemories]
	}
	prompt, opts, err := ps.Narrate(prompts.NarrateData{
		Topic:        req.Topic,
		Utterance:    req.Utterance,
		Memories:     FormatMemories(mems),
		History:      req.History,
		AvoidPhrases: req.Avoid,
	})
	if err != nil {
		return "", err
	}
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}
	return n.Gen.Generate(ctx, prompt, opts)
}

// FallbackNarration is the narration used when no model answered.
func FallbackNarration(topic string, locale language.Tag) string {
	return "Here are beautiful memories about " + titleCase(topic, locale) +
		". These moments capture special times that are worth treasuring forever."
}

// NothingNewNarration tells the patient there is nothing left to show.
func NothingNewNarration(topic string, locale language.Tag) string {
	return "I don't have anything new to show you about " + titleCase(topic, locale) + " right now."
}

func titleCase(s string, locale language.Tag) string {
	if locale == language.Und {
		locale = language.English
	}
	return cases.Title(locale).String(s)
}
