package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-remind-backend/internal/services"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import <file.json|file.csv>",
		Short: "Import memories into the catalog",
		Long: "Import memories from a JSON array or a metadata CSV " +
			"(event_name,file_name,file_type,description,people,event_summary,file_url). " +
			"Records are matched on file_url, so re-importing updates them in place.",
		Args: cobra.ExactArgs(1),
		Run:  runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	f, err := os.Open(args[0])
	if err != nil {
		exitErr("open", err)
	}
	defer f.Close()

	items, err := decodeMemories(args[0], f)
	if err != nil {
		exitErr("decode "+args[0], err)
	}

	db, err := openDB(cfg)
	if err != nil {
		exitErr("database", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	svc := &services.MemoryService{DB: db, Limit: cfg.SearchLimit, MinScore: cfg.MinScore}
	n, err := svc.Import(cmd.Context(), items)
	if err != nil {
		exitErr("import", err)
	}
	st, err := svc.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d,"total":%d,"images":%d,"videos":%d}`+"\n", n, st.Total, st.Images, st.Videos)
}
