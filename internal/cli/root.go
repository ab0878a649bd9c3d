// Package cli implements the remind commands.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-remind-backend/internal/config"
	"github.com/tbourn/go-remind-backend/internal/sysutil"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var (
	envFile string
	dbPath  string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "remind",
	Short: "Adaptive memory-serving backend for reminiscence sessions",
	Long: "Serves a patient's photos and videos about a topic, never repeating media " +
		"within a session, and narrates them with a language model.",
	Version: Version,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file read before the environment")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite path (default: $DB_PATH or remind.db)")
}

// loadConfig reads the dotenv file, the environment and the flags, then
// configures logging.
func loadConfig() config.Config {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		exitErr("load "+envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		exitErr("config", err)
	}
	cfg.DBPath = sysutil.FirstNonEmpty(dbPath, cfg.DBPath)

	sysutil.ConfigureLogger(os.Stderr, cfg.LogPretty)
	sysutil.SetLogLevel(cfg.LogLevel)
	log.Debug().Str("db", cfg.DBPath).Str("llm_backends", cfg.LLM.Backends).Msg("configuration loaded")
	return cfg
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
