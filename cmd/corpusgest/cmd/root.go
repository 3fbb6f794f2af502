package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dgallion1/corpusgest/internal/config"
)

var (
	envFile  string
	logLevel string

	cfg config.Config
	log *slog.Logger
)

// version is set at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "corpusgest",
	Version: version,
	Short:   "Index and import hierarchical scripture corpora",
	Long: `corpusgest builds corpus trees from source documents, assigns every
node its position path and breadcrumbs, checks chapter numbering, and
stores the result in the configured sinks.

Sinks and defaults come from the environment (or a .env file), the same
variables the HTTP server reads.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		_ = godotenv.Load(envFile)
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
}
