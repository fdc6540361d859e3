package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pable/go-playcall/internal/config"
	"github.com/pable/go-playcall/internal/predictor"
	"github.com/pable/go-playcall/internal/storage"
	"github.com/pable/go-playcall/internal/telemetry"
)

var (
	dbPath     string
	configPath string
	logLevel   string

	// cfg is loaded once before any subcommand runs.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "playcall",
	Short: "Next-play-call predictor for American football drives",
	Long: `Ingest play-by-play data, train per-situation sequence tries on drive
context, and predict whether the offense passes or runs next.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultDB := filepath.Join(appDir(), "playcall.db")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("db") && cfg.Database != "" {
		dbPath = cfg.Database
	}
	return nil
}

func appDir() string {
	return filepath.Join(mustUserHome(), ".playcall")
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// openStore opens the database, creating its directory on first use.
func openStore() (*storage.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

// resolveModelPath picks the flag value, then the config file, then the
// default location under the app directory.
func resolveModelPath(flag string) string {
	switch {
	case flag != "":
		return flag
	case cfg.Model.Path != "":
		return cfg.Model.Path
	default:
		return filepath.Join(appDir(), "model.zst")
	}
}

func loadModel(flag string) (*predictor.Predictor, string, error) {
	path := resolveModelPath(flag)
	p, err := predictor.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("load model: %w", err)
	}
	log.Debug().Str("path", path).Int("insertions", p.TotalInsertions()).Msg("model loaded")
	return p, path, nil
}

// writeMetrics dumps reg to the configured textfile, if any.
func writeMetrics(reg *telemetry.Registry, flag string) {
	path := flag
	if path == "" {
		path = cfg.Metrics.Textfile
	}
	if path == "" {
		return
	}
	if err := reg.WriteTextfile(path); err != nil {
		log.Warn().Err(err).Msg("metrics not written")
		return
	}
	log.Info().Str("path", path).Msg("metrics written")
}
