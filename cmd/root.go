package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/watchmonkey/stocktags/internal/config"
)

var (
	flagSnapshot string
	flagJSON     bool
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:          "stocktags",
	Short:        "Browse, search and lint custom stock tags",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `stocktags indexes the custom tags attached to stock records
("category:tag{detail};...") and answers category, tag and stock queries
against a snapshot file, from the command line or over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if flagLogLevel != "" {
			level = flagLogLevel
		}
		slog.SetDefault(newLogger(level))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagSnapshot, "snapshot", "", "Snapshot file to load (default from config)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig returns the effective configuration with the --snapshot flag
// applied on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w\nRun 'stocktags config init' to write a fresh one.", err)
	}
	if flagSnapshot != "" {
		p, err := config.ExpandPath(flagSnapshot)
		if err != nil {
			return nil, err
		}
		cfg.SnapshotPath = p
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
