package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/watchmonkey/stocktags/internal/rpc"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tag engine over HTTP (POST /rpc/<operation>)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}

	rc := rpc.DefaultConfig()
	rc.Addr = s.cfg.ListenAddr
	if flagAddr != "" {
		rc.Addr = flagAddr
	}
	if s.cfg.PersistUpdates {
		rc.SnapshotPath = s.cfg.SnapshotPath
	}

	ds := s.engine.DataStatistics()
	slog.Info("snapshot loaded",
		"path", s.cfg.SnapshotPath,
		"stocks", ds.TotalStocks,
		"categories", ds.TotalCategories,
		"persist_updates", s.cfg.PersistUpdates,
	)
	return rpc.NewServer(rc, s.engine, slog.Default()).Run(ctx)
}
