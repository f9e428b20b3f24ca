package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"erraid/internal/daemon"
	"erraid/internal/paths"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the daemon in the foreground",
	Long:  `run starts the event loop: it loads persisted tasks, serves the request FIFO, and fires due tasks until it receives a shutdown request or signal.`,
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}

	layout := paths.NewLayout(cfg.Root)

	d := daemon.New(layout, logger)
	if err := d.Init(); err != nil {
		return fmt.Errorf("init daemon: %w", err)
	}
	defer d.Close()

	logger.Info("erraidd starting", "root", layout.Root)
	if err := d.Run(); err != nil {
		return fmt.Errorf("run daemon: %w", err)
	}
	logger.Info("erraidd stopped")
	return nil
}
