package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jgoulah/poemcast/internal/runner"
	"github.com/jgoulah/poemcast/internal/schedule"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var daemonSchedule string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the hourly pipeline on a built-in schedule",
	Long: `Keeps running and fires the gate-then-run pipeline on a cron schedule in
UTC (hourly by default), for hosts without a CI scheduler.

The config is reloaded on every firing so report times and keys can change
without a restart. A firing that overlaps a previous one is skipped.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&daemonSchedule, "schedule", "", "cron expression in UTC (default from config or \"0 * * * *\")")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	expr := daemonSchedule
	if expr == "" {
		expr = cfg.GetSchedule()
	}
	if err := schedule.Validate(expr); err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	fmt.Printf("=== Daemon started at %s (schedule %q, UTC) ===\n", time.Now().UTC().Format("2006-01-02 15:04:05 MST"), expr)

	d := schedule.New(expr, func(ctx context.Context) {
		tick(ctx, log)
	}, log.Named("schedule"))
	return d.Run(ctx)
}

// tick runs one firing; errors are logged so the daemon keeps going
func tick(ctx context.Context, log *zap.Logger) {
	cfg, err := loadConfig()
	if err != nil {
		log.Error("loading config failed", zap.Error(err))
		return
	}
	g, err := newGate(cfg, log)
	if err != nil {
		log.Error("creating gate failed", zap.Error(err))
		return
	}

	p := &runner.Pipeline{
		Gate: g,
		Execute: func(ctx context.Context) error {
			return execute(ctx, cfg, log, "")
		},
		Log: log,
	}
	if _, err := p.Tick(ctx, false); err != nil {
		log.Error("run failed", zap.Error(err))
	}
}
