package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jgoulah/poemcast/internal/runner"
	"github.com/spf13/cobra"
)

var (
	tickForce bool
	tickTheme string
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Check the gate and run if this is a report hour",
	Long: `Runs the whole hourly pipeline in one process: evaluates the gate and,
only when the current UTC hour is a report hour, generates and posts a poem.

--force is the manual trigger: it runs regardless of the hour.`,
	Args: cobra.NoArgs,
	RunE: runTick,
}

func init() {
	tickCmd.Flags().BoolVar(&tickForce, "force", false, "Run even when the current hour is not a report hour")
	tickCmd.Flags().StringVar(&tickTheme, "theme", "", "Poem theme (default: let the model choose)")
	rootCmd.AddCommand(tickCmd)
}

func runTick(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Tick started at %s ===\n", time.Now().UTC().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	g, err := newGate(cfg, log)
	if err != nil {
		return err
	}

	p := &runner.Pipeline{
		Gate: g,
		Execute: func(ctx context.Context) error {
			return execute(ctx, cfg, log, tickTheme)
		},
		Log: log,
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	d, err := p.Tick(ctx, tickForce)
	if !d.ShouldRun && !tickForce {
		fmt.Printf("Hour %02d is not a report hour, nothing to do\n", d.Hour)
	}
	return err
}
