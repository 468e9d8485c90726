package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jgoulah/poemcast/internal/config"
	"github.com/jgoulah/poemcast/internal/generator"
	"github.com/jgoulah/poemcast/internal/publisher"
	"github.com/jgoulah/poemcast/internal/runner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run [theme]",
	Short: "Generate a poem and post it to every configured destination",
	Long: `Generates one poem and posts it right away, without checking the gate.

The single argument is the theme; pass an empty string ("") to let the
model choose one.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Run started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signalContext(cmd)
	defer stop()

	return execute(ctx, cfg, log, args[0])
}

// execute is the run step shared by run, tick and daemon
func execute(ctx context.Context, cfg *config.Config, log *zap.Logger, theme string) error {
	opts, err := generator.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	gen, err := generator.New(opts)
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	pubs, err := publisher.FromConfig(cfg, log.Named("publisher"))
	if err != nil {
		return err
	}
	defer publisher.Close(pubs)

	runOpts := []runner.Option{runner.WithLogger(log.Named("runner"))}
	db, err := openDB(cfg)
	if err != nil {
		// History is best effort
		log.Warn("history disabled for this run", zap.Error(err))
	} else if db != nil {
		defer db.Close()
		runOpts = append(runOpts, runner.WithStore(db))
	}

	fmt.Printf("Generating with %s (%s)...\n", gen.Name(), gen.Model())
	report, err := runner.New(gen, pubs, runOpts...).Run(ctx, theme)
	if report != nil {
		printResults(report.Results)
	}
	if err != nil {
		return err
	}

	fmt.Printf("✓ Posted to %d destination(s)\n", len(report.Results))
	return nil
}

func printResults(results []publisher.Result) {
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("  %-9s FAILED: %v\n", res.Destination, res.Err)
			continue
		}
		fmt.Printf("  %-9s ✓ %s\n", res.Destination, res.RemoteID)
	}
}
