package main

import (
	"fmt"
	"os"

	"github.com/jgoulah/poemcast/internal/config"
	"github.com/jgoulah/poemcast/internal/gate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	gateOutput    string
	gateOutputKey string
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Decide whether the current UTC hour is a report hour",
	Long: `Compares the current UTC hour with REPORT_TIME_MORNING_UTC and
REPORT_TIME_EVENING_UTC and prints should_run=true|false.

When running under GitHub Actions the decision is also appended to
$GITHUB_OUTPUT so a downstream job can depend on it. Unset report times
never match.`,
	Args: cobra.NoArgs,
	RunE: runGate,
}

func init() {
	gateCmd.Flags().StringVar(&gateOutput, "github-output", os.Getenv("GITHUB_OUTPUT"), "step output file to append the decision to")
	gateCmd.Flags().StringVar(&gateOutputKey, "key", "should_run", "output key name")
	rootCmd.AddCommand(gateCmd)
}

func runGate(cmd *cobra.Command, args []string) error {
	// The gate needs no credentials, so the keychain is not consulted
	cfg, err := loadSettings()
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

	d := g.Evaluate()
	if err := gate.WriteOutput(gateOutput, gateOutputKey, d); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s=%t\n", gateOutputKey, d.ShouldRun)
	return nil
}

// newGate builds the gate from the configured report times and comparison mode
func newGate(cfg *config.Config, log *zap.Logger) (*gate.Gate, error) {
	mode, err := gate.ParseMode(cfg.Gate.Compare)
	if err != nil {
		return nil, err
	}
	times := gate.ReportTimes{
		Morning: cfg.ReportTimes.MorningUTC,
		Evening: cfg.ReportTimes.EveningUTC,
	}
	return gate.New(times, gate.WithMode(mode), gate.WithClock(clock), gate.WithLogger(log.Named("gate"))), nil
}
