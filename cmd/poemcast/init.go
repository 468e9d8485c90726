package main

import (
	"fmt"
	"os"

	"github.com/jgoulah/poemcast/internal/config"
	"github.com/jgoulah/poemcast/internal/gate"
	"github.com/spf13/cobra"
)

var (
	initMorning string
	initEvening string
	initEngine  string
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Long: `Creates the config file (./config.yaml or --config) with every default
written out, ready to edit. Credentials are not written; set them in the
environment or with "poemcast secret set".`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initMorning, "morning", "", "Morning report hour in UTC (0-23)")
	initCmd.Flags().StringVar(&initEvening, "evening", "", "Evening report hour in UTC (0-23)")
	initCmd.Flags().StringVar(&initEngine, "engine", "", "AI engine (openai, cohere or anthropic)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	for _, v := range []string{initMorning, initEvening} {
		if _, _, err := gate.ParseHour(v); err != nil {
			return err
		}
	}

	cfg := config.Default()
	cfg.ReportTimes.MorningUTC = initMorning
	cfg.ReportTimes.EveningUTC = initEvening
	if initEngine != "" {
		cfg.AI.Engine, cfg.AI.Model = initEngine, ""
		cfg.AI.Model = cfg.GetModel()
		if cfg.AI.Model == "" {
			return fmt.Errorf("unknown engine: %s (available: openai, cohere, anthropic)", initEngine)
		}
	}

	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	return nil
}
