package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jgoulah/poemcast/internal/config"
	"github.com/jgoulah/poemcast/internal/database"
	"github.com/jgoulah/poemcast/internal/logger"
	"github.com/jgoulah/poemcast/internal/secrets"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	dbPath   string
	envFile  string
	logLevel string
)

var (
	// clock is the gate's time source
	clock = time.Now

	keychain secrets.Store = secrets.Keychain{}
)

var rootCmd = &cobra.Command{
	Use:   "poemcast",
	Short: "Generate a short poem with an LLM and post it twice a day",
	Long: `Poemcast asks a large-language-model API for a short poem and posts it to
Slack, Bluesky, an MQTT broker and Telegram at two configurable UTC hours.

It is meant to be triggered hourly (by a CI schedule or the built-in daemon);
the gate decides whether the current hour is a report hour.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "history database file (default is ./poems.db)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config or info)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadSettings loads the config file and the environment overlay, without
// touching the keychain
func loadSettings() (*config.Config, error) {
	return config.LoadWithEnv(getConfigPath(), envFile)
}

// loadConfig loads the settings and fills empty credentials from the keychain
func loadConfig() (*config.Config, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	secrets.Fill(cfg, keychain)
	return cfg, nil
}

// signalContext returns the command's context cancelled on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// newLogger builds the logger for the --log-level flag or the configured level
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := logLevel
	if level == "" {
		level = cfg.GetLogLevel()
	}
	return logger.New(level)
}

// getDBPath returns the history database path; empty means history is disabled
func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.GetDBPath()
}

// openDB opens the history database, or returns nil when history is disabled
func openDB(cfg *config.Config) (*database.DB, error) {
	path := getDBPath(cfg)
	if path == "" {
		return nil, nil
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// requireDB opens the history database for commands that cannot work without it
func requireDB(cfg *config.Config) (*database.DB, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if db == nil {
		return nil, fmt.Errorf("history is disabled (db_path is empty)")
	}
	return db, nil
}
