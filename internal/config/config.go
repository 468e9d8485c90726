package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	defaultEngine      = "openai"
	defaultSlackHeader = "今日のポエム"
	defaultBlueskyHost = "https://bsky.social"
	defaultTopicPrefix = "poemcast"
	defaultSchedule    = "0 * * * *"
	defaultLogLevel    = "info"
	defaultDBPath      = "poems.db"
)

var defaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"cohere":    "command-r-plus",
	"anthropic": "claude-sonnet-4-20250514",
}

// Config holds the application configuration
type Config struct {
	ReportTimes ReportTimesConfig `yaml:"report_times"`
	Gate        GateConfig        `yaml:"gate,omitempty"`
	AI          AIConfig          `yaml:"ai"`
	Slack       SlackConfig       `yaml:"slack,omitempty"`
	Bluesky     BlueskyConfig     `yaml:"bluesky,omitempty"`
	MQTT        MQTTConfig        `yaml:"mqtt,omitempty"`
	Telegram    TelegramConfig    `yaml:"telegram,omitempty"`
	Schedule    string            `yaml:"schedule,omitempty"` // cron expression for the daemon (UTC)
	DBPath      *string           `yaml:"db_path,omitempty"`  // empty string disables history
	LogLevel    string            `yaml:"log_level,omitempty"`
}

// ReportTimesConfig holds the two posting hours (UTC hour-of-day strings)
type ReportTimesConfig struct {
	MorningUTC string `yaml:"morning_utc,omitempty"`
	EveningUTC string `yaml:"evening_utc,omitempty"`
}

// GateConfig controls how report times are compared
type GateConfig struct {
	Compare string `yaml:"compare,omitempty"` // "numeric" (default) or "strict"
}

// AIConfig selects the generation backend and holds provider keys
type AIConfig struct {
	Engine           string  `yaml:"engine,omitempty"` // openai, cohere or anthropic
	Model            string  `yaml:"model,omitempty"`
	Temperature      float64 `yaml:"temperature,omitempty"`
	SystemPromptPath string  `yaml:"system_prompt_path,omitempty"`
	OpenAIAPIKey     string  `yaml:"openai_api_key,omitempty"`
	OpenAIBaseURL    string  `yaml:"openai_base_url,omitempty"`
	CohereAPIKey     string  `yaml:"cohere_api_key,omitempty"`
	CohereBaseURL    string  `yaml:"cohere_base_url,omitempty"`
	AnthropicAPIKey  string  `yaml:"anthropic_api_key,omitempty"`
}

// SlackConfig holds Slack bot configuration
type SlackConfig struct {
	BotToken string `yaml:"bot_token,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
	Header   string `yaml:"header,omitempty"`  // first message; the poem is posted as its thread reply
	APIURL   string `yaml:"api_url,omitempty"` // e.g., "https://slack.com/api/"
}

// BlueskyConfig holds Bluesky account configuration
type BlueskyConfig struct {
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"` // app password
	Host     string `yaml:"host,omitempty"`     // PDS host, e.g., "https://bsky.social"
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker,omitempty"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken string `yaml:"bot_token,omitempty"`
	ChatID   int64  `yaml:"chat_id,omitempty"`
}

// Env mirrors the environment variables the CI workflow passes in.
// Non-empty values override the config file.
type Env struct {
	ReportTimeMorningUTC string `envconfig:"REPORT_TIME_MORNING_UTC"`
	ReportTimeEveningUTC string `envconfig:"REPORT_TIME_EVENING_UTC"`
	GateCompare          string `envconfig:"GATE_COMPARE"`
	AIEngine             string `envconfig:"AI_ENGINE"`
	AIModel              string `envconfig:"AI_MODEL"`
	OpenAIAPIKey         string `envconfig:"OPENAI_API_KEY"`
	CohereAPIKey         string `envconfig:"COHERE_API_KEY"`
	AnthropicAPIKey      string `envconfig:"ANTHROPIC_API_KEY"`
	SlackBotToken        string `envconfig:"SLACK_BOT_TOKEN"`
	SlackChannel         string `envconfig:"SLACK_CHANNEL"`
	BlueskyUsername      string `envconfig:"BLUESKY_USERNAME"`
	BlueskyPassword      string `envconfig:"BLUESKY_PASSWORD"`
	TelegramBotToken     string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID       int64  `envconfig:"TELEGRAM_CHAT_ID"`
	MQTTBroker           string `envconfig:"MQTT_BROKER"`
	DBPath               string `envconfig:"POEMCAST_DB"`
	LogLevel             string `envconfig:"LOG_LEVEL"`
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnv reads the config file, loads the optional .env file, and overlays
// environment variables on top
func LoadWithEnv(configPath, dotenvPath string) (*Config, error) {
	if err := LoadDotenv(dotenvPath); err != nil {
		return nil, err
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotenv loads variables from a .env file without overriding ones already set.
// A missing file is not an error.
func LoadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays non-empty environment variables onto the config
func (c *Config) ApplyEnv() error {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	c.applyEnv(env)
	return nil
}

func (c *Config) applyEnv(env Env) {
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	override(&c.ReportTimes.MorningUTC, env.ReportTimeMorningUTC)
	override(&c.ReportTimes.EveningUTC, env.ReportTimeEveningUTC)
	override(&c.Gate.Compare, env.GateCompare)
	override(&c.AI.Engine, env.AIEngine)
	override(&c.AI.Model, env.AIModel)
	override(&c.AI.OpenAIAPIKey, env.OpenAIAPIKey)
	override(&c.AI.CohereAPIKey, env.CohereAPIKey)
	override(&c.AI.AnthropicAPIKey, env.AnthropicAPIKey)
	override(&c.Slack.BotToken, env.SlackBotToken)
	override(&c.Slack.Channel, env.SlackChannel)
	override(&c.Bluesky.Username, env.BlueskyUsername)
	override(&c.Bluesky.Password, env.BlueskyPassword)
	override(&c.Telegram.BotToken, env.TelegramBotToken)
	override(&c.LogLevel, env.LogLevel)

	if env.TelegramChatID != 0 {
		c.Telegram.ChatID = env.TelegramChatID
	}
	if env.MQTTBroker != "" {
		c.MQTT.Broker = env.MQTTBroker
		c.MQTT.Enabled = true
	}
	if env.DBPath != "" {
		c.DBPath = &env.DBPath
	}
}

// Default returns a config with every defaulted setting written out, for
// seeding a new config file. Report times and credentials are left empty.
func Default() *Config {
	dbPath := defaultDBPath
	return &Config{
		Gate: GateConfig{Compare: "numeric"},
		AI: AIConfig{
			Engine:      defaultEngine,
			Model:       defaultModels[defaultEngine],
			Temperature: 1.0,
		},
		Slack:    SlackConfig{Header: defaultSlackHeader},
		Bluesky:  BlueskyConfig{Host: defaultBlueskyHost},
		MQTT:     MQTTConfig{TopicPrefix: defaultTopicPrefix},
		Schedule: defaultSchedule,
		DBPath:   &dbPath,
		LogLevel: defaultLogLevel,
	}
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetEngine returns the AI engine, defaulting to openai
func (c *Config) GetEngine() string {
	if c.AI.Engine == "" {
		return defaultEngine
	}
	return c.AI.Engine
}

// GetModel returns the configured model, falling back to the engine's default
func (c *Config) GetModel() string {
	if c.AI.Model != "" {
		return c.AI.Model
	}
	return defaultModels[c.GetEngine()]
}

// GetTemperature returns the sampling temperature (default 1.0)
func (c *Config) GetTemperature() float64 {
	if c.AI.Temperature <= 0 {
		return 1.0
	}
	return c.AI.Temperature
}

// GetSlackHeader returns the text of the Slack thread's parent message
func (c *Config) GetSlackHeader() string {
	if c.Slack.Header == "" {
		return defaultSlackHeader
	}
	return c.Slack.Header
}

// GetBlueskyHost returns the Bluesky PDS host
func (c *Config) GetBlueskyHost() string {
	if c.Bluesky.Host == "" {
		return defaultBlueskyHost
	}
	return c.Bluesky.Host
}

// GetTopicPrefix returns the MQTT topic prefix
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return defaultTopicPrefix
	}
	return c.MQTT.TopicPrefix
}

// GetSchedule returns the daemon's cron expression (default: top of every hour)
func (c *Config) GetSchedule() string {
	if c.Schedule == "" {
		return defaultSchedule
	}
	return c.Schedule
}

// GetLogLevel returns the log level
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return defaultLogLevel
	}
	return c.LogLevel
}

// GetDBPath returns the history database path. An explicit empty value disables history.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return defaultDBPath
	}
	return *c.DBPath
}

// SlackEnabled reports whether Slack posting is configured
func (c *Config) SlackEnabled() bool {
	return c.Slack.BotToken != ""
}

// BlueskyEnabled reports whether Bluesky posting is configured
func (c *Config) BlueskyEnabled() bool {
	return c.Bluesky.Username != ""
}

// MQTTEnabled reports whether MQTT publishing is configured
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.Enabled
}

// TelegramEnabled reports whether Telegram posting is configured
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}

// Destinations returns the names of every enabled destination
func (c *Config) Destinations() []string {
	var names []string
	if c.SlackEnabled() {
		names = append(names, "slack")
	}
	if c.BlueskyEnabled() {
		names = append(names, "bluesky")
	}
	if c.MQTTEnabled() {
		names = append(names, "mqtt")
	}
	if c.TelegramEnabled() {
		names = append(names, "telegram")
	}
	return names
}
