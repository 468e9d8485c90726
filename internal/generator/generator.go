// Package generator produces poems from a large-language-model API.
package generator

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jgoulah/poemcast/internal/config"
)

//go:embed prompts/system.md
var defaultSystemPrompt string

// noThemeMessage is sent as the user turn when the theme argument is blank;
// the system prompt asks the model to invent one.
const noThemeMessage = "テーマは指定されていません。"

var (
	ErrUnsupportedEngine = errors.New("unsupported AI engine")
	ErrMissingAPIKey     = errors.New("missing API key")
	ErrEmptyCompletion   = errors.New("empty completion")
)

// Generator writes a poem for a theme
type Generator interface {
	Name() string
	Model() string
	Generate(ctx context.Context, theme string) (string, error)
}

// Options configures a Generator
type Options struct {
	Engine       string
	Model        string
	SystemPrompt string
	Temperature  float64
	APIKey       string
	BaseURL      string
}

// OptionsFromConfig builds Options for the configured engine
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	prompt, err := SystemPrompt(cfg.AI.SystemPromptPath)
	if err != nil {
		return Options{}, err
	}

	opts := Options{
		Engine:       cfg.GetEngine(),
		Model:        cfg.GetModel(),
		SystemPrompt: prompt,
		Temperature:  cfg.GetTemperature(),
	}
	switch opts.Engine {
	case "openai":
		opts.APIKey, opts.BaseURL = cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIBaseURL
	case "cohere":
		opts.APIKey, opts.BaseURL = cfg.AI.CohereAPIKey, cfg.AI.CohereBaseURL
	case "anthropic":
		opts.APIKey = cfg.AI.AnthropicAPIKey
	}
	return opts, nil
}

// New creates the Generator for opts.Engine
func New(opts Options) (Generator, error) {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}

	var keyName string
	switch opts.Engine {
	case "openai":
		keyName = "OPENAI_API_KEY"
	case "cohere":
		keyName = "COHERE_API_KEY"
	case "anthropic":
		keyName = "ANTHROPIC_API_KEY"
	default:
		return nil, fmt.Errorf("%w: %s (available: openai, cohere, anthropic)", ErrUnsupportedEngine, opts.Engine)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: %s is required for engine %s", ErrMissingAPIKey, keyName, opts.Engine)
	}

	switch opts.Engine {
	case "openai":
		return newOpenAI(opts), nil
	case "cohere":
		return newCohere(opts), nil
	default:
		return newAnthropic(opts), nil
	}
}

// SystemPrompt returns the prompt from an override file or the embedded default
func SystemPrompt(overridePath string) (string, error) {
	if overridePath == "" {
		return defaultSystemPrompt, nil
	}
	content, err := os.ReadFile(overridePath)
	if err != nil {
		return "", fmt.Errorf("reading system prompt %s: %w", overridePath, err)
	}
	return string(content), nil
}

func userMessage(theme string) string {
	if strings.TrimSpace(theme) == "" {
		return noThemeMessage
	}
	return theme
}

func finish(engine, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", engine, ErrEmptyCompletion)
	}
	return text, nil
}
