package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"

	"github.com/jgoulah/poemcast/internal/httputil"
)

const anthropicMaxTokens = 1000

// promptFunc matches the llmkit call so tests can replace it
type promptFunc func(systemPrompt, userPrompt, apiKey string, settings types.RequestSettings) (string, error)

func llmkitPrompt(systemPrompt, userPrompt, apiKey string, settings types.RequestSettings) (string, error) {
	response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", apiKey, settings)
	if err != nil {
		return "", err
	}
	if len(response.Content) == 0 {
		return "", nil
	}
	return response.Content[0].Text, nil
}

type anthropicGenerator struct {
	prompt       promptFunc
	timeout      time.Duration
	apiKey       string
	model        string
	systemPrompt string
	temperature  float64
}

func newAnthropic(opts Options) *anthropicGenerator {
	return &anthropicGenerator{
		prompt:       llmkitPrompt,
		timeout:      httputil.DefaultTimeout,
		apiKey:       opts.APIKey,
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
		temperature:  opts.Temperature,
	}
}

func (g *anthropicGenerator) Name() string  { return "anthropic" }
func (g *anthropicGenerator) Model() string { return g.model }

func (g *anthropicGenerator) Generate(ctx context.Context, theme string) (string, error) {
	// llmkit does not take a context; honour cancellation before the call
	if err := ctx.Err(); err != nil {
		return "", err
	}

	settings := types.RequestSettings{
		Model:       g.model,
		MaxTokens:   anthropicMaxTokens,
		Temperature: g.temperature,
	}

	type result struct {
		text string
		err  error
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// Buffered so an abandoned call can still finish and exit
	done := make(chan result, 1)
	go func() {
		text, err := g.prompt(g.systemPrompt, userMessage(theme), g.apiKey, settings)
		done <- result{text, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("anthropic prompt: %w", res.err)
		}
		return finish("anthropic", res.text)
	case <-ctx.Done():
		return "", fmt.Errorf("anthropic prompt: %w", ctx.Err())
	}
}
