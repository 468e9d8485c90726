package generator

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jgoulah/poemcast/internal/httputil"
)

type openAIGenerator struct {
	client       *openai.Client
	model        string
	systemPrompt string
	temperature  float32
}

func newOpenAI(opts Options) *openAIGenerator {
	return newOpenAIWithClient(opts, httputil.NewClient())
}

func newOpenAIWithClient(opts Options, httpClient *http.Client) *openAIGenerator {
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.HTTPClient = httpClient
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &openAIGenerator{
		client:       openai.NewClientWithConfig(cfg),
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
		temperature:  float32(opts.Temperature),
	}
}

func (g *openAIGenerator) Name() string  { return "openai" }
func (g *openAIGenerator) Model() string { return g.model }

func (g *openAIGenerator) Generate(ctx context.Context, theme string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage(theme)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", ErrEmptyCompletion)
	}
	return finish("openai", resp.Choices[0].Message.Content)
}
