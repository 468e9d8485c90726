package generator

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jgoulah/poemcast/internal/httputil"
)

const (
	defaultCohereBaseURL = "https://api.cohere.ai"
	// cohereInstruction is the chat turn; the system prompt travels in chat_history
	cohereInstruction = "指示に従って要約してください"
)

type cohereMessage struct {
	Role    string `json:"role"` // SYSTEM, USER or CHATBOT
	Message string `json:"message"`
}

type cohereChatRequest struct {
	Model       string          `json:"model,omitempty"`
	Message     string          `json:"message"`
	ChatHistory []cohereMessage `json:"chat_history"`
	Temperature float64         `json:"temperature"`
}

type cohereChatResponse struct {
	Text string `json:"text"`
}

type cohereGenerator struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	temperature  float64
}

func newCohere(opts Options) *cohereGenerator {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultCohereBaseURL
	}
	return &cohereGenerator{
		client:       httputil.NewClient(),
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       opts.APIKey,
		model:        opts.Model,
		systemPrompt: opts.SystemPrompt,
		temperature:  opts.Temperature,
	}
}

func (g *cohereGenerator) Name() string  { return "cohere" }
func (g *cohereGenerator) Model() string { return g.model }

func (g *cohereGenerator) Generate(ctx context.Context, theme string) (string, error) {
	req := cohereChatRequest{
		Model:   g.model,
		Message: cohereInstruction,
		ChatHistory: []cohereMessage{
			{Role: "SYSTEM", Message: g.systemPrompt},
			{Role: "USER", Message: userMessage(theme)},
		},
		Temperature: g.temperature,
	}

	var resp cohereChatResponse
	if err := httputil.PostJSON(ctx, g.client, g.baseURL+"/v1/chat", g.apiKey, req, &resp); err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}
	return finish("cohere", resp.Text)
}
