package publisher

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jgoulah/poemcast/internal/httputil"
	"github.com/jgoulah/poemcast/pkg/models"
)

// Telegram sends the poem to a chat through a bot
type Telegram struct {
	client   *http.Client
	token    string
	chatID   int64
	endpoint string
}

// NewTelegram creates a Telegram publisher. endpoint overrides tgbotapi.APIEndpoint.
func NewTelegram(token string, chatID int64, endpoint string) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("Telegram bot token and chat id are required")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	return &Telegram{client: httputil.NewClient(), token: token, chatID: chatID, endpoint: endpoint}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Publish returns the sent message id
func (t *Telegram) Publish(ctx context.Context, poem models.Poem) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// The bot checks its token with getMe on creation
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
	if err != nil {
		return "", fmt.Errorf("telegram login: %w", err)
	}

	sent, err := bot.Send(tgbotapi.NewMessage(t.chatID, poem.Text))
	if err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}
