package publisher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/jgoulah/poemcast/internal/httputil"
	"github.com/jgoulah/poemcast/pkg/models"
)

// Slack posts a header message to a channel and the poem as its thread reply
type Slack struct {
	client     *slack.Client
	httpClient *http.Client
	channel    string
	header     string
	log        *zap.Logger
}

// NewSlack creates a Slack publisher. apiURL overrides the Web API base (with trailing slash).
func NewSlack(token, channel, header, apiURL string, log *zap.Logger) (*Slack, error) {
	return newSlack(token, channel, header, apiURL, httputil.NewClient(), log)
}

func newSlack(token, channel, header, apiURL string, httpClient *http.Client, log *zap.Logger) (*Slack, error) {
	if token == "" {
		return nil, fmt.Errorf("Slack bot token is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("Slack channel is required when a bot token is set")
	}
	if log == nil {
		log = zap.NewNop()
	}

	opts := []slack.Option{slack.OptionHTTPClient(httpClient)}
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}

	return &Slack{
		client:     slack.New(token, opts...),
		httpClient: httpClient,
		channel:    channel,
		header:     header,
		log:        log,
	}, nil
}

func (s *Slack) Name() string { return "slack" }

// Publish returns the timestamp of the poem message
func (s *Slack) Publish(ctx context.Context, poem models.Poem) (string, error) {
	var threadTS string
	if s.header != "" {
		_, ts, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(s.header, false))
		if err != nil {
			s.log.Warn("slack header failed; posting poem without thread", zap.String("channel", s.channel), zap.Error(err))
		} else {
			threadTS = ts
		}
	}

	opts := []slack.MsgOption{slack.MsgOptionText(poem.Text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, ts, err := s.client.PostMessageContext(ctx, s.channel, opts...)
	if err != nil {
		return "", fmt.Errorf("posting poem: %w", err)
	}
	return ts, nil
}
