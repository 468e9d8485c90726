package publisher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jgoulah/poemcast/internal/config"
	"github.com/jgoulah/poemcast/pkg/models"
)

var ErrPostTooLong = errors.New("post exceeds destination length limit")

// Publisher posts a poem to one destination and returns the destination's id for the post
type Publisher interface {
	Name() string
	Publish(ctx context.Context, poem models.Poem) (remoteID string, err error)
}

// Closer is implemented by publishers holding a connection
type Closer interface {
	Close()
}

// Result is the outcome of publishing to one destination
type Result struct {
	Destination string
	RemoteID    string
	Err         error
}

// FromConfig builds a publisher for every enabled destination
func FromConfig(cfg *config.Config, log *zap.Logger) ([]Publisher, error) {
	var pubs []Publisher

	if cfg.SlackEnabled() {
		p, err := NewSlack(cfg.Slack.BotToken, cfg.Slack.Channel, cfg.GetSlackHeader(), cfg.Slack.APIURL, log)
		if err != nil {
			return nil, fmt.Errorf("creating slack publisher: %w", err)
		}
		pubs = append(pubs, p)
	}

	if cfg.BlueskyEnabled() {
		p, err := NewBluesky(cfg.GetBlueskyHost(), cfg.Bluesky.Username, cfg.Bluesky.Password)
		if err != nil {
			return nil, fmt.Errorf("creating bluesky publisher: %w", err)
		}
		pubs = append(pubs, p)
	}

	if cfg.MQTTEnabled() {
		p, err := NewMQTT(cfg.MQTT, cfg.GetTopicPrefix())
		if err != nil {
			Close(pubs)
			return nil, fmt.Errorf("creating mqtt publisher: %w", err)
		}
		pubs = append(pubs, p)
	}

	if cfg.TelegramEnabled() {
		p, err := NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "")
		if err != nil {
			Close(pubs)
			return nil, fmt.Errorf("creating telegram publisher: %w", err)
		}
		pubs = append(pubs, p)
	}

	return pubs, nil
}

// Close releases any publisher connections
func Close(pubs []Publisher) {
	for _, p := range pubs {
		if c, ok := p.(Closer); ok {
			c.Close()
		}
	}
}

// PublishAll posts the poem to every publisher concurrently. A failing
// destination does not stop the others; results keep the order of pubs.
func PublishAll(ctx context.Context, pubs []Publisher, poem models.Poem) []Result {
	results := make([]Result, len(pubs))

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range pubs {
		g.Go(func() error {
			remoteID, err := p.Publish(ctx, poem)
			results[i] = Result{Destination: p.Name(), RemoteID: remoteID, Err: err}
			// Never cancel siblings: each destination stands alone
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// JoinErrors combines the failures in results into one error, or nil
func JoinErrors(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Destination, r.Err))
		}
	}
	return errors.Join(errs...)
}
