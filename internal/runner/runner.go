// Package runner is the execution step: generate a poem, record it, and post
// it to every configured destination.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jgoulah/poemcast/internal/generator"
	"github.com/jgoulah/poemcast/internal/publisher"
	"github.com/jgoulah/poemcast/pkg/models"
)

// Store records poems and delivery outcomes
type Store interface {
	InsertPoem(poem *models.Poem, destinations []string) error
	MarkPublished(poemID int, destination, remoteID string) error
	MarkFailed(poemID int, destination string, cause error) error
}

// Report describes one execution
type Report struct {
	Poem    models.Poem
	Results []publisher.Result
}

// Runner runs the execution step
type Runner struct {
	gen   generator.Generator
	pubs  []publisher.Publisher
	store Store
	log   *zap.Logger
	out   io.Writer
	now   func() time.Time
	newID func() string
}

// Option configures a Runner
type Option func(*Runner)

// WithStore records poems and deliveries in s
func WithStore(s Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithOutput sets where the generated poem is printed (default stdout)
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner
func New(gen generator.Generator, pubs []publisher.Publisher, opts ...Option) *Runner {
	r := &Runner{
		gen:   gen,
		pubs:  pubs,
		log:   zap.NewNop(),
		out:   os.Stdout,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run generates a poem for theme and publishes it. Generation failure stops
// the run before anything is posted; destination failures are joined into
// the returned error after every destination has been tried.
func (r *Runner) Run(ctx context.Context, theme string) (*Report, error) {
	runID := r.newID()
	log := r.log.With(zap.String("run_id", runID), zap.String("engine", r.gen.Name()), zap.String("model", r.gen.Model()))

	if len(r.pubs) == 0 {
		log.Warn("no destinations configured; the poem will only be printed")
	}

	log.Info("generating poem", zap.String("theme", theme))
	text, err := r.gen.Generate(ctx, theme)
	if err != nil {
		return nil, fmt.Errorf("generating poem: %w", err)
	}
	fmt.Fprintln(r.out, text)

	poem := models.Poem{
		RunID:     runID,
		Theme:     theme,
		Text:      text,
		Engine:    r.gen.Name(),
		Model:     r.gen.Model(),
		CreatedAt: r.now().UTC(),
	}

	if r.store != nil {
		if err := r.store.InsertPoem(&poem, destinationNames(r.pubs)); err != nil {
			// History is best effort; posting still goes ahead
			log.Error("recording poem failed", zap.Error(err))
		}
	}

	results := r.publish(ctx, log, poem, r.pubs)
	return &Report{Poem: poem, Results: results}, publisher.JoinErrors(results)
}

// Republish posts an existing poem to pubs and records the outcomes
func (r *Runner) Republish(ctx context.Context, poem models.Poem, pubs []publisher.Publisher) ([]publisher.Result, error) {
	log := r.log.With(zap.Int("poem_id", poem.ID), zap.String("run_id", poem.RunID))
	results := r.publish(ctx, log, poem, pubs)
	return results, publisher.JoinErrors(results)
}

func (r *Runner) publish(ctx context.Context, log *zap.Logger, poem models.Poem, pubs []publisher.Publisher) []publisher.Result {
	results := publisher.PublishAll(ctx, pubs, poem)

	for _, res := range results {
		if res.Err != nil {
			log.Error("publish failed", zap.String("destination", res.Destination), zap.Error(res.Err))
		} else {
			log.Info("published", zap.String("destination", res.Destination), zap.String("remote_id", res.RemoteID))
		}
		r.record(log, poem, res)
	}
	return results
}

func (r *Runner) record(log *zap.Logger, poem models.Poem, res publisher.Result) {
	if r.store == nil || poem.ID == 0 {
		return
	}
	var err error
	if res.Err != nil {
		err = r.store.MarkFailed(poem.ID, res.Destination, res.Err)
	} else {
		err = r.store.MarkPublished(poem.ID, res.Destination, res.RemoteID)
	}
	if err != nil {
		log.Warn("recording delivery failed", zap.String("destination", res.Destination), zap.Error(err))
	}
}

func destinationNames(pubs []publisher.Publisher) []string {
	names := make([]string, 0, len(pubs))
	for _, p := range pubs {
		names = append(names, p.Name())
	}
	return names
}
