// Package schedule fires a job on a cron expression in UTC, standing in for
// the CI runner's hourly trigger on hosts without one.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Daemon runs one job on a cron schedule until its context is cancelled
type Daemon struct {
	expr string
	job  func(ctx context.Context)
	log  *zap.Logger
}

// New creates a Daemon. expr is a five-field cron expression evaluated in UTC.
func New(expr string, job func(ctx context.Context), log *zap.Logger) *Daemon {
	if log == nil {
		log = zap.NewNop()
	}
	return &Daemon{expr: expr, job: job, log: log}
}

// Validate reports whether expr is a usable cron expression
func Validate(expr string) error {
	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Cron(expr).Do(func() {}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Run blocks until ctx is done. Overlapping firings are skipped, never queued.
func (d *Daemon) Run(ctx context.Context) error {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	job, err := s.Cron(d.expr).Do(func() {
		d.log.Debug("schedule fired")
		d.job(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", d.expr, err)
	}

	s.StartAsync()
	d.log.Info("daemon started", zap.String("schedule", d.expr), zap.Time("next_run", job.NextRun()))

	<-ctx.Done()
	s.Stop()
	d.log.Info("daemon stopped")
	return nil
}
