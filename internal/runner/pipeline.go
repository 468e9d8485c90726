package runner

import (
	"context"

	"go.uber.org/zap"

	"github.com/jgoulah/poemcast/internal/gate"
)

// Pipeline chains the gate check and the execution step
type Pipeline struct {
	Gate    *gate.Gate
	Execute func(ctx context.Context) error
	Log     *zap.Logger
}

// Tick evaluates the gate and runs Execute only when it passes. force skips
// the gate (manual trigger). The returned Decision reflects the gate even when forced.
func (p *Pipeline) Tick(ctx context.Context, force bool) (gate.Decision, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	d := p.Gate.Evaluate()
	if !d.ShouldRun && !force {
		log.Info("not a report hour; skipping", zap.Int("hour", d.Hour))
		return d, nil
	}
	if force && !d.ShouldRun {
		log.Info("forced run outside report hours", zap.Int("hour", d.Hour))
	}

	return d, p.Execute(ctx)
}
