package gate

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Mode selects how configured report times are compared with the current hour
type Mode string

const (
	// ModeNumeric parses both sides as integers, so "08" matches hour 8
	ModeNumeric Mode = "numeric"
	// ModeStrict compares raw strings against the unpadded current hour, so "08" never matches
	ModeStrict Mode = "strict"
)

const (
	SlotMorning = "morning"
	SlotEvening = "evening"
)

// ReportTimes holds the two configured hours-of-day in UTC. Blank means unset.
type ReportTimes struct {
	Morning string
	Evening string
}

// Configured reports whether at least one report time is non-blank
func (rt ReportTimes) Configured() bool {
	return strings.TrimSpace(rt.Morning) != "" || strings.TrimSpace(rt.Evening) != ""
}

// Decision is the result of one gate evaluation
type Decision struct {
	ShouldRun bool
	Hour      int
	Slot      string // SlotMorning, SlotEvening or empty
}

// ParseMode maps a config value to a Mode. Blank selects ModeNumeric.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeNumeric:
		return ModeNumeric, nil
	case ModeStrict:
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("unknown gate compare mode: %s (available: numeric, strict)", s)
	}
}

// ParseHour parses a report time. It returns set=false for a blank value and
// an error for anything that is not an integer in [0,23].
func ParseHour(s string) (hour int, set bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	h, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid report time %q: %w", s, err)
	}
	if h < 0 || h > 23 {
		return 0, false, fmt.Errorf("invalid report time %q: hour out of range 0-23", s)
	}
	return h, true, nil
}

// Decide is the pure gate: should-run is true iff at least one report time is
// configured and the hour equals one of them. Malformed values count as unset.
func Decide(times ReportTimes, hour int, mode Mode) Decision {
	d := Decision{Hour: hour}
	if matches(times.Morning, hour, mode) {
		d.ShouldRun = true
		d.Slot = SlotMorning
		return d
	}
	if matches(times.Evening, hour, mode) {
		d.ShouldRun = true
		d.Slot = SlotEvening
	}
	return d
}

func matches(configured string, hour int, mode Mode) bool {
	if mode == ModeStrict {
		return configured != "" && configured == strconv.Itoa(hour)
	}
	h, set, err := ParseHour(configured)
	return err == nil && set && h == hour
}

// Gate evaluates ReportTimes against a clock
type Gate struct {
	times ReportTimes
	mode  Mode
	now   func() time.Time
	log   *zap.Logger
}

// Option configures a Gate
type Option func(*Gate)

// WithMode sets the comparison mode
func WithMode(m Mode) Option {
	return func(g *Gate) { g.mode = m }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithLogger sets the logger used for configuration warnings
func WithLogger(log *zap.Logger) Option {
	return func(g *Gate) { g.log = log }
}

// New creates a Gate for the given report times
func New(times ReportTimes, opts ...Option) *Gate {
	g := &Gate{
		times: times,
		mode:  ModeNumeric,
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate checks the current UTC hour against the configured report times
func (g *Gate) Evaluate() Decision {
	hour := g.now().UTC().Hour()

	if !g.times.Configured() {
		g.log.Info("no report times configured; skipping")
		return Decision{Hour: hour}
	}
	for slot, v := range map[string]string{SlotMorning: g.times.Morning, SlotEvening: g.times.Evening} {
		if _, _, err := ParseHour(v); err != nil {
			g.log.Warn("ignoring malformed report time", zap.String("slot", slot), zap.Error(err))
		}
	}

	d := Decide(g.times, hour, g.mode)
	g.log.Debug("gate evaluated",
		zap.Int("hour", d.Hour),
		zap.Bool("should_run", d.ShouldRun),
		zap.String("slot", d.Slot),
		zap.String("mode", string(g.mode)),
	)
	return d
}

// WriteOutput appends key=true|false to the runner's step output file
// (GitHub Actions $GITHUB_OUTPUT). An empty path is a no-op.
func WriteOutput(path, key string, d Decision) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s=%t\n", key, d.ShouldRun); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
