package session

import (
	"log/slog"

	"github.com/jtomasevic/incscore/pkg/score"
)

type options struct {
	logger       *slog.Logger
	trackMatches bool
	assert       bool
	metrics      bool
	weights      map[string]score.Score
	config       *Config
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConstraintMatches keeps every live match with its justification and
// indicted objects. Without it only per-constraint totals are kept.
func WithConstraintMatches() Option {
	return func(o *options) { o.trackMatches = true }
}

// WithAssertions verifies the incremental score against a full rebuild after
// every change. It is slow and meant for tests and debugging.
func WithAssertions() Option {
	return func(o *options) { o.assert = true }
}

// WithMetrics records operation counts and latencies in the default
// prometheus registry.
func WithMetrics() Option {
	return func(o *options) { o.metrics = true }
}

// WithConstraintWeights overrides constraint weights by constraint id.
// Later calls add to earlier ones.
func WithConstraintWeights(weights map[string]score.Score) Option {
	return func(o *options) {
		if o.weights == nil {
			o.weights = map[string]score.Score{}
		}
		for id, w := range weights {
			o.weights[id] = w
		}
	}
}

// WithConfig applies a loaded Config. Its flags are OR-ed with the other
// options; its weights are parsed when the factory is created.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = &cfg
		o.trackMatches = o.trackMatches || cfg.ConstraintMatches
		o.assert = o.assert || cfg.Assert
		o.metrics = o.metrics || cfg.Metrics
	}
}
