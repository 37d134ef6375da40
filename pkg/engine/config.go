// config.go defines the functional options accepted by New: a private
// config struct, a defaultConfig constructor, and a set of public With*
// options applied in order. Engine has no type parameters, so Option is a
// plain function type rather than generic.
//
// © 2025 claw-finder authors. MIT License.
package engine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dreamware/clawfind/internal/journal"
	"github.com/dreamware/clawfind/internal/sizing"
	"github.com/dreamware/clawfind/internal/telemetry"
)

// Option configures an Engine at construction time.
type Option func(*config)

type config struct {
	logger       *zap.Logger
	metrics      telemetry.Sink
	journal      *journal.Journal
	earlyExit    bool
	maxResults   int
	relativeFill float64
}

func defaultConfig() config {
	return config{
		logger:       zap.NewNop(),
		metrics:      telemetry.NewSink(nil),
		journal:      nil,
		earlyExit:    false,
		maxResults:   16,
		relativeFill: sizing.RelativeFillParallel,
	}
}

// WithLogger plugs an external zap.Logger. The engine logs each peer's
// completed round at Debug, the end of the search with its solution count
// at Info, and an aborted search at Error.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection via reg. Passing nil
// disables metrics (the default).
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *config) { c.metrics = telemetry.NewSink(reg) }
}

// WithJournal durably records every verified solution through j once all
// peers have finished, before Run returns. Passing nil (the default)
// disables the journal.
func WithJournal(j *journal.Journal) Option {
	return func(c *config) { c.journal = j }
}

// WithEarlyExit enables the optional early-exit all-reduce: the round
// driver returns as soon as any peer's drain reports a nonzero global
// solution count.
func WithEarlyExit(enabled bool) Option {
	return func(c *config) { c.earlyExit = enabled }
}

// WithMaxResults overrides the default cap of 16 solutions per peer; a peer
// that verifies one more solution than the cap aborts the run with an
// overflow error.
func WithMaxResults(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithBatchFillRatio selects the RELATIVE_FILL constant used to size
// staging batches: sizing.RelativeFillParallel (default) or
// sizing.RelativeFillLightweight.
func WithBatchFillRatio(ratio float64) Option {
	return func(c *config) {
		if ratio > 0 {
			c.relativeFill = ratio
		}
	}
}

var errInvalidMaxResults = errors.New("max results must be > 0")

func (c config) validate() error {
	if c.maxResults <= 0 {
		return errInvalidMaxResults
	}
	return nil
}
