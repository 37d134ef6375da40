// Package telemetry is a thin abstraction over Prometheus so the claw-finder
// engine can run with or without metrics: a noop implementation and a
// Prometheus-backed one, chosen once at construction so the hot path never
// branches on "is metrics enabled".
//
// Metrics are per-peer; aggregation (sum, rate) is left to the Prometheus
// side. Names follow Prometheus conventions, "_total" suffix for counters.
//
//	┌───────────────────────────────┬───────┬────────┐
//	│ Metric                        │ Type  │ Labels │
//	├────────────────────────────────┼───────┼────────┤
//	│ claw_buffer_occupancy_ratio    │ Gauge │ peer   │
//	│ claw_candidates_total          │ Ctr   │ peer   │
//	│ claw_solutions_total           │ Ctr   │ peer   │
//	│ claw_round_seconds             │ Gauge │ peer   │
//	└────────────────────────────────┴───────┴────────┘
//
// © 2025 claw-finder authors. MIT License.
package telemetry

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink is the internal interface abstracting the concrete metrics backend.
// Engine and its callers only depend on these methods, never on Prometheus
// types directly.
type Sink interface {
	SetOccupancy(peer uint64, ratio float64)
	AddCandidates(peer uint64, n uint64)
	AddSolutions(peer uint64, n uint64)
	SetRoundSeconds(peer uint64, seconds float64)
}

type noopSink struct{}

func (noopSink) SetOccupancy(uint64, float64)   {}
func (noopSink) AddCandidates(uint64, uint64)   {}
func (noopSink) AddSolutions(uint64, uint64)    {}
func (noopSink) SetRoundSeconds(uint64, float64) {}

type promSink struct {
	occupancy     *prometheus.GaugeVec
	candidates    *prometheus.CounterVec
	solutions     *prometheus.CounterVec
	roundDuration *prometheus.GaugeVec
}

func newPromSink(reg *prometheus.Registry) *promSink {
	label := []string{"peer"}
	s := &promSink{
		occupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "claw", Name: "buffer_occupancy_ratio",
			Help: "Running average staging-batch occupancy ratio.",
		}, label),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claw", Name: "candidates_total",
			Help: "Number of reduced-key probe hits examined.",
		}, label),
		solutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claw", Name: "solutions_total",
			Help: "Number of verified golden-claw solutions found.",
		}, label),
		roundDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "claw", Name: "round_seconds",
			Help: "Wall-clock duration of the most recently completed round.",
		}, label),
	}
	reg.MustRegister(s.occupancy, s.candidates, s.solutions, s.roundDuration)
	return s
}

func (s *promSink) SetOccupancy(peer uint64, ratio float64) {
	s.occupancy.WithLabelValues(strconv.FormatUint(peer, 10)).Set(ratio)
}
func (s *promSink) AddCandidates(peer uint64, n uint64) {
	s.candidates.WithLabelValues(strconv.FormatUint(peer, 10)).Add(float64(n))
}
func (s *promSink) AddSolutions(peer uint64, n uint64) {
	s.solutions.WithLabelValues(strconv.FormatUint(peer, 10)).Add(float64(n))
}
func (s *promSink) SetRoundSeconds(peer uint64, seconds float64) {
	s.roundDuration.WithLabelValues(strconv.FormatUint(peer, 10)).Set(seconds)
}

// NewSink decides which Sink implementation to use. A nil registry yields a
// no-op sink, so the engine never pays for metric updates unless the caller
// opted in.
func NewSink(reg *prometheus.Registry) Sink {
	if reg == nil {
		return noopSink{}
	}
	return newPromSink(reg)
}

// Snapshot is the root-only summary of a completed run, equivalent to the
// counters a real MPI root would reduce from every peer. The engine fills
// one of these in after the last round and hands it to the CLI for
// reporting.
type Snapshot struct {
	N              uint
	Peers          uint64
	CompressFactor uint
	ComputeSeconds float64
	CommSeconds    float64
	FillSeconds    float64
	ProbeSeconds   float64
	OccupancyPct   float64
}

// CSVRow renders the snapshot as the ">>>"-prefixed structured row a
// harness can grep out of otherwise human-readable stdout, one field per
// column: n,P,c,compute_time,comm_time,fill_time,probe_time,occupancy_pct.
func (s Snapshot) CSVRow() string {
	return fmt.Sprintf(">>>%d,%d,%d,%.12f,%.12f,%.12f,%.12f,%.12f",
		s.N, s.Peers, s.CompressFactor,
		s.ComputeSeconds, s.CommSeconds, s.FillSeconds, s.ProbeSeconds, s.OccupancyPct)
}
