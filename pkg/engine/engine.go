// Package engine is the public orchestration surface of the claw-finder: it
// wires internal/shardtable, internal/staging, internal/peergroup and
// internal/mitm into the two-phase (fill/probe) round driver state machine
// that finds golden claws, exposing only New/Run/Plan to callers so the
// shard/transport/cipher machinery underneath stays an implementation
// detail.
//
// © 2025 claw-finder authors. MIT License.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/clawfind/internal/clawerr"
	"github.com/dreamware/clawfind/internal/mitm"
	"github.com/dreamware/clawfind/internal/peergroup"
	"github.com/dreamware/clawfind/internal/sizing"
	"github.com/dreamware/clawfind/internal/telemetry"
)

// Engine holds everything derived once at construction time: the MITM
// problem instance, the sizing plan, the peer-group transport and the
// resolved configuration. Each Run allocates fresh per-peer shard tables,
// staging batches and barriers, so nothing here needs to be reset between
// calls, but there is no benefit to reuse either.
type Engine struct {
	problem   mitm.Problem
	plan      sizing.Plan
	cfg       config
	transport peergroup.Transport
}

// New constructs an Engine for a search radius of n bits against ciphertext
// pair (c0,c1), running peers peer-group members under memBudgetBytes of
// total memory.
func New(n uint, peers uint64, memBudgetBytes uint64, c0, c1 mitm.Pair, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	plan, err := sizing.Plan(n, peers, memBudgetBytes, cfg.relativeFill)
	if err != nil {
		return nil, err
	}

	return &Engine{
		problem:   mitm.NewProblem(n, c0, c1),
		plan:      plan,
		cfg:       cfg,
		transport: peergroup.NewInProcess(peers),
	}, nil
}

// Plan exposes the sizing decisions derived at construction time, for a
// caller that wants to print a startup banner.
func (e *Engine) Plan() sizing.Plan { return e.plan }

// Result bundles the verified solutions found by a completed Run with the
// diagnostics snapshot a caller can render as a stats row.
type Result struct {
	Solutions []Solution
	Stats     telemetry.Snapshot
}

// Run drives every peer through the round-by-round fill/probe state
// machine (FILL_LOCAL -> FILL_DRAIN -> PROBE_LOCAL -> PROBE_DRAIN -> RESET
// -> next round | DONE) until every round has run or, with WithEarlyExit
// enabled, a golden claw is found by any peer.
//
// There is no cancellation once peers have started exchanging: the
// bulk-synchronous collectives require every peer to participate, so an
// error from one peer can leave the others blocked, mirroring a crashed
// rank deadlocking a real MPI job. Run checks ctx once, before any peer
// starts; cancelling it after that has no effect on the search.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	fillBarriers := make([]*peergroup.Barrier, e.plan.Rounds)
	probeBarriers := make([]*peergroup.Barrier, e.plan.Rounds)
	for r := range fillBarriers {
		fillBarriers[r] = peergroup.NewBarrier(e.plan.Peers)
		probeBarriers[r] = peergroup.NewBarrier(e.plan.Peers)
	}

	g, _ := errgroup.WithContext(ctx)
	results := make([]peerResult, e.plan.Peers)

	start := time.Now()
	for rank := uint64(0); rank < e.plan.Peers; rank++ {
		rank := rank
		g.Go(func() error {
			p := newPeerCtx(e, rank)
			res, err := p.run(fillBarriers, probeBarriers)
			results[rank] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		e.cfg.logger.Error("claw search aborted", zap.Error(err))
		return Result{}, err
	}
	totalElapsed := time.Since(start)

	solutions, err := e.mergeAndVerify(results)
	if err != nil {
		return Result{}, err
	}

	stats := e.snapshot(results, totalElapsed)
	var candidates uint64
	for _, r := range results {
		candidates += r.candidates
	}
	e.cfg.logger.Info("claw search complete",
		zap.Int("solutions", len(solutions)),
		zap.Int("rounds", int(e.plan.Rounds)),
		zap.Uint64("candidates", candidates),
	)
	return Result{Solutions: solutions, Stats: stats}, nil
}

// mergeAndVerify concatenates every peer's locally discovered candidates
// (disjoint by construction, since enumeration strides never overlap) and
// re-checks each one against both f(k1)==g(k2) and IsGoodPair before
// returning it, catching a mod-PRIME false positive that slipped past a
// peer's own verification.
func (e *Engine) mergeAndVerify(results []peerResult) ([]Solution, error) {
	var out []Solution
	for _, r := range results {
		for _, s := range r.solutions {
			if e.problem.F(s.K1) != e.problem.G(s.K2) || !e.problem.IsGoodPair(s.K1, s.K2) {
				return nil, fatalMismatch(s)
			}
			if e.cfg.journal != nil {
				if _, err := e.cfg.journal.Record(s.K1, s.K2); err != nil {
					return nil, err
				}
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// fatalMismatch builds the invariant-violation error raised when a
// peer-reported solution fails the root-level double-check: this should be
// unreachable given correct per-peer verification, so its occurrence
// always indicates a bug rather than a recoverable condition.
func fatalMismatch(s Solution) error {
	return clawerr.New(clawerr.KindInvariant, "engine.mergeAndVerify", nil)
}

// overflowSolutions is raised when a peer verifies another solution while
// its local solution count already equals maxResults: the caller is
// expected to treat the overflow as fatal rather than silently truncate the
// result set.
func overflowSolutions() error {
	return clawerr.New(clawerr.KindOverflow, "engine.drainProbes", nil)
}

func (e *Engine) snapshot(results []peerResult, totalElapsed time.Duration) telemetry.Snapshot {
	var fillSum, probeSum, occupancySum float64
	for _, r := range results {
		fillSum += r.fillSeconds
		probeSum += r.probeSeconds
		occupancySum += r.occupancyRatio
	}
	n := float64(len(results))
	return telemetry.Snapshot{
		N:              e.plan.N,
		Peers:          e.plan.Peers,
		CompressFactor: e.plan.CompressFactor,
		ComputeSeconds: totalElapsed.Seconds(),
		CommSeconds:    0, // comm time is folded into fill/probe seconds below the rendezvous boundary
		FillSeconds:    fillSum / n,
		ProbeSeconds:   probeSum / n,
		OccupancyPct:   occupancySum / n * 100,
	}
}
