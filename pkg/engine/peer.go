package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/clawfind/internal/peergroup"
	"github.com/dreamware/clawfind/internal/shardtable"
	"github.com/dreamware/clawfind/internal/staging"
)

// peerResult is what one peer goroutine hands back to Run once its rounds
// are done (or early exit fired): its share of the verified solutions plus
// the diagnostics Run aggregates into a Result.Stats snapshot.
type peerResult struct {
	solutions      []Solution
	fillSeconds    float64
	probeSeconds   float64
	occupancyRatio float64
	candidates     uint64
}

// peerCtx is the per-peer engine state, the per-peer context each round's
// fill/probe work runs against. Everything here is exclusively owned by
// one goroutine — no locking, the only shared state this peer touches is
// through e.transport and the round's barriers.
type peerCtx struct {
	eng     *Engine
	rank    uint64
	table   *shardtable.Table
	batches *staging.Batches

	nres            int
	sols            []Solution
	candidatesLocal uint64
}

func newPeerCtx(e *Engine, rank uint64) *peerCtx {
	return &peerCtx{
		eng:     e,
		rank:    rank,
		table:   shardtable.New(e.plan.SLocal, e.plan.SGlobal),
		batches: staging.New(e.plan.Peers, e.plan.BatchCap, e.plan.SLocal, e.plan.SGlobal),
	}
}

// run drives this peer through every round of the fill/probe state
// machine, stopping early if early exit is enabled and a golden claw is
// found by any peer during a probe drain.
func (p *peerCtx) run(fillBarriers, probeBarriers []*peergroup.Barrier) (peerResult, error) {
	var fillSeconds, probeSeconds float64

	for round := uint64(0); round < p.eng.plan.Rounds; round++ {
		p.table.Reset()

		fillStart := time.Now()
		if err := p.fillLocal(round); err != nil {
			return peerResult{}, err
		}
		if err := p.quiesceFill(fillBarriers[round]); err != nil {
			return peerResult{}, err
		}
		fillSeconds += time.Since(fillStart).Seconds()

		probeStart := time.Now()
		stop, err := p.probeLocal()
		if err != nil {
			return peerResult{}, err
		}
		if !stop {
			stop, err = p.quiesceProbe(probeBarriers[round])
			if err != nil {
				return peerResult{}, err
			}
		}
		probeSeconds += time.Since(probeStart).Seconds()

		p.eng.cfg.logger.Debug("round complete",
			zap.Uint64("rank", p.rank), zap.Uint64("round", round))

		if stop {
			break
		}
	}

	return peerResult{
		solutions:      p.sols,
		fillSeconds:    fillSeconds,
		probeSeconds:   probeSeconds,
		occupancyRatio: p.batches.AverageOccupancy(),
		candidates:     p.candidatesLocal,
	}, nil
}
