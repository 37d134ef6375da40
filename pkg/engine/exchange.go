package engine

import (
	"github.com/dreamware/clawfind/internal/peergroup"
	"github.com/dreamware/clawfind/internal/shardtable"
	"github.com/dreamware/clawfind/internal/sizing"
	"github.com/dreamware/clawfind/internal/staging"
)

// fillLocal enumerates this peer's share of the round's fill range (the
// parallel-variant stride) and stages (f(x), x) into the destination
// peer's batch, flushing immediately whenever a batch fills.
func (p *peerCtx) fillLocal(round uint64) error {
	start, step, count := sizing.FillStrideParallel(p.eng.plan, p.rank, round)
	for i := uint64(0); i < count; i++ {
		x := start + i*step
		z := p.eng.problem.F(x)
		if _, full := p.batches.Push(z, x); full {
			if err := p.exchangeAndDrainFill(); err != nil {
				return err
			}
		}
	}
	return nil
}

// probeLocal enumerates the full [0,N) probe range and stages (g(z), z),
// flushing on batch-full exactly as fillLocal does. It
// returns stop=true if an early-exit all-reduce (see exchangeAndDrainProbe)
// reports a golden claw has been found anywhere in the peer group.
func (p *peerCtx) probeLocal() (stop bool, err error) {
	start, step, count := sizing.ProbeStride(p.eng.plan, p.rank)
	for i := uint64(0); i < count; i++ {
		z := start + i*step
		y := p.eng.problem.G(z)
		if _, full := p.batches.Push(y, z); full {
			stop, err := p.exchangeAndDrainProbe()
			if err != nil {
				return false, err
			}
			if stop {
				return true, nil
			}
		}
	}
	return false, nil
}

// quiesceFill runs the non-blocking quiescence loop for the fill phase:
// enter the barrier, then keep exchanging and draining until every peer
// has entered.
func (p *peerCtx) quiesceFill(barrier *peergroup.Barrier) error {
	barrier.Enter()
	for {
		if err := p.exchangeAndDrainFill(); err != nil {
			return err
		}
		if barrier.Poll() {
			return nil
		}
	}
}

// quiesceProbe mirrors quiesceFill for the probe phase, additionally
// propagating the early-exit stop signal out of every drain.
func (p *peerCtx) quiesceProbe(barrier *peergroup.Barrier) (stop bool, err error) {
	barrier.Enter()
	for {
		stop, err := p.exchangeAndDrainProbe()
		if err != nil {
			return false, err
		}
		if stop {
			return true, nil
		}
		if barrier.Poll() {
			return false, nil
		}
	}
}

// exchangeAndDrainFill performs the counts+payload all-to-all over this
// peer's outbound batches and inserts every received pair into the local
// shard.
func (p *peerCtx) exchangeAndDrainFill() error {
	p.batches.RecordOccupancy()

	recvPayload, err := p.exchangeBatches()
	if err != nil {
		return err
	}

	for _, elems := range recvPayload {
		for _, el := range elems {
			_, localIdx := shardtable.Route(el.Key, p.eng.plan.SGlobal, p.eng.plan.SLocal)
			if err := p.table.Insert(localIdx, el.Key, el.Value); err != nil {
				return err
			}
		}
	}

	p.batches.Reset()
	p.eng.cfg.metrics.SetOccupancy(p.rank, p.batches.AverageOccupancy())
	return nil
}

// exchangeAndDrainProbe performs the same all-to-all as exchangeAndDrainFill
// but over probe pairs (y,z): it queries the local shard for each y,
// verifies every hit with IsGoodPair, and records any golden claw found.
// When early exit is enabled it then runs an all-reduce over the running
// solution counts and reports stop=true once any peer's count is nonzero.
func (p *peerCtx) exchangeAndDrainProbe() (stop bool, err error) {
	p.batches.RecordOccupancy()

	recvPayload, err := p.exchangeBatches()
	if err != nil {
		return false, err
	}

	var candidatesThisDrain uint64
	for _, elems := range recvPayload {
		for _, el := range elems {
			y, z := el.Key, el.Value
			_, localIdx := shardtable.Route(y, p.eng.plan.SGlobal, p.eng.plan.SLocal)
			hits, err := p.table.Probe(localIdx, y)
			if err != nil {
				return false, err
			}
			candidatesThisDrain += uint64(len(hits))
			for _, xHit := range hits {
				if !p.eng.problem.IsGoodPair(xHit, z) {
					continue
				}
				if len(p.sols) == p.eng.cfg.maxResults {
					return false, overflowSolutions()
				}
				p.sols = append(p.sols, Solution{K1: xHit, K2: z})
				p.nres++
				p.eng.cfg.metrics.AddSolutions(p.rank, 1)
			}
		}
	}
	p.candidatesLocal += candidatesThisDrain

	p.batches.Reset()
	p.eng.cfg.metrics.AddCandidates(p.rank, candidatesThisDrain)
	p.eng.cfg.metrics.SetOccupancy(p.rank, p.batches.AverageOccupancy())

	if !p.eng.cfg.earlyExit {
		return false, nil
	}
	total, err := p.eng.transport.AllReduceSum(p.rank, uint64(p.nres))
	if err != nil {
		return false, err
	}
	if total > 0 {
		return true, nil
	}
	return false, nil
}

// exchangeBatches runs the two-step all-to-all (counts, then payload)
// over this peer's current staging batches and returns, for every source
// peer, the elements it shipped here this round.
func (p *peerCtx) exchangeBatches() ([][]staging.Elem, error) {
	numPeers := p.batches.NumPeers()

	sendCounts := make([]uint64, numPeers)
	for i := uint64(0); i < numPeers; i++ {
		sendCounts[i] = p.batches.Count(i)
	}
	if _, err := p.eng.transport.ExchangeCounts(p.rank, sendCounts); err != nil {
		return nil, err
	}

	sendPayload := make([][]staging.Elem, numPeers)
	for i := uint64(0); i < numPeers; i++ {
		sendPayload[i] = p.batches.Peer(i)
	}
	return p.eng.transport.ExchangePayload(p.rank, sendPayload)
}
