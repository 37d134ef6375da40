// Package peergroup provides the peer-group transport contract consumed by
// the round driver and its only implementation in this repository: an
// in-process transport for peers running as goroutines (pkg/engine starts
// them with golang.org/x/sync/errgroup), where every collective is a
// mutex and condition-variable rendezvous.
//
// The worker group is conceptually P OS processes talking over MPI-style
// collectives. This repository has no real MPI binding available (see
// DESIGN.md), so a Transport here stands in for MPI_COMM_WORLD: every peer
// is a goroutine holding its own rank, and Transport's methods are the
// collectives each peer calls at the same logical point in the round
// driver's state machine. The in-process implementation preserves every
// ordering and atomicity guarantee a real collective would give — no
// point-to-point messages, every collective is symmetric, a missing
// participant deadlocks the round exactly as a missing MPI rank would.
//
// © 2025 claw-finder authors. MIT License.
package peergroup

import (
	"sync"
	"sync/atomic"

	"github.com/dreamware/clawfind/internal/clawerr"
	"github.com/dreamware/clawfind/internal/staging"
)

// Transport is the external collaborator contract for peer-to-peer
// collectives: a size-preserving in-place all-to-all for counts and
// payloads, and a scalar all-reduce (sum). Rank assignment is implicit —
// every method takes the caller's rank explicitly since there is no
// ambient "current peer" in Go.
type Transport interface {
	// NumPeers returns P, the fixed peer-group size for this run.
	NumPeers() uint64

	// ExchangeCounts performs the counts all-to-all, the first of the two
	// steps in one exchange round: send must have exactly NumPeers()
	// entries, send[j] being how many elements rank will ship to peer j.
	// The returned slice holds, at index i, how many elements peer i is
	// shipping to rank.
	ExchangeCounts(rank uint64, send []uint64) ([]uint64, error)

	// ExchangePayload performs the payload all-to-all, the second step:
	// send[j] holds the elements rank is shipping to peer j. The returned
	// slice holds, at index i, the elements peer i shipped to rank.
	ExchangePayload(rank uint64, send [][]staging.Elem) ([][]staging.Elem, error)

	// AllReduceSum sums local across every peer and returns the total to
	// all of them, used by the optional early-exit check after each probe
	// drain.
	AllReduceSum(rank uint64, local uint64) (uint64, error)
}

// rendezvous is a generic all-to-one-then-one-to-all barrier: every
// participant calls exchange with its own contribution and blocks until all
// participants have called it, at which point compute runs once against
// every contribution and each caller receives its own slot of the result.
// This is the building block every Transport collective is implemented on
// top of.
type rendezvous[T any] struct {
	n             int
	mu            sync.Mutex
	cond          *sync.Cond
	generation    uint64
	arrived       int
	contributions []T
	results       []T
}

func newRendezvous[T any](n int) *rendezvous[T] {
	r := &rendezvous[T]{n: n, contributions: make([]T, n), results: make([]T, n)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *rendezvous[T]) exchange(rank int, contribution T, compute func([]T) []T) T {
	r.mu.Lock()
	gen := r.generation
	r.contributions[rank] = contribution
	r.arrived++
	if r.arrived == r.n {
		r.results = compute(r.contributions)
		r.contributions = make([]T, r.n)
		r.arrived = 0
		r.generation++
		r.cond.Broadcast()
	} else {
		for r.generation == gen {
			r.cond.Wait()
		}
	}
	res := r.results[rank]
	r.mu.Unlock()
	return res
}

// InProcess implements Transport by fanning the collectives out across
// goroutines sharing one process: every call blocks until every rank in
// [0,numPeers) has called the same collective, exactly mirroring the
// all-or-nothing semantics of a real MPI_Alltoall/MPI_Allreduce.
type InProcess struct {
	numPeers  uint64
	counts    *rendezvous[[]uint64]
	payload   *rendezvous[[][]staging.Elem]
	allreduce *rendezvous[uint64]
}

// NewInProcess constructs an in-process Transport for numPeers peers.
func NewInProcess(numPeers uint64) *InProcess {
	n := int(numPeers)
	return &InProcess{
		numPeers:  numPeers,
		counts:    newRendezvous[[]uint64](n),
		payload:   newRendezvous[[][]staging.Elem](n),
		allreduce: newRendezvous[uint64](n),
	}
}

func (t *InProcess) NumPeers() uint64 { return t.numPeers }

func (t *InProcess) ExchangeCounts(rank uint64, send []uint64) ([]uint64, error) {
	if uint64(len(send)) != t.numPeers {
		return nil, clawerr.New(clawerr.KindTransport, "peergroup.ExchangeCounts", nil)
	}
	res := t.counts.exchange(int(rank), send, transposeCounts)
	return res, nil
}

func (t *InProcess) ExchangePayload(rank uint64, send [][]staging.Elem) ([][]staging.Elem, error) {
	if uint64(len(send)) != t.numPeers {
		return nil, clawerr.New(clawerr.KindTransport, "peergroup.ExchangePayload", nil)
	}
	res := t.payload.exchange(int(rank), send, transposePayload)
	return res, nil
}

func (t *InProcess) AllReduceSum(rank uint64, local uint64) (uint64, error) {
	res := t.allreduce.exchange(int(rank), local, sumAllReduce)
	return res, nil
}

// transposeCounts implements the all-to-all transpose: out[dst][src] =
// contributions[src][dst], i.e. "how much did src send me" for every dst.
func transposeCounts(contributions [][]uint64) [][]uint64 {
	n := len(contributions)
	out := make([][]uint64, n)
	for dst := 0; dst < n; dst++ {
		out[dst] = make([]uint64, n)
		for src := 0; src < n; src++ {
			out[dst][src] = contributions[src][dst]
		}
	}
	return out
}

// transposePayload performs the same transpose as transposeCounts but over
// staged payload slices instead of scalar counts.
func transposePayload(contributions [][][]staging.Elem) [][][]staging.Elem {
	n := len(contributions)
	out := make([][][]staging.Elem, n)
	for dst := 0; dst < n; dst++ {
		out[dst] = make([][]staging.Elem, n)
		for src := 0; src < n; src++ {
			out[dst][src] = contributions[src][dst]
		}
	}
	return out
}

// sumAllReduce sums every contribution and broadcasts the same total to
// every participant.
func sumAllReduce(contributions []uint64) []uint64 {
	var total uint64
	for _, c := range contributions {
		total += c
	}
	out := make([]uint64, len(contributions))
	for i := range out {
		out[i] = total
	}
	return out
}

// Barrier is the non-blocking quiescence barrier used to drain residual
// staging batches once a peer's local enumeration is done: a peer Enters it
// once (after finishing its local enumeration) and Polls it
// on every subsequent quiescence-loop iteration; Poll reports true only
// once every peer in the group has entered. Because every quiescence-loop
// iteration also calls a blocking Transport collective, all peers progress
// through iterations in lockstep, so Poll's result is consistent without
// needing its own rendezvous — a plain atomic counter suffices.
type Barrier struct {
	n       uint64
	entered atomic.Uint64
}

// NewBarrier allocates a fresh barrier for a group of n peers.
func NewBarrier(n uint64) *Barrier { return &Barrier{n: n} }

// Enter records that the calling peer has finished its local work and is
// now waiting for the rest of the group. Idempotent calls are not
// supported — call it exactly once per peer per barrier instance.
func (b *Barrier) Enter() { b.entered.Add(1) }

// Poll reports whether every peer in the group has called Enter.
func (b *Barrier) Poll() bool { return b.entered.Load() >= b.n }
