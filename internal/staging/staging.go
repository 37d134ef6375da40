// Package staging implements the per-destination-peer outbound batches:
// fixed-capacity key/value queues that buffer entries until a collective
// exchange ships them to their owning peer.
//
// © 2025 claw-finder authors. MIT License.
package staging

import (
	"sync/atomic"

	"github.com/dreamware/clawfind/internal/shardtable"
)

// Elem is one staged (key, value) pair: key is the 64-bit MITM output
// (f(x) or g(z)); value is the pre-image that produced it.
type Elem struct {
	Key, Value uint64
}

// Batches holds one fixed-capacity queue per destination peer. Capacity B
// is computed by internal/sizing; Batches itself just enforces "never
// exceed B" and tracks destination routing.
type Batches struct {
	cap     uint64
	sLocal  uint64
	sGlobal uint64
	slots   [][]Elem // slots[peer] has len == count[peer], cap == cap
	counts  []uint64

	// occupancy accumulates (sum of counts)/(cap*numPeers) across calls to
	// RecordOccupancy, for diagnostics.
	exchanges    atomic.Uint64
	cumOccupancy atomic.Uint64 // fixed-point: occupancy*1e9 summed
}

// New allocates P batches of capacity cap each, for a shard sized
// (sLocal, sGlobal) so Push can compute routing.
func New(numPeers uint64, cap uint64, sLocal, sGlobal uint64) *Batches {
	b := &Batches{
		cap:     cap,
		sLocal:  sLocal,
		sGlobal: sGlobal,
		slots:   make([][]Elem, numPeers),
		counts:  make([]uint64, numPeers),
	}
	for i := range b.slots {
		b.slots[i] = make([]Elem, 0, cap)
	}
	return b
}

// Push routes (key,value) to its destination peer's batch and appends it.
// Returns true if that batch is now exactly at capacity. Never exceeds cap
// — the caller must flush (via exchange) before the batch would overflow,
// which the fill/probe loops guarantee by checking the return value of
// every Push.
func (b *Batches) Push(key, value uint64) (peer uint64, full bool) {
	peer, _ = shardtable.Route(key, b.sGlobal, b.sLocal)
	b.slots[peer] = append(b.slots[peer], Elem{Key: key, Value: value})
	b.counts[peer] = uint64(len(b.slots[peer]))
	return peer, b.counts[peer] == b.cap
}

// Peer returns the staged elements destined for the given peer index,
// sliced to the current count (not full capacity).
func (b *Batches) Peer(i uint64) []Elem { return b.slots[i] }

// Count returns the current number of staged elements for peer i.
func (b *Batches) Count(i uint64) uint64 { return b.counts[i] }

// NumPeers returns the number of destination batches.
func (b *Batches) NumPeers() uint64 { return uint64(len(b.slots)) }

// Cap returns the fixed per-destination capacity B.
func (b *Batches) Cap() uint64 { return b.cap }

// RecordOccupancy accumulates a running average of (sum of counts)/(cap *
// numPeers), called once per exchange before the batches are drained.
func (b *Batches) RecordOccupancy() {
	var sum uint64
	for _, c := range b.counts {
		sum += c
	}
	denom := b.cap * uint64(len(b.slots))
	var ratio float64
	if denom > 0 {
		ratio = float64(sum) / float64(denom)
	}
	b.exchanges.Add(1)
	b.cumOccupancy.Add(uint64(ratio * 1e9))
}

// AverageOccupancy returns the running average occupancy ratio recorded via
// RecordOccupancy, or 0 if none have been recorded yet.
func (b *Batches) AverageOccupancy() float64 {
	n := b.exchanges.Load()
	if n == 0 {
		return 0
	}
	return float64(b.cumOccupancy.Load()) / 1e9 / float64(n)
}

// Reset truncates every peer batch back to zero length, logically resetting
// the staging area after an exchange.
func (b *Batches) Reset() {
	for i := range b.slots {
		b.slots[i] = b.slots[i][:0]
		b.counts[i] = 0
	}
}

// SetCount overwrites the count for peer i without touching slots, so a
// caller can record how many elements are incoming before filling
// slots[i]. The engine's exchange does not call it.
func (b *Batches) SetCount(i uint64, n uint64) {
	b.counts[i] = n
}

// Grow extends slots[i] to length n (zero-valued), so a payload of n
// elements can be written into peer i's batch with Set. The engine's
// exchange does not call it.
func (b *Batches) Grow(i uint64, n uint64) {
	if uint64(cap(b.slots[i])) < n {
		grown := make([]Elem, n)
		b.slots[i] = grown
		return
	}
	old := uint64(len(b.slots[i]))
	b.slots[i] = b.slots[i][:n]
	if n > old {
		clear(b.slots[i][old:])
	}
}

// Set writes elem into position idx of peer i's batch; Grow must have been
// called first to ensure idx is within length.
func (b *Batches) Set(i uint64, idx uint64, elem Elem) {
	b.slots[i][idx] = elem
}
