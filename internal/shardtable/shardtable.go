// Package shardtable implements the per-peer open-addressed, linear-probe
// hash table that backs the claw search: a contiguous slot array storing
// reduced keys and their pre-images, plus the shard-routing derivation
// shared with internal/staging.
//
// The table is *not* general purpose: it stores only the 32-bit residue of
// a 64-bit key (mod PRIME) alongside the full 64-bit pre-image, exactly the
// shape the distributed claw search needs. There is no locking here — each
// peer owns its table exclusively, so the table itself assumes
// single-goroutine access.
//
// © 2025 claw-finder authors. MIT License.
package shardtable

import (
	"github.com/dreamware/clawfind/internal/clawerr"
	"github.com/dreamware/clawfind/internal/mixer"
)

// empty is the sentinel value for an unoccupied slot. Reduction mod prime
// never produces this value, so it is safe to use as "no entry here".
const empty uint32 = 0xffffffff

// prime is the largest prime below 2^32; keys are stored as their 32-bit
// residue mod prime. Go pads the entry struct below to 16 bytes.
const prime uint64 = 0xfffffffb

// MaxProbeHits is the maximum number of reduced-key matches Probe will
// collect before reporting overflow. A collision between reduced keys
// beyond this count is vanishingly unlikely for the search radii this
// engine targets, so hitting it indicates something has gone wrong rather
// than an expected edge case.
const MaxProbeHits = 256

// entry is one slot of the shard table: a reduced key and its pre-image.
type entry struct {
	k uint32
	v uint64
}

// Route computes the shard-routing pair shared by the table and the
// staging buffers: which peer owns key, and the local slot index within
// that peer's shard once found.
func Route(key uint64, sGlobal, sLocal uint64) (peer uint64, localIndex uint64) {
	hGlobal := mixer.Mix(key) % sGlobal
	peer = hGlobal / sLocal
	localIndex = hGlobal % sLocal
	return
}

// Table is one peer's shard: a flat slice of sLocal entries.
type Table struct {
	slots   []entry
	sLocal  uint64
	sGlobal uint64
}

// New allocates a shard of sLocal slots (part of a sGlobal-slot logical
// table split evenly across peers), zeroed to empty.
func New(sLocal, sGlobal uint64) *Table {
	t := &Table{
		slots:   make([]entry, sLocal),
		sLocal:  sLocal,
		sGlobal: sGlobal,
	}
	t.Reset()
	return t
}

// Reset sets every slot back to empty. Required between rounds because the
// table is sized for one round's share of the key space, not the whole
// search range.
func (t *Table) Reset() {
	for i := range t.slots {
		t.slots[i].k = empty
	}
}

// Insert writes key/value into the shard starting from its local index,
// linear-probing forward (wrapping at sLocal) until an empty slot is found.
// localIndex must already equal the local half of Route(key, ...) — the
// caller is responsible for having routed key to this peer.
func (t *Table) Insert(localIndex uint64, key, value uint64) error {
	h := localIndex
	for i := uint64(0); i < t.sLocal; i++ {
		if t.slots[h].k == empty {
			t.slots[h] = entry{k: uint32(key % prime), v: value}
			return nil
		}
		h++
		if h == t.sLocal {
			h = 0
		}
	}
	// Every slot occupied: the "table never full" load invariant has been
	// violated.
	return clawerr.New(clawerr.KindInvariant, "shardtable.Insert", nil)
}

// Probe collects every pre-image whose reduced key matches key, starting
// from its local index and linear-probing forward until an empty slot is
// hit. False positives from the mod-PRIME reduction are possible and are
// filtered downstream by IsGoodPair. Returns an overflow error if more than
// MaxProbeHits values would be returned.
func (t *Table) Probe(localIndex uint64, key uint64) ([]uint64, error) {
	k := uint32(key % prime)
	h := localIndex
	var out []uint64
	for {
		if t.slots[h].k == empty {
			return out, nil
		}
		if t.slots[h].k == k {
			if len(out) == MaxProbeHits {
				return nil, clawerr.New(clawerr.KindOverflow, "shardtable.Probe", nil)
			}
			out = append(out, t.slots[h].v)
		}
		h++
		if h == t.sLocal {
			h = 0
		}
	}
}

// Len returns the number of slots in this shard (not the number occupied).
func (t *Table) Len() uint64 { return t.sLocal }
