package shardtable

import (
	"math/rand"
	"testing"
)

func TestRoutingPartition(t *testing.T) {
	const peers = 4
	const sLocal = 1000
	sGlobal := uint64(sLocal * peers)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		key := rng.Uint64()
		peer, local := Route(key, sGlobal, sLocal)
		if peer >= peers {
			t.Fatalf("peer %d out of range [0,%d)", peer, peers)
		}
		if local >= sLocal {
			t.Fatalf("local index %d out of range [0,%d)", local, sLocal)
		}
	}
}

func TestInsertThenProbeFindsValue(t *testing.T) {
	const sLocal = 100
	const sGlobal = 100 // single peer for this test
	tbl := New(sLocal, sGlobal)

	key := uint64(123456789)
	val := uint64(42)
	_, local := Route(key, sGlobal, sLocal)

	if err := tbl.Insert(local, key, val); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := tbl.Probe(local, key)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	found := false
	for _, v := range got {
		if v == val {
			found = true
		}
	}
	if !found {
		t.Fatalf("Probe(%d) = %v, expected to contain %d", key, got, val)
	}
}

func TestProbeMissingKeyReturnsEmpty(t *testing.T) {
	tbl := New(100, 100)
	got, err := tbl.Probe(5, 999)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Probe on empty table = %v, want empty", got)
	}
}

func TestResetIdempotent(t *testing.T) {
	tbl := New(50, 50)
	tbl.Insert(0, 1, 1)
	tbl.Reset()
	snap1 := make([]entry, len(tbl.slots))
	copy(snap1, tbl.slots)
	tbl.Reset()
	for i, e := range tbl.slots {
		if e != snap1[i] {
			t.Fatalf("second reset produced different state at slot %d", i)
		}
		if e.k != empty {
			t.Fatalf("slot %d not empty after reset", i)
		}
	}
}

func TestProbeOverflow(t *testing.T) {
	// MaxProbeHits+1 slots share the same reduced key so probing must
	// overflow past MaxProbeHits.
	const sLocal = MaxProbeHits + 10
	tbl := New(sLocal, sLocal)
	key := uint64(7) // reduced key = 7 for every insert below: the same key
	// is inserted repeatedly, each insert landing in the next slot via
	// linear probing with the same reduced key.
	for i := 0; i < MaxProbeHits+1; i++ {
		if err := tbl.Insert(0, key, uint64(i)); err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
	}
	if _, err := tbl.Probe(0, key); err == nil {
		t.Fatalf("expected overflow error probing %d matches", MaxProbeHits+1)
	}
}

func TestProbeExactlyMaxHitsSucceeds(t *testing.T) {
	const sLocal = MaxProbeHits + 10
	tbl := New(sLocal, sLocal)
	key := uint64(7)
	for i := 0; i < MaxProbeHits; i++ {
		if err := tbl.Insert(0, key, uint64(i)); err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
	}
	got, err := tbl.Probe(0, key)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(got) != MaxProbeHits {
		t.Fatalf("Probe returned %d hits, want %d", len(got), MaxProbeHits)
	}
}

func TestInsertFullTableIsFatal(t *testing.T) {
	tbl := New(4, 4)
	for i := uint64(0); i < 4; i++ {
		if err := tbl.Insert(0, i*1000003, i); err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
	}
	if err := tbl.Insert(0, 99999, 99); err == nil {
		t.Fatalf("expected fatal error inserting into a full table")
	}
}
