package engine

import (
	"context"
	"testing"

	"github.com/dreamware/clawfind/internal/mitm"
	"github.com/dreamware/clawfind/internal/speck"
)

// plantClaw builds the ciphertext pair (C0,C1) for a golden claw (k1,k2),
// the construction shared by every scenario below.
func plantClaw(k1, k2 uint64) (c0, c1 mitm.Pair) {
	p0 := mitm.Pair{0, 0}
	p1 := mitm.Pair{0xffffffff, 0xffffffff}

	k1Words := [4]uint32{uint32(k1), uint32(k1 >> 32), 0, 0}
	k2Words := [4]uint32{uint32(k2), uint32(k2 >> 32), 0, 0}
	rk1 := speck.KeySchedule(k1Words)
	rk2 := speck.KeySchedule(k2Words)

	mid0 := speck.Encrypt(p0, rk1)
	c0 = speck.Encrypt(mid0, rk2)

	mid1 := speck.Encrypt(p1, rk1)
	c1 = speck.Encrypt(mid1, rk2)
	return
}

const oneGiB = uint64(1) << 30

// E1: n=8, P=1, a single known golden claw. The engine must report it.
func TestE1SinglePeerFindsPlantedClaw(t *testing.T) {
	k1, k2 := uint64(0x11), uint64(0x22)
	c0, c1 := plantClaw(k1, k2)

	e, err := New(8, 1, oneGiB, c0, c1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !containsSolution(res.Solutions, k1, k2) {
		t.Fatalf("Solutions = %v, want to contain (%#x,%#x)", res.Solutions, k1, k2)
	}
}

// E2: n=12, P=2, a known golden claw split across two peers' shards.
func TestE2TwoPeersFindPlantedClaw(t *testing.T) {
	k1, k2 := uint64(0x0ABC), uint64(0x0DEF)
	c0, c1 := plantClaw(k1, k2)

	e, err := New(12, 2, oneGiB, c0, c1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !containsSolution(res.Solutions, k1, k2) {
		t.Fatalf("Solutions = %v, want to contain (%#x,%#x)", res.Solutions, k1, k2)
	}
}

// E3: compress_factor > 0 (forced multi-round via a tight memory budget)
// must find the same answer as an uncompressed run on the same seeds.
func TestE3CompressionPreservesAnswer(t *testing.T) {
	k1, k2 := uint64(0x1234), uint64(0x5678)
	c0, c1 := plantClaw(k1, k2)

	full, err := New(16, 4, oneGiB, c0, c1)
	if err != nil {
		t.Fatalf("New (uncompressed): %v", err)
	}
	fullRes, err := full.Run(context.Background())
	if err != nil {
		t.Fatalf("Run (uncompressed): %v", err)
	}
	if full.Plan().CompressFactor != 0 {
		t.Fatalf("uncompressed plan has compress_factor %d, want 0", full.Plan().CompressFactor)
	}

	// A tight memory budget forces a small nonzero compress_factor (a
	// handful of rounds), without blowing up the round count used by this
	// test.
	compressed, err := New(16, 4, 300000, c0, c1)
	if err != nil {
		t.Fatalf("New (compressed): %v", err)
	}
	if compressed.Plan().CompressFactor == 0 {
		t.Fatalf("expected a nonzero compress_factor under a tight memory budget")
	}
	compressedRes, err := compressed.Run(context.Background())
	if err != nil {
		t.Fatalf("Run (compressed): %v", err)
	}

	if !containsSolution(fullRes.Solutions, k1, k2) || !containsSolution(compressedRes.Solutions, k1, k2) {
		t.Fatalf("compressed and uncompressed runs disagree: %v vs %v", fullRes.Solutions, compressedRes.Solutions)
	}
}

// E5: arbitrary seeds with (overwhelmingly likely) no collision in [0,2^n)
// must return zero solutions without any fatal invariant firing.
func TestE5NoCollisionReturnsNoSolutions(t *testing.T) {
	c0 := mitm.Pair{0xdeadbeef, 0xcafebabe}
	c1 := mitm.Pair{0x01234567, 0x89abcdef}

	e, err := New(10, 2, oneGiB, c0, c1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Solutions) != 0 {
		t.Fatalf("Solutions = %v, want none", res.Solutions)
	}
}

// E6: early exit enabled must still surface the planted claw, terminating
// without sweeping every round to completion.
func TestE6EarlyExitFindsClaw(t *testing.T) {
	k1, k2 := uint64(0x0AB), uint64(0x0CD)
	c0, c1 := plantClaw(k1, k2)

	e, err := New(12, 4, oneGiB, c0, c1, WithEarlyExit(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !containsSolution(res.Solutions, k1, k2) {
		t.Fatalf("Solutions = %v, want to contain (%#x,%#x)", res.Solutions, k1, k2)
	}
}

// Boundary: P=1 degenerates to a single-node search — every route is local,
// no exchange is observably needed, yet the engine must behave identically.
func TestBoundarySinglePeerDegenerate(t *testing.T) {
	k1, k2 := uint64(0x7), uint64(0x9)
	c0, c1 := plantClaw(k1, k2)

	e, err := New(8, 1, oneGiB, c0, c1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !containsSolution(res.Solutions, k1, k2) {
		t.Fatalf("Solutions = %v, want to contain (%#x,%#x)", res.Solutions, k1, k2)
	}
}

func containsSolution(sols []Solution, k1, k2 uint64) bool {
	for _, s := range sols {
		if s.K1 == k1 && s.K2 == k2 {
			return true
		}
	}
	return false
}
