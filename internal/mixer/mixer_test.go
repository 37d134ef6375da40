package mixer

import "testing"

func TestMixDeterministic(t *testing.T) {
	for _, x := range []uint64{0, 1, 42, 0xffffffffffffffff, 0x1122334455667788} {
		if Mix(x) != Mix(x) {
			t.Fatalf("Mix(%x) not deterministic", x)
		}
	}
}

func TestMixSpreadsSequentialInputs(t *testing.T) {
	seen := make(map[uint64]bool, 1024)
	for i := uint64(0); i < 1024; i++ {
		h := Mix(i)
		if seen[h] {
			t.Fatalf("collision among first 1024 sequential inputs at i=%d", i)
		}
		seen[h] = true
	}
}

func TestMixKnownVector(t *testing.T) {
	// Regression pin on the fixed point at zero: every xor-shift and
	// multiply step maps 0 to 0, so this holds for any multiplier
	// constants and does not pin the constants themselves.
	got := Mix(0)
	if got != 0 {
		t.Fatalf("Mix(0) = %x, want 0 (finalizer is a fixed point at zero)", got)
	}
}
