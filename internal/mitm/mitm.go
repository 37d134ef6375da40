// Package mitm implements the meet-in-the-middle functions consumed by the
// distributed claw-finding engine: F, G, and IsGoodPair, built over the
// SPECK-64/128 cipher primitive in internal/speck. These are pure functions;
// they form the value the distributed engine computes against.
//
// © 2025 claw-finder authors. MIT License.
package mitm

import "github.com/dreamware/clawfind/internal/speck"

// Pair is a fixed plaintext or ciphertext pair, low word first.
type Pair = [2]uint32

// Problem bundles the fixed plaintext pair and the caller-supplied
// ciphertext pair that define one MITM instance, plus the bit mask derived
// from the search radius n.
//
// P[0] = {0,0}, P[1] = {0xffffffff, 0xffffffff} are fixed; C is supplied
// on the command line.
type Problem struct {
	P0, P1 Pair
	C0, C1 Pair
	Mask   uint64
}

// NewProblem constructs a Problem for search radius n bits with the fixed
// plaintext pair and caller-supplied ciphertexts.
func NewProblem(n uint, c0, c1 Pair) Problem {
	return Problem{
		P0:   Pair{0, 0},
		P1:   Pair{0xffffffff, 0xffffffff},
		C0:   c0,
		C1:   c1,
		Mask: (uint64(1) << n) - 1,
	}
}

func splitKey(k uint64) [4]uint32 {
	return [4]uint32{uint32(k), uint32(k >> 32), 0, 0}
}

func packCiphertext(ct Pair) uint64 {
	return (uint64(ct[0]) ^ (uint64(ct[1]) << 32))
}

// F computes the bottom-n-bit-masked encryption of P0 under the key
// schedule derived from k. Precondition: (k & mask) == k.
func (p Problem) F(k uint64) uint64 {
	rk := speck.KeySchedule(splitKey(k))
	ct := speck.Encrypt(p.P0, rk)
	return packCiphertext(ct) & p.Mask
}

// G computes the bottom-n-bit-masked decryption of C0 under the key
// schedule derived from k. Precondition: (k & mask) == k.
func (p Problem) G(k uint64) uint64 {
	rk := speck.KeySchedule(splitKey(k))
	pt := speck.Decrypt(p.C0, rk)
	return packCiphertext(pt) & p.Mask
}

// IsGoodPair verifies the double-encryption relation against the second
// plaintext/ciphertext pair: true iff Encrypt(Encrypt(P1, sched(k1)),
// sched(k2)) == C1.
func (p Problem) IsGoodPair(k1, k2 uint64) bool {
	rk1 := speck.KeySchedule(splitKey(k1))
	rk2 := speck.KeySchedule(splitKey(k2))
	mid := speck.Encrypt(p.P1, rk1)
	ct := speck.Encrypt(mid, rk2)
	return ct == p.C1
}
