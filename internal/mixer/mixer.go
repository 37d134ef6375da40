// Package mixer provides the 64-bit integer finalizer used for shard
// routing and slot selection throughout the claw-finder engine.
//
// © 2025 claw-finder authors. MIT License.
package mixer

// Mix is the Murmur3-64 finalizer (tailored for 64-bit integers, cf. Daniel
// Lemire): a pure, deterministic function that spreads the near-sequential
// inputs produced by cyclic enumeration of key candidates across the full
// 64-bit output space. It has no side effects and no hidden state.
func Mix(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}
