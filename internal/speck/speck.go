// Package speck implements the SPECK-64/128 block cipher: key schedule,
// encryption and decryption. This is the external collaborator contract
// consumed by internal/mitm, treated as three pure functions; its
// cryptanalytic properties are out of scope for this repository's design.
// What follows is a direct, bit-exact port of the reference round
// functions; nothing here is tuned or reviewed as a cryptographic
// primitive.
//
// © 2025 claw-finder authors. MIT License.
package speck

// Rounds is the number of SPECK-64/128 encryption rounds.
const Rounds = 27

// rotl32/rotr32 are the 32-bit rotate primitives used by the SPECK round
// function.
func rotl32(x uint32, r uint32) uint32 { return (x << r) | (x >> (32 - r)) }
func rotr32(x uint32, r uint32) uint32 { return (x >> r) | (x << (32 - r)) }

// er applies one encryption round in place: x = rotr32(x,8); x += y; x ^= k;
// y = rotl32(y,3); y ^= x.
func er(x, y *uint32, k uint32) {
	*x = rotr32(*x, 8)
	*x += *y
	*x ^= k
	*y = rotl32(*y, 3)
	*y ^= *x
}

// dr is the inverse of er.
func dr(x, y *uint32, k uint32) {
	*y ^= *x
	*y = rotr32(*y, 3)
	*x ^= k
	*x -= *y
	*x = rotl32(*x, 8)
}

// RoundKeys holds the expanded SPECK-64/128 round key schedule.
type RoundKeys [Rounds]uint32

// KeySchedule expands a 128-bit key (given as four 32-bit words, little
// word order first) into the 27-round key schedule.
func KeySchedule(k [4]uint32) RoundKeys {
	var rk RoundKeys
	a, b, c, d := k[0], k[1], k[2], k[3]
	for i := 0; i < Rounds; {
		rk[i] = a
		er(&b, &a, uint32(i))
		i++
		rk[i] = a
		er(&c, &a, uint32(i))
		i++
		rk[i] = a
		er(&d, &a, uint32(i))
		i++
	}
	return rk
}

// Encrypt runs the 27-round SPECK-64/128 encryption of a two-word plaintext
// block under the given round keys.
func Encrypt(pt [2]uint32, rk RoundKeys) [2]uint32 {
	ct := pt
	for i := 0; i < Rounds; i++ {
		er(&ct[1], &ct[0], rk[i])
	}
	return ct
}

// Decrypt runs the 27-round SPECK-64/128 decryption of a two-word
// ciphertext block under the given round keys.
func Decrypt(ct [2]uint32, rk RoundKeys) [2]uint32 {
	pt := ct
	for i := Rounds - 1; i >= 0; i-- {
		dr(&pt[1], &pt[0], rk[i])
	}
	return pt
}
