package speck

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	k := [4]uint32{0x11111111, 0x22222222, 0x33333333, 0x44444444}
	rk := KeySchedule(k)

	pt := [2]uint32{0, 0}
	ct := Encrypt(pt, rk)
	got := Decrypt(ct, rk)

	if got != pt {
		t.Fatalf("decrypt(encrypt(pt)) = %v, want %v", got, pt)
	}
}

func TestEncryptDeterministic(t *testing.T) {
	k := [4]uint32{1, 2, 3, 4}
	rk := KeySchedule(k)
	pt := [2]uint32{0xdeadbeef, 0xcafef00d}

	a := Encrypt(pt, rk)
	b := Encrypt(pt, rk)
	if a != b {
		t.Fatalf("Encrypt not deterministic: %v != %v", a, b)
	}
}

func TestEncryptChangesPlaintext(t *testing.T) {
	k := [4]uint32{0, 0, 0, 0}
	rk := KeySchedule(k)
	pt := [2]uint32{0, 0}
	ct := Encrypt(pt, rk)
	if ct == pt {
		t.Fatalf("ciphertext equals plaintext for zero key/plaintext, expected diffusion")
	}
}

func TestDifferentKeysGiveDifferentCiphertexts(t *testing.T) {
	pt := [2]uint32{0x01234567, 0x89abcdef}
	rk1 := KeySchedule([4]uint32{1, 0, 0, 0})
	rk2 := KeySchedule([4]uint32{2, 0, 0, 0})

	c1 := Encrypt(pt, rk1)
	c2 := Encrypt(pt, rk2)
	if c1 == c2 {
		t.Fatalf("distinct keys produced identical ciphertexts")
	}
}
