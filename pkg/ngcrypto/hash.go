// Package ngcrypto implements the cryptographic primitive list from
// spec.md section 6: BLAKE3 hashing/KDF, Ed25519 signatures, X25519
// key exchange derived from the Ed25519 seed, ChaCha20 stream
// encryption, XChaCha20-Poly1305 AEAD, Argon2id password hashing, and
// (as a documented gap, see DESIGN.md) a GCM stand-in for
// AES-256-GCM-SIV master-key wrapping.
package ngcrypto

import "lukechampine.com/blake3"

// Size is the width, in bytes, of every hash/key this package produces.
const Size = 32

// Hash returns BLAKE3(data), the content-addressing digest used for
// block IDs (spec.md section 3, "Block").
func Hash(data []byte) [Size]byte {
	return blake3.Sum256(data)
}

// DeriveKey implements BLAKE3's keyed-derivation mode,
// `BLAKE3.derive_key(context, material)` as spec.md section 4.5 and 6
// name it verbatim: a domain-separated KDF seeded by a context string
// and arbitrary key material (the caller concatenates whatever fields
// the derivation context requires, e.g. repo_id‖branch_id‖...).
func DeriveKey(context string, material ...[]byte) [Size]byte {
	h := blake3.NewDeriveKey(context)
	for _, m := range material {
		_, _ = h.Write(m)
	}
	var out [Size]byte
	sum := h.Sum(nil)
	copy(out[:], sum)
	return out
}
