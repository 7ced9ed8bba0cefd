package ngcrypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"errors"

	"golang.org/x/crypto/curve25519"
)

// GenerateSigningKey returns a fresh Ed25519 keypair, the signing
// identity every NextGraph author, topic and publisher carries
// (spec.md section 6, "Ed25519 for signatures").
func GenerateSigningKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Sign produces a detached Ed25519 signature over msg.
func Sign(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// Verify reports whether sig is a valid Ed25519 signature of msg under
// pub. Flipping any byte of msg or sig must make this false (spec.md
// section 8, "Commit DAG" testable property).
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}

// X25519FromEd25519 derives an X25519 key-exchange keypair from an
// Ed25519 signing keypair (spec.md section 6: "X25519 (derived from
// the Ed25519 seed) for key-exchange"), using the same seed-clamping
// transform as libsodium's crypto_sign_ed25519_sk_to_curve25519: hash
// the 32-byte seed with SHA-512 and clamp the first 32 bytes per
// RFC 7748 to get the X25519 scalar.
func X25519FromEd25519(priv ed25519.PrivateKey) (pub, scalar [32]byte, err error) {
	if len(priv) != ed25519.PrivateKeySize {
		return pub, scalar, errors.New("invalid ed25519 private key size")
	}
	seed := priv.Seed()
	digest := sha512.Sum512(seed)
	copy(scalar[:], digest[:32])
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64

	pubBytes, err := curve25519.X25519(scalar[:], curve25519.Basepoint)
	if err != nil {
		return pub, scalar, err
	}
	copy(pub[:], pubBytes)
	return pub, scalar, nil
}

// X25519SharedSecret computes the Diffie-Hellman shared secret between
// a local X25519 scalar and a peer's X25519 public point.
func X25519SharedSecret(scalar, peerPublic [32]byte) ([32]byte, error) {
	var out [32]byte
	shared, err := curve25519.X25519(scalar[:], peerPublic[:])
	if err != nil {
		return out, err
	}
	copy(out[:], shared)
	return out, nil
}
