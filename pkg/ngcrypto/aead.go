package ngcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"
)

// EventNonce builds the 12-byte ChaCha20 nonce spec.md section 4.5
// specifies for event key encryption: little-endian(seq) ‖ 0⁴.
func EventNonce(seq uint64) [chacha20.NonceSize]byte {
	var nonce [chacha20.NonceSize]byte
	binary.LittleEndian.PutUint64(nonce[:8], seq)
	return nonce
}

// EncryptCommitKey encrypts a commit's symmetric key under the
// per-(repo,branch,publisher) derived key K with the event nonce,
// per spec.md section 4.5 step 2.
func EncryptCommitKey(k [Size]byte, seq uint64, commitKey []byte) ([]byte, error) {
	nonce := EventNonce(seq)
	s, err := chacha20.NewUnauthenticatedCipher(k[:], nonce[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(commitKey))
	s.XORKeyStream(out, commitKey)
	return out, nil
}

// DecryptCommitKey inverts EncryptCommitKey; ChaCha20 is an involution
// under XOR so the same stream cipher call recovers the plaintext.
func DecryptCommitKey(k [Size]byte, seq uint64, encrypted []byte) ([]byte, error) {
	return EncryptCommitKey(k, seq, encrypted)
}

// SealBlob authenticated-encrypts plaintext with XChaCha20-Poly1305,
// returning nonce‖ciphertext‖tag, used for wallet-embedded and
// capability blobs (spec.md section 6). aad is typically
// wallet_id‖timestamp.
func SealBlob(key, plaintext, aad []byte) ([]byte, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New("ngcrypto: key must be 32 bytes")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

// OpenBlob inverts SealBlob.
func OpenBlob(key, blob, aad []byte) ([]byte, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New("ngcrypto: key must be 32 bytes")
	}
	if len(blob) < chacha20poly1305.NonceSizeX {
		return nil, errors.New("ngcrypto: ciphertext too short")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, ct := blob[:chacha20poly1305.NonceSizeX], blob[chacha20poly1305.NonceSizeX:]
	return aead.Open(nil, nonce, ct, aad)
}

// Argon2idKey derives a 32-byte key from a password using the
// parameters spec.md section 6 pins: m=50 MiB, t=2, p=1, out=32,
// associated data = wallet ID (folded into the salt since Argon2id
// has no separate AD input).
func Argon2idKey(password, walletID, salt []byte) [Size]byte {
	ad := append(append([]byte{}, salt...), walletID...)
	key := argon2.IDKey(password, ad, 2, 50*1024, 1, 32)
	var out [Size]byte
	copy(out[:], key)
	return out
}

// SealDeterministic authenticated-encrypts plaintext with
// XChaCha20-Poly1305 under an all-zero nonce. Safe only when key is
// single-use (derived fresh per call site, e.g. one key per object
// tree block) — reusing key across two different plaintexts under the
// fixed nonce breaks confidentiality. Used where the object assembler
// (spec.md section 4.2) needs byte-identical ciphertext for the same
// (key, plaintext) pair so a content-addressed tree is reproducible.
func SealDeterministic(key [Size]byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// OpenDeterministic inverts SealDeterministic.
func OpenDeterministic(key [Size]byte, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	return aead.Open(nil, nonce, ciphertext, nil)
}

// WrapMasterKey seals a master key with AES-256-GCM under wrapKey.
//
// The spec names AES-256-GCM-SIV for this purpose; no Go
// implementation of GCM-SIV exists in the example corpus (checked),
// so this substitutes stdlib AES-GCM, documented as a gap in
// DESIGN.md. Ordinary GCM requires a fresh nonce per encryption
// (generated here), unlike GCM-SIV's nonce-misuse resistance.
func WrapMasterKey(wrapKey, masterKey []byte) ([]byte, error) {
	block, err := aes.NewCipher(wrapKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, masterKey, nil), nil
}

// UnwrapMasterKey inverts WrapMasterKey.
func UnwrapMasterKey(wrapKey, wrapped []byte) ([]byte, error) {
	block, err := aes.NewCipher(wrapKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(wrapped) < gcm.NonceSize() {
		return nil, errors.New("ngcrypto: wrapped key too short")
	}
	nonce, ct := wrapped[:gcm.NonceSize()], wrapped[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ct, nil)
}
