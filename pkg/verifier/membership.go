package verifier

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"github.com/nextgraph-core/ng/pkg/repo"
)

// EncodeAddMember serialises an AddMember commit body: the member's
// author digest (as registered in a repository's member table),
// their Ed25519 public key (so the verifier can resolve future
// commits from that digest back to a key), and the permission bits
// granted. Hand-rolled, matching pkg/commit's wire convention.
func EncodeAddMember(digest []byte, pub ed25519.PublicKey, perm repo.Permission) []byte {
	var out []byte
	out = appendBytesField(out, digest)
	out = appendBytesField(out, pub)
	var p [2]byte
	binary.LittleEndian.PutUint16(p[:], uint16(perm))
	out = append(out, p[:]...)
	return out
}

func decodeAddMember(data []byte) ([]byte, ed25519.PublicKey, repo.Permission, error) {
	digest, data, err := readBytesField(data)
	if err != nil {
		return nil, nil, 0, err
	}
	pub, data, err := readBytesField(data)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(data) < 2 {
		return nil, nil, 0, errors.New("verifier: truncated AddMember permission")
	}
	perm := repo.Permission(binary.LittleEndian.Uint16(data[:2]))
	return digest, ed25519.PublicKey(pub), perm, nil
}

// EncodeAddPermission serialises an AddPermission commit body: the
// target member's digest and the permission bits to grant on top of
// whatever they already hold.
func EncodeAddPermission(digest []byte, perm repo.Permission) []byte {
	var out []byte
	out = appendBytesField(out, digest)
	var p [2]byte
	binary.LittleEndian.PutUint16(p[:], uint16(perm))
	out = append(out, p[:]...)
	return out
}

func decodeAddPermission(data []byte) ([]byte, repo.Permission, error) {
	digest, data, err := readBytesField(data)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < 2 {
		return nil, 0, errors.New("verifier: truncated AddPermission permission")
	}
	perm := repo.Permission(binary.LittleEndian.Uint16(data[:2]))
	return digest, perm, nil
}

func appendBytesField(dst []byte, b []byte) []byte {
	var l [8]byte
	binary.LittleEndian.PutUint64(l[:], uint64(len(b)))
	dst = append(dst, l[:]...)
	return append(dst, b...)
}

func readBytesField(data []byte) ([]byte, []byte, error) {
	if len(data) < 8 {
		return nil, nil, errors.New("verifier: truncated bytes field length")
	}
	n := binary.LittleEndian.Uint64(data[:8])
	data = data[8:]
	if uint64(len(data)) < n {
		return nil, nil, errors.New("verifier: truncated bytes field")
	}
	return data[:n], data[n:], nil
}
