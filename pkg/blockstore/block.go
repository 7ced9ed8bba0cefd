// Package blockstore implements C1: an immutable, content-addressed
// block key-value store (spec.md section 4.1). Block IDs are BLAKE3
// digests wrapped as multihash/CID, reusing the teacher's
// ipfs/go-cid + multiformats/go-multihash pairing (core/storage.go,
// core/ipfs.go) instead of inventing a bespoke ID format.
package blockstore

import (
	"fmt"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/nextgraph-core/ng/pkg/ngcrypto"
)

// blake3Code is the multicodec/multihash code point assigned to
// BLAKE3. go-multihash does not register BLAKE3 for its own Sum()
// helper, so IDs are built by hashing with ngcrypto (BLAKE3) and then
// wrapping the digest with mh.Encode, which only packages pre-computed
// bytes and does not require the hash function to be registered.
const blake3Code = 0x1e

// ID is a block's content address: a CID over a BLAKE3 multihash.
type ID struct {
	cid cid.Cid
}

// IDFromBytes computes the content address of raw serialised block
// bytes.
func IDFromBytes(data []byte) ID {
	sum := ngcrypto.Hash(data)
	digest, err := mh.Encode(sum[:], blake3Code)
	if err != nil {
		// mh.Encode only fails on malformed inputs; sum is always 32 bytes.
		panic(fmt.Errorf("blockstore: encode multihash: %w", err))
	}
	return ID{cid: cid.NewCidV1(cid.Raw, digest)}
}

// ParseID parses the string form of an ID, as ID.String produces it
// (a multibase-encoded CID; base32 for the CIDv1 IDs this package
// builds).
func ParseID(s string) (ID, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return ID{}, fmt.Errorf("blockstore: parse id: %w", err)
	}
	return ID{cid: c}, nil
}

// IDFromRawBytes reconstructs an ID from the raw CID bytes Block
// serialisation stores for child references (ID.Bytes()), as opposed
// to ParseID's base64url string form. Exported for other packages
// (e.g. pkg/commit) that embed raw ID bytes in their own wire format.
func IDFromRawBytes(b []byte) (ID, error) {
	c, err := cid.Cast(b)
	if err != nil {
		return ID{}, fmt.Errorf("blockstore: cast child id: %w", err)
	}
	return ID{cid: c}, nil
}

func idFromRawBytes(b []byte) (ID, error) { return IDFromRawBytes(b) }

func (id ID) String() string { return id.cid.String() }
func (id ID) Bytes() []byte  { return id.cid.Bytes() }
func (id ID) IsZero() bool   { return !id.cid.Defined() }

func (id ID) Equal(other ID) bool { return id.cid.Equals(other.cid) }

// Block is a leaf or interior node in the content-addressed Merkle
// DAG (spec.md section 3, "Block"). Children, when present, form the
// tree the object assembler (C2) builds for large payloads.
type Block struct {
	Children []ID
	Payload  []byte // encrypted
}

// Serialise produces the deterministic byte encoding whose hash is
// the block's ID. Field order is fixed: child count, each child's
// bytes length-prefixed, then the payload — so serialisation is
// byte-identical for byte-identical (Children, Payload) regardless of
// caller.
func (b Block) Serialise() []byte {
	out := make([]byte, 0, 8+len(b.Payload)+32*len(b.Children))
	out = appendUvarint(out, uint64(len(b.Children)))
	for _, c := range b.Children {
		cb := c.Bytes()
		out = appendUvarint(out, uint64(len(cb)))
		out = append(out, cb...)
	}
	out = appendUvarint(out, uint64(len(b.Payload)))
	out = append(out, b.Payload...)
	return out
}

// ID computes the block's content address from its serialised form.
func (b Block) ID() ID { return IDFromBytes(b.Serialise()) }

func appendUvarint(dst []byte, v uint64) []byte {
	var buf [10]byte
	n := 0
	for v >= 0x80 {
		buf[n] = byte(v) | 0x80
		v >>= 7
		n++
	}
	buf[n] = byte(v)
	return append(dst, buf[:n+1]...)
}
