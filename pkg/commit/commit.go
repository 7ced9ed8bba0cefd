package commit

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/ngcrypto"
	"github.com/nextgraph-core/ng/pkg/ngerr"
	"github.com/nextgraph-core/ng/pkg/object"
)

// AuthorDigest binds an author's signing public key to the overlay
// it's acting in, so the same keypair used in two overlays produces
// two distinct member identities (spec.md section 3, "Commit").
func AuthorDigest(pubKey ed25519.PublicKey, overlayID []byte) []byte {
	sum := ngcrypto.Hash(append(append([]byte{}, pubKey...), overlayID...))
	return sum[:]
}

// Authorizer is implemented by a repository (C6) to check that a
// commit's declared author is a known member with a permission
// sufficient for the commit's body kind. Defined here, not imported
// from pkg/repo, so pkg/repo can depend on pkg/commit for BodyKind
// without a import cycle.
type Authorizer interface {
	Authorize(authorDigest []byte, kind BodyKind) error
}

// Build assembles a header object and a body object, then a commit
// object referencing both, signs it with the author's key, and stores
// everything in store. seed feeds the object assembler's deterministic
// key derivation (pkg/object).
func Build(
	tree *object.Tree,
	seed []byte,
	author []byte,
	branch []byte,
	seq uint64,
	header Header,
	bodyKind BodyKind,
	bodyBytes []byte,
	quorumType QuorumType,
	signatureRef blockstore.ID,
	metadata []byte,
	signer ed25519.PrivateKey,
) (*Commit, blockstore.ID, [32]byte, error) {
	if quorumType.requiresSignatureObject() && signatureRef.IsZero() {
		return nil, blockstore.ID{}, [32]byte{}, fmt.Errorf(
			"commit: quorum type %s requires an attached signature object", quorumType)
	}
	if !quorumType.requiresSignatureObject() && !signatureRef.IsZero() {
		return nil, blockstore.ID{}, [32]byte{}, fmt.Errorf(
			"commit: quorum type %s must not carry a signature object", quorumType)
	}

	headerBytes := serialiseHeader(header)
	headerRef, headerKey, err := tree.Assemble(appendCtx(seed, "header"), headerBytes)
	if err != nil {
		return nil, blockstore.ID{}, [32]byte{}, ngerr.Wrap(err, "commit: assemble header")
	}

	bodyRef, bodyKey, err := tree.Assemble(appendCtx(seed, "body"), bodyBytes)
	if err != nil {
		return nil, blockstore.ID{}, [32]byte{}, ngerr.Wrap(err, "commit: assemble body")
	}

	c := &Commit{
		Author:       author,
		Branch:       branch,
		Seq:          seq,
		HeaderRef:    headerRef,
		HeaderKey:    headerKey,
		BodyRef:      bodyRef,
		BodyKey:      bodyKey,
		BodyKind:     bodyKind,
		QuorumType:   quorumType,
		SignatureRef: signatureRef,
		Metadata:     metadata,
	}
	c.Sig = ngcrypto.Sign(signer, signingBytes(c))

	commitRef, commitKey, err := tree.Assemble(appendCtx(seed, "commit"), serialiseCommit(c))
	if err != nil {
		return nil, blockstore.ID{}, [32]byte{}, ngerr.Wrap(err, "commit: assemble commit")
	}
	return c, commitRef, commitKey, nil
}

// Load reconstructs a Commit from its content-addressed reference.
func Load(tree *object.Tree, ref blockstore.ID, key [32]byte) (*Commit, error) {
	raw, err := tree.Load(ref, key)
	if err != nil {
		return nil, err
	}
	return deserialiseCommit(raw)
}

// LoadHeader resolves the commit's header object.
func LoadHeader(tree *object.Tree, c *Commit) (Header, error) {
	raw, err := tree.Load(c.HeaderRef, c.HeaderKey)
	if err != nil {
		return Header{}, err
	}
	return deserialiseHeader(raw)
}

// Verify checks a commit's signature, the consistency between its
// quorum type and its attached signature object, and — via auth —
// that the author is a member with sufficient permission for the
// commit's body kind (spec.md section 4.3/4.6).
func Verify(c *Commit, authorPubKey ed25519.PublicKey, auth Authorizer) error {
	if !ngcrypto.Verify(authorPubKey, signingBytes(c), c.Sig) {
		return ngerr.ErrBadSignature
	}
	if c.QuorumType.requiresSignatureObject() && c.SignatureRef.IsZero() {
		return fmt.Errorf("%w: quorum type %s requires a signature object", ngerr.ErrQuorumMismatch, c.QuorumType)
	}
	if !c.QuorumType.requiresSignatureObject() && !c.SignatureRef.IsZero() {
		return fmt.Errorf("%w: quorum type %s must not carry a signature object", ngerr.ErrQuorumMismatch, c.QuorumType)
	}
	if auth != nil {
		if err := auth.Authorize(c.Author, c.BodyKind); err != nil {
			return err
		}
	}
	return nil
}

// EnumerateBlocks returns the block IDs a commit references: the
// header and body object roots, the attached signature object root
// if any, and the header's deps, acks, nacks and refs (spec.md
// section 4.3). The commit's own root is not included. This
// does not recurse into the object trees themselves — that is
// blockstore.Store.GetMany's job once these roots are known to be
// missing or present.
func EnumerateBlocks(c *Commit, header Header) []blockstore.ID {
	ids := []blockstore.ID{c.HeaderRef, c.BodyRef}
	if !c.SignatureRef.IsZero() {
		ids = append(ids, c.SignatureRef)
	}
	ids = append(ids, header.Deps...)
	ids = append(ids, header.Acks...)
	ids = append(ids, header.Nacks...)
	ids = append(ids, header.Refs...)
	return ids
}

func appendCtx(seed []byte, ctx string) []byte {
	return append(append([]byte{}, seed...), []byte(ctx)...)
}

// signingBytes is the deterministic byte encoding a commit's Sig
// covers: every field except the signature itself.
func signingBytes(c *Commit) []byte {
	var out []byte
	out = append(out, c.Author...)
	out = append(out, c.Branch...)
	out = appendUint64(out, c.Seq)
	out = append(out, c.HeaderRef.Bytes()...)
	out = append(out, c.HeaderKey[:]...)
	out = append(out, c.BodyRef.Bytes()...)
	out = append(out, c.BodyKey[:]...)
	out = append(out, byte(c.BodyKind))
	out = append(out, byte(c.QuorumType))
	out = append(out, c.SignatureRef.Bytes()...)
	out = append(out, c.Metadata...)
	return out
}

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func serialiseHeader(h Header) []byte {
	var out []byte
	out = appendIDList(out, h.Deps)
	out = appendIDList(out, h.Acks)
	out = appendIDList(out, h.Nacks)
	out = appendIDList(out, h.Refs)
	return out
}

func deserialiseHeader(data []byte) (Header, error) {
	var h Header
	var err error
	h.Deps, data, err = readIDList(data)
	if err != nil {
		return Header{}, err
	}
	h.Acks, data, err = readIDList(data)
	if err != nil {
		return Header{}, err
	}
	h.Nacks, data, err = readIDList(data)
	if err != nil {
		return Header{}, err
	}
	h.Refs, _, err = readIDList(data)
	if err != nil {
		return Header{}, err
	}
	return h, nil
}

func serialiseCommit(c *Commit) []byte {
	var out []byte
	out = appendBytes(out, c.Author)
	out = appendBytes(out, c.Branch)
	out = appendUint64(out, c.Seq)
	out = appendBytes(out, c.HeaderRef.Bytes())
	out = append(out, c.HeaderKey[:]...)
	out = appendBytes(out, c.BodyRef.Bytes())
	out = append(out, c.BodyKey[:]...)
	out = append(out, byte(c.BodyKind))
	out = append(out, byte(c.QuorumType))
	out = appendBytes(out, c.SignatureRef.Bytes())
	out = appendBytes(out, c.Metadata)
	out = appendBytes(out, c.Sig)
	return out
}

func deserialiseCommit(data []byte) (*Commit, error) {
	c := &Commit{}
	var err error
	c.Author, data, err = readBytes(data)
	if err != nil {
		return nil, err
	}
	c.Branch, data, err = readBytes(data)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return nil, errors.New("commit: truncated seq")
	}
	c.Seq = binary.LittleEndian.Uint64(data[:8])
	data = data[8:]

	var raw []byte
	raw, data, err = readBytes(data)
	if err != nil {
		return nil, err
	}
	if c.HeaderRef, err = castID(raw); err != nil {
		return nil, err
	}
	if len(data) < 32 {
		return nil, errors.New("commit: truncated header key")
	}
	copy(c.HeaderKey[:], data[:32])
	data = data[32:]

	raw, data, err = readBytes(data)
	if err != nil {
		return nil, err
	}
	if c.BodyRef, err = castID(raw); err != nil {
		return nil, err
	}
	if len(data) < 32 {
		return nil, errors.New("commit: truncated body key")
	}
	copy(c.BodyKey[:], data[:32])
	data = data[32:]

	if len(data) < 2 {
		return nil, errors.New("commit: truncated kind/quorum")
	}
	c.BodyKind = BodyKind(data[0])
	c.QuorumType = QuorumType(data[1])
	data = data[2:]

	raw, data, err = readBytes(data)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if c.SignatureRef, err = castID(raw); err != nil {
			return nil, err
		}
	}

	c.Metadata, data, err = readBytes(data)
	if err != nil {
		return nil, err
	}
	c.Sig, _, err = readBytes(data)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func appendBytes(dst, b []byte) []byte {
	dst = appendUint64(dst, uint64(len(b)))
	return append(dst, b...)
}

func readBytes(data []byte) ([]byte, []byte, error) {
	if len(data) < 8 {
		return nil, nil, errors.New("commit: truncated length")
	}
	n := binary.LittleEndian.Uint64(data[:8])
	data = data[8:]
	if uint64(len(data)) < n {
		return nil, nil, errors.New("commit: truncated bytes")
	}
	return data[:n], data[n:], nil
}

func appendIDList(dst []byte, ids []blockstore.ID) []byte {
	dst = appendUint64(dst, uint64(len(ids)))
	for _, id := range ids {
		dst = appendBytes(dst, id.Bytes())
	}
	return dst
}

func readIDList(data []byte) ([]blockstore.ID, []byte, error) {
	if len(data) < 8 {
		return nil, nil, errors.New("commit: truncated id list length")
	}
	n := binary.LittleEndian.Uint64(data[:8])
	data = data[8:]
	ids := make([]blockstore.ID, 0, n)
	for i := uint64(0); i < n; i++ {
		var raw []byte
		var err error
		raw, data, err = readBytes(data)
		if err != nil {
			return nil, nil, err
		}
		id, err := castID(raw)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
	}
	return ids, data, nil
}

func castID(raw []byte) (blockstore.ID, error) {
	if len(raw) == 0 {
		return blockstore.ID{}, nil
	}
	return blockstore.IDFromRawBytes(raw)
}
