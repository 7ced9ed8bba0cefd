// Package event implements C5, the event layer (spec.md section 4.5):
// publishing a commit on a topic with its symmetric key encrypted to
// a per-(repo,branch,publisher) derived key, double-signed by the
// topic and the publisher, with strictly increasing per-publisher
// sequence numbers.
package event

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/ngcrypto"
	"github.com/nextgraph-core/ng/pkg/ngerr"
)

const deriveContext = "NextGraph Event Commit ObjectKey ChaCha20 key"

// Event is a message published on a topic (spec.md section 3,
// "Event").
type Event struct {
	RepoID        []byte
	BranchID      []byte
	Publisher     []byte // publisher's signing public key
	Seq           uint64
	CommitRef     blockstore.ID
	EncryptedKey  []byte // the commit's symmetric key, encrypted
	Blocks        []blockstore.Block
	TopicSig      []byte
	PublisherSig  []byte
}

// Build constructs and double-signs an event for a commit, per
// spec.md section 4.5's four steps.
func Build(
	repoID, branchID, branchReadCapKey, publisherPub []byte,
	seq uint64,
	commitRef blockstore.ID,
	commitKey [32]byte,
	blocks []blockstore.Block,
	topicPriv, publisherPriv ed25519.PrivateKey,
) (*Event, error) {
	k := deriveKey(repoID, branchID, branchReadCapKey, publisherPub)
	encKey, err := ngcrypto.EncryptCommitKey(k, seq, commitKey[:])
	if err != nil {
		return nil, ngerr.Wrap(err, "event: encrypt commit key")
	}

	ev := &Event{
		RepoID:       repoID,
		BranchID:     branchID,
		Publisher:    publisherPub,
		Seq:          seq,
		CommitRef:    commitRef,
		EncryptedKey: encKey,
		Blocks:       blocks,
	}
	content := signingContent(ev)
	ev.TopicSig = ngcrypto.Sign(topicPriv, content)
	ev.PublisherSig = ngcrypto.Sign(publisherPriv, content)
	return ev, nil
}

// Open verifies an event's two signatures and the publisher's
// sequence number, inserts its blocks into store, decrypts the
// commit's symmetric key, and returns the commit's reference and key
// so the caller can commit.Load it.
func Open(
	ev *Event,
	branchReadCapKey []byte,
	topicPub, publisherPub ed25519.PublicKey,
	store *blockstore.Store,
	seqs *SequenceTracker,
) (blockstore.ID, [32]byte, error) {
	content := signingContent(ev)
	if !ngcrypto.Verify(topicPub, content, ev.TopicSig) {
		return blockstore.ID{}, [32]byte{}, ngerr.ErrBadSignature
	}
	if !ngcrypto.Verify(publisherPub, content, ev.PublisherSig) {
		return blockstore.ID{}, [32]byte{}, ngerr.ErrBadSignature
	}

	if seqs != nil {
		if err := seqs.CheckAndAdvance(ev.Publisher, ev.Seq); err != nil {
			return blockstore.ID{}, [32]byte{}, err
		}
	}

	k := deriveKey(ev.RepoID, ev.BranchID, branchReadCapKey, ev.Publisher)
	commitKeyBytes, err := ngcrypto.DecryptCommitKey(k, ev.Seq, ev.EncryptedKey)
	if err != nil {
		return blockstore.ID{}, [32]byte{}, ngerr.Wrap(err, "event: decrypt commit key")
	}
	if len(commitKeyBytes) != 32 {
		return blockstore.ID{}, [32]byte{}, errors.New("event: decrypted commit key has wrong length")
	}
	var commitKey [32]byte
	copy(commitKey[:], commitKeyBytes)

	for _, b := range ev.Blocks {
		if _, err := store.Put(b, blockstore.ID{}); err != nil {
			return blockstore.ID{}, [32]byte{}, ngerr.Wrap(err, "event: insert block")
		}
	}

	return ev.CommitRef, commitKey, nil
}

func deriveKey(repoID, branchID, branchReadCapKey, publisherPub []byte) [ngcrypto.Size]byte {
	return ngcrypto.DeriveKey(deriveContext, repoID, branchID, branchReadCapKey, publisherPub)
}

// signingContent is the deterministic byte encoding both the topic
// and publisher signatures cover.
func signingContent(ev *Event) []byte {
	var out []byte
	out = append(out, ev.RepoID...)
	out = append(out, ev.BranchID...)
	out = append(out, ev.Publisher...)
	var seqBytes [8]byte
	binary.LittleEndian.PutUint64(seqBytes[:], ev.Seq)
	out = append(out, seqBytes[:]...)
	out = append(out, ev.CommitRef.Bytes()...)
	out = append(out, ev.EncryptedKey...)
	for _, b := range ev.Blocks {
		id := b.ID()
		out = append(out, id.Bytes()...)
	}
	return out
}
