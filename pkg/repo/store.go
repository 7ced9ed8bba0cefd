package repo

import "github.com/nextgraph-core/ng/pkg/ngcrypto"

// Store is the overlay/namespace a set of repositories share
// (spec.md section 3, "Overlay / Store"): it derives the effective
// symmetric key used for on-disk block encryption. Stores are public
// or private; a private store's overlay ID is derived from the
// store's root rather than being the root itself, so the root never
// appears on the wire.
type Store struct {
	RootID    []byte
	Private   bool
	overlayID []byte
}

// NewStore derives the overlay ID for rootID: public stores use the
// root ID directly, private stores derive a distinct overlay ID via
// BLAKE3 so knowing the overlay ID alone never reveals the root.
func NewStore(rootID []byte, private bool) *Store {
	s := &Store{RootID: rootID, Private: private}
	if private {
		sum := ngcrypto.DeriveKey("NextGraph Private Store Overlay Id", rootID)
		s.overlayID = sum[:]
	} else {
		s.overlayID = rootID
	}
	return s
}

func (s *Store) OverlayID() []byte { return s.overlayID }

// BlockKey derives the symmetric key used to encrypt on-disk blocks
// within this store's overlay.
func (s *Store) BlockKey() [ngcrypto.Size]byte {
	return ngcrypto.DeriveKey("NextGraph Store Block Encryption Key", s.overlayID)
}

// DeriveTopicKey derives the key that protects a branch's topic
// private key, per spec.md section 3's "Branch": encrypted with a key
// derived from (repo_write_cap_secret, topic_id, branch_id) under
// BLAKE3. Supplemented from original_source/ng-repo/src/branch.rs,
// which the distilled spec names only in passing.
func DeriveTopicKey(writeCapSecret, topicID, branchID []byte) [ngcrypto.Size]byte {
	return ngcrypto.DeriveKey("NextGraph Topic Key", writeCapSecret, topicID, branchID)
}
