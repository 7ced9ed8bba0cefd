// Package object implements C2, the object assembler (spec.md
// section 4.2): it chunks a value into an N-ary tree of
// content-addressed blocks, each encrypted with a key derived from
// its position in the tree, and reassembles a value by walking the
// tree top-down. Grounded on the teacher's merkle-tree builder
// (core/merkle_tree_operations.go) for the level-by-level build/walk
// shape, generalised from a binary proof tree to an encrypted N-ary
// content tree.
package object

import (
	"encoding/binary"
	"errors"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/ngcrypto"
	"github.com/nextgraph-core/ng/pkg/ngerr"
)

// Config pins the chunk threshold and branching factor spec.md
// section 4.2 requires to be "fixed configuration".
type Config struct {
	ChunkSize int // max bytes per leaf payload before encryption
	Branching int // max children per interior node
}

// DefaultConfig matches the NextGraph wire format's block size class.
func DefaultConfig() Config {
	return Config{ChunkSize: 16 * 1024, Branching: 32}
}

// Tree assembles and loads objects against a backing block store.
type Tree struct {
	store *blockstore.Store
	cfg   Config
}

func New(store *blockstore.Store, cfg Config) *Tree {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.Branching <= 0 {
		cfg.Branching = DefaultConfig().Branching
	}
	return &Tree{store: store, cfg: cfg}
}

type nodeRef struct {
	id  blockstore.ID
	key [ngcrypto.Size]byte
}

// Assemble splits payload into ≤ChunkSize leaves, builds the N-ary
// block tree, encrypts every block with a key derived from seed and
// the block's position, and returns the root's (id, key). Given the
// same seed and payload, Assemble always produces the same tree: key
// derivation and encryption are both deterministic (spec.md section
// 4.2, "the assembler must be deterministic given the same inputs and
// keys").
func (t *Tree) Assemble(seed, payload []byte) (blockstore.ID, [ngcrypto.Size]byte, error) {
	chunks := splitChunks(payload, t.cfg.ChunkSize)

	level := make([]nodeRef, 0, len(chunks))
	for i, chunk := range chunks {
		key := blockKey(seed, 0, uint32(i))
		ct, err := ngcrypto.SealDeterministic(key, chunk)
		if err != nil {
			return blockstore.ID{}, key, err
		}
		id, err := t.store.Put(blockstore.Block{Payload: ct}, blockstore.ID{})
		if err != nil {
			return blockstore.ID{}, key, err
		}
		level = append(level, nodeRef{id: id, key: key})
	}

	for depth := uint32(1); len(level) > 1; depth++ {
		groups := groupRefs(level, t.cfg.Branching)
		next := make([]nodeRef, 0, len(groups))
		for gi, group := range groups {
			key := blockKey(seed, depth, uint32(gi))
			children := make([]blockstore.ID, len(group))
			keyBytes := make([]byte, 0, len(group)*ngcrypto.Size)
			for i, n := range group {
				children[i] = n.id
				keyBytes = append(keyBytes, n.key[:]...)
			}
			ct, err := ngcrypto.SealDeterministic(key, keyBytes)
			if err != nil {
				return blockstore.ID{}, key, err
			}
			id, err := t.store.Put(blockstore.Block{Children: children, Payload: ct}, blockstore.ID{})
			if err != nil {
				return blockstore.ID{}, key, err
			}
			next = append(next, nodeRef{id: id, key: key})
		}
		level = next
	}

	root := level[0]
	return root.id, root.key, nil
}

// Load walks the tree rooted at (id, key) top-down, decrypting each
// block with the key obtained from its parent, and returns the
// reassembled value. If any block in the subtree is absent from the
// store, Load keeps walking the remaining frontier and returns the
// full set of missing block IDs as a single ngerr.MissingBlocks
// instead of aborting on the first miss (spec.md section 4.2).
func (t *Tree) Load(id blockstore.ID, key [ngcrypto.Size]byte) ([]byte, error) {
	blk, err := t.store.Get(id)
	if err != nil {
		return nil, err
	}

	if len(blk.Children) == 0 {
		return ngcrypto.OpenDeterministic(key, blk.Payload)
	}

	keyBytes, err := ngcrypto.OpenDeterministic(key, blk.Payload)
	if err != nil {
		return nil, err
	}
	if len(keyBytes) != len(blk.Children)*ngcrypto.Size {
		return nil, errors.New("object: interior block key list length mismatch")
	}

	var out []byte
	var missing []string
	for i, childID := range blk.Children {
		var childKey [ngcrypto.Size]byte
		copy(childKey[:], keyBytes[i*ngcrypto.Size:(i+1)*ngcrypto.Size])

		data, err := t.Load(childID, childKey)
		if err != nil {
			var mb *ngerr.MissingBlocks
			if errors.As(err, &mb) {
				missing = append(missing, mb.IDs...)
				continue
			}
			return nil, err
		}
		out = append(out, data...)
	}
	if len(missing) > 0 {
		return nil, &ngerr.MissingBlocks{IDs: missing}
	}
	return out, nil
}

func blockKey(seed []byte, level, index uint32) [ngcrypto.Size]byte {
	var lvl, idx [4]byte
	binary.LittleEndian.PutUint32(lvl[:], level)
	binary.LittleEndian.PutUint32(idx[:], index)
	return ngcrypto.DeriveKey("NextGraph Object Block Key", seed, lvl[:], idx[:])
}

func splitChunks(payload []byte, size int) [][]byte {
	if len(payload) == 0 {
		return [][]byte{{}}
	}
	chunks := make([][]byte, 0, (len(payload)+size-1)/size)
	for len(payload) > 0 {
		n := size
		if n > len(payload) {
			n = len(payload)
		}
		chunks = append(chunks, payload[:n])
		payload = payload[n:]
	}
	return chunks
}

func groupRefs(refs []nodeRef, size int) [][]nodeRef {
	groups := make([][]nodeRef, 0, (len(refs)+size-1)/size)
	for len(refs) > 0 {
		n := size
		if n > len(refs) {
			n = len(refs)
		}
		groups = append(groups, refs[:n])
		refs = refs[n:]
	}
	return groups
}
