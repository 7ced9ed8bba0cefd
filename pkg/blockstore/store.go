package blockstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nextgraph-core/ng/pkg/ngerr"
)

// Backend is the pluggable storage surface a Store sits on top of —
// spec.md section 4.1: "Backing storage is pluggable: an in-memory
// map or an embedded ordered KV engine." Only this narrow interface
// (get/put/has/delete of opaque bytes keyed by a string) needs to be
// satisfied for either choice.
type Backend interface {
	Put(key string, data []byte) error
	Get(key string) ([]byte, bool, error)
	Has(key string) (bool, error)
	Delete(key string) error
}

// Store is the content-addressed block key-value store (spec.md
// section 4.1, "C1"). It wraps a Backend and enforces the
// content-addressing invariant itself, so no Backend implementation
// needs to know about hashing.
type Store struct {
	backend Backend
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Put stores a block, returning its content address. If want is the
// zero ID, the address is computed from the block; if want is
// non-zero, Put recomputes the hash and refuses to store when it
// disagrees with the caller's declared ID (spec.md section 4.1).
func (s *Store) Put(b Block, want ID) (ID, error) {
	got := b.ID()
	if !want.IsZero() && !want.Equal(got) {
		return ID{}, fmt.Errorf("%w: declared %s, computed %s", ngerr.ErrHashMismatch, want, got)
	}
	if err := s.backend.Put(got.String(), b.Serialise()); err != nil {
		return ID{}, ngerr.Wrap(err, "blockstore: put")
	}
	return got, nil
}

// Get retrieves a block by ID, re-verifying its content address so a
// corrupted or tampered backend entry is never handed back silently.
func (s *Store) Get(id ID) (Block, error) {
	raw, ok, err := s.backend.Get(id.String())
	if err != nil {
		return Block{}, ngerr.Wrap(err, "blockstore: get")
	}
	if !ok {
		return Block{}, &ngerr.MissingBlocks{IDs: []string{id.String()}}
	}
	b, err := deserialise(raw)
	if err != nil {
		return Block{}, ngerr.Wrap(err, "blockstore: corrupt block")
	}
	if !b.ID().Equal(id) {
		return Block{}, fmt.Errorf("%w: stored block for %s hashes to %s", ngerr.ErrHashMismatch, id, b.ID())
	}
	return b, nil
}

func (s *Store) Has(id ID) (bool, error) {
	ok, err := s.backend.Has(id.String())
	if err != nil {
		return false, ngerr.Wrap(err, "blockstore: has")
	}
	return ok, nil
}

// Delete best-effort removes a block. Deletion is advisory: other
// replicas or the same replica's future sync may still reference the
// block, so callers must be prepared for a later Get to report it
// missing via MissingBlocks rather than treating deletion as final.
func (s *Store) Delete(id ID) error {
	if err := s.backend.Delete(id.String()); err != nil {
		return ngerr.Wrap(err, "blockstore: delete")
	}
	return nil
}

// GetMany fetches a batch of blocks, collecting every missing ID into
// a single MissingBlocks error instead of failing on the first miss —
// the object assembler (C2) and verifier (C7) both need the full set
// of absent blocks to issue one sync request.
func (s *Store) GetMany(ids []ID) (map[ID]Block, error) {
	out := make(map[ID]Block, len(ids))
	var missing []string
	for _, id := range ids {
		b, err := s.Get(id)
		if err != nil {
			var mb *ngerr.MissingBlocks
			if errors.As(err, &mb) {
				missing = append(missing, mb.IDs...)
				continue
			}
			return nil, err
		}
		out[id] = b
	}
	if len(missing) > 0 {
		return out, &ngerr.MissingBlocks{IDs: missing}
	}
	return out, nil
}

// DeserialiseBlock parses the wire bytes Block.Serialise produces.
// Exported for callers (e.g. pkg/broker's block-level put operation)
// that receive a block's bytes directly off a connection rather than
// through Store.Get.
func DeserialiseBlock(data []byte) (Block, error) {
	return deserialise(data)
}

func deserialise(data []byte) (Block, error) {
	nChildren, n, err := readUvarint(data)
	if err != nil {
		return Block{}, err
	}
	data = data[n:]
	children := make([]ID, 0, nChildren)
	for i := uint64(0); i < nChildren; i++ {
		l, n, err := readUvarint(data)
		if err != nil {
			return Block{}, err
		}
		data = data[n:]
		if uint64(len(data)) < l {
			return Block{}, fmt.Errorf("blockstore: truncated child id")
		}
		id, err := idFromRawBytes(data[:l])
		if err != nil {
			return Block{}, err
		}
		children = append(children, id)
		data = data[l:]
	}
	payloadLen, n, err := readUvarint(data)
	if err != nil {
		return Block{}, err
	}
	data = data[n:]
	if uint64(len(data)) < payloadLen {
		return Block{}, fmt.Errorf("blockstore: truncated payload")
	}
	return Block{Children: children, Payload: data[:payloadLen]}, nil
}

func readUvarint(data []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i, b := range data {
		if i > 9 {
			return 0, 0, fmt.Errorf("blockstore: uvarint too long")
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("blockstore: truncated uvarint")
}

// MemoryBackend is the in-memory map option spec.md names explicitly;
// suitable for tests and ephemeral verifier instances.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Put(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[key] = cp
	return nil
}

func (m *MemoryBackend) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (m *MemoryBackend) Has(key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
