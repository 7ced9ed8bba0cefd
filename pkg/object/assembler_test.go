package object

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/ngerr"
)

func TestAssembleLoadSmallValue(t *testing.T) {
	store := blockstore.New(blockstore.NewMemoryBackend())
	tree := New(store, DefaultConfig())

	payload := []byte("small value fits in one leaf")
	id, key, err := tree.Assemble([]byte("seed-1"), payload)
	require.NoError(t, err)

	got, err := tree.Load(id, key)
	require.NoError(t, err)
	require.True(t, bytes.Equal(payload, got))
}

func TestAssembleLoadLargeValueMultiLevel(t *testing.T) {
	store := blockstore.New(blockstore.NewMemoryBackend())
	cfg := Config{ChunkSize: 8, Branching: 2}
	tree := New(store, cfg)

	payload := []byte("0123456789abcdefghijklmnopqrstuvwxyz0123456789")
	id, key, err := tree.Assemble([]byte("seed-2"), payload)
	require.NoError(t, err)

	got, err := tree.Load(id, key)
	require.NoError(t, err)
	require.True(t, bytes.Equal(payload, got))
}

func TestAssembleDeterministic(t *testing.T) {
	store := blockstore.New(blockstore.NewMemoryBackend())
	cfg := Config{ChunkSize: 8, Branching: 2}
	tree := New(store, cfg)

	payload := []byte("deterministic tree construction across runs")
	id1, key1, err := tree.Assemble([]byte("fixed-seed"), payload)
	require.NoError(t, err)
	id2, key2, err := tree.Assemble([]byte("fixed-seed"), payload)
	require.NoError(t, err)

	require.True(t, id1.Equal(id2))
	require.Equal(t, key1, key2)
}

func TestLoadReportsMissingBlocks(t *testing.T) {
	backend := blockstore.NewMemoryBackend()
	store := blockstore.New(backend)
	cfg := Config{ChunkSize: 4, Branching: 2}
	tree := New(store, cfg)

	payload := []byte("payload split across several leaves for this test")
	id, key, err := tree.Assemble([]byte("seed-3"), payload)
	require.NoError(t, err)

	root, err := store.Get(id)
	require.NoError(t, err)
	require.NotEmpty(t, root.Children)
	require.NoError(t, store.Delete(root.Children[0]))

	_, err = tree.Load(id, key)
	require.Error(t, err)
	var mb *ngerr.MissingBlocks
	require.True(t, errors.As(err, &mb))
	require.Equal(t, []string{root.Children[0].String()}, mb.IDs)
}
