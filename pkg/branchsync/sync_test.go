package branchsync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/commit"
)

type fakeResolver map[string]commit.Header

func (f fakeResolver) ResolveHeader(id blockstore.ID) (commit.Header, error) {
	h, ok := f[id.String()]
	if !ok {
		return commit.Header{}, errors.New("fakeResolver: not found")
	}
	return h, nil
}

func leaf(s string) blockstore.ID { return blockstore.Block{Payload: []byte(s)}.ID() }

// Chain: root -> a -> b -> c (c is the oldest, root is the newest head).
func chainResolver() (fakeResolver, blockstore.ID, blockstore.ID, blockstore.ID, blockstore.ID) {
	root, a, b, c := leaf("root"), leaf("a"), leaf("b"), leaf("c")
	return fakeResolver{
		root.String(): {Deps: []blockstore.ID{a}},
		a.String():    {Deps: []blockstore.ID{b}},
		b.String():    {Deps: []blockstore.ID{c}},
	}, root, a, b, c
}

func TestDiffReturnsNewerCommits(t *testing.T) {
	resolver, root, a, b, _ := chainResolver()
	d := New(resolver, nil)

	// Peer knows up to b; we want them to reach root.
	got := d.Diff([]blockstore.ID{root}, []blockstore.ID{b})

	ids := map[string]bool{}
	for _, id := range got {
		ids[id.String()] = true
	}
	require.True(t, ids[root.String()])
	require.True(t, ids[a.String()])
	require.False(t, ids[b.String()]) // peer already has b
}

func TestDiffEmptyWhenUpToDate(t *testing.T) {
	resolver, root, _, _, _ := chainResolver()
	d := New(resolver, nil)

	got := d.Diff([]blockstore.ID{root}, []blockstore.ID{root})
	require.Empty(t, got)
}

func TestDiffIncludesUnreachableExplicitTarget(t *testing.T) {
	resolver, _, _, _, _ := chainResolver()
	stray := leaf("stray, unreachable from anything")
	d := New(resolver, nil)

	got := d.Diff([]blockstore.ID{stray}, nil)
	require.Len(t, got, 1)
	require.True(t, got[0].Equal(stray))
}

func TestDiffToleratesMissingBlocksInKnownWalk(t *testing.T) {
	resolver, root, a, _, _ := chainResolver()
	// Peer claims to know a commit we have no header for (simulated
	// gap): the walk should still terminate and not panic.
	missingKnown := leaf("unknown-to-us")
	d := New(resolver, nil)

	got := d.Diff([]blockstore.ID{root}, []blockstore.ID{missingKnown})
	ids := map[string]bool{}
	for _, id := range got {
		ids[id.String()] = true
	}
	require.True(t, ids[root.String()])
	require.True(t, ids[a.String()])
}
