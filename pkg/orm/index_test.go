package orm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectIndexInOrderIsSorted(t *testing.T) {
	idx := newObjectIndex()
	idx.Insert(ObjectKey{Subject: "c"})
	idx.Insert(ObjectKey{Subject: "a"})
	idx.Insert(ObjectKey{Subject: "b"})

	got := idx.InOrder()
	require.Len(t, got, 3)
	require.Equal(t, "a", got[0].Subject)
	require.Equal(t, "b", got[1].Subject)
	require.Equal(t, "c", got[2].Subject)
}

func TestObjectIndexDeleteRemovesKey(t *testing.T) {
	idx := newObjectIndex()
	idx.Insert(ObjectKey{Subject: "x"})
	idx.Insert(ObjectKey{Subject: "y"})
	idx.Delete(ObjectKey{Subject: "x"})

	got := idx.InOrder()
	require.Len(t, got, 1)
	require.Equal(t, "y", got[0].Subject)
}

func TestObjectIndexRangeIsInclusiveBounds(t *testing.T) {
	idx := newObjectIndex()
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		idx.Insert(ObjectKey{Subject: s})
	}
	got := idx.Range("b", "d")
	require.Len(t, got, 3)
	require.Equal(t, "b", got[0].Subject)
	require.Equal(t, "d", got[2].Subject)
}

func TestSubscriptionTracksIndexOnCreateAndRemove(t *testing.T) {
	sub := NewSubscription(Schema{})
	k1 := ObjectKey{Graph: "g", Subject: "s1", Shape: "Sh"}
	k2 := ObjectKey{Graph: "g", Subject: "s2", Shape: "Sh"}
	sub.getOrCreate(k1)
	sub.getOrCreate(k2)

	keys := sub.AllObjectKeys()
	require.Len(t, keys, 2)
	require.Equal(t, "s1", keys[0].Subject)
	require.Equal(t, "s2", keys[1].Subject)

	sub.removeTrackedOrmObject(k1)
	keys = sub.AllObjectKeys()
	require.Len(t, keys, 1)
	require.Equal(t, "s2", keys[0].Subject)
}
