package discrete

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextgraph-core/ng/pkg/orm"
	"github.com/nextgraph-core/ng/pkg/verifier"
)

func TestApplyRemoteMapPutEmitsAddPatch(t *testing.T) {
	tr := NewTracker(nil)
	ops := encodeOps([]Op{{Path: []string{"title"}, Action: ActionMapPut, Value: "hello", Timestamp: 1}})

	patches, err := tr.ApplyRemote("branch-1", []verifier.DiscreteOp{{Kind: verifier.DiscreteYMap, Bytes: ops}})
	require.NoError(t, err)
	require.Len(t, patches, 1)
	require.Equal(t, "add", patches[0].Op)
	require.Equal(t, "/title", patches[0].Path)
	require.Equal(t, "hello", patches[0].Value)
}

func TestLastWriteWinsDropsStaleOp(t *testing.T) {
	tr := NewTracker(nil)
	newer := encodeOps([]Op{{Path: []string{"title"}, Action: ActionMapPut, Value: "new", Timestamp: 5}})
	older := encodeOps([]Op{{Path: []string{"title"}, Action: ActionMapPut, Value: "old", Timestamp: 2}})

	_, err := tr.ApplyRemote("branch-1", []verifier.DiscreteOp{{Bytes: newer}})
	require.NoError(t, err)
	patches, err := tr.ApplyRemote("branch-1", []verifier.DiscreteOp{{Bytes: older}})
	require.NoError(t, err)
	require.Empty(t, patches)

	doc := tr.documentFor("branch-1")
	require.Equal(t, "new", doc.root["title"])
}

func TestSeqInsertAndDelete(t *testing.T) {
	tr := NewTracker(nil)
	insertOps := encodeOps([]Op{
		{Path: []string{"items"}, Action: ActionSeqInsert, Index: 0, Value: "a", Timestamp: 1},
		{Path: []string{"items"}, Action: ActionSeqInsert, Index: 1, Value: "b", Timestamp: 2},
	})
	_, err := tr.ApplyRemote("branch-1", []verifier.DiscreteOp{{Bytes: insertOps}})
	require.NoError(t, err)

	doc := tr.documentFor("branch-1")
	seq, ok := doc.root["items"].([]interface{})
	require.True(t, ok)
	require.Equal(t, []interface{}{"a", "b"}, seq)

	deleteOps := encodeOps([]Op{{Path: []string{"items"}, Action: ActionDeleteSeq, Index: 0, Timestamp: 3}})
	patches, err := tr.ApplyRemote("branch-1", []verifier.DiscreteOp{{Bytes: deleteOps}})
	require.NoError(t, err)
	require.Len(t, patches, 1)
	require.Equal(t, "remove", patches[0].Op)

	doc = tr.documentFor("branch-1")
	seq, _ = doc.root["items"].([]interface{})
	require.Equal(t, []interface{}{"b"}, seq)
}

func TestApplyLocalPatchRoundTrips(t *testing.T) {
	tr := NewTracker(nil)
	changeBytes, err := tr.ApplyLocal("branch-1", orm.Patch{Op: "add", Path: "/title", Value: "local edit"}, 1)
	require.NoError(t, err)
	require.NotEmpty(t, changeBytes)

	doc := tr.documentFor("branch-1")
	require.Equal(t, "local edit", doc.root["title"])
}

func TestMalformedOpBatchIsSkippedNotFatal(t *testing.T) {
	tr := NewTracker(nil)
	patches, err := tr.ApplyRemote("branch-1", []verifier.DiscreteOp{{Bytes: []byte("not a valid batch")}})
	require.NoError(t, err)
	require.Empty(t, patches)
}
