package broker

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/netconn"
)

func drainOne(t *testing.T, ch <-chan netconn.ActorReply) netconn.ActorReply {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for actor reply")
		return netconn.ActorReply{}
	}
}

func TestActorsAddUserRequiresAdminVariant(t *testing.T) {
	f := newTestBroker(t)
	handler := f.b.Handler(netconn.VariantClient)

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	payload := appendBytesField(appendBytesField(nil, []byte("user-1")), pub)

	reply := drainOne(t, handler("AddUser", payload))
	require.Equal(t, netconn.ResultAccessDenied, reply.Code)
}

func TestActorsAddUserOnAdminVariant(t *testing.T) {
	f := newTestBroker(t)
	handler := f.b.Handler(netconn.VariantAdmin)

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	payload := appendBytesField(appendBytesField(nil, []byte("user-1")), pub)

	reply := drainOne(t, handler("AddUser", payload))
	require.Equal(t, netconn.ResultOK, reply.Code)
	require.Len(t, f.b.Admin.ListUsers(), 1)
}

func TestActorsGetPutBlockRoundTrip(t *testing.T) {
	f := newTestBroker(t)
	handler := f.b.Handler(netconn.VariantCore)

	blk := blockstore.Block{Payload: []byte("some block payload")}.Serialise()

	putReply := drainOne(t, handler("PutBlock", blk))
	require.Equal(t, netconn.ResultOK, putReply.Code)

	getReply := drainOne(t, handler("GetBlock", appendBytesField(nil, putReply.Payload)))
	require.Equal(t, netconn.ResultOK, getReply.Code)
}

func TestActorsListInvitationsStreams(t *testing.T) {
	f := newTestBroker(t)
	var code1, code2 [32]byte
	copy(code1[:], []byte("invitation-code-number-one-3232"))
	copy(code2[:], []byte("invitation-code-number-two-3232"))
	require.NoError(t, f.b.Admin.AddInvitation(code1, time.Now().Add(time.Hour), ""))
	require.NoError(t, f.b.Admin.AddInvitation(code2, time.Now().Add(time.Hour), ""))

	handler := f.b.Handler(netconn.VariantAdmin)
	ch := handler("ListInvitations", nil)

	var replies []netconn.ActorReply
	for r := range ch {
		replies = append(replies, r)
	}
	require.Len(t, replies, 3)
	require.Equal(t, netconn.ResultPartialContent, replies[0].Code)
	require.Equal(t, netconn.ResultPartialContent, replies[1].Code)
	require.Equal(t, netconn.ResultEndOfStream, replies[2].Code)
}
