package netconn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestActorTableSingleResponseRemovesActor(t *testing.T) {
	table := NewActorTable()
	a, err := table.Register(1)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	require.NoError(t, table.Dispatch(1, ActorReply{Code: ResultOK, Payload: []byte("hi")}))
	require.Equal(t, 0, table.Len())

	reply, ok := <-a.Replies()
	require.True(t, ok)
	require.Equal(t, ResultOK, reply.Code)
	_, stillOpen := <-a.Replies()
	require.False(t, stillOpen)
}

func TestActorTableStreamEndsOnEndOfStream(t *testing.T) {
	table := NewActorTable()
	a, err := table.Register(2)
	require.NoError(t, err)

	require.NoError(t, table.Dispatch(2, ActorReply{Code: ResultPartialContent, Payload: []byte("1")}))
	require.Equal(t, 1, table.Len())
	require.NoError(t, table.Dispatch(2, ActorReply{Code: ResultPartialContent, Payload: []byte("2")}))
	require.NoError(t, table.Dispatch(2, ActorReply{Code: ResultEndOfStream}))
	require.Equal(t, 0, table.Len())

	first := <-a.Replies()
	second := <-a.Replies()
	third := <-a.Replies()
	require.Equal(t, []byte("1"), first.Payload)
	require.Equal(t, []byte("2"), second.Payload)
	require.Equal(t, ResultEndOfStream, third.Code)
}

func TestActorTableRejectsIDCollision(t *testing.T) {
	table := NewActorTable()
	_, err := table.Register(5)
	require.NoError(t, err)
	_, err = table.Register(5)
	require.Error(t, err)
}

func TestActorTableCancelClosesOnlyThatActor(t *testing.T) {
	table := NewActorTable()
	a1, _ := table.Register(1)
	a2, _ := table.Register(2)

	table.Cancel(1)
	require.Equal(t, 1, table.Len())

	_, open := <-a1.Replies()
	require.False(t, open)

	require.NoError(t, table.Dispatch(2, ActorReply{Code: ResultOK}))
	_, open = <-a2.Replies()
	require.True(t, open)
}

func TestActorTableWaitTimeoutYieldsTimeout(t *testing.T) {
	table := NewActorTable()
	a, err := table.Register(9)
	require.NoError(t, err)

	reply := table.WaitTimeout(a, 10*time.Millisecond)
	require.Equal(t, ResultTimeout, reply.Code)
	require.Equal(t, 0, table.Len())
}

func TestActorTableWaitTimeoutReturnsReplyBeforeDeadline(t *testing.T) {
	table := NewActorTable()
	a, err := table.Register(10)
	require.NoError(t, err)

	go func() {
		require.NoError(t, table.Dispatch(10, ActorReply{Code: ResultOK, Payload: []byte("fast")}))
	}()

	reply := table.WaitTimeout(a, time.Second)
	require.Equal(t, ResultOK, reply.Code)
	require.Equal(t, []byte("fast"), reply.Payload)
}

func TestActorTableCloseAllSignalsClosing(t *testing.T) {
	table := NewActorTable()
	a1, _ := table.Register(1)
	a2, _ := table.Register(2)

	table.CloseAll()
	require.Equal(t, 0, table.Len())

	r1 := <-a1.Replies()
	r2 := <-a2.Replies()
	require.Equal(t, ResultClosing, r1.Code)
	require.Equal(t, ResultClosing, r2.Code)
}
