package netconn

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFramerRoundTrip(t *testing.T) {
	clientResult, serverResult := runHandshake(t)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	clientFramer := NewFramer(clientConn, clientResult)
	serverFramer := NewFramer(serverConn, serverResult)

	sent := ProtocolMessage{ID: 42, Kind: "Ping", Payload: []byte("are you there")}
	go func() {
		require.NoError(t, clientFramer.WriteMessage(sent))
	}()

	got, err := serverFramer.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, sent, got)
}

func TestFramerRejectsOversizedFrame(t *testing.T) {
	clientResult, serverResult := runHandshake(t)
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	clientFramer := NewFramer(clientConn, clientResult)
	_ = NewFramer(serverConn, serverResult)

	err := writeLengthDelimited(clientFramer.rw, make([]byte, maxFrameSize+1))
	require.Error(t, err)
}
