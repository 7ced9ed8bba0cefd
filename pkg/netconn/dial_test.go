package netconn

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDialClientAndAcceptServerEstablishLink(t *testing.T) {
	clientKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)
	serverKeys, err := GenerateStaticKeypair()
	require.NoError(t, err)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	serverCh := make(chan *Conn, 1)
	serverErrCh := make(chan error, 1)
	go func() {
		c, err := AcceptServer(serverConn, VariantCore, serverKeys, nil, nil)
		if err != nil {
			serverErrCh <- err
			return
		}
		serverCh <- c
	}()

	clientC, err := DialClient(clientConn, VariantCore, clientKeys, serverKeys.Public, nil, nil)
	require.NoError(t, err)
	require.Equal(t, StateEstablished, clientC.State())

	select {
	case err := <-serverErrCh:
		t.Fatalf("accept side failed: %v", err)
	case serverC := <-serverCh:
		require.Equal(t, StateEstablished, serverC.State())
	}
}

func TestStaticKeypairFromPrivateMatchesGenerated(t *testing.T) {
	kp, err := GenerateStaticKeypair()
	require.NoError(t, err)

	reconstructed, err := StaticKeypairFromPrivate(kp.Private)
	require.NoError(t, err)
	require.Equal(t, kp.Public, reconstructed.Public)
}
