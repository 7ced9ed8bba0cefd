package netconn

import (
	"crypto/rand"
	"testing"

	"github.com/flynn/noise"
	"github.com/stretchr/testify/require"
)

func genKeypair(t *testing.T) noise.DHKey {
	t.Helper()
	kp, err := cipherSuite.GenerateKeypair(rand.Reader)
	require.NoError(t, err)
	return kp
}

func runHandshake(t *testing.T) (*HandshakeResult, *HandshakeResult) {
	t.Helper()
	clientKeys := genKeypair(t)
	serverKeys := genKeypair(t)

	initiator, err := NewInitiator(clientKeys, serverKeys.Public)
	require.NoError(t, err)
	responder, err := NewResponder(serverKeys)
	require.NoError(t, err)

	msg1, err := initiator.Step1()
	require.NoError(t, err)
	require.NoError(t, responder.Step1Read(msg1))

	msg2, err := responder.Step2()
	require.NoError(t, err)
	require.NoError(t, initiator.Step2Read(msg2))

	clientResult, msg3, err := initiator.Step3([]byte("hello-server"))
	require.NoError(t, err)
	serverResult, payload, err := responder.Step3Read(msg3)
	require.NoError(t, err)
	require.Equal(t, "hello-server", string(payload))

	return clientResult, serverResult
}

func TestHandshakeProducesMatchingCipherStates(t *testing.T) {
	client, server := runHandshake(t)
	require.NotNil(t, client.Send)
	require.NotNil(t, client.Recv)
	require.NotNil(t, server.Send)
	require.NotNil(t, server.Recv)
}

func TestHandshakeAuthenticatesPeerStatic(t *testing.T) {
	clientKeys := genKeypair(t)
	serverKeys := genKeypair(t)

	initiator, err := NewInitiator(clientKeys, serverKeys.Public)
	require.NoError(t, err)
	responder, err := NewResponder(serverKeys)
	require.NoError(t, err)

	msg1, err := initiator.Step1()
	require.NoError(t, err)
	require.NoError(t, responder.Step1Read(msg1))
	msg2, err := responder.Step2()
	require.NoError(t, err)
	require.NoError(t, initiator.Step2Read(msg2))
	_, msg3, err := initiator.Step3(nil)
	require.NoError(t, err)
	serverResult, _, err := responder.Step3Read(msg3)
	require.NoError(t, err)

	require.Equal(t, clientKeys.Public, serverResult.PeerStatic)
}
