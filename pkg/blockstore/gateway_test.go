package blockstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGatewayFetchFallsBackAndCachesLocally(t *testing.T) {
	blk := Block{Payload: []byte("remote payload")}
	id := blk.ID()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(blk.Serialise())
	}))
	defer srv.Close()

	store := New(NewMemoryBackend())
	gw := NewGateway(store, srv.URL, srv.Client(), nil)

	got, err := gw.Fetch(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, blk.Payload, got.Payload)

	has, err := store.Has(id)
	require.NoError(t, err)
	require.True(t, has, "fetched block should be cached locally")
}

func TestGatewayFetchPrefersLocalStore(t *testing.T) {
	blk := Block{Payload: []byte("local payload")}
	store := New(NewMemoryBackend())
	id, err := store.Put(blk, ID{})
	require.NoError(t, err)

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gw := NewGateway(store, srv.URL, srv.Client(), nil)
	got, err := gw.Fetch(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, blk.Payload, got.Payload)
	require.False(t, called, "gateway should not be consulted on a local hit")
}

func TestGatewayFetchRejectsHashMismatch(t *testing.T) {
	wrong := Block{Payload: []byte("not what was asked for")}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(wrong.Serialise())
	}))
	defer srv.Close()

	store := New(NewMemoryBackend())
	gw := NewGateway(store, srv.URL, srv.Client(), nil)

	wantBlk := Block{Payload: []byte("expected payload")}
	_, err := gw.Fetch(context.Background(), wantBlk.ID())
	require.Error(t, err)
}

func TestGatewayAnnouncePostsBlock(t *testing.T) {
	blk := Block{Payload: []byte("announce me")}
	var receivedBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := New(NewMemoryBackend())
	gw := NewGateway(store, srv.URL, srv.Client(), nil)

	require.NoError(t, gw.Announce(context.Background(), blk))
	got, err := DeserialiseBlock(receivedBody)
	require.NoError(t, err)
	require.Equal(t, blk.Payload, got.Payload)
}
