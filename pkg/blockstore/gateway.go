package blockstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/nextgraph-core/ng/pkg/ngerr"
)

// Gateway fronts a Store with a read-through HTTP facade — spec.md
// section 4.1's content-addressed blocks are, by construction, also
// addressable by any IPFS-compatible gateway that speaks CIDv1/raw
// codec. Grounded on the teacher's `core/ipfs.go` IPFSService: same
// add/get/unpin shape, generalised from "pin via ledger-charged
// storage" to "get-or-fetch against this store, cache locally".
type Gateway struct {
	store   *Store
	client  *http.Client
	gateway string
	log     *logrus.Logger
}

// NewGateway wraps store with a remote gateway URL (e.g. a public IPFS
// gateway or another broker's block-serving endpoint) used as a
// fallback when a block isn't held locally.
func NewGateway(store *Store, gatewayURL string, client *http.Client, log *logrus.Logger) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gateway{store: store, client: client, gateway: gatewayURL, log: log}
}

// Fetch returns the block for id, consulting the local store first and
// falling back to the remote gateway on a miss; a successful remote
// fetch is cached locally so subsequent Fetch calls are local hits.
func (g *Gateway) Fetch(ctx context.Context, id ID) (Block, error) {
	if blk, err := g.store.Get(id); err == nil {
		return blk, nil
	}

	url := fmt.Sprintf("%s/api/v0/block/get?arg=%s", g.gateway, id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Block{}, ngerr.Wrap(err, "blockstore: gateway request")
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return Block{}, ngerr.Wrap(err, "blockstore: gateway fetch")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Block{}, fmt.Errorf("blockstore: gateway returned %d: %s", resp.StatusCode, string(b))
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Block{}, ngerr.Wrap(err, "blockstore: gateway read body")
	}
	blk, err := DeserialiseBlock(raw)
	if err != nil {
		return Block{}, ngerr.Wrap(err, "blockstore: gateway decode block")
	}
	if !blk.ID().Equal(id) {
		return Block{}, fmt.Errorf("%w: gateway block for %s hashes to %s", ngerr.ErrHashMismatch, id, blk.ID())
	}
	if _, err := g.store.Put(blk, id); err != nil {
		g.log.WithError(err).Warn("blockstore: gateway fetch succeeded but local cache write failed")
	}
	return blk, nil
}

// Announce posts a block to the remote gateway, useful when a broker
// wants a block reachable from outside this process's own connections.
func (g *Gateway) Announce(ctx context.Context, blk Block) error {
	url := fmt.Sprintf("%s/api/v0/block/put", g.gateway)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(blk.Serialise()))
	if err != nil {
		return ngerr.Wrap(err, "blockstore: gateway announce request")
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return ngerr.Wrap(err, "blockstore: gateway announce")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("blockstore: gateway announce returned %d: %s", resp.StatusCode, string(b))
	}
	g.log.WithField("id", blk.ID().String()).Info("blockstore: announced block to gateway")
	return nil
}
