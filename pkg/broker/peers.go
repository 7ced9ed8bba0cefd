package broker

import (
	crand "crypto/rand"
	"math/big"

	"github.com/nextgraph-core/ng/pkg/event"
)

// ListPeers returns the broker IDs currently reachable for forwarding.
// Grounded on the teacher's `core/peer_management.go` DiscoverPeers.
func (b *Broker) ListPeers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.peers))
	for id := range b.peers {
		ids = append(ids, id)
	}
	return ids
}

// SamplePeers returns up to n distinct broker IDs chosen at random,
// for bounded-fanout forwarding when an event must reach more brokers
// than RouteVia's single target. Grounded on the teacher's
// `core/peer_management.go` Sample, which performs the same
// crypto/rand Fisher-Yates shuffle to pick a random subset of known
// peers rather than always forwarding in map/slice order.
func (b *Broker) SamplePeers(n int) []string {
	ids := b.ListPeers()
	if n > len(ids) {
		n = len(ids)
	}
	for i := len(ids) - 1; i > 0; i-- {
		jBig, err := crand.Int(crand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			break
		}
		j := int(jBig.Int64())
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids[:n]
}

// RouteToSample forwards ev to a random subset of up to n reachable
// brokers, collecting every forwarding error rather than stopping at
// the first one so a single unreachable peer doesn't block the rest.
func (b *Broker) RouteToSample(n int, ev *event.Event) []error {
	var errs []error
	for _, id := range b.SamplePeers(n) {
		if err := b.RouteVia(id, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
