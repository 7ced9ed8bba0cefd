package broker

import (
	"fmt"

	"github.com/nextgraph-core/ng/pkg/event"
	"github.com/nextgraph-core/ng/pkg/ngerr"
)

// RemoteBroker is another broker reachable for forwarding (normally
// backed by a netconn.Conn dialled with VariantCore). Routing through
// it must not touch the event's signatures or sequence number (spec.md:
// "A broker may route via another broker; forwarded events preserve
// the publisher's signature and nonce sequence.") — Forward takes the
// Event struct as-is rather than a re-derived one.
type RemoteBroker interface {
	Forward(ev *event.Event) error
}

// AddPeer registers a remote broker reachable under brokerID.
func (b *Broker) AddPeer(brokerID string, rb RemoteBroker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.peers[brokerID] = rb
}

// RemovePeer drops a previously registered remote broker.
func (b *Broker) RemovePeer(brokerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.peers, brokerID)
}

// RouteVia forwards ev to brokerID's remote broker unchanged,
// preserving its publisher signature and sequence number.
func (b *Broker) RouteVia(brokerID string, ev *event.Event) error {
	b.mu.Lock()
	rb, ok := b.peers[brokerID]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no route to broker %s", ngerr.ErrNotFound, brokerID)
	}
	return rb.Forward(ev)
}
