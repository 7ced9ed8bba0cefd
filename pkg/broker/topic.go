package broker

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/branchsync"
	"github.com/nextgraph-core/ng/pkg/event"
	"github.com/nextgraph-core/ng/pkg/ngerr"
	"github.com/nextgraph-core/ng/pkg/repo"
	"github.com/nextgraph-core/ng/pkg/verifier"
)

// Delivery is one message on a subscription channel: either the
// Initial snapshot (delivered exactly once, strictly before any
// Patch, per spec.md section 5's ordering guarantee) or a Patch
// produced by a subsequently applied commit.
type Delivery struct {
	Initial bool
	Patches []verifier.Triple
	Removed []verifier.Triple
}

// Subscription is a live feed of a pinned repo's applied deltas. The
// caller reads Deliveries until it calls Close, which stops further
// deliveries to it (spec.md: "Closing a subscription channel stops
// further deliveries and releases the subscription's tracked-object
// graph."). Close alone leaves it in the repo's fan-out set;
// Broker.Unsubscribe also removes it from there.
type Subscription struct {
	// ID correlates this subscription's log lines and any future
	// wire-level unsubscribe request with the instance Subscribe
	// returned; it is ephemeral and never content-addressed, unlike
	// every blockstore/commit/event ID in this package.
	ID         uuid.UUID
	Deliveries <-chan Delivery
	deliveries chan Delivery
	done       chan struct{}
	doneOnce   sync.Once
}

// Close stops further deliveries to this subscription.
func (s *Subscription) Close() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Subscription) send(d Delivery) {
	select {
	case s.deliveries <- d:
	case <-s.done:
	}
}

// pinnedRepo is one repo the broker serves: its permission/membership
// state, the sequence tracker enforcing per-publisher event ordering
// (spec.md section 5), and the set of live subscriptions to fan
// applied deltas out to.
type pinnedRepo struct {
	mu   sync.Mutex
	repo *repo.Repository
	seqs *event.SequenceTracker
	subs map[*Subscription]struct{}
}

// PinRepo registers a repository for topic operations, the
// prerequisite spec.md names before subscribe/publish/sync can target
// it.
func (b *Broker) PinRepo(repoID []byte, r *repo.Repository) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.repos[string(repoID)] = &pinnedRepo{repo: r, seqs: event.NewSequenceTracker(), subs: make(map[*Subscription]struct{})}
	b.verifier.RegisterRepo(repoID, r)
}

func (b *Broker) pinned(repoID []byte) (*pinnedRepo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pr, ok := b.repos[string(repoID)]
	if !ok {
		return nil, fmt.Errorf("%w: repo not pinned", ngerr.ErrNotFound)
	}
	return pr, nil
}

// Subscribe opens a live feed on repoID, delivering an Initial
// snapshot (here: an empty delta, since the dataset's full contents
// are read through the ORM layer directly — this channel only carries
// subsequent changes) followed by a Patch per applied commit.
func (b *Broker) Subscribe(repoID []byte) (*Subscription, error) {
	pr, err := b.pinned(repoID)
	if err != nil {
		return nil, err
	}
	sub := &Subscription{ID: uuid.New(), deliveries: make(chan Delivery, 16), done: make(chan struct{})}
	sub.Deliveries = sub.deliveries
	pr.mu.Lock()
	pr.subs[sub] = struct{}{}
	pr.mu.Unlock()
	b.log.WithField("subscription_id", sub.ID).Debug("broker: subscription opened")
	sub.send(Delivery{Initial: true})
	return sub, nil
}

// Unsubscribe releases sub from repoID's fan-out set; it is also safe
// to simply call sub.Close().
func (b *Broker) Unsubscribe(repoID []byte, sub *Subscription) {
	pr, err := b.pinned(repoID)
	if err != nil {
		return
	}
	pr.mu.Lock()
	delete(pr.subs, sub)
	pr.mu.Unlock()
	b.log.WithField("subscription_id", sub.ID).Debug("broker: subscription closed")
	sub.Close()
}

// PublishEvent opens ev (verifying its double signature and advancing
// its publisher's sequence counter), applies the commit it carries
// through the verifier, and fans the resulting delta out to every
// live subscription on the branch's repo.
func (b *Broker) PublishEvent(ev *event.Event, branchReadCapKey []byte, topicPub, publisherPub ed25519.PublicKey, commitKey [32]byte) (*verifier.ApplyResult, error) {
	pr, err := b.pinned(ev.RepoID)
	if err != nil {
		return nil, err
	}

	commitRef, _, err := event.Open(ev, branchReadCapKey, topicPub, publisherPub, b.store, pr.seqs)
	if err != nil {
		return nil, ngerr.Wrap(err, "broker: open event")
	}

	result, err := b.applyCommitRef(ev.RepoID, commitRef, commitKey)
	if err != nil {
		return nil, err
	}

	pr.mu.Lock()
	subs := make([]*Subscription, 0, len(pr.subs))
	for s := range pr.subs {
		subs = append(subs, s)
	}
	pr.mu.Unlock()
	for _, s := range subs {
		s.send(Delivery{Patches: result.Inserted, Removed: result.Removed})
	}
	return result, nil
}

// SyncBranch computes the commits a peer needs to reach targetHeads
// given it already has knownHeads (spec.md section 4.4, exposed here
// as a broker-level topic operation).
func (b *Broker) SyncBranch(targetHeads, knownHeads []blockstore.ID) []blockstore.ID {
	differ := branchsync.New(b.verifier, b.log)
	return differ.Diff(targetHeads, knownHeads)
}
