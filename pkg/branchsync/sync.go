// Package branchsync implements C4, branch sync (spec.md section
// 4.4): given what a peer already has and what it wants, compute the
// set of commit IDs to send, via a causal-past walk and set
// difference. Grounded on the teacher's sync-manager shape
// (core/blockchain_synchronization.go, core/replication.go,
// core/initialization_replication.go) generalised from "fetch and
// import blocks in height order" to "diff two causal frontiers",
// since NextGraph's commit DAG has no total order to walk linearly.
package branchsync

import (
	"github.com/sirupsen/logrus"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/commit"
)

// Diff computes the commits to send a peer so it can reach
// targetHeads, given it already has knownHeads (spec.md section 4.4).
//
// Algorithm:
//  1. Walk the causal past of knownHeads into theirs, stopping (but
//     not failing) at missing blocks.
//  2. Walk the causal past of targetHeads, collecting every visited
//     commit not already in theirs.
//  3. Return that difference. Ordering within the result is
//     unspecified; callers must not depend on it.
type Differ struct {
	resolver commit.Resolver
	log      *logrus.Logger
}

func New(resolver commit.Resolver, log *logrus.Logger) *Differ {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Differ{resolver: resolver, log: log}
}

func (d *Differ) Diff(targetHeads, knownHeads []blockstore.ID) []blockstore.ID {
	theirs := d.walk(knownHeads)

	seen := make(map[string]bool)
	var out []blockstore.ID
	d.walkCollect(targetHeads, theirs, seen, &out)
	return out
}

// walk returns the set of commit IDs reachable from the given
// frontier, including the frontier itself.
func (d *Differ) walk(frontier []blockstore.ID) map[string]bool {
	set := make(map[string]bool)
	queue := append([]blockstore.ID{}, frontier...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		key := id.String()
		if set[key] {
			continue
		}
		set[key] = true
		h, err := d.resolver.ResolveHeader(id)
		if err != nil {
			d.log.WithField("commit", key).Debug("branchsync: missing block while walking causal past, continuing")
			continue
		}
		queue = append(queue, h.Deps...)
		queue = append(queue, h.Acks...)
	}
	return set
}

// walkCollect walks frontier's causal past, appending every visited
// commit not in exclude to out exactly once.
func (d *Differ) walkCollect(frontier []blockstore.ID, exclude, seen map[string]bool, out *[]blockstore.ID) {
	queue := append([]blockstore.ID{}, frontier...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		key := id.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		if !exclude[key] {
			*out = append(*out, id)
		}
		h, err := d.resolver.ResolveHeader(id)
		if err != nil {
			d.log.WithField("commit", key).Debug("branchsync: missing block while walking target frontier, continuing")
			continue
		}
		queue = append(queue, h.Deps...)
		queue = append(queue, h.Acks...)
	}
}
