package commit

import (
	"fmt"

	"github.com/nextgraph-core/ng/pkg/blockstore"
	"github.com/nextgraph-core/ng/pkg/ngerr"
)

// Resolver loads a commit's header given the commit's content
// address — the minimal capability the DAG walk needs. A verifier (C7)
// typically implements this over its local commit cache plus
// pkg/object, already holding the keys needed to decrypt each commit
// it has previously applied or synced.
type Resolver interface {
	ResolveHeader(id blockstore.ID) (Header, error)
}

// DetectCycle walks the causal past reachable from start's
// deps and fails if start itself is reachable — spec.md section 4.3:
// "Deps form a DAG; cycles are forbidden (an implementation must
// reject a commit whose deps transitively include itself)."
func DetectCycle(r Resolver, start blockstore.ID, startDeps []blockstore.ID) error {
	visited := make(map[string]bool)
	queue := append([]blockstore.ID{}, startDeps...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id.Equal(start) {
			return fmt.Errorf("%w: at %s", ngerr.ErrDAGCycle, start)
		}
		key := id.String()
		if visited[key] {
			continue
		}
		visited[key] = true
		h, err := r.ResolveHeader(id)
		if err != nil {
			// A missing block anywhere in the walk is not itself a cycle;
			// the caller handles MissingBlocks retry separately.
			continue
		}
		queue = append(queue, h.Deps...)
	}
	return nil
}
