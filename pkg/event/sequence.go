package event

import (
	"fmt"
	"sync"

	"github.com/nextgraph-core/ng/pkg/ngerr"
)

// SequenceTracker enforces spec.md section 4.5's ordering invariant:
// per-publisher sequence numbers are strictly increasing; a gap or a
// non-monotonic number is fatal for that link. A tracker keeps one
// counter per publisher; pkg/broker holds one tracker per pinned repo.
type SequenceTracker struct {
	mu   sync.Mutex
	last map[string]uint64
	seen map[string]bool
}

func NewSequenceTracker() *SequenceTracker {
	return &SequenceTracker{last: make(map[string]uint64), seen: make(map[string]bool)}
}

// CheckAndAdvance accepts seq for publisher if it is exactly one more
// than the last accepted sequence (or the first sequence seen for
// that publisher), else returns an error wrapping
// ngerr.ErrStreamOutOfOrder.
func (s *SequenceTracker) CheckAndAdvance(publisher []byte, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(publisher)
	if s.seen[key] {
		last := s.last[key]
		if seq != last+1 {
			return fmt.Errorf("%w: publisher sequence must increase by exactly one (last %d, got %d)",
				ngerr.ErrStreamOutOfOrder, last, seq)
		}
	}
	s.seen[key] = true
	s.last[key] = seq
	return nil
}
