package orm

import "github.com/nextgraph-core/ng/pkg/verifier"

type quadGroupKey struct {
	Graph   string
	Subject string
}

// ApplyDelta groups added/removed quads by (graph, subject), updates
// every tracked object that already exists for that subject across
// all shapes in scope, and re-validates every object touched —
// following the chain of parents/children the heuristic and
// validation step produce — until the work queue drains (spec.md
// section 4.8 step 2-3, "Apply deltas" / "Validate"). Root objects
// (subjects explicitly bound via Load or Subscribe) are created
// lazily here on first matching quad, exactly as spec.md section 3
// describes; nested objects are created only via the child-assessment
// heuristic during Validate.
func (s *Subscription) ApplyDelta(added, removed []verifier.Triple) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := make(map[quadGroupKey][]verifier.Triple)
	for _, t := range added {
		k := quadGroupKey{Graph: t.Graph, Subject: t.Subject}
		groups[k] = append(groups[k], t)
	}
	removedGroups := make(map[quadGroupKey][]verifier.Triple)
	for _, t := range removed {
		k := quadGroupKey{Graph: t.Graph, Subject: t.Subject}
		removedGroups[k] = append(removedGroups[k], t)
	}

	queue := newWorkQueue()

	for k, quads := range groups {
		s.applyGroup(k, quads, true, queue)
	}
	for k, quads := range removedGroups {
		s.applyGroup(k, quads, false, queue)
	}

	return s.drainQueue(queue)
}

// applyGroup updates cardinality/literal/child state for every
// tracked shape membership of (graph,subject), and for root bindings
// lacking a tracked object yet, creates one (spec.md section 3:
// "created lazily on first matching quad").
func (s *Subscription) applyGroup(k quadGroupKey, quads []verifier.Triple, add bool, queue *workQueue) {
	candidates := s.shapesFor(k)
	for _, shapeIRI := range candidates {
		key := ObjectKey{Graph: k.Graph, Subject: k.Subject, Shape: shapeIRI}
		shape, ok := s.schema[shapeIRI]
		if !ok {
			continue
		}
		obj, exists := s.objects[key]
		if !exists {
			if !add {
				continue // nothing to remove from an object we never tracked
			}
			obj = s.getOrCreate(key)
		}
		s.applyQuadsToObject(obj, shape, quads, add, queue)
		queue.push(key)
	}
}

// shapesFor returns every shape IRI this (graph,subject) should be
// evaluated against: every shape it is already tracked under, plus
// every root shape explicitly bound to this subject.
func (s *Subscription) shapesFor(k quadGroupKey) []string {
	seen := make(map[string]bool)
	var out []string
	for key := range s.objects {
		if key.Graph == k.Graph && key.Subject == k.Subject && !seen[key.Shape] {
			seen[key.Shape] = true
			out = append(out, key.Shape)
		}
	}
	for root := range s.roots {
		if root.Graph == k.Graph && root.Subject == k.Subject && !seen[root.Shape] {
			seen[root.Shape] = true
			out = append(out, root.Shape)
		}
	}
	return out
}

func (s *Subscription) applyQuadsToObject(obj *TrackedObject, shape *Shape, quads []verifier.Triple, add bool, queue *workQueue) {
	for _, q := range quads {
		pred, ok := shape.predicate(q.Predicate)
		if !ok {
			continue // predicate not part of this shape: ignored, not an error
		}
		tp := obj.predicate(pred.IRI)
		if shapeIRI, isShape := pred.nestedShape(); isShape {
			childKey := ObjectKey{Graph: q.Graph, Subject: q.Object, Shape: shapeIRI}
			_, alreadyLinked := tp.Children[childKey]
			_, childTracked := s.objects[childKey]
			if add {
				if !alreadyLinked {
					tp.Cardinality++
				}
				s.linkParentChild(obj.Key, pred.IRI, childKey)
				// A child seen for the first time has no quads of its own
				// yet in this delta; leave it at its default Pending
				// rather than validating it immediately against an empty
				// predicate set, which would wrongly fail it before its
				// own data has a chance to arrive (spec.md section 8
				// scenario 6). A child already tracked may have gained or
				// lost state that its own shape check needs to re-run.
				if childTracked {
					queue.push(childKey)
				}
			} else {
				if alreadyLinked && tp.Cardinality > 0 {
					tp.Cardinality--
				}
				s.unlinkParentChild(obj.Key, pred.IRI, childKey)
				queue.push(childKey)
			}
			continue
		}
		// Literal/primitive predicates: Literals is a presence set, not a
		// multiset — applying the same quad twice produces one increment,
		// matching spec.md's idempotence invariant ("applying the same
		// quad twice produces one increment (cardinality = 1)").
		if add {
			if tp.Literals[q.Object] == 0 {
				tp.Cardinality++
			}
			tp.Literals[q.Object] = 1
		} else if tp.Literals[q.Object] > 0 {
			delete(tp.Literals, q.Object)
			if tp.Cardinality > 0 {
				tp.Cardinality--
			}
		}
	}
}

// workQueue is a FIFO of ObjectKeys pending (re)validation, deduping
// so a key queued twice before being drained is only validated once
// per round — mirroring the BFS-style fixed point the Rust validator
// reaches by passing around children_to_eval/parents_to_eval.
type workQueue struct {
	items   []ObjectKey
	pending map[ObjectKey]bool
}

func newWorkQueue() *workQueue { return &workQueue{pending: make(map[ObjectKey]bool)} }

func (q *workQueue) push(k ObjectKey) {
	if q.pending[k] {
		return
	}
	q.pending[k] = true
	q.items = append(q.items, k)
}

func (q *workQueue) pop() (ObjectKey, bool) {
	if len(q.items) == 0 {
		return ObjectKey{}, false
	}
	k := q.items[0]
	q.items = q.items[1:]
	delete(q.pending, k)
	return k, true
}

func (s *Subscription) drainQueue(queue *workQueue) error {
	for {
		key, ok := queue.pop()
		if !ok {
			return nil
		}
		children, parents, err := s.validate(key)
		if err != nil {
			return err
		}
		for _, c := range children {
			queue.push(c)
		}
		for _, p := range parents {
			queue.push(p)
		}
	}
}
