package orm

import "github.com/nextgraph-core/ng/pkg/verifier"

// Subscribe binds a root subject to a root shape and performs the
// initial breadth-first load (spec.md section 4.8 step 1): every
// matching triple for the subject is fed through the same quad-apply
// path ApplyDelta uses, and any predicate targeting a nested shape
// whose object is an IRI enqueues that (shape, subject) pair for the
// next round — never re-visiting a (shape, subject) pair already
// processed. The verifier's Dataset only exposes pattern matching,
// not arbitrary SPARQL (out of scope per spec.md Non-goals), so this
// walks triples directly rather than building the WHERE-clause query
// spec.md describes; the BFS termination and dedup behaviour is the
// same.
func (s *Subscription) Subscribe(ds verifier.Dataset, rootShape, graphIRI, subjectIRI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rootKey := ObjectKey{Graph: graphIRI, Subject: subjectIRI, Shape: rootShape}
	s.roots[rootKey] = struct{}{}

	visited := make(map[ObjectKey]bool)
	queue := []ObjectKey{rootKey}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		if visited[key] {
			continue
		}
		visited[key] = true

		shape, ok := s.schema[key.Shape]
		if !ok {
			continue
		}
		graph, subject := key.Graph, key.Subject
		quads, err := ds.QuadsForPattern(&subject, nil, nil, &graph)
		if err != nil {
			return err
		}
		obj := s.getOrCreate(key)
		queue = append(queue, s.loadQuads(obj, shape, quads)...)
	}

	queueWork := newWorkQueue()
	for k := range visited {
		queueWork.push(k)
	}
	return s.drainQueue(queueWork)
}

func (s *Subscription) loadQuads(obj *TrackedObject, shape *Shape, quads []verifier.Triple) []ObjectKey {
	var nextRound []ObjectKey
	for _, q := range quads {
		pred, ok := shape.predicate(q.Predicate)
		if !ok {
			continue
		}
		tp := obj.predicate(pred.IRI)
		if shapeIRI, isShape := pred.nestedShape(); isShape {
			childKey := ObjectKey{Graph: q.Graph, Subject: q.Object, Shape: shapeIRI}
			if _, already := tp.Children[childKey]; !already {
				tp.Cardinality++
			}
			s.linkParentChild(obj.Key, pred.IRI, childKey)
			nextRound = append(nextRound, childKey)
			continue
		}
		if tp.Literals[q.Object] == 0 {
			tp.Cardinality++
		}
		tp.Literals[q.Object] = 1
	}
	return nextRound
}
