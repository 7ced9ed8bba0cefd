package orm

import "sort"

// validate evaluates one tracked object's predicates against its
// shape in declared order (spec.md section 4.8 step 3), updates its
// Validity, emits add/remove patches on a validity transition, and
// returns the children and parents that now need re-evaluation as a
// result — the caller drains these through the work queue until the
// whole affected neighbourhood reaches a fixed point.
func (s *Subscription) validate(key ObjectKey) (children, parents []ObjectKey, err error) {
	obj, ok := s.objects[key]
	if !ok {
		return nil, nil, nil
	}
	shape, ok := s.schema[key.Shape]
	if !ok {
		return nil, nil, nil
	}
	prevValid := obj.Valid

	newValidity := Valid
	for _, pred := range shape.Predicates {
		tp := obj.Predicates[pred.IRI]
		count := 0
		if tp != nil {
			count = tp.Cardinality
		}

		if count < pred.MinCardinality {
			newValidity = Invalid
			if count <= 0 && tp != nil {
				delete(obj.Predicates, pred.IRI)
			}
			continue
		}
		if !pred.unbounded() && count > pred.MaxCardinality && !pred.Extra {
			newValidity = Invalid
			continue
		}

		if literals, isLiteral := pred.literalSet(); isLiteral {
			if tp == nil || !literalSubset(literals, tp.Literals, pred.Extra) {
				newValidity = Invalid
			}
			continue
		}

		if shapeIRI, isShape := pred.nestedShape(); isShape {
			cs, ps, pending := s.assessChildren(key, pred, shapeIRI, tp)
			children = append(children, cs...)
			parents = append(parents, ps...)
			if pending {
				if newValidity != Invalid {
					newValidity = Pending
				}
			}
			continue
		}

		if tp != nil && !matchesBasicTypes(pred.basicTypes(), tp.Literals) {
			newValidity = Invalid
		}
	}

	// newValidity is the raw per-predicate verdict; finalValidity is what
	// actually gets stored — a failing object with live parents parks at
	// ToDelete rather than Invalid (Invalid never persists in s.objects),
	// and a failing root drops straight to Untracked and is reaped.
	// Comparisons against prevValid must use finalValidity: comparing
	// against the raw newValidity would see "Invalid" every time a
	// stably-failing ToDelete object gets re-validated and requeue its
	// parents forever, since ToDelete != Invalid on every single pass.
	finalValidity := newValidity
	if newValidity == Invalid {
		if len(obj.Parents) > 0 {
			finalValidity = ToDelete
		} else {
			finalValidity = Untracked
		}
	}

	obj.Valid = finalValidity
	s.emitTransition(key, prevValid, finalValidity)

	// Any validity change — not just a drop into Invalid — can flip a
	// parent's own cardinality count against a nested predicate (spec.md
	// section 8 scenario 6: a child reaching Valid is what lets its
	// parent reach Valid too), so the parent always needs a fresh look.
	if prevValid != finalValidity {
		for p := range obj.Parents {
			parents = append(parents, p)
		}
	}

	if newValidity == Invalid {
		for _, tp := range obj.Predicates {
			for c := range tp.Children {
				children = append(children, c)
			}
		}
		if finalValidity == Untracked {
			s.removeTrackedOrmObject(key)
		}
	}

	return children, parents, nil
}

// literalSubset implements spec.md section 4.8's literal rule:
// at least one alternative's required-literal set must be a subset
// of the observed multiset, with an exact-size match required when
// extra is false.
func literalSubset(required []string, observed map[string]int, extra bool) bool {
	for _, lit := range required {
		if observed[lit] <= 0 {
			return false
		}
	}
	if !extra {
		total := 0
		for _, n := range observed {
			total += n
		}
		if total != len(required) {
			return false
		}
	}
	return true
}

func matchesBasicTypes(allowed []BasicType, observed map[string]int) bool {
	if len(allowed) == 0 {
		return true
	}
	for v, n := range observed {
		if n <= 0 {
			continue
		}
		if !matchesAnyBasicType(allowed, v) {
			return false
		}
	}
	return true
}

func matchesAnyBasicType(allowed []BasicType, v string) bool {
	for _, bt := range allowed {
		switch bt {
		case TypeString:
			return true // every value is representable as a string
		case TypeIRI:
			if isIRI(v) {
				return true
			}
		case TypeNumber:
			if isNumber(v) {
				return true
			}
		case TypeBoolean:
			if v == "true" || v == "false" {
				return true
			}
		}
	}
	return false
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	seenDigit, seenDot := false, false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
		case r == '.' && !seenDot:
			seenDot = true
		case r == '-' && i == 0:
		default:
			return false
		}
	}
	return seenDigit
}

// assessChildren implements spec.md section 4.8's child-assessment
// heuristic: bucket candidates into same-graph, subject-prefix and
// all, rank each bucket's members by validity, and accept the first
// bucket that already satisfies cardinality or holds a Pending/
// Untracked/ToDelete candidate worth fetching. ToDelete counts as
// unsettled rather than a hard failure: it only ever means "failed
// its shape with the data seen so far", and the exact data that would
// flip it back to Valid may still be one delta away (spec.md section
// 8 scenario 6).
func (s *Subscription) assessChildren(parent ObjectKey, pred Predicate, childShape string, tp *TrackedPredicate) (children, parentsOut []ObjectKey, pending bool) {
	if tp == nil {
		// Only reachable when min cardinality is already satisfied by
		// zero children (MinCardinality == 0); nothing to assess.
		return nil, nil, false
	}

	var candidates []ObjectKey
	for c := range tp.Children {
		candidates = append(candidates, c)
	}

	sameGraph := filterCandidates(candidates, func(c ObjectKey) bool { return c.Graph == parent.Graph })
	subjectPrefix := filterCandidates(candidates, func(c ObjectKey) bool {
		return len(c.Subject) >= len(c.Graph) && c.Subject[:len(c.Graph)] == c.Graph
	})

	buckets := [][]ObjectKey{sameGraph, subjectPrefix, candidates}
	for _, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		ranked := s.rankByValidity(bucket)
		valids := 0
		hasUnsettled := false
		for _, c := range ranked {
			obj, ok := s.objects[c]
			if !ok {
				continue
			}
			switch obj.Valid {
			case Valid:
				valids++
			case Pending, Untracked, ToDelete:
				hasUnsettled = true
			}
		}
		satisfied := valids >= pred.MinCardinality && (pred.unbounded() || valids <= pred.MaxCardinality)
		if satisfied {
			return nil, nil, false
		}
		if hasUnsettled {
			for _, c := range ranked {
				obj, ok := s.objects[c]
				if ok && (obj.Valid == Untracked || obj.Valid == ToDelete) {
					children = append(children, c)
				}
				if ok && obj.Valid == Pending {
					children = append(children, c)
				}
			}
			return children, nil, true
		}
	}
	return nil, nil, false
}

func filterCandidates(in []ObjectKey, keep func(ObjectKey) bool) []ObjectKey {
	var out []ObjectKey
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Subscription) rankByValidity(keys []ObjectKey) []ObjectKey {
	out := append([]ObjectKey(nil), keys...)
	sort.SliceStable(out, func(i, j int) bool {
		oi, _ := s.objects[out[i]]
		oj, _ := s.objects[out[j]]
		ri, rj := 3, 3
		if oi != nil {
			ri = oi.Valid.rank()
		}
		if oj != nil {
			rj = oj.Valid.rank()
		}
		return ri < rj
	})
	return out
}
