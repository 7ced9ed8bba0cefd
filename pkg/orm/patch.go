package orm

import "strings"

// Patch is one RFC 6902 JSON-Patch operation emitted to a
// subscription's channel (spec.md section 4.8 step 6). Only "add" and
// "remove" are produced — the ORM engine never needs "replace" since
// a changed value is represented as a remove followed by an add.
type Patch struct {
	Op    string
	Path  string
	Value interface{}
}

// escapeJSONPointerSegment escapes a JSON pointer reference token per
// RFC 6901: "~" becomes "~0", "/" becomes "~1" — applied in that
// order, matching original_source/engine/verifier/src/orm/utils.rs.
func escapeJSONPointerSegment(segment string) string {
	segment = strings.ReplaceAll(segment, "~", "~0")
	segment = strings.ReplaceAll(segment, "/", "~1")
	return segment
}

// objectPointer is the JSON pointer a tracked object's top-level
// document lives at: a single "{graph}|{subject}" segment, matching
// spec.md's worked examples ("add /g|s {...}").
func objectPointer(key ObjectKey) string {
	return "/" + escapeJSONPointerSegment(key.Graph+"|"+key.Subject)
}

// patchTargets returns every JSON pointer a validity transition for
// key should be patched at. An object with no parent edge patches at
// its own flat top-level pointer (spec.md section 8 scenario 4/5,
// "add /g|s", "remove /g|s"); an object reached only through a
// parent's shape-valued predicate patches at the nested pointer that
// predicate occupies in the parent's materialised document (scenario
// 6: "a patch adds the nested object at /g|s/friend", not at the
// child's own flat /g|s2). visited guards the walk against a cyclic
// parent/child graph the same way materialize's visited map does.
func (s *Subscription) patchTargets(key ObjectKey, visited map[ObjectKey]bool) []string {
	if visited[key] {
		return []string{objectPointer(key)}
	}
	visited[key] = true

	obj, ok := s.objects[key]
	if !ok || len(obj.Parents) == 0 {
		return []string{objectPointer(key)}
	}

	var targets []string
	for parent := range obj.Parents {
		parentObj, ok := s.objects[parent]
		if !ok {
			continue
		}
		for predIRI, tp := range parentObj.Predicates {
			if _, linked := tp.Children[key]; !linked {
				continue
			}
			targets = append(targets, s.nestedTargets(parent, predIRI, key, visited)...)
		}
	}
	if len(targets) == 0 {
		return []string{objectPointer(key)}
	}
	return targets
}

// nestedTargets builds the pointer(s) through one parent/predicate
// edge: the parent's own pointer(s), each with the predicate's
// readable name appended, and — for a multi-cardinality predicate,
// materialised as a `{"{graph}|{subject}": object}` map per
// materialize.go — the child's own key segment on top of that.
func (s *Subscription) nestedTargets(parent ObjectKey, predIRI string, child ObjectKey, visited map[ObjectKey]bool) []string {
	name := predIRI
	multi := false
	if shape, ok := s.schema[parent.Shape]; ok {
		if pred, ok := shape.predicate(predIRI); ok {
			if pred.ReadableName != "" {
				name = pred.ReadableName
			}
			multi = pred.unbounded() || pred.MaxCardinality > 1
		}
	}

	var out []string
	for _, base := range s.patchTargets(parent, visited) {
		path := base + "/" + escapeJSONPointerSegment(name)
		if multi {
			path += "/" + escapeJSONPointerSegment(child.Graph+"|"+child.Subject)
		}
		out = append(out, path)
	}
	return out
}

// emitTransition appends an add or remove patch when an object's
// validity crosses the Valid boundary in either direction (spec.md
// section 4.8 step 3, "On Valid following non-Valid: signal that the
// object needs to be refetched and re-materialised"), at every
// pointer patchTargets resolves for it.
func (s *Subscription) emitTransition(key ObjectKey, prev, next Validity) {
	wasValid := prev == Valid
	isValid := next == Valid
	if wasValid == isValid {
		return
	}
	targets := s.patchTargets(key, make(map[ObjectKey]bool))
	if isValid {
		val, err := s.materialize(key, make(map[ObjectKey]bool))
		if err != nil || val == nil {
			return
		}
		for _, path := range targets {
			s.Patches = append(s.Patches, Patch{Op: "add", Path: path, Value: val})
		}
		return
	}
	for _, path := range targets {
		s.Patches = append(s.Patches, Patch{Op: "remove", Path: path})
	}
}

// DrainPatches returns and clears the patches accumulated since the
// last call, for forwarding to a subscription's channel.
func (s *Subscription) DrainPatches() []Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.Patches
	s.Patches = nil
	return out
}
