// Package verifier implements C7, the verifier core (spec.md section
// 4.7): applying commits to a SPARQL-like triple store and discrete
// CRDT documents, dispatching on commit body kind, and producing the
// deltas C8 (pkg/orm) turns into JSON patches.
package verifier

import "sync"

// Triple is the minimal quad shape the verifier writes into and reads
// from a Dataset. The SPARQL evaluator itself is out of scope (spec.md
// Non-goals) — only this storage-facing access pattern is needed.
type Triple struct {
	Subject   string
	Predicate string
	Object    string
	Graph     string
}

// Dataset is the storage-facing interface a verifier writes triples
// into, grounded on original_source/engine/oxigraph's
// DatasetView.quads_for_pattern: a single wildcard-capable pattern
// match, not a SPARQL query surface. A nil field in QuadsForPattern
// means "match any value for this position".
type Dataset interface {
	Insert(t Triple) error
	Remove(t Triple) error
	QuadsForPattern(subject, predicate, object, graph *string) ([]Triple, error)
}

// MemoryDataset is a simple in-memory Dataset, the default backing
// store for a verifier that doesn't need a persistent quad store.
type MemoryDataset struct {
	mu    sync.RWMutex
	quads map[Triple]struct{}
}

func NewMemoryDataset() *MemoryDataset {
	return &MemoryDataset{quads: make(map[Triple]struct{})}
}

func (d *MemoryDataset) Insert(t Triple) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quads[t] = struct{}{}
	return nil
}

func (d *MemoryDataset) Remove(t Triple) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.quads, t)
	return nil
}

func (d *MemoryDataset) QuadsForPattern(subject, predicate, object, graph *string) ([]Triple, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Triple
	for t := range d.quads {
		if subject != nil && t.Subject != *subject {
			continue
		}
		if predicate != nil && t.Predicate != *predicate {
			continue
		}
		if object != nil && t.Object != *object {
			continue
		}
		if graph != nil && t.Graph != *graph {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
