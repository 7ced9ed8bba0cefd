package orm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextgraph-core/ng/pkg/verifier"
)

func nameShape() Schema {
	return Schema{
		"ex:Person": {
			IRI: "ex:Person",
			Predicates: []Predicate{
				{
					IRI: "ex:name", ReadableName: "name",
					MinCardinality: 1, MaxCardinality: 1,
					DataTypes: []DataType{{ValType: TypeString}},
				},
			},
		},
	}
}

func friendShape() Schema {
	s := nameShape()
	s["ex:Friend"] = &Shape{
		IRI: "ex:Friend",
		Predicates: []Predicate{
			{IRI: "ex:name", ReadableName: "name", MinCardinality: 1, MaxCardinality: 1, DataTypes: []DataType{{ValType: TypeString}}},
		},
	}
	s["ex:Person"].Predicates = append(s["ex:Person"].Predicates, Predicate{
		IRI: "ex:friend", ReadableName: "friend",
		MinCardinality: 1, MaxCardinality: 1,
		DataTypes: []DataType{{ValType: TypeIRI, Shape: "ex:Friend"}},
	})
	return s
}

func TestApplyAddMakesObjectValid(t *testing.T) {
	s := NewSubscription(nameShape())
	s.roots[ObjectKey{Graph: "g", Subject: "s", Shape: "ex:Person"}] = struct{}{}

	err := s.ApplyDelta([]verifier.Triple{{Subject: "s", Predicate: "ex:name", Object: "Alice", Graph: "g"}}, nil)
	require.NoError(t, err)

	key := ObjectKey{Graph: "g", Subject: "s", Shape: "ex:Person"}
	obj, ok := s.get(key)
	require.True(t, ok)
	require.Equal(t, Valid, obj.Valid)

	patches := s.DrainPatches()
	require.Len(t, patches, 1)
	require.Equal(t, "add", patches[0].Op)
	require.Equal(t, "/g|s", patches[0].Path)
}

func TestApplyRemoveMakesObjectUntrackedAndDropped(t *testing.T) {
	s := NewSubscription(nameShape())
	s.roots[ObjectKey{Graph: "g", Subject: "s", Shape: "ex:Person"}] = struct{}{}
	triple := verifier.Triple{Subject: "s", Predicate: "ex:name", Object: "Alice", Graph: "g"}

	require.NoError(t, s.ApplyDelta([]verifier.Triple{triple}, nil))
	s.DrainPatches()

	require.NoError(t, s.ApplyDelta(nil, []verifier.Triple{triple}))
	patches := s.DrainPatches()
	require.Len(t, patches, 1)
	require.Equal(t, "remove", patches[0].Op)

	key := ObjectKey{Graph: "g", Subject: "s", Shape: "ex:Person"}
	_, ok := s.get(key)
	require.False(t, ok)
}

func TestApplyIdempotentCardinality(t *testing.T) {
	s := NewSubscription(nameShape())
	s.roots[ObjectKey{Graph: "g", Subject: "s", Shape: "ex:Person"}] = struct{}{}
	triple := verifier.Triple{Subject: "s", Predicate: "ex:name", Object: "Alice", Graph: "g"}

	require.NoError(t, s.ApplyDelta([]verifier.Triple{triple, triple}, nil))
	key := ObjectKey{Graph: "g", Subject: "s", Shape: "ex:Person"}
	obj, _ := s.get(key)
	require.Equal(t, 1, obj.Predicates["ex:name"].Cardinality)
	require.Equal(t, Valid, obj.Valid)

	// One removal takes the cardinality back to 0, below the shape's
	// minimum of 1, so the root object is dropped.
	require.NoError(t, s.ApplyDelta(nil, []verifier.Triple{triple}))
	_, ok := s.get(key)
	require.False(t, ok)
}

func TestNestedPendingThenValid(t *testing.T) {
	s := NewSubscription(friendShape())
	s.roots[ObjectKey{Graph: "g", Subject: "s", Shape: "ex:Person"}] = struct{}{}

	require.NoError(t, s.ApplyDelta([]verifier.Triple{
		{Subject: "s", Predicate: "ex:name", Object: "Alice", Graph: "g"},
		{Subject: "s", Predicate: "ex:friend", Object: "s2", Graph: "g"},
	}, nil))

	parentKey := ObjectKey{Graph: "g", Subject: "s", Shape: "ex:Person"}
	parent, ok := s.get(parentKey)
	require.True(t, ok)
	require.Equal(t, Pending, parent.Valid)

	childKey := ObjectKey{Graph: "g", Subject: "s2", Shape: "ex:Friend"}
	_, ok = s.get(childKey)
	require.True(t, ok)

	s.DrainPatches()
	require.NoError(t, s.ApplyDelta([]verifier.Triple{
		{Subject: "s2", Predicate: "ex:name", Object: "Bob", Graph: "g"},
	}, nil))

	parent, ok = s.get(parentKey)
	require.True(t, ok)
	require.Equal(t, Valid, parent.Valid)

	patches := s.DrainPatches()
	var nested, flat *Patch
	for i := range patches {
		switch patches[i].Path {
		case "/g|s/friend":
			nested = &patches[i]
		case "/g|s":
			flat = &patches[i]
		}
	}
	require.NotNil(t, nested, "expected a nested add at /g|s/friend for the child's own transition, got %+v", patches)
	require.Equal(t, "add", nested.Op)
	require.NotNil(t, flat, "expected the root's own add at /g|s for its first Valid transition, got %+v", patches)
	require.Equal(t, "add", flat.Op)
}

func TestMaterializeProducesScalarFields(t *testing.T) {
	s := NewSubscription(nameShape())
	s.roots[ObjectKey{Graph: "g", Subject: "s", Shape: "ex:Person"}] = struct{}{}
	require.NoError(t, s.ApplyDelta([]verifier.Triple{
		{Subject: "s", Predicate: "ex:name", Object: "Alice", Graph: "g"},
	}, nil))

	out, err := s.Materialize(ObjectKey{Graph: "g", Subject: "s", Shape: "ex:Person"})
	require.NoError(t, err)
	require.Equal(t, "s", out["@id"])
	require.Equal(t, "g", out["@graph"])
	require.Equal(t, "Alice", out["name"])
}

func TestEscapeJSONPointerSegment(t *testing.T) {
	require.Equal(t, "a~0b~1c", escapeJSONPointerSegment("a~b/c"))
}

func TestIsIRIHeuristic(t *testing.T) {
	require.True(t, isIRI("did:ng:abc"))
	require.True(t, isIRI("https://example.org"))
	require.False(t, isIRI("just text"))
	require.False(t, isIRI(""))
}

func TestSubscribeBFSLoad(t *testing.T) {
	ds := verifier.NewMemoryDataset()
	require.NoError(t, ds.Insert(verifier.Triple{Subject: "s", Predicate: "ex:name", Object: "Alice", Graph: "g"}))
	require.NoError(t, ds.Insert(verifier.Triple{Subject: "s", Predicate: "ex:friend", Object: "s2", Graph: "g"}))
	require.NoError(t, ds.Insert(verifier.Triple{Subject: "s2", Predicate: "ex:name", Object: "Bob", Graph: "g"}))

	s := NewSubscription(friendShape())
	require.NoError(t, s.Subscribe(ds, "ex:Person", "g", "s"))

	parent, ok := s.get(ObjectKey{Graph: "g", Subject: "s", Shape: "ex:Person"})
	require.True(t, ok)
	require.Equal(t, Valid, parent.Valid)

	child, ok := s.get(ObjectKey{Graph: "g", Subject: "s2", Shape: "ex:Friend"})
	require.True(t, ok)
	require.Equal(t, Valid, child.Valid)
}
