// Package orm implements C8, the ORM engine (spec.md section 4.8): it
// projects a stream of quad insertions/removals into typed tracked
// objects validated against a shape schema, materialises them to
// JSON, and emits RFC 6902 patches to subscribers. Grounded on
// original_source/engine/verifier/src/orm's shape/validate/materialise
// pipeline, with Rust's Weak<T> parent/child back-edges replaced by a
// single owning map keyed by (graph, subject, shape) and edges held as
// map keys rather than pointers — Go has no weak references, and a
// strong-everywhere graph would leak cycles the Rust version prunes
// on traversal instead.
package orm

// BasicType is one of the primitive value kinds a DataType can accept
// for a non-shape, non-literal predicate (spec.md section 6, "shape").
type BasicType string

const (
	TypeString  BasicType = "string"
	TypeNumber  BasicType = "number"
	TypeBoolean BasicType = "boolean"
	TypeIRI     BasicType = "iri"
)

// DataType is one alternative a predicate's value may satisfy:
// a basic type, an enumerated literal set, or a nested shape.
type DataType struct {
	ValType BasicType
	Literals []string // non-empty makes this a literal alternative
	Shape    string   // nested shape IRI; non-empty makes this a shape alternative
}

func (d DataType) isShape() bool   { return d.Shape != "" }
func (d DataType) isLiteral() bool { return len(d.Literals) > 0 }

// Predicate is one constraint a Shape places on a subject's values for
// a given predicate IRI.
type Predicate struct {
	IRI            string
	ReadableName   string
	MinCardinality int
	MaxCardinality int // -1 means unbounded
	Extra          bool // allow additional literals/values beyond the declared set
	DataTypes      []DataType
}

func (p Predicate) unbounded() bool { return p.MaxCardinality < 0 }

func (p Predicate) nestedShape() (string, bool) {
	for _, dt := range p.DataTypes {
		if dt.isShape() {
			return dt.Shape, true
		}
	}
	return "", false
}

func (p Predicate) literalSet() ([]string, bool) {
	for _, dt := range p.DataTypes {
		if dt.isLiteral() {
			return dt.Literals, true
		}
	}
	return nil, false
}

func (p Predicate) basicTypes() []BasicType {
	var out []BasicType
	for _, dt := range p.DataTypes {
		if !dt.isShape() && !dt.isLiteral() {
			out = append(out, dt.ValType)
		}
	}
	return out
}

// Shape is an ORM schema node constraining predicates on subjects of
// a conceptual class (spec.md Glossary, "Shape").
type Shape struct {
	IRI        string
	Predicates []Predicate
}

func (s *Shape) predicate(iri string) (Predicate, bool) {
	for _, p := range s.Predicates {
		if p.IRI == iri {
			return p, true
		}
	}
	return Predicate{}, false
}

// Schema is the set of shapes a Subscription validates against,
// keyed by shape IRI.
type Schema map[string]*Shape
