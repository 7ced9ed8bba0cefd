package verifier

import (
	"encoding/binary"
	"errors"
)

// GraphTransaction is a commit body's set of triple insertions and
// removals (spec.md section 4.7, "Transaction"; supplemented from
// original_source/engine/verifier/src/types.rs's GraphTransaction).
type GraphTransaction struct {
	Inserts []Triple
	Removes []Triple
}

// DiscreteKind tags which discrete-CRDT document type an op belongs
// to, mirroring original_source's DiscreteTransaction enum variants
// (YMap/YArray/YXml/YText/Automerge) — all byte-blob payloads handed
// to pkg/orm/discrete, which owns their interpretation.
type DiscreteKind uint8

const (
	DiscreteYMap DiscreteKind = iota
	DiscreteYArray
	DiscreteYXml
	DiscreteYText
	DiscreteAutomerge
)

// DiscreteOp is a discrete-CRDT operation blob, opaque at this layer;
// pkg/orm/discrete's Tracker.ApplyRemote decodes it. Verifier.Apply
// produces none: no body kind carries discrete ops, so
// ApplyResult.Discrete stays empty.
type DiscreteOp struct {
	Kind  DiscreteKind
	Bytes []byte
}

// EncodeTransaction serialises a GraphTransaction for storage as a
// commit body. Hand-rolled length-prefixed encoding, consistent with
// pkg/commit's wire format, since the body's exact bytes are an
// internal convention between Build and the verifier, not a public
// wire format the spec pins down.
func EncodeTransaction(tx GraphTransaction) []byte {
	var out []byte
	out = appendTripleList(out, tx.Inserts)
	out = appendTripleList(out, tx.Removes)
	return out
}

func DecodeTransaction(data []byte) (GraphTransaction, error) {
	var tx GraphTransaction
	var err error
	tx.Inserts, data, err = readTripleList(data)
	if err != nil {
		return GraphTransaction{}, err
	}
	tx.Removes, _, err = readTripleList(data)
	if err != nil {
		return GraphTransaction{}, err
	}
	return tx, nil
}

func appendString(dst []byte, s string) []byte {
	var l [8]byte
	binary.LittleEndian.PutUint64(l[:], uint64(len(s)))
	dst = append(dst, l[:]...)
	return append(dst, s...)
}

func readString(data []byte) (string, []byte, error) {
	if len(data) < 8 {
		return "", nil, errors.New("verifier: truncated string length")
	}
	n := binary.LittleEndian.Uint64(data[:8])
	data = data[8:]
	if uint64(len(data)) < n {
		return "", nil, errors.New("verifier: truncated string")
	}
	return string(data[:n]), data[n:], nil
}

func appendTripleList(dst []byte, ts []Triple) []byte {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(ts)))
	dst = append(dst, n[:]...)
	for _, t := range ts {
		dst = appendString(dst, t.Subject)
		dst = appendString(dst, t.Predicate)
		dst = appendString(dst, t.Object)
		dst = appendString(dst, t.Graph)
	}
	return dst
}

func readTripleList(data []byte) ([]Triple, []byte, error) {
	if len(data) < 8 {
		return nil, nil, errors.New("verifier: truncated triple list length")
	}
	n := binary.LittleEndian.Uint64(data[:8])
	data = data[8:]
	out := make([]Triple, 0, n)
	for i := uint64(0); i < n; i++ {
		var t Triple
		var err error
		t.Subject, data, err = readString(data)
		if err != nil {
			return nil, nil, err
		}
		t.Predicate, data, err = readString(data)
		if err != nil {
			return nil, nil, err
		}
		t.Object, data, err = readString(data)
		if err != nil {
			return nil, nil, err
		}
		t.Graph, data, err = readString(data)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, t)
	}
	return out, data, nil
}
