// Package discrete implements spec.md section 4.8's "Discrete
// (Automerge) companion": a verifier-owned CRDT document running
// alongside a branch's graph, whose incremental updates are turned
// into the same add/remove ORM JSON-patch shape pkg/orm emits for
// triples, and whose local edits (JSON patches from an app) are
// turned back into change bytes to commit and broadcast.
//
// No Go port of Automerge or Yjs exists anywhere in the example
// corpus (grounding check against every go.mod in the retrieval
// pack came up empty), so this package cannot wrap a real CRDT
// engine the way original_source/engine/verifier/src/orm/discrete/
// automerge_orm.rs wraps the Rust `automerge` crate. Instead it
// implements the reduced semantics spec.md actually asks for — a
// last-write-wins op log over a JSON-like tree, supporting exactly
// the four action kinds spec.md names (map-put, seq-insert,
// delete-map, delete-seq) — as this package's own hand-rolled wire
// format for DiscreteOp.Bytes, documented here rather than ported
// from a library that doesn't exist in Go.
package discrete

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nextgraph-core/ng/pkg/orm"
	"github.com/nextgraph-core/ng/pkg/verifier"
)

// Action is one of the four CRDT op kinds spec.md section 4.8 names.
type Action uint8

const (
	ActionMapPut Action = iota
	ActionSeqInsert
	ActionDeleteMap
	ActionDeleteSeq
)

// Op is one operation in the reduced op log: a path of map keys
// and/or sequence indices locating the target, an action, an
// optional scalar value, and a logical timestamp used for
// last-write-wins conflict resolution between concurrent ops on the
// same path.
type Op struct {
	Path      []string
	Index     int // used by SeqInsert/DeleteSeq; ignored otherwise
	Action    Action
	Value     interface{}
	Timestamp uint64
}

// Document is one branch's CRDT tree: a JSON-like nested
// map/slice structure plus the last-write timestamp seen per path, so
// concurrent remote ops applied out of order still converge (LWW).
type Document struct {
	mu        sync.Mutex
	root      map[string]interface{}
	lastWrite map[string]uint64
}

func NewDocument() *Document {
	return &Document{root: make(map[string]interface{}), lastWrite: make(map[string]uint64)}
}

func pathKey(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "/"
		}
		out += escapeJSONPointerSegment(p)
	}
	return out
}

func escapeJSONPointerSegment(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '~':
			out = append(out, '~', '0')
		case '/':
			out = append(out, '~', '1')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}

// Tracker holds one Document per branch and the logger used to report
// unsupported op kinds (spec.md: "unsupported actions logged and
// skipped" — never a hard failure).
type Tracker struct {
	mu        sync.Mutex
	documents map[string]*Document
	log       *logrus.Logger
}

func NewTracker(log *logrus.Logger) *Tracker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Tracker{documents: make(map[string]*Document), log: log}
}

func (t *Tracker) documentFor(branchID string) *Document {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.documents[branchID]
	if !ok {
		d = NewDocument()
		t.documents[branchID] = d
	}
	return d
}

// ApplyRemote decodes and applies every discrete op carried in a
// commit's Transaction body, returning the ORM patches the resulting
// document change produces (spec.md: "convert its patch actions to
// ORM JSON patches ... forward on subscriptions").
func (t *Tracker) ApplyRemote(branchID string, ops []verifier.DiscreteOp) ([]orm.Patch, error) {
	doc := t.documentFor(branchID)
	doc.mu.Lock()
	defer doc.mu.Unlock()

	var patches []orm.Patch
	for _, raw := range ops {
		decoded, err := decodeOps(raw.Bytes)
		if err != nil {
			t.log.WithError(err).Warn("discrete: skipping malformed op batch")
			continue
		}
		for _, op := range decoded {
			p, ok := doc.apply(op)
			if !ok {
				t.log.WithField("action", op.Action).Warn("discrete: unsupported action, skipped")
				continue
			}
			patches = append(patches, p)
		}
	}
	return patches, nil
}

// apply mutates the document tree per op and returns the JSON patch
// describing the change, or ok=false if the path couldn't be resolved:
// an intermediate segment holding a non-map value (a scalar or a
// sequence) is not descended into, while a missing intermediate map
// is created.
func (d *Document) apply(op Op) (orm.Patch, bool) {
	key := pathKey(op.Path)
	if op.Timestamp < d.lastWrite[key] {
		return orm.Patch{}, false // stale write, last-write-wins drops it
	}
	d.lastWrite[key] = op.Timestamp

	switch op.Action {
	case ActionMapPut:
		if !d.setAtPath(op.Path, op.Value) {
			return orm.Patch{}, false
		}
		return orm.Patch{Op: "add", Path: "/" + key, Value: op.Value}, true
	case ActionDeleteMap:
		if !d.deleteAtPath(op.Path) {
			return orm.Patch{}, false
		}
		return orm.Patch{Op: "remove", Path: "/" + key}, true
	case ActionSeqInsert:
		if !d.insertAtSeq(op.Path, op.Index, op.Value) {
			return orm.Patch{}, false
		}
		return orm.Patch{Op: "add", Path: fmt.Sprintf("/%s/%d", key, op.Index), Value: op.Value}, true
	case ActionDeleteSeq:
		if !d.deleteAtSeq(op.Path, op.Index) {
			return orm.Patch{}, false
		}
		return orm.Patch{Op: "remove", Path: fmt.Sprintf("/%s/%d", key, op.Index)}, true
	default:
		return orm.Patch{}, false
	}
}

func (d *Document) setAtPath(path []string, value interface{}) bool {
	if len(path) == 0 {
		return false
	}
	parent, ok := d.descendToParent(path)
	if !ok {
		return false
	}
	parent[path[len(path)-1]] = value
	return true
}

func (d *Document) deleteAtPath(path []string) bool {
	if len(path) == 0 {
		return false
	}
	parent, ok := d.descendToParent(path)
	if !ok {
		return false
	}
	delete(parent, path[len(path)-1])
	return true
}

func (d *Document) insertAtSeq(path []string, index int, value interface{}) bool {
	parent, ok := d.descendToParent(path)
	if !ok {
		return false
	}
	key := path[len(path)-1]
	seq, _ := parent[key].([]interface{})
	if index < 0 || index > len(seq) {
		return false
	}
	seq = append(seq, nil)
	copy(seq[index+1:], seq[index:])
	seq[index] = value
	parent[key] = seq
	return true
}

func (d *Document) deleteAtSeq(path []string, index int) bool {
	parent, ok := d.descendToParent(path)
	if !ok {
		return false
	}
	key := path[len(path)-1]
	seq, _ := parent[key].([]interface{})
	if index < 0 || index >= len(seq) {
		return false
	}
	parent[key] = append(seq[:index], seq[index+1:]...)
	return true
}

func (d *Document) descendToParent(path []string) (map[string]interface{}, bool) {
	if len(path) == 0 {
		return nil, false
	}
	node := d.root
	for _, seg := range path[:len(path)-1] {
		next, ok := node[seg].(map[string]interface{})
		if !ok {
			if _, exists := node[seg]; exists {
				return nil, false
			}
			next = make(map[string]interface{})
			node[seg] = next
		}
		node = next
	}
	return node, true
}

// ApplyLocal turns a local JSON patch (from an app editing its view)
// into a single Op against the branch's document, applies it, and
// returns the encoded change bytes to commit and broadcast (spec.md:
// "Commit the transaction, record its change bytes ... save the full
// document state").
func (t *Tracker) ApplyLocal(branchID string, p orm.Patch, timestamp uint64) ([]byte, error) {
	doc := t.documentFor(branchID)
	doc.mu.Lock()
	defer doc.mu.Unlock()

	path := splitJSONPointer(p.Path)
	var op Op
	op.Path = path
	op.Timestamp = timestamp
	switch p.Op {
	case "add":
		op.Action = ActionMapPut
		op.Value = p.Value
	case "remove":
		op.Action = ActionDeleteMap
	default:
		return nil, fmt.Errorf("discrete: unsupported local patch op %q", p.Op)
	}
	if _, ok := doc.apply(op); !ok {
		return nil, errors.New("discrete: failed to apply local patch to document")
	}
	return encodeOps([]Op{op}), nil
}

func splitJSONPointer(pointer string) []string {
	if pointer == "" || pointer == "/" {
		return nil
	}
	var segs []string
	cur := ""
	trimmed := pointer[1:]
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] == '/' {
			segs = append(segs, unescapeJSONPointerSegment(cur))
			cur = ""
			continue
		}
		cur += string(trimmed[i])
	}
	segs = append(segs, unescapeJSONPointerSegment(cur))
	return segs
}

func unescapeJSONPointerSegment(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '~' && i+1 < len(s) {
			switch s[i+1] {
			case '0':
				out = append(out, '~')
				i++
				continue
			case '1':
				out = append(out, '/')
				i++
				continue
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}

// encodeOps/decodeOps are the reduced op log's wire format: a
// length-prefixed sequence of (action, timestamp, path segments,
// index, value) tuples. Values are restricted to strings, the only
// scalar kind the discrete layer needs to move across the wire for
// now; richer value kinds would extend this tag byte.
func encodeOps(ops []Op) []byte {
	var out []byte
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(ops)))
	out = append(out, n[:]...)
	for _, op := range ops {
		out = append(out, byte(op.Action))
		var ts [8]byte
		binary.LittleEndian.PutUint64(ts[:], op.Timestamp)
		out = append(out, ts[:]...)
		out = appendStringList(out, op.Path)
		var idx [8]byte
		binary.LittleEndian.PutUint64(idx[:], uint64(op.Index))
		out = append(out, idx[:]...)
		valStr, _ := op.Value.(string)
		out = appendString(out, valStr)
	}
	return out
}

func decodeOps(data []byte) ([]Op, error) {
	if len(data) < 8 {
		return nil, errors.New("discrete: truncated op batch")
	}
	n := binary.LittleEndian.Uint64(data[:8])
	data = data[8:]
	ops := make([]Op, 0, n)
	for i := uint64(0); i < n; i++ {
		if len(data) < 1+8 {
			return nil, errors.New("discrete: truncated op")
		}
		action := Action(data[0])
		data = data[1:]
		ts := binary.LittleEndian.Uint64(data[:8])
		data = data[8:]
		path, rest, err := readStringList(data)
		if err != nil {
			return nil, err
		}
		data = rest
		if len(data) < 8 {
			return nil, errors.New("discrete: truncated op index")
		}
		index := int(binary.LittleEndian.Uint64(data[:8]))
		data = data[8:]
		val, rest2, err := readString(data)
		if err != nil {
			return nil, err
		}
		data = rest2
		ops = append(ops, Op{Path: path, Index: index, Action: action, Value: val, Timestamp: ts})
	}
	return ops, nil
}

func appendString(dst []byte, s string) []byte {
	var l [8]byte
	binary.LittleEndian.PutUint64(l[:], uint64(len(s)))
	dst = append(dst, l[:]...)
	return append(dst, s...)
}

func readString(data []byte) (string, []byte, error) {
	if len(data) < 8 {
		return "", nil, errors.New("discrete: truncated string length")
	}
	n := binary.LittleEndian.Uint64(data[:8])
	data = data[8:]
	if uint64(len(data)) < n {
		return "", nil, errors.New("discrete: truncated string")
	}
	return string(data[:n]), data[n:], nil
}

func appendStringList(dst []byte, list []string) []byte {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(list)))
	dst = append(dst, n[:]...)
	for _, s := range list {
		dst = appendString(dst, s)
	}
	return dst
}

func readStringList(data []byte) ([]string, []byte, error) {
	if len(data) < 8 {
		return nil, nil, errors.New("discrete: truncated string list")
	}
	n := binary.LittleEndian.Uint64(data[:8])
	data = data[8:]
	out := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		var s string
		var err error
		s, data, err = readString(data)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, s)
	}
	return out, data, nil
}
