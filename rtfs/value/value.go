// Package value defines the canonical, immutable Value model evaluated by
// the RTFS interpreter: the sum of scalar, collection, and opaque kinds
// described in spec.md §3 ("Value"). Values never mutate after
// construction; every operation returns a new Value.
package value

import (
	"fmt"
	"math"
	"sort"
)

// Kind discriminates the concrete variant held by a Value. It is exported so
// callers can switch on it without type-asserting every variant.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindKeyword
	KindSymbol
	KindList
	KindVector
	KindMap
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindKeyword:
		return "keyword"
	case KindSymbol:
		return "symbol"
	case KindList:
		return "list"
	case KindVector:
		return "vector"
	case KindMap:
		return "map"
	case KindHandle:
		return "handle"
	default:
		return "unknown"
	}
}

// Value is the canonical immutable value type. The zero Value is Null.
//
// Only one of the concrete fields is meaningful for a given Kind; this
// keeps Value a simple, copyable struct instead of an interface hierarchy,
// matching spec.md's requirement that values carry a stable canonical
// serialization and structural equality without per-kind boxing.
type Value struct {
	kind Kind

	b    bool
	i    int64
	f    float64
	s    string // String, Keyword, Symbol payload
	list []Value
	m    *Map
	h    Handle
}

// Handle is an opaque pointer value, e.g. a quarantine reference (spec.md
// §3, "Handle"). Equality is by Namespace+ID.
type Handle struct {
	Namespace string
	ID        string
}

// Map is an immutable, key-unique map keyed by keyword or string values.
// Keys are stored alongside an insertion-stable iteration order so that
// canonicalization can re-sort deterministically without losing fidelity
// to the original key Value (keyword vs string).
type Map struct {
	keys []Value
	vals []Value
	idx  map[string]int // canonical key string -> position in keys/vals
}

// NewMap builds an immutable Map from the given key/value pairs. Later
// duplicate keys overwrite earlier ones, matching the "keys unique"
// invariant in spec.md §3.
func NewMap(pairs ...[2]Value) *Map {
	m := &Map{idx: make(map[string]int, len(pairs))}
	for _, p := range pairs {
		m.set(p[0], p[1])
	}
	return m
}

func mapKeyString(k Value) string {
	switch k.kind {
	case KindKeyword:
		return "k:" + k.s
	case KindString:
		return "s:" + k.s
	default:
		// Defensive: callers must only use keyword/string keys (spec.md §3).
		return "?:" + fmt.Sprintf("%v", k)
	}
}

func (m *Map) set(k, v Value) {
	ks := mapKeyString(k)
	if pos, ok := m.idx[ks]; ok {
		m.vals[pos] = v
		return
	}
	m.idx[ks] = len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(k Value) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	pos, ok := m.idx[mapKeyString(k)]
	if !ok {
		return Value{}, false
	}
	return m.vals[pos], true
}

// Len returns the number of entries in the map.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Assoc returns a new Map with k bound to v, leaving the receiver untouched.
func (m *Map) Assoc(k, v Value) *Map {
	out := &Map{idx: make(map[string]int, m.Len()+1)}
	if m != nil {
		for i, key := range m.keys {
			out.set(key, m.vals[i])
		}
	}
	out.set(k, v)
	return out
}

// Range iterates entries in insertion order. It stops early if fn returns false.
func (m *Map) Range(fn func(k, v Value) bool) {
	if m == nil {
		return
	}
	for i, k := range m.keys {
		if !fn(k, m.vals[i]) {
			return
		}
	}
}

// sortedEntries returns entries sorted by canonical key string, used by the
// canonicalizer (spec.md §4.1: "maps serialized by key in lexicographic
// order").
func (m *Map) sortedEntries() []int {
	idxs := make([]int, len(m.keys))
	for i := range idxs {
		idxs[i] = i
	}
	sort.Slice(idxs, func(a, b int) bool {
		return mapKeyString(m.keys[idxs[a]]) < mapKeyString(m.keys[idxs[b]])
	})
	return idxs
}

// Constructors.

func Null() Value                  { return Value{kind: KindNull} }
func Bool(b bool) Value            { return Value{kind: KindBool, b: b} }
func Int(i int64) Value            { return Value{kind: KindInt, i: i} }
func Float(f float64) Value        { return Value{kind: KindFloat, f: f} }
func String(s string) Value        { return Value{kind: KindString, s: s} }
func Keyword(s string) Value       { return Value{kind: KindKeyword, s: s} }
func Symbol(s string) Value        { return Value{kind: KindSymbol, s: s} }
func List(items ...Value) Value    { return Value{kind: KindList, list: items} }
func Vector(items ...Value) Value  { return Value{kind: KindVector, list: items} }
func MapValue(m *Map) Value        { return Value{kind: KindMap, m: m} }
func HandleValue(h Handle) Value   { return Value{kind: KindHandle, h: h} }

// Accessors. Callers must check Kind() before reading; wrong-kind reads
// return the zero value for that field rather than panicking, so the
// evaluator can produce a TypeError with the caller's own context.

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) Bool() bool      { return v.b }
func (v Value) Int() int64      { return v.i }
func (v Value) Float() float64  { return v.f }
func (v Value) Str() string     { return v.s } // payload for String, Keyword, and Symbol kinds
func (v Value) List() []Value   { return v.list }
func (v Value) Vector() []Value { return v.list }
func (v Value) Map() *Map       { return v.m }
func (v Value) Handle() Handle  { return v.h }

// Truthy follows the evaluator's `if` semantics: only Null and Bool(false)
// are falsey; every other value, including Int(0) and empty collections,
// is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Equal implements structural equality (spec.md §4.1). NaN floats are not
// equal to themselves; every other value is reflexively equal.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		if math.IsNaN(a.f) || math.IsNaN(b.f) {
			return false
		}
		return a.f == b.f
	case KindString, KindKeyword, KindSymbol:
		return a.s == b.s
	case KindHandle:
		return a.h == b.h
	case KindList, KindVector:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if a.m.Len() != b.m.Len() {
			return false
		}
		eq := true
		a.m.Range(func(k, v Value) bool {
			bv, ok := b.m.Get(k)
			if !ok || !Equal(v, bv) {
				eq = false
				return false
			}
			return true
		})
		return eq
	default:
		return false
	}
}

// String renders a debug form; it is not the canonical serialization used
// for hashing (see canonical.go).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindKeyword:
		return ":" + v.s
	case KindSymbol:
		return v.s
	case KindList:
		return listString("(", ")", v.list)
	case KindVector:
		return listString("[", "]", v.list)
	case KindMap:
		s := "{"
		first := true
		for _, i := range v.m.sortedEntries() {
			if !first {
				s += " "
			}
			first = false
			s += v.m.keys[i].String() + " " + v.m.vals[i].String()
		}
		return s + "}"
	case KindHandle:
		return fmt.Sprintf("#handle[%s:%s]", v.h.Namespace, v.h.ID)
	default:
		return "?"
	}
}

func listString(open, close string, items []Value) string {
	s := open
	for i, it := range items {
		if i > 0 {
			s += " "
		}
		s += it.String()
	}
	return s + close
}
