package eval

import (
	"strconv"

	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// closureNamespace tags Handle values that represent RTFS closures rather
// than host-opaque pointers. Value (spec.md §3) has no dedicated closure
// kind, since closures are a pure evaluator artifact, not data a plan can
// serialize into a capability argument; representing them as a Handle into
// a per-evaluation closure table keeps Value a closed data sum while still
// letting `fn` produce something `let`/`call`-position symbols can bind and
// later apply (spec.md §4.3, "fn").
const closureNamespace = "rtfs.closure"

// closure pairs a Fn's parameters and body with the environment captured at
// definition time.
type closure struct {
	params []string
	body   []value.Expr
	env    *Env
}

// closureTable holds every closure created during one evaluation tree,
// shared by every Env derived from the same root via Child(). It exists
// only for the lifetime of one Evaluate pass (or its deterministic replay);
// nothing about it is persisted across the host boundary.
type closureTable struct {
	entries []*closure
}

func (t *closureTable) add(c *closure) value.Value {
	t.entries = append(t.entries, c)
	id := strconv.Itoa(len(t.entries) - 1)
	return value.HandleValue(value.Handle{Namespace: closureNamespace, ID: id})
}

func (t *closureTable) lookup(v value.Value) (*closure, bool) {
	if v.Kind() != value.KindHandle {
		return nil, false
	}
	h := v.Handle()
	if h.Namespace != closureNamespace {
		return nil, false
	}
	idx, err := strconv.Atoi(h.ID)
	if err != nil || idx < 0 || idx >= len(t.entries) {
		return nil, false
	}
	return t.entries[idx], true
}
