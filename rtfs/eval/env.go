package eval

import "github.com/mandubian/ccos-sub001/rtfs/value"

// Env is a persistent mapping symbol -> Value with a parent pointer
// (spec.md §3, "Environment"). Children never mutate their parent; Bind
// returns a new child frame.
type Env struct {
	parent    *Env
	vars      map[string]value.Value
	closures  *closureTable
}

// NewEnv builds a root environment with no parent.
func NewEnv() *Env {
	return &Env{vars: make(map[string]value.Value), closures: &closureTable{}}
}

// Child derives a new environment whose parent is e. It shares e's closure
// table so a closure created in an ancestor frame remains applicable from
// any descendant frame within the same evaluation.
func (e *Env) Child() *Env {
	return &Env{parent: e, vars: make(map[string]value.Value), closures: e.closures}
}

// Bind sets name to v in this frame only. It never mutates an ancestor.
func (e *Env) Bind(name string, v value.Value) {
	e.vars[name] = v
}

// Lookup resolves name against this frame and its ancestors.
func (e *Env) Lookup(name string) (value.Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}
