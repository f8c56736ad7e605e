package host

import "github.com/mandubian/ccos-sub001/rtfs/value"

// frame is one level of the per-plan execution-context frame stack (spec.md
// §3, "Execution Context": "a stack of frames with { data, metadata,
// isolation, checkpoint_id? }"). Reads climb to parent.parent... unless the
// frame is Sandboxed; writes always land in the top frame only.
type frame struct {
	data      map[string]value.Value
	isolation string // "inherit" | "isolated" | "sandboxed"
	parent    *frame
}

func newFrame(isolation string, parent *frame) *frame {
	return &frame{data: make(map[string]value.Value), isolation: isolation, parent: parent}
}

// frameKey renders a Value key (Keyword or String, per spec.md §3 "get"/
// "set!") into a map key. Any other kind falls back to its debug string;
// `get`/`set!` are only ever invoked with keyword or string keys by
// well-formed plans.
func frameKey(k value.Value) string {
	if k.Kind() == value.KindKeyword || k.Kind() == value.KindString {
		return k.Str()
	}
	return k.String()
}

// get reads key starting at this frame and climbing to parents unless a
// Sandboxed frame stops the climb (spec.md §3: "Reads climb to parent
// unless Sandboxed").
func (f *frame) get(key value.Value) (value.Value, bool) {
	ks := frameKey(key)
	for cur := f; cur != nil; cur = cur.parent {
		if v, ok := cur.data[ks]; ok {
			return v, true
		}
		if cur.isolation == "sandboxed" {
			break
		}
	}
	return value.Value{}, false
}

// set writes key in this frame only.
func (f *frame) set(key, v value.Value) {
	f.data[frameKey(key)] = v
}

// mergeInto consolidates f's local data into dst per policy (spec.md §3,
// "merges use an explicit policy (keep-existing | overwrite | deep-merge)").
// deep-merge falls back to overwrite for non-Map values, since there is
// nothing deeper to merge once a key resolves to a scalar.
func (f *frame) mergeInto(dst *frame, policy value.MergePolicy) {
	if dst == nil {
		return
	}
	for k, v := range f.data {
		existing, ok := dst.data[k]
		switch policy {
		case value.MergeKeepExisting:
			if ok {
				continue
			}
			dst.data[k] = v
		case value.MergeDeepMerge:
			if ok && existing.Kind() == value.KindMap && v.Kind() == value.KindMap {
				dst.data[k] = value.MapValue(deepMergeMaps(existing.Map(), v.Map()))
			} else {
				dst.data[k] = v
			}
		default: // value.MergeOverwrite
			dst.data[k] = v
		}
	}
}

// deepMergeMaps merges b's entries over a's, recursing into nested Maps
// shared between both sides.
func deepMergeMaps(a, b *value.Map) *value.Map {
	out := a
	b.Range(func(k, v value.Value) bool {
		if existing, ok := out.Get(k); ok && existing.Kind() == value.KindMap && v.Kind() == value.KindMap {
			out = out.Assoc(k, value.MapValue(deepMergeMaps(existing.Map(), v.Map())))
		} else {
			out = out.Assoc(k, v)
		}
		return true
	})
	return out
}

// parallelFrame adapts a frame to eval.ParallelFrame, deferring the merge
// into its captured parent until MergeInto is called (spec.md §4.3,
// "step-parallel": "consolidates their contexts into the parent according
// to a declared merge policy").
type parallelFrame struct {
	f      *frame
	parent *frame
}

func (pf parallelFrame) Get(key value.Value) (value.Value, bool) { return pf.f.get(key) }
func (pf parallelFrame) Set(key, v value.Value)                  { pf.f.set(key, v) }
func (pf parallelFrame) MergeInto(policy value.MergePolicy)       { pf.f.mergeInto(pf.parent, policy) }
