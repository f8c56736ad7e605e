package value

import "fmt"

// ToAny converts a Value to a plain Go value (map[string]any, []any,
// string, float64, int64, bool, nil) suitable for JSON encoding. It is used
// at the boundary where values must be stored as action args/results on
// the Causal Chain or passed to a capability provider outside this module.
// Keywords, symbols, and handles are tagged so FromAny can reconstruct them
// exactly; round-tripping an untagged plain JSON value (e.g. a capability
// provider's raw JSON response) through FromAny instead yields the nearest
// scalar/collection Value.
func ToAny(v Value) any {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.Int()
	case KindFloat:
		return v.Float()
	case KindString:
		return v.Str()
	case KindKeyword:
		return map[string]any{"$kw": v.Str()}
	case KindSymbol:
		return map[string]any{"$sym": v.Str()}
	case KindHandle:
		h := v.Handle()
		return map[string]any{"$handle": map[string]any{"ns": h.Namespace, "id": h.ID}}
	case KindList:
		return tagged("$list", v.List())
	case KindVector:
		return tagged("$vec", v.Vector())
	case KindMap:
		out := make(map[string]any, v.Map().Len()+1)
		entries := make([]any, 0, v.Map().Len())
		v.Map().Range(func(k, val Value) bool {
			entries = append(entries, []any{ToAny(k), ToAny(val)})
			return true
		})
		out["$map"] = entries
		return out
	default:
		return nil
	}
}

func tagged(tag string, items []Value) map[string]any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = ToAny(it)
	}
	return map[string]any{tag: out}
}

// FromAny reconstructs a Value from the JSON-decoded form produced by
// ToAny (or from an arbitrary JSON-decoded document, for values crossing
// from an external capability provider). Plain JSON maps without a $-tag
// key decode to KindMap with Keyword keys; JSON numbers decode to Float
// unless they carry no fractional part and came through as int64/float64
// representable without loss, matching the integer-vs-float ambiguity
// every JSON-backed RTFS host must resolve the same way.
func FromAny(a any) (Value, error) {
	switch t := a.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t)), nil
		}
		return Float(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, it := range t {
			v, err := FromAny(it)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Vector(items...), nil
	case map[string]any:
		return mapFromAny(t)
	default:
		return Value{}, fmt.Errorf("value: cannot convert %T to Value", a)
	}
}

func mapFromAny(t map[string]any) (Value, error) {
	if len(t) == 1 {
		if kw, ok := t["$kw"].(string); ok {
			return Keyword(kw), nil
		}
		if sym, ok := t["$sym"].(string); ok {
			return Symbol(sym), nil
		}
		if h, ok := t["$handle"].(map[string]any); ok {
			ns, _ := h["ns"].(string)
			id, _ := h["id"].(string)
			return HandleValue(Handle{Namespace: ns, ID: id}), nil
		}
		if lst, ok := t["$list"].([]any); ok {
			items, err := valuesFromAny(lst)
			if err != nil {
				return Value{}, err
			}
			return List(items...), nil
		}
		if vec, ok := t["$vec"].([]any); ok {
			items, err := valuesFromAny(vec)
			if err != nil {
				return Value{}, err
			}
			return Vector(items...), nil
		}
		if entries, ok := t["$map"].([]any); ok {
			m := NewMap()
			for _, e := range entries {
				pair, ok := e.([]any)
				if !ok || len(pair) != 2 {
					return Value{}, fmt.Errorf("value: malformed $map entry")
				}
				k, err := FromAny(pair[0])
				if err != nil {
					return Value{}, err
				}
				vv, err := FromAny(pair[1])
				if err != nil {
					return Value{}, err
				}
				m = m.Assoc(k, vv)
			}
			return MapValue(m), nil
		}
	}
	m := NewMap()
	for k, raw := range t {
		vv, err := FromAny(raw)
		if err != nil {
			return Value{}, err
		}
		m = m.Assoc(Keyword(k), vv)
	}
	return MapValue(m), nil
}

func valuesFromAny(items []any) ([]Value, error) {
	out := make([]Value, len(items))
	for i, it := range items {
		v, err := FromAny(it)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
