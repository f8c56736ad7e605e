// Package capability implements the capability registry (C5): an O(1)
// lookup table from capability id to its manifest, with mandatory schema
// validation when a manifest declares one. The registry is read-mostly;
// writes are serialized under a single mutex, following the registry
// store's own memory.Store shape in the teacher repo.
package capability

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// Kind discriminates how a capability's work is actually performed.
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindComposite Kind = "composite"
	KindAgent     Kind = "agent"
)

// Schema validates capability args/results, either structurally (Kind and
// required Map keys, for capabilities that declare no real document) or, if
// Document is set, by compiling it as a JSON Schema and validating the
// plain-JSON projection of the value against it — the same
// santhosh-tekuri/jsonschema/v6 compile-then-validate sequence the
// registry service uses for a tool call payload
// (registry/service.go:validatePayloadJSONAgainstSchema), mandatory when a
// manifest declares one (spec.md §4.5, "schema validation of arguments and
// results is mandatory if declared").
type Schema struct {
	// RequiredKeys, when the value is a Map, lists keys that must be present.
	RequiredKeys []string
	// Kind constrains the value's Kind when the schema was built with
	// NewKindSchema.
	Kind    value.Kind
	hasKind bool
	// Document, when set, is a JSON Schema document validated against the
	// value's plain-JSON projection (toPlainJSON), taking precedence over
	// Kind/RequiredKeys.
	Document string
}

// NewKindSchema constrains a value to a single Kind.
func NewKindSchema(k value.Kind) Schema { return Schema{Kind: k, hasKind: true} }

// NewMapSchema requires the value to be a Map carrying every key in keys.
func NewMapSchema(keys ...string) Schema { return Schema{RequiredKeys: keys} }

// NewJSONSchema wraps a JSON Schema document (Draft 2020-12 or earlier, per
// jsonschema/v6's auto-detection) as a Schema.
func NewJSONSchema(document string) Schema { return Schema{Document: document} }

// Validate checks v against the schema.
func (s Schema) Validate(v value.Value) error {
	if s.Document != "" {
		return s.validateDocument(v)
	}
	if s.hasKind && v.Kind() != s.Kind {
		return fmt.Errorf("expected kind %s, got %s", s.Kind, v.Kind())
	}
	for _, k := range s.RequiredKeys {
		if v.Kind() != value.KindMap {
			return fmt.Errorf("expected map with key %q, got %s", k, v.Kind())
		}
		if _, ok := v.Map().Get(value.Keyword(k)); !ok {
			return fmt.Errorf("missing required key %q", k)
		}
	}
	return nil
}

func (s Schema) validateDocument(v value.Value) error {
	var schemaDoc any
	if err := json.Unmarshal([]byte(s.Document), &schemaDoc); err != nil {
		return fmt.Errorf("capability: unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaDoc); err != nil {
		return fmt.Errorf("capability: add schema resource: %w", err)
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("capability: compile schema: %w", err)
	}
	return compiled.Validate(toPlainJSON(v))
}

// toPlainJSON projects a Value to the plain map[string]any/[]any/scalar
// shape a JSON Schema document expects, as opposed to value.ToAny's
// tagged encoding (which round-trips RTFS types like Keyword and Handle
// but is not what a capability author writing a schema against their
// payload's JSON shape would have in mind).
func toPlainJSON(v value.Value) any {
	switch v.Kind() {
	case value.KindNull:
		return nil
	case value.KindBool:
		return v.Bool()
	case value.KindInt:
		return float64(v.Int())
	case value.KindFloat:
		return v.Float()
	case value.KindString, value.KindKeyword, value.KindSymbol:
		return v.Str()
	case value.KindList, value.KindVector:
		items := v.List()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = toPlainJSON(item)
		}
		return out
	case value.KindMap:
		out := make(map[string]any)
		v.Map().Range(func(k, val value.Value) bool {
			out[k.Str()] = toPlainJSON(val)
			return true
		})
		return out
	case value.KindHandle:
		h := v.Handle()
		return map[string]any{"namespace": h.Namespace, "id": h.ID}
	default:
		return nil
	}
}

// Provider executes a capability's actual work outside the governed core
// (spec.md §6, "Capability provider interface"). It never observes the
// chain or governance; the Host calls it only after both have approved.
type Provider interface {
	Execute(args []value.Value, metadata *value.Map) (value.Value, error)
	Health() error
}

// Manifest describes a registered capability (spec.md §4.5, "Registry").
type Manifest struct {
	ID           string
	Kind         Kind
	InputSchema  *Schema
	OutputSchema *Schema
	Effects      []string
	Limits       map[string]any
	Attestation  string
	Provider     Provider
}

// Registry is the O(1) capability_id -> Manifest lookup table.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Manifest
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{byID: make(map[string]Manifest)}
}

// Register adds or replaces a manifest. Callers are responsible for
// appending the corresponding CapabilityRegistered action (spec.md §5,
// "writes... are serialized and logged").
func (r *Registry) Register(m Manifest) error {
	if m.ID == "" {
		return fmt.Errorf("capability: manifest id required")
	}
	if m.Provider == nil {
		return fmt.Errorf("capability: manifest %q requires a provider", m.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[m.ID] = m
	return nil
}

// Deregister removes a manifest by id.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// Lookup returns the manifest for id in O(1).
func (r *Registry) Lookup(id string) (Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	return m, ok
}

// Execute validates args against the manifest's input schema (if any),
// invokes the provider, and validates the result against the output
// schema (if any).
func (m Manifest) Execute(args []value.Value, metadata *value.Map) (value.Value, error) {
	if m.InputSchema != nil {
		for i, a := range args {
			if err := m.InputSchema.Validate(a); err != nil {
				return value.Value{}, fmt.Errorf("capability %q: arg %d: %w", m.ID, i, err)
			}
		}
	}
	result, err := m.Provider.Execute(args, metadata)
	if err != nil {
		return value.Value{}, err
	}
	if m.OutputSchema != nil {
		if err := m.OutputSchema.Validate(result); err != nil {
			return value.Value{}, fmt.Errorf("capability %q: result: %w", m.ID, err)
		}
	}
	return result, nil
}
