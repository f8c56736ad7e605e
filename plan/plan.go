// Package plan defines the Plan value (spec.md §3, "Plan"): the immutable,
// content-addressed unit of work the Orchestrator drives and the
// Governance Kernel validates before it ever runs.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mandubian/ccos-sub001/rtfs/parser"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// Plan is immutable once constructed; its PlanID is the content hash of its
// serialized form, not a caller-supplied identifier (spec.md §3: "Plans are
// immutable; identity is the content hash of the serialized plan").
type Plan struct {
	PlanID               string
	IntentIDs            []string
	Source               string // UTF-8 s-expression source (spec.md §5, "Plan source format")
	Body                 value.Expr
	DeclaredCapabilities []string // capability id globs this plan declares it needs
	Constraints          map[string]any
	Provenance           map[string]any
}

// Parse builds a Plan from its s-expression source, computing PlanID as the
// content hash of the fields that define the plan's identity.
func Parse(source string, intentIDs, declaredCapabilities []string, constraints, provenance map[string]any) (*Plan, error) {
	body, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("plan: parse body: %w", err)
	}
	p := &Plan{
		IntentIDs:            intentIDs,
		Source:               source,
		Body:                 body,
		DeclaredCapabilities: declaredCapabilities,
		Constraints:          constraints,
		Provenance:           provenance,
	}
	p.PlanID = p.contentHash()
	return p, nil
}

// contentHash hashes the plan's identity-defining fields: source text,
// intent set, and declared capabilities. Constraints/provenance are
// metadata about the plan, not part of what makes two plans the same plan.
func (p *Plan) contentHash() string {
	type identity struct {
		IntentIDs            []string `json:"intent_ids"`
		Source               string   `json:"source"`
		DeclaredCapabilities []string `json:"declared_capabilities"`
	}
	b, err := json.Marshal(identity{p.IntentIDs, p.Source, p.DeclaredCapabilities})
	if err != nil {
		panic(fmt.Sprintf("plan: marshal identity: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
