// Package governance implements the Governance Kernel (C6): constitution
// loading and signature verification, plan-level validation, the
// per-call gate, quota deduction, and hint-limit enforcement (spec.md
// §4.6).
package governance

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Action is the outcome a constitution rule assigns to a matched event.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
	ActionLog   Action = "log"
	ActionAsk   Action = "ask"
)

// Rule is a single constitution rule (spec.md §4.6, "Constitution").
// Condition is a small RTFS expression evaluated against the decision
// event and runtime context (see rules.go); it must be pure
// (no `call`) and produce a Bool.
type Rule struct {
	ID        string `yaml:"id"`
	Condition string `yaml:"condition"`
	Action    Action `yaml:"action"`
	Scope     string `yaml:"scope"` // capability id glob, e.g. "ccos.io.*"
}

// Constitution is the signed, versioned policy document loaded once at
// startup (and optionally reloaded).
type Constitution struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`

	// Hash is the content hash of the raw document bytes, recorded on the
	// PolicyLoaded action for provenance (spec.md §4.6, "Config provenance").
	Hash string `yaml:"-"`
}

// constitutionDocument is the on-disk envelope: the YAML body plus a
// detached ed25519 signature over that body's raw bytes.
type constitutionDocument struct {
	Body      yaml.Node `yaml:"body"`
	Signature string    `yaml:"signature"` // hex-encoded ed25519 signature
}

// LoadConstitution reads, verifies, and parses a constitution document
// from path, using pubKey to check its detached signature. ed25519 is
// used directly from the standard library: none of the retrieved example
// repos provide a grounded signature-verification library, and this is a
// one-function boundary concern rather than an ambient stack replacement
// (see DESIGN.md).
func LoadConstitution(path string, pubKey ed25519.PublicKey) (*Constitution, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("governance: read constitution: %w", err)
	}

	var doc constitutionDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("governance: parse constitution envelope: %w", err)
	}
	bodyBytes, err := yaml.Marshal(&doc.Body)
	if err != nil {
		return nil, fmt.Errorf("governance: re-marshal constitution body: %w", err)
	}

	sig, err := hex.DecodeString(doc.Signature)
	if err != nil {
		return nil, fmt.Errorf("governance: decode signature: %w", err)
	}
	if len(pubKey) > 0 && !ed25519.Verify(pubKey, bodyBytes, sig) {
		return nil, fmt.Errorf("governance: constitution signature verification failed")
	}

	var c Constitution
	if err := doc.Body.Decode(&c); err != nil {
		return nil, fmt.Errorf("governance: decode constitution body: %w", err)
	}
	sum := sha256.Sum256(bodyBytes)
	c.Hash = hex.EncodeToString(sum[:])
	return &c, nil
}
