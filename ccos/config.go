// Package ccos wires the core's leaf packages (rtfs, capability, host,
// governance, causalchain, orchestrator) into a runnable instance from a
// single YAML configuration document: the §6 "Configuration surface"
// table, collected into one struct the way the teacher collects its own
// service configuration from YAML fixtures (registry/design), using the
// same gopkg.in/yaml.v3 it does.
package ccos

import (
	"crypto/ed25519"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mandubian/ccos-sub001/capability"
	"github.com/mandubian/ccos-sub001/capability/middleware"
	"github.com/mandubian/ccos-sub001/causalchain"
	"github.com/mandubian/ccos-sub001/governance"
	"github.com/mandubian/ccos-sub001/host"
	"github.com/mandubian/ccos-sub001/orchestrator"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
	"github.com/mandubian/ccos-sub001/telemetry"
)

// Config is the full set of options enumerated in spec.md §6's
// "Configuration surface" table, loaded from a single YAML document.
type Config struct {
	ConstitutionPath string `yaml:"constitution_path"`

	PolicyLimits struct {
		MaxRetries           int64   `yaml:"max_retries"`
		MaxTimeoutMultiplier float64 `yaml:"max_timeout_multiplier"`
		MaxTimeoutMS         int64   `yaml:"max_timeout_ms"`
	} `yaml:"policy_limits"`

	Sandbox struct {
		DefaultIsolation string `yaml:"default_isolation"`
	} `yaml:"sandbox"`

	Chain struct {
		// RetentionMode is "full" or "redacted" (spec.md §4.7, "Retention
		// and redaction").
		RetentionMode string `yaml:"retention_mode"`
		// StorageBackend is "memory" or "file". "sqlite" is an enumerated
		// option in spec.md §6 that no retrieved example repo's go.mod
		// carries a grounded driver for (see DESIGN.md); selecting it is a
		// configuration error rather than a silently-ignored fallback.
		StorageBackend string `yaml:"storage_backend"`
		// Path is the log file StorageBackend "file" appends to.
		Path string `yaml:"path"`
	} `yaml:"chain"`

	Governance struct {
		RequireHumanApproval bool `yaml:"require_human_approval"`
	} `yaml:"governance"`

	Registry struct {
		AutoRegisterAllowed bool `yaml:"auto_register_allowed"`
	} `yaml:"registry"`
}

// defaults fills in the zero-value behavior documented for each option
// when the YAML document omits it.
func defaults() Config {
	var c Config
	c.Sandbox.DefaultIsolation = "inherit"
	c.Chain.RetentionMode = "full"
	c.Chain.StorageBackend = "memory"
	return c
}

// Load reads and parses a Config document from path.
func Load(path string) (*Config, error) {
	c := defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ccos: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("ccos: parse config %s: %w", path, err)
	}
	return &c, nil
}

// ChainAppender is the narrow store interface OpenChain returns: every
// concrete store (*causalchain.Store, *causalchain.FileStore) satisfies
// both this and host.ChainAppender.
type ChainAppender interface {
	host.ChainAppender
	Get(actionID string) (causalchain.Action, error)
	Children(actionID string) ([]causalchain.Action, error)
	Roots() []causalchain.Action
	VerifyFrom(actionID string) (string, error)
	Replay(actionID string, body value.Expr, env *eval.Env) (eval.Outcome, error)
}

// OpenChain constructs the Causal Chain store named by chain.storage_backend.
// The returned closer is a no-op for the memory backend; callers should
// always defer closer() regardless of backend.
func (c *Config) OpenChain() (store ChainAppender, closer func() error, err error) {
	switch c.Chain.StorageBackend {
	case "", "memory":
		return causalchain.New(), func() error { return nil }, nil
	case "file":
		if c.Chain.Path == "" {
			return nil, nil, fmt.Errorf("ccos: chain.storage_backend=file requires chain.path")
		}
		fs, err := causalchain.OpenFileStore(c.Chain.Path)
		if err != nil {
			return nil, nil, err
		}
		return fs, fs.Close, nil
	default:
		return nil, nil, fmt.Errorf("ccos: unsupported chain.storage_backend %q", c.Chain.StorageBackend)
	}
}

// LoadConstitution loads and verifies the constitution named by
// constitution_path. pubKey may be nil, in which case signature
// verification is skipped (development mode) — matching
// governance.LoadConstitution's own "len(pubKey) > 0" escape hatch.
func (c *Config) LoadConstitution(pubKey ed25519.PublicKey) (*governance.Constitution, error) {
	if c.ConstitutionPath == "" {
		return &governance.Constitution{}, nil
	}
	return governance.LoadConstitution(c.ConstitutionPath, pubKey)
}

// HintLimits builds the Governance Kernel's HintLimits from policy_limits.
func (c *Config) HintLimits() governance.HintLimits {
	return governance.HintLimits{
		MaxRetries:           c.PolicyLimits.MaxRetries,
		MaxTimeoutMS:         c.PolicyLimits.MaxTimeoutMS,
		MaxTimeoutMultiplier: c.PolicyLimits.MaxTimeoutMultiplier,
	}
}

// NewKernel loads constitution into a fresh Governance Kernel via Reload, so
// every entry point gets the same "on load/reload, append a PolicyLoaded
// action" provenance record (spec.md §4.6) whether it is the process's
// first load or an actual reload. The caller is responsible for appending
// the returned record to the Causal Chain via host.RecordPolicyLoaded.
func (c *Config) NewKernel(constitution *governance.Constitution) (*governance.Kernel, governance.PolicyLoadedRecord) {
	k := governance.New(nil, c.HintLimits())
	k.SetRequireHumanApproval(c.Governance.RequireHumanApproval)
	rec := k.Reload(constitution)
	return k, rec
}

// DefaultHandlers returns the full priority-ordered middleware chain of
// spec.md §4.5 with default (non-adaptive) construction. dispatch wires
// the Fallback handler's re-entrant capability dispatch; callers building a
// host pass the host's own ExecuteCapability-minus-fallback invoker, or nil
// to disable fallback dispatch.
func DefaultHandlers(tel telemetry.Telemetry, dispatch middleware.FallbackDispatch) []middleware.Handler {
	return []middleware.Handler{
		middleware.Metrics{Metrics: tel.Metrics},
		middleware.NewCache(),
		middleware.NewCircuitBreaker(),
		middleware.NewRateLimit(),
		middleware.Retry{},
		middleware.Timeout{},
		middleware.Fallback{Dispatch: dispatch},
	}
}

// NewRuntimeHost assembles the default Host (spec.md §4.4) from a loaded
// Config, an already-populated capability Registry, and a chain store.
func (c *Config) NewRuntimeHost(registry *capability.Registry, kernel *governance.Kernel, chain host.ChainAppender, tel telemetry.Telemetry) *host.RuntimeHost {
	h := host.New(registry, kernel, chain, nil, tel)
	h.SetHandlers(DefaultHandlers(tel, h.DispatchCapability))
	return h
}

// NewOrchestrator builds an Orchestrator over h and kernel.
func NewOrchestrator(h orchestrator.Host, kernel *governance.Kernel, tel telemetry.Telemetry) *orchestrator.Orchestrator {
	return orchestrator.New(h, kernel, tel)
}
