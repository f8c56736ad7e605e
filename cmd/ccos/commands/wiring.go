package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mandubian/ccos-sub001/ccos"
	"github.com/mandubian/ccos-sub001/governance"
	"github.com/mandubian/ccos-sub001/telemetry"
)

// loadConfig reads --config if set, otherwise returns in-memory defaults
// (no constitution, memory-backed chain) so the CLI is usable without any
// YAML document for quick smoke tests, matching the teacher's own
// zero-config cmd/demo.
func loadConfig(cmd *cobra.Command) (*ccos.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		c := &ccos.Config{}
		return c, nil
	}
	return ccos.Load(path)
}

// applyChainFlag overrides cfg's chain backend from --chain when set.
func applyChainFlag(cmd *cobra.Command, cfg *ccos.Config) {
	path, _ := cmd.Flags().GetString("chain")
	if path == "" {
		return
	}
	cfg.Chain.StorageBackend = "file"
	cfg.Chain.Path = path
}

// runtimeContext builds a governance.RuntimeContext from the root
// persistent flags.
func runtimeContext(cmd *cobra.Command) governance.RuntimeContext {
	aclFlag, _ := cmd.Flags().GetString("acl")
	intent, _ := cmd.Flags().GetString("intent")
	quota, _ := cmd.Flags().GetInt64("quota")

	acl := splitCommaList(aclFlag)

	return governance.RuntimeContext{
		IntentID: intent,
		ACL:      acl,
		Quota:    governance.Quota{Limit: quota, Remaining: quota},
	}
}

// cliTelemetry returns a zap-backed Telemetry for a production-ish CLI run
// (stderr, human-readable), the same NewZapLogger seam telemetry/otel.go
// exposes for any entry point that wants more than the no-op backend.
func cliTelemetry() telemetry.Telemetry {
	l, err := zap.NewDevelopment()
	if err != nil {
		return telemetry.NewNoop()
	}
	return telemetry.Telemetry{Logger: telemetry.NewZapLogger(l), Metrics: telemetry.NewNoop().Metrics, Tracer: telemetry.NewNoop().Tracer}
}
