package ccos_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub001/capability"
	"github.com/mandubian/ccos-sub001/causalchain"
	"github.com/mandubian/ccos-sub001/ccos"
	"github.com/mandubian/ccos-sub001/governance"
	"github.com/mandubian/ccos-sub001/telemetry"
)

func testAction() causalchain.Action {
	return causalchain.Action{
		ActionID: "action-1",
		PlanID:   "plan-1",
		Type:     causalchain.TypePlanStarted,
		Success:  true,
	}
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy_limits:\n  max_retries: 3\n"), 0o644))

	cfg, err := ccos.Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(3), cfg.PolicyLimits.MaxRetries)
	require.Equal(t, "inherit", cfg.Sandbox.DefaultIsolation)
	require.Equal(t, "full", cfg.Chain.RetentionMode)
	require.Equal(t, "memory", cfg.Chain.StorageBackend)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := ccos.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestOpenChainDefaultsToMemory(t *testing.T) {
	var cfg ccos.Config
	store, closer, err := cfg.OpenChain()
	require.NoError(t, err)
	defer closer()
	require.Empty(t, store.Roots())
}

func TestOpenChainFileBackendRequiresPath(t *testing.T) {
	cfg := ccos.Config{}
	cfg.Chain.StorageBackend = "file"
	_, _, err := cfg.OpenChain()
	require.Error(t, err)
}

func TestOpenChainRejectsUnsupportedBackend(t *testing.T) {
	cfg := ccos.Config{}
	cfg.Chain.StorageBackend = "sqlite"
	_, _, err := cfg.OpenChain()
	require.Error(t, err)
}

func TestOpenChainFileBackendPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.jsonl")
	cfg := ccos.Config{}
	cfg.Chain.StorageBackend = "file"
	cfg.Chain.Path = path

	store, closer, err := cfg.OpenChain()
	require.NoError(t, err)
	_, err = store.Append(testAction())
	require.NoError(t, err)
	require.NoError(t, closer())

	reopened, closer2, err := cfg.OpenChain()
	require.NoError(t, err)
	defer closer2()
	require.Len(t, reopened.Roots(), 1)
}

func TestLoadConstitutionEmptyPathReturnsPermissiveDefault(t *testing.T) {
	var cfg ccos.Config
	c, err := cfg.LoadConstitution(nil)
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestNewRuntimeHostWiresFallbackDispatch(t *testing.T) {
	var cfg ccos.Config
	registry := capability.New()
	kernel := governance.New(&governance.Constitution{}, cfg.HintLimits())
	chain, closer, err := cfg.OpenChain()
	require.NoError(t, err)
	defer closer()

	h := cfg.NewRuntimeHost(registry, kernel, chain, telemetry.NewNoop())
	require.NotNil(t, h)
}
