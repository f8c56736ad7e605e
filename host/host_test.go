package host_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub001/capability"
	"github.com/mandubian/ccos-sub001/causalchain"
	"github.com/mandubian/ccos-sub001/governance"
	"github.com/mandubian/ccos-sub001/host"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
	"github.com/mandubian/ccos-sub001/telemetry"
)

// echoProvider returns its first arg unchanged; used to exercise the
// capability dispatch path without any real effect.
type echoProvider struct{}

func (echoProvider) Execute(args []value.Value, _ *value.Map) (value.Value, error) {
	if len(args) == 0 {
		return value.Null(), nil
	}
	return args[0], nil
}

func (echoProvider) Health() error { return nil }

func newTestHost(t *testing.T, registry *capability.Registry, k *governance.Kernel) (*host.RuntimeHost, *causalchain.Store) {
	t.Helper()
	chain := causalchain.New()
	h := host.New(registry, k, chain, nil, telemetry.NewNoop())
	return h, chain
}

func permissiveKernel() *governance.Kernel {
	return governance.New(&governance.Constitution{}, governance.HintLimits{})
}

func allowAllContext() governance.RuntimeContext {
	return governance.RuntimeContext{
		IntentID: "intent-1",
		ACL:      []string{"*"},
		Quota:    governance.Quota{Limit: 10, Remaining: 10},
	}
}

func TestSetExecutionContextAppendsRootPlanStarted(t *testing.T) {
	h, chain := newTestHost(t, capability.New(), permissiveKernel())
	require.NoError(t, h.SetExecutionContext("plan-1", []string{"intent-1"}, allowAllContext()))

	roots := chain.Roots()
	require.Len(t, roots, 1)
	require.Equal(t, causalchain.TypePlanStarted, roots[0].Type)
	require.Equal(t, "plan-1", roots[0].PlanID)
	require.Equal(t, "intent-1", roots[0].IntentID)
	require.Empty(t, roots[0].ParentActionID)
}

func TestExecuteCapabilityWithoutExecutionContextFails(t *testing.T) {
	reg := capability.New()
	require.NoError(t, reg.Register(capability.Manifest{ID: "ccos.echo", Provider: echoProvider{}}))
	h, _ := newTestHost(t, reg, permissiveKernel())

	_, err := h.ExecuteCapability(context.Background(), eval.HostCall{CapabilityID: "ccos.echo", Args: []value.Value{value.String("hi")}})
	require.Error(t, err)
}

func TestExecuteCapabilitySuccessAppendsExactlyOneCallResultPair(t *testing.T) {
	reg := capability.New()
	require.NoError(t, reg.Register(capability.Manifest{ID: "ccos.echo", Provider: echoProvider{}}))
	h, chain := newTestHost(t, reg, permissiveKernel())
	require.NoError(t, h.SetExecutionContext("plan-1", []string{"intent-1"}, allowAllContext()))

	root := chain.Roots()[0]
	result, err := h.ExecuteCapability(context.Background(), eval.HostCall{
		CapabilityID:  "ccos.echo",
		Args:          []value.Value{value.String("hi")},
		CorrelationID: "corr-1",
	})
	require.NoError(t, err)
	require.Equal(t, value.String("hi"), result)

	children, err := chain.Children(root.ActionID)
	require.NoError(t, err)

	var calls, results, decisions int
	for _, c := range children {
		switch c.Type {
		case causalchain.TypeCapabilityCall:
			calls++
		case causalchain.TypeCapabilityResult:
			results++
		case causalchain.TypeGovernanceCheckpointDecision:
			decisions++
		}
	}
	require.Equal(t, 1, calls)
	require.Equal(t, 1, results)
	require.Equal(t, 1, decisions)
}

func TestExecuteCapabilityDeniedOutsideACLAppendsNoCapabilityCall(t *testing.T) {
	reg := capability.New()
	require.NoError(t, reg.Register(capability.Manifest{ID: "ccos.echo", Provider: echoProvider{}}))
	h, chain := newTestHost(t, reg, permissiveKernel())

	rc := governance.RuntimeContext{IntentID: "intent-1", ACL: []string{"ccos.net.*"}, Quota: governance.Quota{Limit: 10, Remaining: 10}}
	require.NoError(t, h.SetExecutionContext("plan-1", []string{"intent-1"}, rc))
	root := chain.Roots()[0]

	_, err := h.ExecuteCapability(context.Background(), eval.HostCall{CapabilityID: "ccos.echo", Args: []value.Value{value.String("hi")}})
	require.Error(t, err)

	children, err := chain.Children(root.ActionID)
	require.NoError(t, err)
	for _, c := range children {
		require.NotEqual(t, causalchain.TypeCapabilityCall, c.Type)
	}
}

func askKernel(requireApproval bool) *governance.Kernel {
	k := governance.New(&governance.Constitution{Rules: []governance.Rule{
		{ID: "ask-echo", Condition: "true", Action: governance.ActionAsk, Scope: "ccos.echo"},
	}}, governance.HintLimits{})
	k.SetRequireHumanApproval(requireApproval)
	return k
}

func TestExecuteCapabilityAutoGrantsAskByDefault(t *testing.T) {
	reg := capability.New()
	require.NoError(t, reg.Register(capability.Manifest{ID: "ccos.echo", Provider: echoProvider{}}))
	h, chain := newTestHost(t, reg, askKernel(false))
	require.NoError(t, h.SetExecutionContext("plan-1", []string{"intent-1"}, allowAllContext()))
	root := chain.Roots()[0]

	_, err := h.ExecuteCapability(context.Background(), eval.HostCall{CapabilityID: "ccos.echo", Args: []value.Value{value.String("hi")}})
	require.NoError(t, err)

	children, err := chain.Children(root.ActionID)
	require.NoError(t, err)
	var requested, granted bool
	for _, c := range children {
		switch c.Type {
		case causalchain.TypeGovernanceApprovalRequested:
			requested = true
		case causalchain.TypeGovernanceApprovalGranted:
			granted = true
		}
	}
	require.True(t, requested)
	require.True(t, granted)
}

func TestExecuteCapabilityDeniesAskWhenApprovalRequired(t *testing.T) {
	reg := capability.New()
	require.NoError(t, reg.Register(capability.Manifest{ID: "ccos.echo", Provider: echoProvider{}}))
	h, chain := newTestHost(t, reg, askKernel(true))
	require.NoError(t, h.SetExecutionContext("plan-1", []string{"intent-1"}, allowAllContext()))
	root := chain.Roots()[0]

	_, err := h.ExecuteCapability(context.Background(), eval.HostCall{CapabilityID: "ccos.echo", Args: []value.Value{value.String("hi")}})
	require.Error(t, err)

	children, err := chain.Children(root.ActionID)
	require.NoError(t, err)
	var denied bool
	for _, c := range children {
		if c.Type == causalchain.TypeGovernanceApprovalDenied {
			denied = true
		}
		require.NotEqual(t, causalchain.TypeCapabilityCall, c.Type)
	}
	require.True(t, denied)
}

func TestRecordPolicyLoadedAppendsRootAction(t *testing.T) {
	h, chain := newTestHost(t, capability.New(), permissiveKernel())
	require.NoError(t, h.RecordPolicyLoaded(governance.PolicyLoadedRecord{ConstitutionHash: "abc", Version: "v1"}))

	roots := chain.Roots()
	require.Len(t, roots, 1)
	require.Equal(t, causalchain.TypePolicyLoaded, roots[0].Type)
	require.Empty(t, roots[0].PlanID)
}

func TestExecuteCapabilityUnregisteredFails(t *testing.T) {
	h, _ := newTestHost(t, capability.New(), permissiveKernel())
	require.NoError(t, h.SetExecutionContext("plan-1", []string{"intent-1"}, allowAllContext()))
	_, err := h.ExecuteCapability(context.Background(), eval.HostCall{CapabilityID: "ccos.missing"})
	require.Error(t, err)
}

func TestStepLifecycleMergesWritesOnSuccess(t *testing.T) {
	h, _ := newTestHost(t, capability.New(), permissiveKernel())
	require.NoError(t, h.SetExecutionContext("plan-1", []string{"intent-1"}, allowAllContext()))

	require.NoError(t, h.NotifyStepStarted(0, "step-a", value.Keyword("inherit")))
	h.Set(value.Keyword("x"), value.Int(42))
	require.NoError(t, h.NotifyStepCompleted(0, "step-a", value.Value{}))

	v, ok := h.Get(value.Keyword("x"))
	require.True(t, ok)
	require.Equal(t, value.Int(42), v)
}

func TestStepLifecycleDiscardsWritesOnFailure(t *testing.T) {
	h, _ := newTestHost(t, capability.New(), permissiveKernel())
	require.NoError(t, h.SetExecutionContext("plan-1", []string{"intent-1"}, allowAllContext()))

	require.NoError(t, h.NotifyStepStarted(0, "step-a", value.Keyword("inherit")))
	h.Set(value.Keyword("y"), value.Int(7))
	require.NoError(t, h.NotifyStepFailed(0, "step-a", eval.ErrCapability, "boom"))

	_, ok := h.Get(value.Keyword("y"))
	require.False(t, ok)
}

func TestSandboxedFrameDoesNotClimbToParent(t *testing.T) {
	h, _ := newTestHost(t, capability.New(), permissiveKernel())
	require.NoError(t, h.SetExecutionContext("plan-1", []string{"intent-1"}, allowAllContext()))

	h.Set(value.Keyword("shared"), value.Int(1))
	require.NoError(t, h.NotifyStepStarted(0, "step-a", value.Keyword("sandboxed")))
	_, ok := h.Get(value.Keyword("shared"))
	require.False(t, ok)
}

func TestCrossPlanParamsFallbackWhenFrameMiss(t *testing.T) {
	h, _ := newTestHost(t, capability.New(), permissiveKernel())
	require.NoError(t, h.SetExecutionContext("plan-1", []string{"intent-1"}, allowAllContext()))
	h.SetCrossPlanParams(value.NewMap([2]value.Value{value.Keyword("shared"), value.Int(99)}))

	v, ok := h.Get(value.Keyword("shared"))
	require.True(t, ok)
	require.Equal(t, value.Int(99), v)
}

func TestClearExecutionContextResetsState(t *testing.T) {
	h, _ := newTestHost(t, capability.New(), permissiveKernel())
	require.NoError(t, h.SetExecutionContext("plan-1", []string{"intent-1"}, allowAllContext()))
	h.Set(value.Keyword("x"), value.Int(1))
	h.ClearExecutionContext()

	_, err := h.ExecuteCapability(context.Background(), eval.HostCall{CapabilityID: "ccos.echo"})
	require.Error(t, err)
}

