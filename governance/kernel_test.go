package governance_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub001/governance"
	"github.com/mandubian/ccos-sub001/plan"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

func testPlan(t *testing.T, capabilities ...string) *plan.Plan {
	t.Helper()
	p, err := plan.Parse(`(call :ccos.io.read "x")`, []string{"intent-1"}, capabilities, nil, nil)
	require.NoError(t, err)
	return p
}

func TestKernelValidatePlanRejectsCapabilityOutsideACL(t *testing.T) {
	k := governance.New(&governance.Constitution{}, governance.HintLimits{})
	p := testPlan(t, "ccos.io.read")
	rc := governance.RuntimeContext{ACL: []string{"ccos.net.*"}, Quota: governance.Quota{Limit: 10, Remaining: 10}}
	err := k.ValidatePlan(p, rc)
	require.Error(t, err)
}

func TestKernelValidatePlanAllowsDeclaredSubset(t *testing.T) {
	k := governance.New(&governance.Constitution{}, governance.HintLimits{})
	p := testPlan(t, "ccos.io.read")
	rc := governance.RuntimeContext{ACL: []string{"ccos.io.*"}, Quota: governance.Quota{Limit: 10, Remaining: 10}}
	require.NoError(t, k.ValidatePlan(p, rc))
}

func TestKernelGateDeductsQuotaOnAllow(t *testing.T) {
	k := governance.New(&governance.Constitution{}, governance.HintLimits{})
	rc := &governance.RuntimeContext{ACL: []string{"ccos.io.*"}, Quota: governance.Quota{Limit: 5, Remaining: 5}}
	gd := k.Gate("ccos.io.read", value.Vector(), value.Null(), rc, 2)
	require.True(t, gd.Allowed)
	require.Equal(t, int64(3), rc.Quota.Remaining)
}

func TestKernelGateDeniesWhenQuotaExhausted(t *testing.T) {
	k := governance.New(&governance.Constitution{}, governance.HintLimits{})
	rc := &governance.RuntimeContext{ACL: []string{"ccos.io.*"}, Quota: governance.Quota{Limit: 1, Remaining: 1}}
	gd := k.Gate("ccos.io.read", value.Vector(), value.Null(), rc, 5)
	require.False(t, gd.Allowed)
	require.Equal(t, "quota exceeded", gd.Reason)
}

func TestKernelGateDeniesOutsideACL(t *testing.T) {
	k := governance.New(&governance.Constitution{}, governance.HintLimits{})
	rc := &governance.RuntimeContext{ACL: []string{"ccos.net.*"}, Quota: governance.Quota{Limit: 5, Remaining: 5}}
	gd := k.Gate("ccos.io.read", value.Vector(), value.Null(), rc, 1)
	require.False(t, gd.Allowed)
}

func TestKernelClampHintsEnforcesCeiling(t *testing.T) {
	k := governance.New(&governance.Constitution{}, governance.HintLimits{MaxRetries: 3})
	cfg := value.NewMap([2]value.Value{value.Keyword("max_retries"), value.Int(10)})
	out := k.ClampHints("runtime.learning.retry", cfg)
	v, ok := out.Get(value.Keyword("max_retries"))
	require.True(t, ok)
	require.Equal(t, int64(3), v.Int())
}

func TestKernelClampHintsLeavesWithinBoundUnchanged(t *testing.T) {
	k := governance.New(&governance.Constitution{}, governance.HintLimits{MaxRetries: 3})
	cfg := value.NewMap([2]value.Value{value.Keyword("max_retries"), value.Int(2)})
	out := k.ClampHints("runtime.learning.retry", cfg)
	v, _ := out.Get(value.Keyword("max_retries"))
	require.Equal(t, int64(2), v.Int())
}

func TestKernelReloadReturnsPolicyLoadedRecord(t *testing.T) {
	k := governance.New(&governance.Constitution{}, governance.HintLimits{})
	rec := k.Reload(&governance.Constitution{Version: "v2", Hash: "abc123"})
	require.Equal(t, "v2", rec.Version)
	require.Equal(t, "abc123", rec.ConstitutionHash)
}

func TestKernelGateAllowsWhenConstitutionHasNoRules(t *testing.T) {
	k := governance.New(&governance.Constitution{}, governance.HintLimits{})
	rc := &governance.RuntimeContext{ACL: []string{"*"}, Quota: governance.Quota{Limit: 5, Remaining: 5}}
	gd := k.Gate("ccos.io.read", value.Vector(), value.Null(), rc, 1)
	require.True(t, gd.Allowed)
}

func askConstitution() *governance.Constitution {
	return &governance.Constitution{Rules: []governance.Rule{
		{ID: "ask-io", Condition: "true", Action: governance.ActionAsk, Scope: "ccos.io.*"},
	}}
}

func TestKernelGateAutoGrantsAskWhenApprovalNotRequired(t *testing.T) {
	k := governance.New(askConstitution(), governance.HintLimits{})
	rc := &governance.RuntimeContext{ACL: []string{"*"}, Quota: governance.Quota{Limit: 5, Remaining: 5}}
	gd := k.Gate("ccos.io.read", value.Vector(), value.Null(), rc, 1)
	require.True(t, gd.Allowed)
	require.True(t, gd.Asked)
}

func TestKernelGateDeniesAskWhenApprovalRequired(t *testing.T) {
	k := governance.New(askConstitution(), governance.HintLimits{})
	k.SetRequireHumanApproval(true)
	rc := &governance.RuntimeContext{ACL: []string{"*"}, Quota: governance.Quota{Limit: 5, Remaining: 5}}
	gd := k.Gate("ccos.io.read", value.Vector(), value.Null(), rc, 1)
	require.False(t, gd.Allowed)
	require.True(t, gd.Asked)
	require.Equal(t, "requires human approval", gd.Reason)
}
