package governance_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub001/governance"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

func TestConstitutionEvaluateDenyOverridesAllow(t *testing.T) {
	c := &governance.Constitution{
		Rules: []governance.Rule{
			{ID: "allow-io", Condition: "true", Action: governance.ActionAllow, Scope: "ccos.io.*"},
			{ID: "deny-write", Condition: "(= (:capability_id event) :ccos.io.write)", Action: governance.ActionDeny, Scope: "ccos.io.*"},
		},
	}
	decision, err := c.Evaluate(governance.DecisionEvent{
		CapabilityID: "ccos.io.write",
		ArgsSummary:  value.Vector(),
		Context:      value.Null(),
		ExecHints:    value.Null(),
	})
	require.NoError(t, err)
	require.Equal(t, governance.ActionDeny, decision.Action)
	require.Equal(t, "deny-write", decision.RuleID)
}

func TestConstitutionEvaluateAllowWhenNoDeny(t *testing.T) {
	c := &governance.Constitution{
		Rules: []governance.Rule{
			{ID: "allow-io", Condition: "true", Action: governance.ActionAllow, Scope: "ccos.io.*"},
		},
	}
	decision, err := c.Evaluate(governance.DecisionEvent{
		CapabilityID: "ccos.io.read",
		ArgsSummary:  value.Vector(),
		Context:      value.Null(),
	})
	require.NoError(t, err)
	require.Equal(t, governance.ActionAllow, decision.Action)
	require.Equal(t, "allow-io", decision.RuleID)
}

func TestConstitutionEvaluateDefaultDenyWhenNoRuleMatches(t *testing.T) {
	c := &governance.Constitution{Rules: []governance.Rule{
		{ID: "scoped", Condition: "true", Action: governance.ActionAllow, Scope: "ccos.net.*"},
	}}
	decision, err := c.Evaluate(governance.DecisionEvent{CapabilityID: "ccos.io.read"})
	require.NoError(t, err)
	require.Equal(t, governance.ActionDeny, decision.Action)
}

func TestConstitutionEvaluateAllowsWhenNoRulesAtAll(t *testing.T) {
	c := &governance.Constitution{}
	decision, err := c.Evaluate(governance.DecisionEvent{CapabilityID: "ccos.io.read"})
	require.NoError(t, err)
	require.Equal(t, governance.ActionAllow, decision.Action)
}

func TestConstitutionEvaluateRejectsCallInCondition(t *testing.T) {
	c := &governance.Constitution{Rules: []governance.Rule{
		{ID: "bad", Condition: "(call :ccos.io.read)", Action: governance.ActionAllow, Scope: "*"},
	}}
	_, err := c.Evaluate(governance.DecisionEvent{CapabilityID: "ccos.io.read"})
	require.Error(t, err)
}
