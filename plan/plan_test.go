package plan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub001/plan"
)

func TestParseComputesDeterministicPlanID(t *testing.T) {
	p1, err := plan.Parse(`(call :ccos.io.read "x")`, []string{"intent-1"}, []string{"ccos.io.read"}, nil, nil)
	require.NoError(t, err)
	p2, err := plan.Parse(`(call :ccos.io.read "x")`, []string{"intent-1"}, []string{"ccos.io.read"}, nil, nil)
	require.NoError(t, err)

	require.Equal(t, p1.PlanID, p2.PlanID)
	require.NotEmpty(t, p1.PlanID)
}

func TestParseDifferentSourceYieldsDifferentPlanID(t *testing.T) {
	p1, err := plan.Parse(`(call :ccos.io.read "x")`, []string{"intent-1"}, []string{"ccos.io.read"}, nil, nil)
	require.NoError(t, err)
	p2, err := plan.Parse(`(call :ccos.io.read "y")`, []string{"intent-1"}, []string{"ccos.io.read"}, nil, nil)
	require.NoError(t, err)

	require.NotEqual(t, p1.PlanID, p2.PlanID)
}

func TestParseDifferentDeclaredCapabilitiesYieldsDifferentPlanID(t *testing.T) {
	source := `(call :ccos.io.read "x")`
	p1, err := plan.Parse(source, []string{"intent-1"}, []string{"ccos.io.read"}, nil, nil)
	require.NoError(t, err)
	p2, err := plan.Parse(source, []string{"intent-1"}, []string{"ccos.io.read", "ccos.net.*"}, nil, nil)
	require.NoError(t, err)

	require.NotEqual(t, p1.PlanID, p2.PlanID)
}

func TestParsePropagatesSyntaxError(t *testing.T) {
	_, err := plan.Parse(`(call :ccos.io.read`, []string{"intent-1"}, nil, nil, nil)
	require.Error(t, err)
}

func TestParseConstraintsAndProvenanceDoNotAffectPlanID(t *testing.T) {
	source := `(call :ccos.io.read "x")`
	p1, err := plan.Parse(source, []string{"intent-1"}, []string{"ccos.io.read"}, nil, nil)
	require.NoError(t, err)
	p2, err := plan.Parse(source, []string{"intent-1"}, []string{"ccos.io.read"},
		map[string]any{"max_cost": 5}, map[string]any{"source_agent": "planner-1"})
	require.NoError(t, err)

	require.Equal(t, p1.PlanID, p2.PlanID)
}
