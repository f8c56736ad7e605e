package causalchain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub001/causalchain"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/parser"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

func TestReplayReusesRecordedCapabilityResult(t *testing.T) {
	s := causalchain.New()
	root, err := s.Append(causalchain.Action{ActionID: "root", PlanID: "plan-1", Type: causalchain.TypePlanStarted})
	require.NoError(t, err)
	call, err := s.Append(causalchain.Action{ActionID: "call", ParentActionID: root.ActionID, PlanID: "plan-1", Type: causalchain.TypeCapabilityCall, FunctionName: "ccos.math.add"})
	require.NoError(t, err)
	_, err = s.Append(causalchain.Action{
		ActionID:       "result",
		ParentActionID: call.ActionID,
		PlanID:         "plan-1",
		Type:           causalchain.TypeCapabilityResult,
		Success:        true,
		Result:         value.ToAny(value.Int(5)),
	})
	require.NoError(t, err)

	body, err := parser.Parse(`(call :ccos.math.add 2 3)`)
	require.NoError(t, err)

	out, err := s.Replay(root.ActionID, body, eval.NewEnv())
	require.NoError(t, err)
	require.Equal(t, eval.StatusComplete, out.Status)
	require.Equal(t, int64(5), out.Value.Int())
}

func TestReplayUnknownActionReturnsNotFound(t *testing.T) {
	s := causalchain.New()
	body, err := parser.Parse(`1`)
	require.NoError(t, err)
	_, err = s.Replay("missing", body, eval.NewEnv())
	require.ErrorIs(t, err, causalchain.ErrNotFound)
}
