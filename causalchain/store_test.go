package causalchain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub001/causalchain"
)

func TestAppendComputesLinkedHash(t *testing.T) {
	s := causalchain.New()
	root, err := s.Append(causalchain.Action{
		ActionID: "a1",
		PlanID:   "plan-1",
		Type:     causalchain.TypePlanStarted,
		Success:  true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, root.Hash)

	child, err := s.Append(causalchain.Action{
		ActionID:       "a2",
		ParentActionID: "a1",
		PlanID:         "plan-1",
		Type:           causalchain.TypeCapabilityCall,
		Success:        true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, child.Hash)
	require.NotEqual(t, root.Hash, child.Hash)
}

func TestAppendRejectsDuplicateActionID(t *testing.T) {
	s := causalchain.New()
	a := causalchain.Action{ActionID: "a1", PlanID: "plan-1", Type: causalchain.TypePlanStarted}
	_, err := s.Append(a)
	require.NoError(t, err)

	_, err = s.Append(a)
	require.ErrorIs(t, err, causalchain.ErrDuplicateID)
}

func TestAppendRejectsDuplicateCapabilityResult(t *testing.T) {
	s := causalchain.New()
	_, err := s.Append(causalchain.Action{
		ActionID: "a1",
		PlanID:   "plan-1",
		Type:     causalchain.TypeCapabilityResult,
		Metadata: causalchain.Metadata{CorrelationID: "corr-1"},
	})
	require.NoError(t, err)

	_, err = s.Append(causalchain.Action{
		ActionID: "a2",
		PlanID:   "plan-1",
		Type:     causalchain.TypeCapabilityResult,
		Metadata: causalchain.Metadata{CorrelationID: "corr-1"},
	})
	require.ErrorIs(t, err, causalchain.ErrDuplicateResult)
}

func TestAppendRejectsMissingParent(t *testing.T) {
	s := causalchain.New()
	_, err := s.Append(causalchain.Action{
		ActionID:       "a1",
		ParentActionID: "does-not-exist",
		PlanID:         "plan-1",
		Type:           causalchain.TypePlanStarted,
	})
	require.Error(t, err)
}

func TestGetAndChildrenAndRoots(t *testing.T) {
	s := causalchain.New()
	_, err := s.Append(causalchain.Action{ActionID: "root", PlanID: "plan-1", Type: causalchain.TypePlanStarted})
	require.NoError(t, err)
	_, err = s.Append(causalchain.Action{ActionID: "child-1", ParentActionID: "root", PlanID: "plan-1", Type: causalchain.TypeCapabilityCall})
	require.NoError(t, err)
	_, err = s.Append(causalchain.Action{ActionID: "child-2", ParentActionID: "root", PlanID: "plan-1", Type: causalchain.TypeCapabilityCall})
	require.NoError(t, err)

	roots := s.Roots()
	require.Len(t, roots, 1)
	require.Equal(t, "root", roots[0].ActionID)

	children, err := s.Children("root")
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Equal(t, "child-1", children[0].ActionID)
	require.Equal(t, "child-2", children[1].ActionID)

	_, err = s.Get("child-1")
	require.NoError(t, err)
	_, err = s.Get("missing")
	require.ErrorIs(t, err, causalchain.ErrNotFound)
}

func TestVerifyFromConsistentSubtreeReturnsNoBadAction(t *testing.T) {
	s := causalchain.New()
	root, err := s.Append(causalchain.Action{ActionID: "root", PlanID: "plan-1", Type: causalchain.TypePlanStarted})
	require.NoError(t, err)
	_, err = s.Append(causalchain.Action{ActionID: "child", ParentActionID: "root", PlanID: "plan-1", Type: causalchain.TypeCapabilityCall})
	require.NoError(t, err)

	bad, err := s.VerifyFrom(root.ActionID)
	require.NoError(t, err)
	require.Empty(t, bad)
}

func TestVerifyFromUnknownRootReturnsNotFound(t *testing.T) {
	s := causalchain.New()
	_, err := s.VerifyFrom("missing")
	require.ErrorIs(t, err, causalchain.ErrNotFound)
}
