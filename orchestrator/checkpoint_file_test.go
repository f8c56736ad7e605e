package orchestrator_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub001/orchestrator"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

func TestFileCheckpointStoreRoundTrips(t *testing.T) {
	store, err := orchestrator.NewFileCheckpointStore(filepath.Join(t.TempDir(), "checkpoints"))
	require.NoError(t, err)

	params := value.NewMap().Assoc(value.Keyword("retries"), value.Int(2))
	cp := orchestrator.Checkpoint{
		ActionID:        "action-1",
		PlanID:          "plan-1",
		IntentIDs:       []string{"intent-1"},
		ResumptionState: []value.Value{value.Int(1), value.String("ok")},
		CrossPlanParams: params,
		ChainTopHash:    "abc123",
	}
	require.NoError(t, store.Save(cp))

	loaded, err := store.Load("action-1")
	require.NoError(t, err)
	require.Equal(t, cp.ActionID, loaded.ActionID)
	require.Equal(t, cp.PlanID, loaded.PlanID)
	require.Equal(t, cp.IntentIDs, loaded.IntentIDs)
	require.Equal(t, cp.ChainTopHash, loaded.ChainTopHash)
	require.Equal(t, cp.ResumptionState, loaded.ResumptionState)
	require.NotNil(t, loaded.CrossPlanParams)
}

func TestFileCheckpointStoreLoadMissingReturnsNotFound(t *testing.T) {
	store, err := orchestrator.NewFileCheckpointStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("does-not-exist")
	require.ErrorIs(t, err, orchestrator.ErrCheckpointNotFound)
}
