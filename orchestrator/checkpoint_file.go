package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// FileCheckpointStore persists each Checkpoint as one JSON file named by
// its action id under a directory (unlike the causal chain's FileStore,
// which appends every action to a single JSON-lines log), so a
// checkpoint survives a CLI process restart (spec.md §4.8: "restart
// process; resume").
type FileCheckpointStore struct {
	dir string
}

// NewFileCheckpointStore constructs a store rooted at dir, creating it if
// necessary.
func NewFileCheckpointStore(dir string) (*FileCheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("orchestrator: create checkpoint dir %s: %w", dir, err)
	}
	return &FileCheckpointStore{dir: dir}, nil
}

// checkpointDoc is the JSON-safe encoding of a Checkpoint: ResumptionState
// and CrossPlanParams hold opaque rtfs/value.Value data, so they go through
// value.ToAny/FromAny at this boundary the same way Causal Chain actions do.
type checkpointDoc struct {
	ActionID        string   `json:"action_id"`
	PlanID          string   `json:"plan_id"`
	IntentIDs       []string `json:"intent_ids"`
	ResumptionState []any    `json:"resumption_state"`
	CrossPlanParams any      `json:"cross_plan_params"`
	ChainTopHash    string   `json:"chain_top_hash"`
}

func (s *FileCheckpointStore) path(actionID string) string {
	return filepath.Join(s.dir, actionID+".json")
}

// Save writes cp to disk, overwriting any existing file for the same id.
func (s *FileCheckpointStore) Save(cp Checkpoint) error {
	doc := checkpointDoc{
		ActionID:        cp.ActionID,
		PlanID:          cp.PlanID,
		IntentIDs:       cp.IntentIDs,
		ChainTopHash:    cp.ChainTopHash,
		ResumptionState: make([]any, len(cp.ResumptionState)),
	}
	for i, v := range cp.ResumptionState {
		doc.ResumptionState[i] = value.ToAny(v)
	}
	if cp.CrossPlanParams != nil {
		doc.CrossPlanParams = value.ToAny(value.MapValue(cp.CrossPlanParams))
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: marshal checkpoint %s: %w", cp.ActionID, err)
	}
	if err := os.WriteFile(s.path(cp.ActionID), b, 0o644); err != nil {
		return fmt.Errorf("orchestrator: write checkpoint %s: %w", cp.ActionID, err)
	}
	return nil
}

// Load reads back a previously saved checkpoint.
func (s *FileCheckpointStore) Load(actionID string) (Checkpoint, error) {
	b, err := os.ReadFile(s.path(actionID))
	if os.IsNotExist(err) {
		return Checkpoint{}, ErrCheckpointNotFound
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("orchestrator: read checkpoint %s: %w", actionID, err)
	}
	var doc checkpointDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return Checkpoint{}, fmt.Errorf("orchestrator: decode checkpoint %s: %w", actionID, err)
	}

	cp := Checkpoint{
		ActionID:        doc.ActionID,
		PlanID:          doc.PlanID,
		IntentIDs:       doc.IntentIDs,
		ChainTopHash:    doc.ChainTopHash,
		ResumptionState: make([]value.Value, len(doc.ResumptionState)),
	}
	for i, a := range doc.ResumptionState {
		v, err := value.FromAny(a)
		if err != nil {
			return Checkpoint{}, fmt.Errorf("orchestrator: decode checkpoint %s result %d: %w", actionID, i, err)
		}
		cp.ResumptionState[i] = v
	}
	if doc.CrossPlanParams != nil {
		v, err := value.FromAny(doc.CrossPlanParams)
		if err != nil {
			return Checkpoint{}, fmt.Errorf("orchestrator: decode checkpoint %s cross-plan params: %w", actionID, err)
		}
		if v.Kind() == value.KindMap {
			cp.CrossPlanParams = v.Map()
		}
	}
	return cp, nil
}
