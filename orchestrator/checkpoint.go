package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/mandubian/ccos-sub001/causalchain"
	"github.com/mandubian/ccos-sub001/governance"
	"github.com/mandubian/ccos-sub001/plan"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// ErrCheckpointNotFound mirrors the teacher's store-package not-found
// sentinel (registry/store.ErrNotFound), reused here for the same reason:
// a typed miss callers can match with errors.Is rather than string
// comparison.
var ErrCheckpointNotFound = errors.New("orchestrator: checkpoint not found")

// Checkpoint is the serialized suspension point of spec.md §4.8
// ("Checkpoints... serializes {env, pending_call?, resumption_key,
// exec_context_stack, cross_plan_params}") and §6 ("Checkpoint format...
// action_id, serialized environment, resumption key, context stack,
// cross-plan params, chain top hash"). Per the Open Question at spec.md
// line 349 ("embed the full environment or an environment hash +
// lookup... implementation may choose"), this implementation embeds the
// Resumption's recorded host-call results (the only state that is not
// trivially re-derivable by replaying the plan body from scratch) rather
// than a snapshot of env/exec_context_stack, since neither carries
// information beyond what deterministic replay already reconstructs.
type Checkpoint struct {
	ActionID        string
	PlanID          string
	IntentIDs       []string
	ResumptionState []value.Value
	CrossPlanParams *value.Map
	ChainTopHash    string
}

// CheckpointStore persists Checkpoints, following the same
// mutex-guarded-map shape as the teacher's registry/store/memory.Store.
type CheckpointStore interface {
	Save(cp Checkpoint) error
	Load(actionID string) (Checkpoint, error)
}

// MemoryCheckpointStore is an in-memory CheckpointStore suitable for
// development, testing, and single-node deployments, matching the
// teacher's in-memory registry store's documented scope.
type MemoryCheckpointStore struct {
	mu   sync.RWMutex
	byID map[string]Checkpoint
}

// NewMemoryCheckpointStore constructs an empty store.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{byID: make(map[string]Checkpoint)}
}

func (s *MemoryCheckpointStore) Save(cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[cp.ActionID] = cp
	return nil
}

func (s *MemoryCheckpointStore) Load(actionID string) (Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.byID[actionID]
	if !ok {
		return Checkpoint{}, ErrCheckpointNotFound
	}
	return cp, nil
}

// Checkpoint serializes the current suspension point on demand (spec.md
// §4.8, "At step boundaries or on demand") and appends the corresponding
// Checkpoint action, returning its action id as the checkpoint id callers
// pass to ResumeFrom.
func (o *Orchestrator) Checkpoint(p *plan.Plan, resumption *eval.Resumption, store CheckpointStore, chainTopHash string) (string, error) {
	a, err := o.host.AppendPlanAction(causalchain.Action{Type: causalchain.TypeCheckpoint, Success: true})
	if err != nil {
		return "", err
	}
	cp := Checkpoint{
		ActionID:        a.ActionID,
		PlanID:          p.PlanID,
		IntentIDs:       p.IntentIDs,
		ResumptionState: resumption.Snapshot(),
		CrossPlanParams: o.host.CrossPlanParams(),
		ChainTopHash:    chainTopHash,
	}
	if err := store.Save(cp); err != nil {
		return "", err
	}
	return a.ActionID, nil
}

// ResumeFrom loads a checkpoint, rebinds the Runtime Context, restores
// cross-plan parameters and the Resumption's replay log, appends
// PlanResumed, and re-enters the drive loop. All pure work between the
// plan's start and the checkpoint is replayed deterministically; every
// host call already recorded in the checkpoint returns its saved result
// instead of being re-dispatched (spec.md §4.8, "host calls are
// de-duplicated by correlation_id").
func (o *Orchestrator) ResumeFrom(ctx context.Context, checkpointID string, store CheckpointStore, p *plan.Plan, rc governance.RuntimeContext) Result {
	cp, err := store.Load(checkpointID)
	if err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	if err := o.kernel.ValidatePlan(p, rc); err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	if err := o.host.SetExecutionContext(p.PlanID, p.IntentIDs, rc); err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	o.host.SetCrossPlanParams(cp.CrossPlanParams)
	o.appendLifecycle(causalchain.TypePlanResumed, true, "", "")

	env := eval.NewEnv()
	resumption := eval.RestoreFromValues(cp.ResumptionState)
	return o.drive(ctx, p, env, resumption)
}
