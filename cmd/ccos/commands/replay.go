package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mandubian/ccos-sub001/causalchain"
	"github.com/mandubian/ccos-sub001/plan"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
)

func newReplayCommand() *cobra.Command {
	var capsFlag string
	cmd := &cobra.Command{
		Use:   "replay <plan-file>",
		Short: "Deterministically replay a plan against its recorded Causal Chain results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return replay(cmd, args[0], capsFlag)
		},
	}
	cmd.Flags().StringVar(&capsFlag, "declared-capabilities", "", "comma-separated capability id globs the plan declares")
	return cmd
}

func replay(cmd *cobra.Command, planPath, capsFlag string) error {
	source, err := os.ReadFile(planPath)
	if err != nil {
		return newExitError(exitRuntimeError, fmt.Sprintf("replay: read %s: %v", planPath, err))
	}
	p, err := plan.Parse(string(source), nil, splitCommaList(capsFlag), nil, nil)
	if err != nil {
		return newExitError(exitParseError, fmt.Sprintf("replay: %v", err))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return newExitError(exitRuntimeError, err.Error())
	}
	applyChainFlag(cmd, cfg)
	if cfg.Chain.StorageBackend == "" || cfg.Chain.StorageBackend == "memory" {
		return newExitError(exitRuntimeError, "replay: pass --chain <path> (or set chain.storage_backend: file in --config) to replay a persisted plan")
	}

	chain, closer, err := cfg.OpenChain()
	if err != nil {
		return newExitError(exitRuntimeError, err.Error())
	}
	defer closer()

	var root *causalchain.Action
	for _, r := range chain.Roots() {
		if r.PlanID == p.PlanID {
			rr := r
			root = &rr
			break
		}
	}
	if root == nil {
		return newExitError(exitRuntimeError, fmt.Sprintf("replay: no recorded plan root found for plan id %s", p.PlanID))
	}

	out, err := chain.Replay(root.ActionID, p.Body, eval.NewEnv())
	if err != nil {
		return newExitError(exitRuntimeError, fmt.Sprintf("replay: %v", err))
	}

	switch out.Status {
	case eval.StatusComplete:
		fmt.Fprintf(cmd.OutOrStdout(), "replay: Complete(%v)\n", out.Value)
		return nil
	case eval.StatusError:
		return newExitError(exitCodeFor(out.Err), fmt.Sprintf("replay: %s", out.Err.Error()))
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "replay: paused awaiting %s\n", out.Call.CapabilityID)
		return nil
	}
}
