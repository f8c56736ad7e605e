package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mandubian/ccos-sub001/capability"
	"github.com/mandubian/ccos-sub001/ccos"
	"github.com/mandubian/ccos-sub001/orchestrator"
	"github.com/mandubian/ccos-sub001/plan"
)

func newResumeFromCommand() *cobra.Command {
	var planPath, checkpointDir, capsFlag string
	cmd := &cobra.Command{
		Use:   "resume-from <checkpoint-id>",
		Short: "Resume a paused plan from a previously saved checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resumeFrom(cmd, args[0], planPath, checkpointDir, capsFlag)
		},
	}
	cmd.Flags().StringVar(&planPath, "plan", "", "path to the plan source the checkpoint belongs to (required)")
	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", ".ccos/checkpoints", "directory checkpoints are persisted under")
	cmd.Flags().StringVar(&capsFlag, "declared-capabilities", "", "comma-separated capability id globs the plan declares")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func resumeFrom(cmd *cobra.Command, checkpointID, planPath, checkpointDir, capsFlag string) error {
	source, err := os.ReadFile(planPath)
	if err != nil {
		return newExitError(exitRuntimeError, fmt.Sprintf("resume-from: read %s: %v", planPath, err))
	}
	p, err := plan.Parse(string(source), nil, splitCommaList(capsFlag), nil, nil)
	if err != nil {
		return newExitError(exitParseError, fmt.Sprintf("resume-from: %v", err))
	}

	store, err := orchestrator.NewFileCheckpointStore(checkpointDir)
	if err != nil {
		return newExitError(exitRuntimeError, err.Error())
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return newExitError(exitRuntimeError, err.Error())
	}
	applyChainFlag(cmd, cfg)

	tel := cliTelemetry()
	constitution, err := cfg.LoadConstitution(nil)
	if err != nil {
		return newExitError(exitRuntimeError, fmt.Sprintf("resume-from: %v", err))
	}
	kernel, policyRec := cfg.NewKernel(constitution)

	chain, closer, err := cfg.OpenChain()
	if err != nil {
		return newExitError(exitRuntimeError, err.Error())
	}
	defer closer()

	registry := capability.New()
	if err := registerDemoCapabilities(registry); err != nil {
		return newExitError(exitRuntimeError, err.Error())
	}

	h := cfg.NewRuntimeHost(registry, kernel, chain, tel)
	if err := h.RecordPolicyLoaded(policyRec); err != nil {
		return newExitError(exitRuntimeError, err.Error())
	}
	orch := ccos.NewOrchestrator(h, kernel, tel)

	rc := runtimeContext(cmd)
	result := orch.ResumeFrom(context.Background(), checkpointID, store, p, rc)
	return reportResult(cmd, result)
}
