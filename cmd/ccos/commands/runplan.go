package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mandubian/ccos-sub001/capability"
	"github.com/mandubian/ccos-sub001/ccos"
	"github.com/mandubian/ccos-sub001/orchestrator"
	"github.com/mandubian/ccos-sub001/plan"
)

func newRunPlanCommand() *cobra.Command {
	var capsFlag string
	cmd := &cobra.Command{
		Use:   "run-plan <plan-file>",
		Short: "Parse and run a plan to completion (or its first checkpoint)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0], capsFlag)
		},
	}
	cmd.Flags().StringVar(&capsFlag, "declared-capabilities", "", "comma-separated capability id globs the plan declares")
	return cmd
}

func runPlan(cmd *cobra.Command, planPath, capsFlag string) error {
	source, err := os.ReadFile(planPath)
	if err != nil {
		return newExitError(exitRuntimeError, fmt.Sprintf("run-plan: read %s: %v", planPath, err))
	}

	p, err := plan.Parse(string(source), nil, splitCommaList(capsFlag), nil, nil)
	if err != nil {
		return newExitError(exitParseError, fmt.Sprintf("run-plan: %v", err))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return newExitError(exitRuntimeError, err.Error())
	}
	applyChainFlag(cmd, cfg)

	tel := cliTelemetry()
	constitution, err := cfg.LoadConstitution(nil)
	if err != nil {
		return newExitError(exitRuntimeError, fmt.Sprintf("run-plan: %v", err))
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
	result := orch.Run(context.Background(), p, rc)
	return reportResult(cmd, result)
}

// reportResult prints the outcome and translates it into the process exit
// code spec.md §6 enumerates.
func reportResult(cmd *cobra.Command, result orchestrator.Result) error {
	if result.Err != nil {
		return newExitError(exitCodeFor(result.Err), result.Err.Error())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "plan %s: %v\n", result.Status, result.Value)
	return nil
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
