package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mandubian/ccos-sub001/ccos"
)

func newVerifyChainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-chain <root-id>",
		Short: "Walk a Causal Chain subtree and verify every hash edge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return verifyChain(cmd, args[0])
		},
	}
}

func verifyChain(cmd *cobra.Command, rootID string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return newExitError(exitRuntimeError, err.Error())
	}
	applyChainFlag(cmd, cfg)
	if cfg.Chain.StorageBackend == "" || cfg.Chain.StorageBackend == "memory" {
		return newExitError(exitRuntimeError, "verify-chain: pass --chain <path> (or set chain.storage_backend: file in --config) to verify a persisted chain")
	}

	chain, closer, err := cfg.OpenChain()
	if err != nil {
		return newExitError(exitRuntimeError, err.Error())
	}
	defer closer()

	bad, err := chain.VerifyFrom(rootID)
	if err != nil {
		if bad != "" {
			return newExitError(exitChainIntegrity, fmt.Sprintf("verify-chain: integrity failure at action %s: %v", bad, err))
		}
		return newExitError(exitRuntimeError, fmt.Sprintf("verify-chain: %v", err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "verify-chain: OK, subtree rooted at %s is consistent\n", rootID)
	return nil
}
