// Package commands implements the CLI surface of the core (spec.md §6):
// run-plan, resume-from, verify-chain, and replay, each a cobra
// subcommand under the ccos root command. This mirrors the shape the rest
// of the retrieved pack uses for a multi-subcommand Go CLI
// (bartekus-stagecraft's cmd/cortex, theRebelliousNerd-codenerd's cmd/nerd)
// rather than the teacher's own bare func main() demo or generated Goa
// transport, neither of which fits a standalone control surface.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand constructs the ccos root command and its four
// subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ccos",
		Short:         "CCOS — governed execution substrate for AI-generated plans",
		Long:          "ccos drives RTFS plans through the Orchestrator, Governance Kernel, and Causal Chain described in the CCOS core specification.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to a YAML ccos.Config document (omit for in-memory defaults)")
	root.PersistentFlags().String("chain", "", "causal chain log file path (overrides config's chain.path; empty means in-memory)")
	root.PersistentFlags().String("acl", "*", "comma-separated capability id globs the runtime context permits")
	root.PersistentFlags().String("intent", "cli", "intent id bound to the runtime context")
	root.PersistentFlags().Int64("quota", 1_000_000, "call budget for the runtime context's quota")

	root.AddCommand(newRunPlanCommand())
	root.AddCommand(newResumeFromCommand())
	root.AddCommand(newVerifyChainCommand())
	root.AddCommand(newReplayCommand())

	return root
}
