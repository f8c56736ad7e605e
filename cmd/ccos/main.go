// Command ccos is the control interface of spec.md §6, "CLI surface of the
// core": run-plan, resume-from, verify-chain, and replay, exiting with the
// code that section enumerates (0 success, 1 parse error, 2 governance
// denial, 3 runtime error, 4 chain integrity failure).
package main

import (
	"fmt"
	"os"

	"github.com/mandubian/ccos-sub001/cmd/ccos/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ccos:", err)
		os.Exit(exitCodeOf(err))
	}
}

// exitCodeOf prefers an explicit exit code (commands.exitError, unexported
// but satisfying the same small interface main() checks for) over an
// undifferentiated failure.
func exitCodeOf(err error) int {
	type coder interface{ ExitCode() int }
	if c, ok := err.(coder); ok {
		return c.ExitCode()
	}
	return 1
}
