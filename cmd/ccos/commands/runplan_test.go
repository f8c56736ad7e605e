package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// planRootActionID scans a chain's JSON-lines log file for the PlanStarted
// root action id. run-plan appends a plan-independent PolicyLoaded root
// before it, so the first line is not always the one callers want.
func planRootActionID(t *testing.T, chainPath string) string {
	t.Helper()
	f, err := os.Open(chainPath)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var doc struct {
			ActionID       string `json:"action_id"`
			Type           string `json:"type"`
			ParentActionID string `json:"parent_action_id"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &doc))
		if doc.Type == "PlanStarted" && doc.ParentActionID == "" {
			return doc.ActionID
		}
	}
	t.Fatal("no PlanStarted root action found in chain log")
	return ""
}

func writePlanFile(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.rtfs")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestRunPlanCompletesMathAddCapability(t *testing.T) {
	planPath := writePlanFile(t, `(call :ccos.math.add 2 3)`)

	root := NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"run-plan", planPath, "--declared-capabilities", "ccos.math.add"})

	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "plan")
}

func TestRunPlanDeniesUndeclaredCapability(t *testing.T) {
	planPath := writePlanFile(t, `(call :ccos.math.add 2 3)`)

	root := NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"run-plan", planPath, "--acl", "ccos.echo"})

	err := root.Execute()
	require.Error(t, err)
	var coder interface{ ExitCode() int }
	require.ErrorAs(t, err, &coder)
	require.Equal(t, exitGovernanceDenial, coder.ExitCode())
}

func TestRunPlanRejectsUnparseablePlan(t *testing.T) {
	planPath := writePlanFile(t, `(call :ccos.math.add`)

	root := NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"run-plan", planPath})

	err := root.Execute()
	require.Error(t, err)
	var coder interface{ ExitCode() int }
	require.ErrorAs(t, err, &coder)
	require.Equal(t, exitParseError, coder.ExitCode())
}

func TestVerifyChainRequiresFileBackedChain(t *testing.T) {
	root := NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"verify-chain", "some-root"})

	err := root.Execute()
	require.Error(t, err)
}

func TestRunPlanAppendsPolicyLoadedAction(t *testing.T) {
	chainPath := filepath.Join(t.TempDir(), "chain.jsonl")
	planPath := writePlanFile(t, `(call :ccos.math.add 2 3)`)

	root := NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"run-plan", planPath, "--declared-capabilities", "ccos.math.add", "--chain", chainPath})
	require.NoError(t, root.Execute())

	f, err := os.Open(chainPath)
	require.NoError(t, err)
	defer f.Close()

	var sawPolicyLoaded bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var doc struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &doc))
		if doc.Type == "PolicyLoaded" {
			sawPolicyLoaded = true
		}
	}
	require.True(t, sawPolicyLoaded)
}

func TestRunPlanThenVerifyChainOnFileBackend(t *testing.T) {
	chainPath := filepath.Join(t.TempDir(), "chain.jsonl")
	planPath := writePlanFile(t, `(call :ccos.math.add 2 3)`)

	root := NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"run-plan", planPath, "--declared-capabilities", "ccos.math.add", "--chain", chainPath})
	require.NoError(t, root.Execute())

	actionID := planRootActionID(t, chainPath)

	root2 := NewRootCommand()
	out2 := &bytes.Buffer{}
	root2.SetOut(out2)
	root2.SetErr(out2)
	root2.SetArgs([]string{"verify-chain", actionID, "--chain", chainPath})
	require.NoError(t, root2.Execute())
	require.Contains(t, out2.String(), "OK")
}
