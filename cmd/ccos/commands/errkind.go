package commands

import (
	"errors"

	"github.com/mandubian/ccos-sub001/ccerrors"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
)

// exitCodeFor maps a terminal failure to the process exit code spec.md §6
// enumerates. Anything that does not carry a recognized ErrorKind (a plain
// Go error from I/O, YAML parsing, etc.) is a runtime error.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var ce *ccerrors.Error
	if errors.As(err, &ce) {
		return exitCodeForKind(ce.Kind)
	}
	// orchestrator.Result.Err and eval.Outcome.Err surface as *eval.EvalError
	// (ccerrors.Error is converted to it at the evaluator boundary), so this
	// is the common case for run-plan/resume-from/replay failures, not a
	// fallback.
	var ee *eval.EvalError
	if errors.As(err, &ee) {
		return exitCodeForKind(ee.Kind)
	}
	return exitRuntimeError
}

func exitCodeForKind(kind eval.ErrorKind) int {
	switch kind {
	case eval.ErrParse:
		return exitParseError
	case eval.ErrGovernanceDenied, eval.ErrSecurityViolation, eval.ErrQuotaExceeded:
		return exitGovernanceDenial
	case eval.ErrIntegrity:
		return exitChainIntegrity
	default:
		return exitRuntimeError
	}
}
