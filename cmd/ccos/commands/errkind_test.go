package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub001/ccerrors"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
)

func TestExitCodeForMapsKnownKinds(t *testing.T) {
	require.Equal(t, exitParseError, exitCodeFor(ccerrors.New(eval.ErrParse, "bad syntax")))
	require.Equal(t, exitGovernanceDenial, exitCodeFor(ccerrors.New(eval.ErrGovernanceDenied, "denied")))
	require.Equal(t, exitGovernanceDenial, exitCodeFor(ccerrors.New(eval.ErrSecurityViolation, "denied")))
	require.Equal(t, exitGovernanceDenial, exitCodeFor(ccerrors.New(eval.ErrQuotaExceeded, "denied")))
	require.Equal(t, exitChainIntegrity, exitCodeFor(ccerrors.New(eval.ErrIntegrity, "hash mismatch")))
	require.Equal(t, exitRuntimeError, exitCodeFor(ccerrors.New(eval.ErrInternal, "boom")))
}

func TestExitCodeForNilIsSuccess(t *testing.T) {
	require.Equal(t, 0, exitCodeFor(nil))
}

func TestExitCodeForPlainErrorIsRuntimeError(t *testing.T) {
	require.Equal(t, exitRuntimeError, exitCodeFor(errors.New("disk full")))
}

func TestExitCodeForWrappedErrorUnwraps(t *testing.T) {
	wrapped := ccerrors.Wrap(eval.ErrGovernanceDenied, errors.New("acl"), "")
	require.Equal(t, exitGovernanceDenial, exitCodeFor(wrapped))
}

func TestSplitCommaListTrimsAndDropsEmpty(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, splitCommaList("a, b ,c"))
	require.Nil(t, splitCommaList(""))
	require.Equal(t, []string{"x"}, splitCommaList(" x "))
}
