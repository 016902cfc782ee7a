package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultCodeName(t *testing.T) {
	for _, tc := range []struct {
		name     string
		input    ResultCode
		expected string
	}{
		{name: "ok", input: ResultOK, expected: "SQLITE_OK"},
		{name: "ioerr", input: ResultIOErr, expected: "SQLITE_IOERR"},
		{name: "short read", input: ResultIOErrShortRead, expected: "SQLITE_IOERR_SHORT_READ"},
		{name: "delete", input: ResultIOErrDelete, expected: "SQLITE_IOERR_DELETE"},
		{name: "cantopen", input: ResultCantOpen, expected: "SQLITE_CANTOPEN"},
		{name: "unknown", input: 99, expected: "99"},
	} {
		require.Equal(t, tc.expected, ResultCodeName(tc.input), tc.name)
	}
}

// TestExtendedResultCodes ensures extended codes keep their primary code in the
// low byte, which is how the engine classifies them.
func TestExtendedResultCodes(t *testing.T) {
	require.Equal(t, int32(522), ResultIOErrShortRead)
	require.Equal(t, int32(2570), ResultIOErrDelete)
	require.Equal(t, ResultIOErr, ResultIOErrShortRead&0xff)
	require.Equal(t, ResultIOErr, ResultIOErrDelete&0xff)
}

func TestLockLevelName(t *testing.T) {
	require.Equal(t, "SQLITE_LOCK_NONE", LockLevelName(LockNone))
	require.Equal(t, "SQLITE_LOCK_EXCLUSIVE", LockLevelName(LockExclusive))
	require.Equal(t, "7", LockLevelName(7))
}
