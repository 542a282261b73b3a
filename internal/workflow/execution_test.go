package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zulandar/tracewell/internal/role"
)

func TestExecutionTable_Edges(t *testing.T) {
	tests := []struct {
		from ExecutionStatus
		to   ExecutionStatus
		role role.Role
		want bool
	}{
		{ExecutionAssigned, ExecutionInProgress, role.UATTester, true},
		{ExecutionAssigned, ExecutionInProgress, role.UATManager, true},
		{ExecutionAssigned, ExecutionInProgress, role.Developer, false},
		{ExecutionAssigned, ExecutionPassed, role.Admin, false},

		{ExecutionInProgress, ExecutionPassed, role.UATTester, true},
		{ExecutionInProgress, ExecutionFailed, role.UATTester, true},
		{ExecutionInProgress, ExecutionBlocked, role.UATTester, true},
		{ExecutionInProgress, ExecutionVerified, role.Admin, false},

		{ExecutionFailed, ExecutionInProgress, role.UATTester, true},
		{ExecutionBlocked, ExecutionInProgress, role.UATTester, true},

		{ExecutionPassed, ExecutionVerified, role.UATManager, true},
		{ExecutionPassed, ExecutionVerified, role.Admin, true},
		{ExecutionPassed, ExecutionVerified, role.UATTester, false},

		{ExecutionVerified, ExecutionInProgress, role.Admin, false},
	}
	for _, tt := range tests {
		got := ExecutionTable.Can(tt.from, tt.to, tt.role)
		if got != tt.want {
			t.Errorf("Can(%q, %q, %q) = %v, want %v", tt.from, tt.to, tt.role, got, tt.want)
		}
	}
}

func TestExecutionTable_BlockedNeedsNotes(t *testing.T) {
	_, err := ExecutionTable.Validate(ExecutionInProgress, ExecutionBlocked, role.UATTester, "")
	assert.ErrorIs(t, err, ErrNotesRequired)
}

func TestExecutionTable_VerifiedIsTerminal(t *testing.T) {
	assert.True(t, ExecutionTable.Terminal(ExecutionVerified))
	for _, r := range role.All {
		assert.Empty(t, ExecutionTable.Allowed(ExecutionVerified, r))
	}

	_, err := ExecutionTable.Validate(ExecutionVerified, ExecutionInProgress, role.UATTester, "redo")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = ExecutionTable.Validate(ExecutionVerified, ExecutionInProgress, role.UATManager, "redo")
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestExecutionStatus_Completes(t *testing.T) {
	assert.True(t, ExecutionPassed.Completes())
	assert.True(t, ExecutionFailed.Completes())
	assert.True(t, ExecutionBlocked.Completes())
	assert.False(t, ExecutionInProgress.Completes())
	assert.False(t, ExecutionVerified.Completes())
}
