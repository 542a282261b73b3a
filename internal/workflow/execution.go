package workflow

import "github.com/zulandar/tracewell/internal/role"

// ExecutionStatus is a test execution's lifecycle state.
type ExecutionStatus string

const (
	ExecutionAssigned   ExecutionStatus = "assigned"
	ExecutionInProgress ExecutionStatus = "in_progress"
	ExecutionPassed     ExecutionStatus = "passed"
	ExecutionFailed     ExecutionStatus = "failed"
	ExecutionBlocked    ExecutionStatus = "blocked"
	ExecutionVerified   ExecutionStatus = "verified"
)

var testers = []role.Role{role.Admin, role.UATManager, role.UATTester}

// ExecutionTable governs test executions. Testers appear in the role sets,
// but the action layer additionally restricts them to executions assigned to
// them, and keeps verification away from whoever executed the test.
var ExecutionTable = NewTable[ExecutionStatus]("execution", ExecutionAssigned).
	On(ExecutionAssigned, testers,
		Edge(ExecutionInProgress, "Start Testing"),
	).
	On(ExecutionInProgress, testers,
		Edge(ExecutionPassed, "Complete as Passed"),
		Edge(ExecutionFailed, "Complete as Failed"),
		NotedEdge(ExecutionBlocked, "Complete as Blocked"),
	).
	On(ExecutionPassed, []role.Role{role.Admin, role.UATManager},
		Edge(ExecutionVerified, "Verify Result"),
	).
	On(ExecutionFailed, testers,
		Edge(ExecutionInProgress, "Re-test"),
	).
	On(ExecutionBlocked, testers,
		Edge(ExecutionInProgress, "Resume Testing"),
	).
	On(ExecutionVerified, []role.Role{role.Admin, role.UATManager})

// Completes reports whether moving to s finishes an execution run.
func (s ExecutionStatus) Completes() bool {
	return s == ExecutionPassed || s == ExecutionFailed || s == ExecutionBlocked
}
