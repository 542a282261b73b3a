package workflow

import "github.com/zulandar/tracewell/internal/role"

// TestCaseStatus is a test case's authoring state.
type TestCaseStatus string

const (
	TestCaseDraft      TestCaseStatus = "draft"
	TestCaseReady      TestCaseStatus = "ready"
	TestCaseDeprecated TestCaseStatus = "deprecated"
)

// TestCaseTable governs test case authoring. Promotion to ready is gated on
// human review, which only AI-generated cases can lack.
var TestCaseTable = NewTable[TestCaseStatus]("testcase", TestCaseDraft).
	On(TestCaseDraft, []role.Role{role.Admin, role.UATManager, role.UATTester},
		ApprovedEdge(TestCaseReady, "Mark Ready", ApprovalHumanReview),
		NotedEdge(TestCaseDeprecated, "Deprecate"),
	).
	On(TestCaseReady, []role.Role{role.Admin, role.UATManager},
		NotedEdge(TestCaseDraft, "Return to Draft"),
		NotedEdge(TestCaseDeprecated, "Deprecate"),
	).
	On(TestCaseDeprecated, []role.Role{role.Admin, role.UATManager},
		NotedEdge(TestCaseDraft, "Restore to Draft"),
	)

// TestCaseReviewers may mark an AI-generated test case as human reviewed.
var TestCaseReviewers = []role.Role{role.Admin, role.UATManager}
