package models

import (
	"reflect"
	"strings"
	"testing"
)

// column describes what a model field must look like to the schema: gorm tag
// fragments it carries and, when set, its Go type.
type column struct {
	field string
	tags  []string
	typ   string
}

func checkColumns(t *testing.T, model any, cols []column) {
	t.Helper()
	rt := reflect.TypeOf(model)
	for _, c := range cols {
		sf, ok := rt.FieldByName(c.field)
		if !ok {
			t.Errorf("%s has no field %s", rt.Name(), c.field)
			continue
		}
		tag := sf.Tag.Get("gorm")
		for _, want := range c.tags {
			if !strings.Contains(tag, want) {
				t.Errorf("%s.%s: gorm:%q lacks %q", rt.Name(), c.field, tag, want)
			}
		}
		if c.typ != "" && sf.Type.String() != c.typ {
			t.Errorf("%s.%s is %s, want %s", rt.Name(), c.field, sf.Type, c.typ)
		}
	}
}

func TestStory_Columns(t *testing.T) {
	checkColumns(t, Story{}, []column{
		{field: "ID", tags: []string{"primaryKey", "size:36"}},
		{field: "Title", tags: []string{"not null"}},
		{field: "Description", tags: []string{"type:text"}},
		{field: "AcceptanceCriteria", tags: []string{"type:text"}},
		{field: "Priority", tags: []string{"default:medium"}},
		{field: "Status", tags: []string{"not null", "index"}, typ: "workflow.StoryStatus"},
		{field: "Version", tags: []string{"default:1"}, typ: "int"},
		{field: "OwnerID", tags: []string{"index"}},
		{field: "Approvals", tags: []string{"foreignKey:StoryID"}, typ: "[]models.Approval"},
		{field: "StatusChangedAt", typ: "time.Time"},
		{field: "ApprovedAt", typ: "*time.Time"},
	})
}

func TestApproval_Columns(t *testing.T) {
	checkColumns(t, Approval{}, []column{
		{field: "ID", tags: []string{"autoIncrement"}},
		{field: "StoryID", tags: []string{"not null", "index"}},
		{field: "Kind", tags: []string{"not null"}, typ: "workflow.ApprovalKind"},
		{field: "Decision", tags: []string{"not null"}, typ: "models.ApprovalDecision"},
		{field: "ApproverID", tags: []string{"not null"}},
		{field: "CreatedAt", tags: []string{"index"}},
	})
}

func TestTestCase_Columns(t *testing.T) {
	checkColumns(t, TestCase{}, []column{
		{field: "ID", tags: []string{"primaryKey"}},
		{field: "StoryID", tags: []string{"index"}},
		{field: "Status", tags: []string{"index"}, typ: "workflow.TestCaseStatus"},
		{field: "Version", tags: []string{"default:1"}},
		{field: "IsAIGenerated", tags: []string{"default:false"}},
		{field: "HumanReviewed", tags: []string{"default:false"}},
		{field: "Steps", tags: []string{"foreignKey:TestCaseID"}, typ: "[]models.TestStep"},
		{field: "ReviewedAt", typ: "*time.Time"},
	})
}

func TestTestStep_CompositeKey(t *testing.T) {
	checkColumns(t, TestStep{}, []column{
		{field: "TestCaseID", tags: []string{"primaryKey"}},
		{field: "Number", tags: []string{"primaryKey"}},
		{field: "Action", tags: []string{"not null"}},
	})
}

func TestTestExecution_Columns(t *testing.T) {
	checkColumns(t, TestExecution{}, []column{
		{field: "ID", tags: []string{"primaryKey"}},
		{field: "TestCaseID", tags: []string{"not null"}},
		{field: "AssignedTo", tags: []string{"not null", "index"}},
		{field: "Status", tags: []string{"index"}, typ: "workflow.ExecutionStatus"},
		{field: "Version", tags: []string{"default:1"}},
		{field: "StepResults", tags: []string{"foreignKey:ExecutionID"}},
		{field: "StartedAt", typ: "*time.Time"},
		{field: "CompletedAt", typ: "*time.Time"},
		{field: "CompletedBy", tags: []string{"size:64"}, typ: "string"},
		{field: "VerifiedAt", typ: "*time.Time"},
	})
}

func TestStepResult_CompositeKey(t *testing.T) {
	checkColumns(t, StepResult{}, []column{
		{field: "ExecutionID", tags: []string{"primaryKey"}},
		{field: "StepNumber", tags: []string{"primaryKey"}},
		{field: "Outcome", tags: []string{"not null"}, typ: "models.StepOutcome"},
	})
}

func TestDefect_Columns(t *testing.T) {
	checkColumns(t, Defect{}, []column{
		{field: "ID", tags: []string{"primaryKey"}},
		{field: "Title", tags: []string{"not null"}},
		{field: "Severity", tags: []string{"default:medium"}, typ: "models.Priority"},
		{field: "Status", tags: []string{"index"}, typ: "workflow.DefectStatus"},
		{field: "Version", tags: []string{"default:1"}},
		{field: "AssignedTo", tags: []string{"index"}},
		{field: "FixedAt", typ: "*time.Time"},
		{field: "ClosedAt", typ: "*time.Time"},
	})
}

func TestAuditEntry_Columns(t *testing.T) {
	checkColumns(t, AuditEntry{}, []column{
		{field: "ID", tags: []string{"autoIncrement"}},
		{field: "EntityType", tags: []string{"index:idx_audit_entity"}},
		{field: "EntityID", tags: []string{"index:idx_audit_entity"}},
		{field: "Action", tags: []string{"not null"}},
		{field: "ActorID", tags: []string{"not null"}},
		{field: "Notes", tags: []string{"type:text"}},
	})
}

func TestPriority_Valid(t *testing.T) {
	for _, p := range []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow} {
		if !p.Valid() {
			t.Errorf("%q.Valid() = false", p)
		}
	}
	for _, p := range []Priority{"", "urgent", "MEDIUM"} {
		if p.Valid() {
			t.Errorf("%q.Valid() = true", p)
		}
	}
}

func TestStepOutcome_Valid(t *testing.T) {
	for _, o := range []StepOutcome{OutcomePass, OutcomeFail, OutcomeBlocked, OutcomeSkip} {
		if !o.Valid() {
			t.Errorf("%q.Valid() = false", o)
		}
	}
	if StepOutcome("passed").Valid() {
		t.Error(`"passed".Valid() = true`)
	}
}
