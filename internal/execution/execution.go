// Package execution manages test execution runs: assignment, step results,
// completion and independent verification.
//
// The role table in workflow.ExecutionTable is necessary but not sufficient.
// A UAT Tester may only act on executions assigned to them, and nobody may
// verify a result they were assigned or executed themselves. Admins and UAT
// Managers act on any execution, subject to the same verification rule.
package execution

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/tracewell/internal/audit"
	"github.com/zulandar/tracewell/internal/db"
	"github.com/zulandar/tracewell/internal/models"
	"github.com/zulandar/tracewell/internal/role"
	"github.com/zulandar/tracewell/internal/testcase"
	"github.com/zulandar/tracewell/internal/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Assigners may create executions.
var Assigners = []role.Role{role.Admin, role.UATManager}

// AssignOpts holds parameters for assigning a test case to a tester.
type AssignOpts struct {
	TestCaseID string
	AssignedTo string
}

// StepInput records the outcome of one step.
type StepInput struct {
	StepNumber   int                `json:"step_number"`
	Outcome      models.StepOutcome `json:"outcome"`
	ActualResult string             `json:"actual_result"`
}

// TransitionRequest asks to move an execution to a new status.
type TransitionRequest struct {
	ExecutionID     string
	To              workflow.ExecutionStatus
	Notes           string
	ExpectedVersion int
}

// Assign creates an execution of a ready test case for a tester.
func Assign(gdb *gorm.DB, actor role.Actor, opts AssignOpts) (*models.TestExecution, error) {
	if actor.Anonymous() || !actor.Role.In(Assigners...) {
		return nil, fmt.Errorf("execution: %s cannot assign tests: %w", actor.Role.DisplayName(), workflow.ErrUnauthorized)
	}
	if strings.TrimSpace(opts.AssignedTo) == "" {
		return nil, fmt.Errorf("execution: assignee is required: %w", workflow.ErrInvalidInput)
	}

	var ex models.TestExecution
	err := gdb.Transaction(func(tx *gorm.DB) error {
		tc, err := testcase.Get(tx, opts.TestCaseID)
		if err != nil {
			return err
		}
		if tc.Status != workflow.TestCaseReady {
			return fmt.Errorf("execution: test case %s is %q, must be %q: %w",
				tc.ID, tc.Status, workflow.TestCaseReady, workflow.ErrIllegalTransition)
		}
		ex = models.TestExecution{
			ID:         uuid.NewString(),
			TestCaseID: tc.ID,
			StoryID:    tc.StoryID,
			Status:     workflow.ExecutionTable.Initial(),
			Version:    1,
			AssignedTo: opts.AssignedTo,
			AssignedBy: actor.ID,
		}
		if err := tx.Create(&ex).Error; err != nil {
			return fmt.Errorf("execution: create: %w", err)
		}
		_, err = audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityExecution,
			EntityID:   ex.ID,
			Action:     audit.ActionAssign,
			To:         string(ex.Status),
			Detail:     "assigned_to=" + ex.AssignedTo,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ex, nil
}

// Get retrieves an execution with its step results in step order.
func Get(gdb *gorm.DB, id string) (*models.TestExecution, error) {
	var ex models.TestExecution
	if err := gdb.Preload("StepResults", func(q *gorm.DB) *gorm.DB {
		return q.Order("step_number ASC")
	}).Where("id = ?", id).First(&ex).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("execution: %s: %w", id, db.ErrNotFound)
		}
		return nil, fmt.Errorf("execution: get %s: %w", id, err)
	}
	return &ex, nil
}

// ListAssigned returns executions assigned to a user, newest first.
func ListAssigned(gdb *gorm.DB, userID string) ([]models.TestExecution, error) {
	var out []models.TestExecution
	if err := gdb.Where("assigned_to = ?", userID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("execution: list assigned to %s: %w", userID, err)
	}
	return out, nil
}

// AllowedTransitions returns the edges actor may take on ex, after the role
// table, ownership and verification independence are applied.
func AllowedTransitions(gdb *gorm.DB, ex *models.TestExecution, actor role.Actor) ([]workflow.Transition[workflow.ExecutionStatus], error) {
	out := []workflow.Transition[workflow.ExecutionStatus]{}
	if actor.Anonymous() || !mayAct(ex, actor) {
		return out, nil
	}
	for _, t := range workflow.ExecutionTable.Allowed(ex.Status, actor.Role) {
		if t.To == workflow.ExecutionVerified {
			ok, err := independent(gdb, ex, actor)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// RecordStep records or overwrites the outcome of one step while the
// execution is in progress.
func RecordStep(gdb *gorm.DB, actor role.Actor, executionID string, in StepInput) (*models.StepResult, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("execution: record step: %w", workflow.ErrUnauthorized)
	}
	if !in.Outcome.Valid() {
		return nil, fmt.Errorf("execution: unknown step outcome %q: %w", in.Outcome, workflow.ErrInvalidInput)
	}

	var res models.StepResult
	err := gdb.Transaction(func(tx *gorm.DB) error {
		ex, err := Get(tx, executionID)
		if err != nil {
			return err
		}
		if !mayAct(ex, actor) {
			return fmt.Errorf("execution: %s is assigned to %s: %w", ex.ID, ex.AssignedTo, workflow.ErrNotAssignee)
		}
		if ex.Status != workflow.ExecutionInProgress {
			return fmt.Errorf("execution: steps are recorded while %q, execution is %q: %w",
				workflow.ExecutionInProgress, ex.Status, workflow.ErrIllegalTransition)
		}
		var n int64
		if err := tx.Model(&models.TestStep{}).
			Where("test_case_id = ? AND number = ?", ex.TestCaseID, in.StepNumber).
			Count(&n).Error; err != nil {
			return fmt.Errorf("execution: check step: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("execution: test case %s has no step %d: %w", ex.TestCaseID, in.StepNumber, db.ErrNotFound)
		}

		res = models.StepResult{
			ExecutionID:  ex.ID,
			StepNumber:   in.StepNumber,
			Outcome:      in.Outcome,
			ActualResult: in.ActualResult,
			RecordedBy:   actor.ID,
			RecordedAt:   time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "execution_id"}, {Name: "step_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"outcome", "actual_result", "recorded_by", "recorded_at"}),
		}).Create(&res).Error; err != nil {
			return fmt.Errorf("execution: record step %d: %w", in.StepNumber, err)
		}
		_, err = audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityExecution,
			EntityID:   ex.ID,
			Action:     audit.ActionStep,
			Notes:      strings.TrimSpace(in.ActualResult),
			Detail:     fmt.Sprintf("step=%d outcome=%s", in.StepNumber, in.Outcome),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Transition moves an execution along a declared edge. On top of the role
// table it enforces ownership, step completeness on completion and
// verification independence.
func Transition(gdb *gorm.DB, actor role.Actor, req TransitionRequest) (*models.TestExecution, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("execution: transition %s: %w", req.ExecutionID, workflow.ErrUnauthorized)
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		cur, err := Get(tx, req.ExecutionID)
		if err != nil {
			return err
		}
		if req.ExpectedVersion != 0 && cur.Version != req.ExpectedVersion {
			return fmt.Errorf("execution: %s at v%d, client saw v%d: %w", cur.ID, cur.Version, req.ExpectedVersion, db.ErrConflict)
		}
		edge, err := workflow.ExecutionTable.Validate(cur.Status, req.To, actor.Role, req.Notes)
		if err != nil {
			return fmt.Errorf("execution: %s: %w", cur.ID, err)
		}
		if !mayAct(cur, actor) {
			return fmt.Errorf("execution: %s is assigned to %s: %w", cur.ID, cur.AssignedTo, workflow.ErrNotAssignee)
		}
		if req.To == workflow.ExecutionVerified {
			ok, err := independent(tx, cur, actor)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("execution: %s cannot verify their own execution: %w", actor.ID, workflow.ErrSegregationOfDuties)
			}
		}
		if req.To.Completes() {
			if err := checkSteps(tx, cur, req.To); err != nil {
				return err
			}
		}

		now := time.Now()
		fields := map[string]interface{}{}
		switch {
		case req.To == workflow.ExecutionInProgress:
			fields["executed_by"] = actor.ID
			if cur.StartedAt == nil {
				fields["started_at"] = now
			}
		case req.To.Completes():
			fields["completed_at"] = now
			fields["completed_by"] = actor.ID
		case req.To == workflow.ExecutionVerified:
			fields["verified_at"] = now
			fields["verified_by"] = actor.ID
		}
		if err := db.UpdateStatus(tx, db.StatusWrite{
			Table:           "test_executions",
			ID:              cur.ID,
			ExpectedStatus:  string(cur.Status),
			ExpectedVersion: cur.Version,
			NewStatus:       string(req.To),
			Fields:          fields,
		}); err != nil {
			return fmt.Errorf("execution: transition: %w", err)
		}

		_, err = audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityExecution,
			EntityID:   cur.ID,
			Action:     audit.ActionTransition,
			From:       string(cur.Status),
			To:         string(req.To),
			Notes:      strings.TrimSpace(req.Notes),
			Detail:     edge.Label,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return Get(gdb, req.ExecutionID)
}

// History returns the execution's audit trail, oldest first.
func History(gdb *gorm.DB, id string) ([]models.AuditEntry, error) {
	return audit.History(gdb, audit.EntityExecution, id)
}

// checkSteps requires a result for every step of the test case, and no
// failing or blocked result when completing as passed.
func checkSteps(tx *gorm.DB, ex *models.TestExecution, to workflow.ExecutionStatus) error {
	var numbers []int
	if err := tx.Model(&models.TestStep{}).
		Where("test_case_id = ?", ex.TestCaseID).
		Order("number ASC").
		Pluck("number", &numbers).Error; err != nil {
		return fmt.Errorf("execution: load steps: %w", err)
	}

	recorded := make(map[int]models.StepOutcome, len(ex.StepResults))
	for _, r := range ex.StepResults {
		recorded[r.StepNumber] = r.Outcome
	}
	var missing []int
	for _, n := range numbers {
		if _, ok := recorded[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("execution: steps %v have no result: %w", missing, workflow.ErrIncompleteSteps)
	}

	if to != workflow.ExecutionPassed {
		return nil
	}
	var bad []int
	for n, o := range recorded {
		if o == models.OutcomeFail || o == models.OutcomeBlocked {
			bad = append(bad, n)
		}
	}
	if len(bad) > 0 {
		sort.Ints(bad)
		return fmt.Errorf("execution: steps %v did not pass: %w", bad, workflow.ErrStepOutcomeMismatch)
	}
	return nil
}

// mayAct reports whether actor may operate on ex at all.
func mayAct(ex *models.TestExecution, actor role.Actor) bool {
	return actor.Role.TestingElevated() || ex.AssignedTo == actor.ID
}

// independent reports whether actor had no hand in producing ex's result:
// not its assignee, starter or completer, no recorded step result, and no
// step or status change in any earlier run.
func independent(tx *gorm.DB, ex *models.TestExecution, actor role.Actor) (bool, error) {
	switch actor.ID {
	case ex.AssignedTo, ex.ExecutedBy, ex.CompletedBy:
		return false, nil
	}
	for _, r := range ex.StepResults {
		if r.RecordedBy == actor.ID {
			return false, nil
		}
	}

	var n int64
	if err := tx.Model(&models.AuditEntry{}).
		Where("entity_type = ? AND entity_id = ? AND actor_id = ? AND action IN ?",
			audit.EntityExecution, ex.ID, actor.ID, []string{audit.ActionStep, audit.ActionTransition}).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("execution: check verifier history: %w", err)
	}
	return n == 0, nil
}
