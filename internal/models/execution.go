package models

import (
	"time"

	"github.com/zulandar/tracewell/internal/workflow"
)

// StepOutcome is the recorded result of a single test step.
type StepOutcome string

const (
	OutcomePass    StepOutcome = "pass"
	OutcomeFail    StepOutcome = "fail"
	OutcomeBlocked StepOutcome = "blocked"
	OutcomeSkip    StepOutcome = "skip"
)

// Valid reports whether o is a known step outcome.
func (o StepOutcome) Valid() bool {
	switch o {
	case OutcomePass, OutcomeFail, OutcomeBlocked, OutcomeSkip:
		return true
	}
	return false
}

// TestExecution is one tester's run of a test case.
type TestExecution struct {
	ID          string                   `gorm:"primaryKey;size:36" json:"id"`
	TestCaseID  string                   `gorm:"size:36;not null;index" json:"test_case_id"`
	StoryID     string                   `gorm:"size:36;index" json:"story_id"`
	Status      workflow.ExecutionStatus `gorm:"size:16;not null;index" json:"status"`
	Version     int                      `gorm:"not null;default:1" json:"version"`
	AssignedTo  string                   `gorm:"size:64;not null;index" json:"assigned_to"`
	AssignedBy  string                   `gorm:"size:64" json:"assigned_by"`
	ExecutedBy  string                   `gorm:"size:64" json:"executed_by,omitempty"`
	CompletedBy string                   `gorm:"size:64" json:"completed_by,omitempty"`
	VerifiedBy  string                   `gorm:"size:64" json:"verified_by,omitempty"`
	StartedAt   *time.Time               `json:"started_at,omitempty"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
	VerifiedAt  *time.Time               `json:"verified_at,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`

	StepResults []StepResult `gorm:"foreignKey:ExecutionID" json:"step_results,omitempty"`
}

// StepResult is the outcome recorded for one step of an execution.
type StepResult struct {
	ExecutionID  string      `gorm:"primaryKey;size:36" json:"-"`
	StepNumber   int         `gorm:"primaryKey" json:"step_number"`
	Outcome      StepOutcome `gorm:"size:16;not null" json:"outcome"`
	ActualResult string      `gorm:"type:text" json:"actual_result,omitempty"`
	RecordedBy   string      `gorm:"size:64" json:"recorded_by"`
	RecordedAt   time.Time   `json:"recorded_at"`
}
