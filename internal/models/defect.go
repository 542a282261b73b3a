package models

import (
	"time"

	"github.com/zulandar/tracewell/internal/workflow"
)

// Defect is a problem found during UAT.
type Defect struct {
	ID          string                `gorm:"primaryKey;size:36" json:"id"`
	Title       string                `gorm:"not null" json:"title"`
	Description string                `gorm:"type:text" json:"description"`
	Severity    Priority              `gorm:"size:16;not null;default:medium" json:"severity"`
	Status      workflow.DefectStatus `gorm:"size:16;not null;index" json:"status"`
	Version     int                   `gorm:"not null;default:1" json:"version"`
	AssignedTo  string                `gorm:"size:64;index" json:"assigned_to,omitempty"`
	ReportedBy  string                `gorm:"size:64" json:"reported_by"`
	StoryID     string                `gorm:"size:36;index" json:"story_id,omitempty"`
	TestCaseID  string                `gorm:"size:36" json:"test_case_id,omitempty"`
	ExecutionID string                `gorm:"size:36" json:"execution_id,omitempty"`
	FixedAt     *time.Time            `json:"fixed_at,omitempty"`
	ClosedAt    *time.Time            `json:"closed_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}
