package models

import (
	"time"

	"github.com/zulandar/tracewell/internal/workflow"
)

// ApprovalDecision is the outcome recorded by an approver.
type ApprovalDecision string

const (
	DecisionApproved ApprovalDecision = "approved"
	DecisionRejected ApprovalDecision = "rejected"
)

// Approval is an append-only review decision on a story.
type Approval struct {
	ID           uint                  `gorm:"primaryKey;autoIncrement" json:"id"`
	StoryID      string                `gorm:"size:36;not null;index" json:"story_id"`
	Kind         workflow.ApprovalKind `gorm:"size:32;not null" json:"kind"`
	Decision     ApprovalDecision      `gorm:"size:16;not null" json:"decision"`
	ApproverID   string                `gorm:"size:64;not null" json:"approver_id"`
	ApproverRole string                `gorm:"size:32" json:"approver_role"`
	Notes        string                `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time             `gorm:"index" json:"created_at"`
}
