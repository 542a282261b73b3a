package models

import (
	"time"

	"github.com/zulandar/tracewell/internal/workflow"
)

// Priority ranks stories and defects.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Story is a user story moving through the approval workflow.
type Story struct {
	ID                 string               `gorm:"primaryKey;size:36" json:"id"`
	Title              string               `gorm:"not null" json:"title"`
	Description        string               `gorm:"type:text" json:"description"`
	AcceptanceCriteria string               `gorm:"type:text" json:"acceptance_criteria"`
	Priority           Priority             `gorm:"size:16;default:medium" json:"priority"`
	Status             workflow.StoryStatus `gorm:"size:32;not null;index" json:"status"`
	Version            int                  `gorm:"not null;default:1" json:"version"`
	OwnerID            string               `gorm:"size:64;index" json:"owner_id"`
	AuthorID           string               `gorm:"size:64" json:"author_id"`
	StatusChangedAt    time.Time            `json:"status_changed_at"`
	ApprovedAt         *time.Time           `json:"approved_at,omitempty"`
	ApprovedBy         string               `gorm:"size:64" json:"approved_by,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`

	Approvals []Approval `gorm:"foreignKey:StoryID" json:"approvals,omitempty"`
}
