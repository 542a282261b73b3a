package models

import (
	"time"

	"github.com/zulandar/tracewell/internal/workflow"
)

// TestCase is a UAT test script attached to a story.
type TestCase struct {
	ID            string                  `gorm:"primaryKey;size:36" json:"id"`
	StoryID       string                  `gorm:"size:36;index" json:"story_id"`
	Title         string                  `gorm:"not null" json:"title"`
	Preconditions string                  `gorm:"type:text" json:"preconditions"`
	Status        workflow.TestCaseStatus `gorm:"size:16;not null;index" json:"status"`
	Version       int                     `gorm:"not null;default:1" json:"version"`
	IsAIGenerated bool                    `gorm:"default:false" json:"is_ai_generated"`
	HumanReviewed bool                    `gorm:"default:false" json:"human_reviewed"`
	ReviewedBy    string                  `gorm:"size:64" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time              `json:"reviewed_at,omitempty"`
	AuthorID      string                  `gorm:"size:64" json:"author_id"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`

	Steps []TestStep `gorm:"foreignKey:TestCaseID" json:"steps,omitempty"`
}

// TestStep is one numbered action of a test case.
type TestStep struct {
	TestCaseID     string `gorm:"primaryKey;size:36" json:"-"`
	Number         int    `gorm:"primaryKey" json:"number"`
	Action         string `gorm:"type:text;not null" json:"action"`
	ExpectedResult string `gorm:"type:text" json:"expected_result"`
}
