// Package testcase manages UAT test scripts and their authoring lifecycle.
package testcase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/tracewell/internal/audit"
	"github.com/zulandar/tracewell/internal/db"
	"github.com/zulandar/tracewell/internal/models"
	"github.com/zulandar/tracewell/internal/role"
	"github.com/zulandar/tracewell/internal/workflow"
	"gorm.io/gorm"
)

// StepInput is one step supplied when creating a test case.
type StepInput struct {
	Action         string `json:"action"`
	ExpectedResult string `json:"expected_result"`
}

// CreateOpts holds parameters for creating a test case.
type CreateOpts struct {
	StoryID       string
	Title         string
	Preconditions string
	IsAIGenerated bool
	Steps         []StepInput
}

// TransitionRequest asks to move a test case to a new status.
type TransitionRequest struct {
	TestCaseID      string
	To              workflow.TestCaseStatus
	Notes           string
	ExpectedVersion int
}

// Create creates a draft test case with steps numbered from 1.
func Create(gdb *gorm.DB, actor role.Actor, opts CreateOpts) (*models.TestCase, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("testcase: %w", workflow.ErrUnauthorized)
	}
	cfg, _ := workflow.TestCaseTable.Config(workflow.TestCaseTable.Initial())
	if !actor.Role.In(cfg.AllowedRoles...) {
		return nil, fmt.Errorf("testcase: %s cannot author test cases: %w", actor.Role.DisplayName(), workflow.ErrUnauthorized)
	}
	if strings.TrimSpace(opts.Title) == "" {
		return nil, fmt.Errorf("testcase: title is required: %w", workflow.ErrInvalidInput)
	}
	if len(opts.Steps) == 0 {
		return nil, fmt.Errorf("testcase: at least one step is required: %w", workflow.ErrInvalidInput)
	}

	tc := models.TestCase{
		ID:            uuid.NewString(),
		StoryID:       opts.StoryID,
		Title:         opts.Title,
		Preconditions: opts.Preconditions,
		Status:        workflow.TestCaseTable.Initial(),
		Version:       1,
		IsAIGenerated: opts.IsAIGenerated,
		AuthorID:      actor.ID,
	}
	for i, s := range opts.Steps {
		if strings.TrimSpace(s.Action) == "" {
			return nil, fmt.Errorf("testcase: step %d: action is required: %w", i+1, workflow.ErrInvalidInput)
		}
		tc.Steps = append(tc.Steps, models.TestStep{
			TestCaseID:     tc.ID,
			Number:         i + 1,
			Action:         s.Action,
			ExpectedResult: s.ExpectedResult,
		})
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		if opts.StoryID != "" {
			var n int64
			if err := tx.Model(&models.Story{}).Where("id = ?", opts.StoryID).Count(&n).Error; err != nil {
				return fmt.Errorf("testcase: check story: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("testcase: story %s: %w", opts.StoryID, db.ErrNotFound)
			}
		}
		if err := tx.Create(&tc).Error; err != nil {
			return fmt.Errorf("testcase: create: %w", err)
		}
		_, err := audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityTestCase,
			EntityID:   tc.ID,
			Action:     audit.ActionCreate,
			To:         string(tc.Status),
			Detail:     fmt.Sprintf("steps=%d ai=%t", len(tc.Steps), tc.IsAIGenerated),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &tc, nil
}

// Get retrieves a test case with its steps in order.
func Get(gdb *gorm.DB, id string) (*models.TestCase, error) {
	var tc models.TestCase
	if err := gdb.Preload("Steps", func(q *gorm.DB) *gorm.DB {
		return q.Order("number ASC")
	}).Where("id = ?", id).First(&tc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("testcase: %s: %w", id, db.ErrNotFound)
		}
		return nil, fmt.Errorf("testcase: get %s: %w", id, err)
	}
	return &tc, nil
}

// ListForStory returns the test cases attached to a story.
func ListForStory(gdb *gorm.DB, storyID string) ([]models.TestCase, error) {
	var cases []models.TestCase
	if err := gdb.Where("story_id = ?", storyID).Order("created_at ASC").Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("testcase: list for story %s: %w", storyID, err)
	}
	return cases, nil
}

// MarkReviewed records that a person has reviewed the test case. Marking an
// already reviewed case again is a no-op.
func MarkReviewed(gdb *gorm.DB, actor role.Actor, id string) (*models.TestCase, error) {
	if actor.Anonymous() || !actor.Role.In(workflow.TestCaseReviewers...) {
		return nil, fmt.Errorf("testcase: %s cannot review test cases: %w", actor.Role.DisplayName(), workflow.ErrUnauthorized)
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		tc, err := Get(tx, id)
		if err != nil {
			return err
		}
		if tc.HumanReviewed {
			return nil
		}
		now := time.Now()
		result := tx.Model(&models.TestCase{}).
			Where("id = ? AND version = ?", id, tc.Version).
			Updates(map[string]interface{}{
				"human_reviewed": true,
				"reviewed_by":    actor.ID,
				"reviewed_at":    now,
				"version":        gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return fmt.Errorf("testcase: review %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("testcase: review %s: %w", id, db.ErrConflict)
		}
		_, err = audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityTestCase,
			EntityID:   id,
			Action:     audit.ActionReview,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return Get(gdb, id)
}

// AllowedTransitions returns the edges actor may take from the test case's
// current status.
func AllowedTransitions(tc *models.TestCase, actor role.Actor) []workflow.Transition[workflow.TestCaseStatus] {
	if actor.Anonymous() {
		return []workflow.Transition[workflow.TestCaseStatus]{}
	}
	return workflow.TestCaseTable.Allowed(tc.Status, actor.Role)
}

// Transition moves a test case along a declared edge. Promotion to ready
// requires an AI-generated case to have been reviewed.
func Transition(gdb *gorm.DB, actor role.Actor, req TransitionRequest) (*models.TestCase, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("testcase: transition %s: %w", req.TestCaseID, workflow.ErrUnauthorized)
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		cur, err := Get(tx, req.TestCaseID)
		if err != nil {
			return err
		}
		if req.ExpectedVersion != 0 && cur.Version != req.ExpectedVersion {
			return fmt.Errorf("testcase: %s at v%d, client saw v%d: %w", cur.ID, cur.Version, req.ExpectedVersion, db.ErrConflict)
		}
		edge, err := workflow.TestCaseTable.Validate(cur.Status, req.To, actor.Role, req.Notes)
		if err != nil {
			return fmt.Errorf("testcase: %s: %w", cur.ID, err)
		}
		if edge.RequiresApproval && edge.ApprovalKind == workflow.ApprovalHumanReview {
			if cur.IsAIGenerated && !cur.HumanReviewed {
				return fmt.Errorf("testcase: %s is AI generated and not reviewed: %w", cur.ID, workflow.ErrApprovalRequired)
			}
		}

		if err := db.UpdateStatus(tx, db.StatusWrite{
			Table:           "test_cases",
			ID:              cur.ID,
			ExpectedStatus:  string(cur.Status),
			ExpectedVersion: cur.Version,
			NewStatus:       string(req.To),
		}); err != nil {
			return fmt.Errorf("testcase: transition: %w", err)
		}
		_, err = audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityTestCase,
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
	return Get(gdb, req.TestCaseID)
}

// History returns the test case's audit trail, oldest first.
func History(gdb *gorm.DB, id string) ([]models.AuditEntry, error) {
	return audit.History(gdb, audit.EntityTestCase, id)
}
