// Package story provides user story lifecycle operations.
package story

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

// CreateOpts holds parameters for creating a new story.
type CreateOpts struct {
	Title              string
	Description        string
	AcceptanceCriteria string
	Priority           models.Priority
	OwnerID            string
}

// UpdateOpts holds descriptive fields to change. Nil fields are left as is.
// Status is never changed here; use [Transition].
type UpdateOpts struct {
	Title              *string
	Description        *string
	AcceptanceCriteria *string
	Priority           *models.Priority
	OwnerID            *string
	ExpectedVersion    int
}

// ListFilters holds optional filters for listing stories.
type ListFilters struct {
	Status   workflow.StoryStatus
	OwnerID  string
	Priority models.Priority
}

// TransitionRequest asks to move a story to a new status.
type TransitionRequest struct {
	StoryID string
	To      workflow.StoryStatus
	Notes   string
	// ExpectedVersion is the version the client last saw. Zero skips the
	// check; the write is still conditional on the version read here.
	ExpectedVersion int
}

// Create creates a new story in the initial status. Only roles allowed to
// act on a draft may create one.
func Create(gdb *gorm.DB, actor role.Actor, opts CreateOpts) (*models.Story, error) {
	if err := canAuthor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.Title) == "" {
		return nil, fmt.Errorf("story: title is required: %w", workflow.ErrInvalidInput)
	}
	if opts.Priority == "" {
		opts.Priority = models.PriorityMedium
	}
	if !opts.Priority.Valid() {
		return nil, fmt.Errorf("story: invalid priority %q: %w", opts.Priority, workflow.ErrInvalidInput)
	}
	if opts.OwnerID == "" {
		opts.OwnerID = actor.ID
	}

	now := time.Now()
	s := models.Story{
		ID:                 uuid.NewString(),
		Title:              opts.Title,
		Description:        opts.Description,
		AcceptanceCriteria: opts.AcceptanceCriteria,
		Priority:           opts.Priority,
		Status:             workflow.StoryTable.Initial(),
		Version:            1,
		OwnerID:            opts.OwnerID,
		AuthorID:           actor.ID,
		StatusChangedAt:    now,
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&s).Error; err != nil {
			return fmt.Errorf("story: create: %w", err)
		}
		_, err := audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityStory,
			EntityID:   s.ID,
			Action:     audit.ActionCreate,
			To:         string(s.Status),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get retrieves a story by ID with its approvals.
func Get(gdb *gorm.DB, id string) (*models.Story, error) {
	var s models.Story
	if err := gdb.Preload("Approvals", func(q *gorm.DB) *gorm.DB {
		return q.Order("created_at ASC, id ASC")
	}).Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("story: %s: %w", id, db.ErrNotFound)
		}
		return nil, fmt.Errorf("story: get %s: %w", id, err)
	}
	return &s, nil
}

// List returns stories matching the given filters, newest first.
func List(gdb *gorm.DB, filters ListFilters) ([]models.Story, error) {
	q := gdb.Model(&models.Story{})
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.OwnerID != "" {
		q = q.Where("owner_id = ?", filters.OwnerID)
	}
	if filters.Priority != "" {
		q = q.Where("priority = ?", filters.Priority)
	}

	var stories []models.Story
	if err := q.Order("created_at DESC").Find(&stories).Error; err != nil {
		return nil, fmt.Errorf("story: list: %w", err)
	}
	return stories, nil
}

// Update changes descriptive fields, bumping the version. The write is
// conditional on the version so concurrent edits surface as db.ErrConflict.
func Update(gdb *gorm.DB, actor role.Actor, id string, opts UpdateOpts) (*models.Story, error) {
	if err := canAuthor(actor); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if opts.Title != nil {
		if strings.TrimSpace(*opts.Title) == "" {
			return nil, fmt.Errorf("story: title is required: %w", workflow.ErrInvalidInput)
		}
		updates["title"] = *opts.Title
	}
	if opts.Description != nil {
		updates["description"] = *opts.Description
	}
	if opts.AcceptanceCriteria != nil {
		updates["acceptance_criteria"] = *opts.AcceptanceCriteria
	}
	if opts.Priority != nil {
		if !opts.Priority.Valid() {
			return nil, fmt.Errorf("story: invalid priority %q: %w", *opts.Priority, workflow.ErrInvalidInput)
		}
		updates["priority"] = *opts.Priority
	}
	if opts.OwnerID != nil {
		updates["owner_id"] = *opts.OwnerID
	}
	if len(updates) == 0 {
		return Get(gdb, id)
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		cur, err := Get(tx, id)
		if err != nil {
			return err
		}
		if opts.ExpectedVersion != 0 && cur.Version != opts.ExpectedVersion {
			return fmt.Errorf("story: %s at v%d, client saw v%d: %w", id, cur.Version, opts.ExpectedVersion, db.ErrConflict)
		}
		updates["version"] = gorm.Expr("version + 1")
		result := tx.Model(&models.Story{}).
			Where("id = ? AND version = ?", id, cur.Version).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("story: update %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("story: update %s: %w", id, db.ErrConflict)
		}
		_, err = audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityStory,
			EntityID:   id,
			Action:     audit.ActionUpdate,
			Detail:     strings.Join(sortedKeys(updates), ","),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return Get(gdb, id)
}

// AllowedTransitions returns the edges actor may take from the story's
// current status.
func AllowedTransitions(s *models.Story, actor role.Actor) []workflow.Transition[workflow.StoryStatus] {
	if actor.Anonymous() {
		return []workflow.Transition[workflow.StoryStatus]{}
	}
	return workflow.StoryTable.Allowed(s.Status, actor.Role)
}

// Transition moves a story along a declared edge. The current status is
// re-read inside the transaction, the edge is validated for the actor's
// role, required notes and approvals are checked, and the status write is
// conditional on the status and version just read.
func Transition(gdb *gorm.DB, actor role.Actor, req TransitionRequest) (*models.Story, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("story: transition %s: %w", req.StoryID, workflow.ErrUnauthorized)
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		cur, err := Get(tx, req.StoryID)
		if err != nil {
			return err
		}
		if req.ExpectedVersion != 0 && cur.Version != req.ExpectedVersion {
			return fmt.Errorf("story: %s at v%d, client saw v%d: %w", cur.ID, cur.Version, req.ExpectedVersion, db.ErrConflict)
		}

		edge, err := workflow.StoryTable.Validate(cur.Status, req.To, actor.Role, req.Notes)
		if err != nil {
			return fmt.Errorf("story: %s: %w", cur.ID, err)
		}
		if edge.RequiresApproval {
			if err := requireApproval(tx, cur, edge.ApprovalKind); err != nil {
				return err
			}
		}

		now := time.Now()
		fields := map[string]interface{}{"status_changed_at": now}
		if req.To == workflow.StoryApproved {
			fields["approved_at"] = now
			fields["approved_by"] = actor.ID
		}
		if err := db.UpdateStatus(tx, db.StatusWrite{
			Table:           "stories",
			ID:              cur.ID,
			ExpectedStatus:  string(cur.Status),
			ExpectedVersion: cur.Version,
			NewStatus:       string(req.To),
			Fields:          fields,
		}); err != nil {
			return fmt.Errorf("story: transition: %w", err)
		}

		_, err = audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityStory,
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
	return Get(gdb, req.StoryID)
}

// History returns the story's audit trail, oldest first.
func History(gdb *gorm.DB, id string) ([]models.AuditEntry, error) {
	return audit.History(gdb, audit.EntityStory, id)
}

func canAuthor(actor role.Actor) error {
	if actor.Anonymous() {
		return fmt.Errorf("story: %w", workflow.ErrUnauthorized)
	}
	cfg, _ := workflow.StoryTable.Config(workflow.StoryTable.Initial())
	if !actor.Role.In(cfg.AllowedRoles...) {
		return fmt.Errorf("story: %s cannot author stories: %w", actor.Role.DisplayName(), workflow.ErrUnauthorized)
	}
	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for _, k := range []string{"title", "description", "acceptance_criteria", "priority", "owner_id"} {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}
