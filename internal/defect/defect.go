// Package defect tracks problems found during UAT through to closure.
package defect

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

// CreateOpts holds parameters for reporting a defect.
type CreateOpts struct {
	Title       string
	Description string
	Severity    models.Priority
	StoryID     string
	TestCaseID  string
	ExecutionID string
	AssignedTo  string
}

// ListFilters holds optional filters for listing defects.
type ListFilters struct {
	Status     workflow.DefectStatus
	Severity   models.Priority
	AssignedTo string
	StoryID    string
}

// TransitionRequest asks to move a defect to a new status.
type TransitionRequest struct {
	DefectID        string
	To              workflow.DefectStatus
	Notes           string
	ExpectedVersion int
}

// Create reports a new open defect. Any signed-in user may report one.
// When ExecutionID is set the story and test case are taken from the
// execution unless given explicitly.
func Create(gdb *gorm.DB, actor role.Actor, opts CreateOpts) (*models.Defect, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("defect: %w", workflow.ErrUnauthorized)
	}
	if strings.TrimSpace(opts.Title) == "" {
		return nil, fmt.Errorf("defect: title is required: %w", workflow.ErrInvalidInput)
	}
	if opts.Severity == "" {
		opts.Severity = models.PriorityMedium
	}
	if !opts.Severity.Valid() {
		return nil, fmt.Errorf("defect: invalid severity %q: %w", opts.Severity, workflow.ErrInvalidInput)
	}
	if opts.AssignedTo != "" && !actor.Role.In(workflow.DefectAssigners...) {
		return nil, fmt.Errorf("defect: %s cannot assign defects: %w", actor.Role.DisplayName(), workflow.ErrUnauthorized)
	}

	d := models.Defect{
		ID:          uuid.NewString(),
		Title:       opts.Title,
		Description: opts.Description,
		Severity:    opts.Severity,
		Status:      workflow.DefectTable.Initial(),
		Version:     1,
		AssignedTo:  opts.AssignedTo,
		ReportedBy:  actor.ID,
		StoryID:     opts.StoryID,
		TestCaseID:  opts.TestCaseID,
		ExecutionID: opts.ExecutionID,
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		if d.ExecutionID != "" {
			var ex models.TestExecution
			if err := tx.Where("id = ?", d.ExecutionID).First(&ex).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("defect: execution %s: %w", d.ExecutionID, db.ErrNotFound)
				}
				return fmt.Errorf("defect: load execution: %w", err)
			}
			if d.TestCaseID == "" {
				d.TestCaseID = ex.TestCaseID
			}
			if d.StoryID == "" {
				d.StoryID = ex.StoryID
			}
		}
		if err := tx.Create(&d).Error; err != nil {
			return fmt.Errorf("defect: create: %w", err)
		}
		_, err := audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityDefect,
			EntityID:   d.ID,
			Action:     audit.ActionCreate,
			To:         string(d.Status),
			Detail:     "severity=" + string(d.Severity),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Get retrieves a defect by ID.
func Get(gdb *gorm.DB, id string) (*models.Defect, error) {
	var d models.Defect
	if err := gdb.Where("id = ?", id).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("defect: %s: %w", id, db.ErrNotFound)
		}
		return nil, fmt.Errorf("defect: get %s: %w", id, err)
	}
	return &d, nil
}

// List returns defects matching the filters, newest first.
func List(gdb *gorm.DB, filters ListFilters) ([]models.Defect, error) {
	q := gdb.Model(&models.Defect{})
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Severity != "" {
		q = q.Where("severity = ?", filters.Severity)
	}
	if filters.AssignedTo != "" {
		q = q.Where("assigned_to = ?", filters.AssignedTo)
	}
	if filters.StoryID != "" {
		q = q.Where("story_id = ?", filters.StoryID)
	}
	var out []models.Defect
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("defect: list: %w", err)
	}
	return out, nil
}

// AllowedTransitions returns the edges actor may take from the defect's
// current status.
func AllowedTransitions(d *models.Defect, actor role.Actor) []workflow.Transition[workflow.DefectStatus] {
	if actor.Anonymous() {
		return []workflow.Transition[workflow.DefectStatus]{}
	}
	return workflow.DefectTable.Allowed(d.Status, actor.Role)
}

// Transition moves a defect along a declared edge.
func Transition(gdb *gorm.DB, actor role.Actor, req TransitionRequest) (*models.Defect, error) {
	if actor.Anonymous() {
		return nil, fmt.Errorf("defect: transition %s: %w", req.DefectID, workflow.ErrUnauthorized)
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		cur, err := Get(tx, req.DefectID)
		if err != nil {
			return err
		}
		if req.ExpectedVersion != 0 && cur.Version != req.ExpectedVersion {
			return fmt.Errorf("defect: %s at v%d, client saw v%d: %w", cur.ID, cur.Version, req.ExpectedVersion, db.ErrConflict)
		}
		edge, err := workflow.DefectTable.Validate(cur.Status, req.To, actor.Role, req.Notes)
		if err != nil {
			return fmt.Errorf("defect: %s: %w", cur.ID, err)
		}

		now := time.Now()
		fields := map[string]interface{}{}
		switch req.To {
		case workflow.DefectFixed:
			fields["fixed_at"] = now
		case workflow.DefectClosed:
			fields["closed_at"] = now
		case workflow.DefectOpen:
			fields["fixed_at"] = nil
		}
		if err := db.UpdateStatus(tx, db.StatusWrite{
			Table:           "defects",
			ID:              cur.ID,
			ExpectedStatus:  string(cur.Status),
			ExpectedVersion: cur.Version,
			NewStatus:       string(req.To),
			Fields:          fields,
		}); err != nil {
			return fmt.Errorf("defect: transition: %w", err)
		}
		_, err = audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityDefect,
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
	return Get(gdb, req.DefectID)
}

// Assign sets the defect's assignee in any status. Assigning the current
// assignee again leaves the row untouched but is still recorded.
func Assign(gdb *gorm.DB, actor role.Actor, defectID, assignee string) (*models.Defect, error) {
	if actor.Anonymous() || !actor.Role.In(workflow.DefectAssigners...) {
		return nil, fmt.Errorf("defect: %s cannot assign defects: %w", actor.Role.DisplayName(), workflow.ErrUnauthorized)
	}
	if strings.TrimSpace(assignee) == "" {
		return nil, fmt.Errorf("defect: assignee is required: %w", workflow.ErrInvalidInput)
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		cur, err := Get(tx, defectID)
		if err != nil {
			return err
		}
		detail := fmt.Sprintf("assigned_to: %q -> %q", cur.AssignedTo, assignee)
		if cur.AssignedTo == assignee {
			detail = fmt.Sprintf("assigned_to: %q (unchanged)", assignee)
		} else {
			result := tx.Model(&models.Defect{}).
				Where("id = ? AND version = ?", cur.ID, cur.Version).
				Updates(map[string]interface{}{
					"assigned_to": assignee,
					"version":     gorm.Expr("version + 1"),
				})
			if result.Error != nil {
				return fmt.Errorf("defect: assign %s: %w", cur.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("defect: assign %s: %w", cur.ID, db.ErrConflict)
			}
		}
		_, err = audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityDefect,
			EntityID:   cur.ID,
			Action:     audit.ActionAssign,
			Detail:     detail,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return Get(gdb, defectID)
}

// History returns the defect's audit trail, oldest first.
func History(gdb *gorm.DB, id string) ([]models.AuditEntry, error) {
	return audit.History(gdb, audit.EntityDefect, id)
}
