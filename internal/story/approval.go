package story

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/tracewell/internal/audit"
	"github.com/zulandar/tracewell/internal/models"
	"github.com/zulandar/tracewell/internal/role"
	"github.com/zulandar/tracewell/internal/workflow"
	"gorm.io/gorm"
)

// Approvers may record internal review and stakeholder decisions.
var Approvers = []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager}

// approvalStatus is the story status in which each kind of approval is
// collected.
var approvalStatus = map[workflow.ApprovalKind]workflow.StoryStatus{
	workflow.ApprovalInternalReview: workflow.StoryInternalReview,
	workflow.ApprovalStakeholder:    workflow.StoryPendingClientReview,
}

// ApprovalOpts describes a review decision.
type ApprovalOpts struct {
	StoryID  string
	Kind     workflow.ApprovalKind
	Decision models.ApprovalDecision
	Notes    string
}

// RecordApproval appends an approval decision for the story's current
// review cycle. The story must be in the status that collects that kind of
// approval, and a rejection must say why.
func RecordApproval(gdb *gorm.DB, actor role.Actor, opts ApprovalOpts) (*models.Approval, error) {
	if actor.Anonymous() || !actor.Role.In(Approvers...) {
		return nil, fmt.Errorf("story: %s cannot record approvals: %w", actor.Role.DisplayName(), workflow.ErrUnauthorized)
	}
	want, ok := approvalStatus[opts.Kind]
	if !ok {
		return nil, fmt.Errorf("story: unknown approval kind %q: %w", opts.Kind, workflow.ErrInvalidInput)
	}
	switch opts.Decision {
	case models.DecisionApproved:
	case models.DecisionRejected:
		if strings.TrimSpace(opts.Notes) == "" {
			return nil, fmt.Errorf("story: rejection: %w", workflow.ErrNotesRequired)
		}
	default:
		return nil, fmt.Errorf("story: unknown decision %q: %w", opts.Decision, workflow.ErrInvalidInput)
	}

	var a models.Approval
	err := gdb.Transaction(func(tx *gorm.DB) error {
		s, err := Get(tx, opts.StoryID)
		if err != nil {
			return err
		}
		if s.Status != want {
			return fmt.Errorf("story: %s approval collected in %q, story is %q: %w",
				opts.Kind, want, s.Status, workflow.ErrIllegalTransition)
		}
		a = models.Approval{
			StoryID:      s.ID,
			Kind:         opts.Kind,
			Decision:     opts.Decision,
			ApproverID:   actor.ID,
			ApproverRole: string(actor.Role),
			Notes:        strings.TrimSpace(opts.Notes),
			CreatedAt:    time.Now(),
		}
		if err := tx.Create(&a).Error; err != nil {
			return fmt.Errorf("story: record approval: %w", err)
		}
		_, err = audit.Record(tx, actor, audit.Entry{
			EntityType: audit.EntityStory,
			EntityID:   s.ID,
			Action:     audit.ActionApproval,
			Notes:      a.Notes,
			Detail:     string(opts.Kind) + ":" + string(opts.Decision),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// requireApproval checks that the latest decision of kind recorded since the
// story entered its current status is an approval. Decisions from earlier
// review cycles do not count.
func requireApproval(tx *gorm.DB, s *models.Story, kind workflow.ApprovalKind) error {
	var latest models.Approval
	err := tx.Where("story_id = ? AND kind = ?", s.ID, kind).
		Order("created_at DESC, id DESC").First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("story: %s needs %s approval: %w", s.ID, kind, workflow.ErrApprovalRequired)
	}
	if err != nil {
		return fmt.Errorf("story: check approval for %s: %w", s.ID, err)
	}
	if latest.CreatedAt.Before(s.StatusChangedAt) {
		return fmt.Errorf("story: %s approval predates current review cycle: %w", kind, workflow.ErrApprovalRequired)
	}
	if latest.Decision != models.DecisionApproved {
		return fmt.Errorf("story: latest %s decision is %q: %w", kind, latest.Decision, workflow.ErrApprovalRequired)
	}
	return nil
}
