// Package audit records the append-only change history of tracked entities.
//
// Entries are only ever inserted. Notes captured with a transition stay as
// written; there is no update or delete operation.
package audit

import (
	"fmt"
	"time"

	"github.com/zulandar/tracewell/internal/models"
	"github.com/zulandar/tracewell/internal/role"
	"gorm.io/gorm"
)

// Entity types.
const (
	EntityStory     = "story"
	EntityTestCase  = "testcase"
	EntityExecution = "execution"
	EntityDefect    = "defect"
)

// Actions.
const (
	ActionCreate     = "create"
	ActionTransition = "transition"
	ActionAssign     = "assign"
	ActionReview     = "review"
	ActionApproval   = "approval"
	ActionStep       = "step"
	ActionUpdate     = "update"
)

// Entry describes one change to append.
type Entry struct {
	EntityType string
	EntityID   string
	Action     string
	From       string
	To         string
	Notes      string
	Detail     string
}

// Record appends an entry attributed to actor. Pass the transaction that
// performs the change so the entry commits or rolls back with it.
func Record(tx *gorm.DB, actor role.Actor, e Entry) (*models.AuditEntry, error) {
	if e.EntityType == "" || e.EntityID == "" {
		return nil, fmt.Errorf("audit: entity type and id are required")
	}
	if e.Action == "" {
		return nil, fmt.Errorf("audit: action is required")
	}
	if actor.Anonymous() {
		return nil, fmt.Errorf("audit: actor id is required")
	}

	entry := models.AuditEntry{
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		FromStatus: e.From,
		ToStatus:   e.To,
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Notes:      e.Notes,
		Detail:     e.Detail,
		CreatedAt:  time.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("audit: record %s %s %s: %w", e.Action, e.EntityType, e.EntityID, err)
	}
	return &entry, nil
}

// History returns every entry for an entity, oldest first.
func History(db *gorm.DB, entityType, entityID string) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	if err := db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("audit: history %s %s: %w", entityType, entityID, err)
	}
	return entries, nil
}
