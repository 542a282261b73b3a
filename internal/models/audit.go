package models

import "time"

// AuditEntry is one immutable record of a change to a tracked entity.
type AuditEntry struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType string    `gorm:"size:16;not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   string    `gorm:"size:36;not null;index:idx_audit_entity" json:"entity_id"`
	Action     string    `gorm:"size:16;not null" json:"action"`
	FromStatus string    `gorm:"size:32" json:"from_status,omitempty"`
	ToStatus   string    `gorm:"size:32" json:"to_status,omitempty"`
	ActorID    string    `gorm:"size:64;not null" json:"actor_id"`
	ActorRole  string    `gorm:"size:32" json:"actor_role"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`
	Detail     string    `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
