// Package db provides connection, migration and conditional-write helpers.
package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNotFound means the row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the row changed since the caller read it. The caller
	// should re-read and let the user retry; the write must not be repeated
	// blindly.
	ErrConflict = errors.New("changed by someone else, please refresh")
)

// StatusWrite is a compare-and-swap status change on one row.
type StatusWrite struct {
	Table           string
	ID              string
	ExpectedStatus  string
	ExpectedVersion int
	NewStatus       string
	// Fields are extra columns written with the status change.
	Fields map[string]interface{}
}

// UpdateStatus sets the row's status and increments its version only if
// the row still has ExpectedStatus and ExpectedVersion. Zero affected rows
// yields ErrNotFound when the row is gone and ErrConflict otherwise.
func UpdateStatus(tx *gorm.DB, w StatusWrite) error {
	updates := make(map[string]interface{}, len(w.Fields)+2)
	for k, v := range w.Fields {
		updates[k] = v
	}
	updates["status"] = w.NewStatus
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now()

	result := tx.Table(w.Table).
		Where("id = ? AND status = ? AND version = ?", w.ID, w.ExpectedStatus, w.ExpectedVersion).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("db: update %s %s: %w", w.Table, w.ID, result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := tx.Table(w.Table).Where("id = ?", w.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("db: check %s %s: %w", w.Table, w.ID, err)
	}
	if count == 0 {
		return fmt.Errorf("db: %s %s: %w", w.Table, w.ID, ErrNotFound)
	}
	return fmt.Errorf("db: %s %s expected %q v%d: %w", w.Table, w.ID, w.ExpectedStatus, w.ExpectedVersion, ErrConflict)
}
