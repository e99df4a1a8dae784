// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency represents a recorded result of a previously processed
// placement, keyed by (subject, canvas_id, key). It enables safe retries of
// the place-pixel operation: a replayed request returns the originally
// committed placement without painting again or consuming quota twice.
type Idempotency struct {
	ID          string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Subject     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_subject_canvas_key,priority:1"`
	CanvasID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_subject_canvas_key,priority:2"`
	Key         string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_subject_canvas_key,priority:3"`
	PlacementID string    `gorm:"type:TEXT NOT NULL"`
	Status      int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt   time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt   time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
