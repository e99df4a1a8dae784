// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Placement
// model, the append-only history log.
package repo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
)

// AppendPlacement inserts a new history row. Rows are immutable once written.
func AppendPlacement(db *gorm.DB, canvasID string, x, y int, color string, who domain.Identity, at time.Time) (*domain.Placement, error) {
	p := &domain.Placement{
		ID:           uuid.NewString(),
		CanvasID:     canvasID,
		X:            x,
		Y:            y,
		Color:        color,
		PlacedByKind: string(who.Kind),
		PlacedBy:     who.ID,
		PlacedAt:     at,
	}
	return p, db.Create(p).Error
}

// ListPlacements returns history rows newest first (PlacedAt DESC, ID DESC
// as a deterministic tie-break). A positive limit bounds the result. before,
// when non-nil, restricts to rows older than the given instant; beforeID,
// when also set, additionally admits rows sharing that exact instant whose id
// sorts below it, so paging never skips entries that collide on placed_at at
// a page boundary. A timestamp-only cursor stays valid but loses same-instant
// siblings of the boundary row.
func ListPlacements(db *gorm.DB, canvasID string, limit int, before *time.Time, beforeID string) ([]domain.Placement, error) {
	var out []domain.Placement
	q := db.Where("canvas_id = ?", canvasID).Order("placed_at DESC, id DESC")
	switch {
	case before != nil && beforeID != "":
		q = q.Where("placed_at < ? OR (placed_at = ? AND id < ?)", *before, *before, beforeID)
	case before != nil:
		q = q.Where("placed_at < ?", *before)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountPlacements reports the history length. Raw COUNT rather than
// Model().Count: GORM's model path can swallow a missing table into a
// zero count.
func CountPlacements(db *gorm.DB, canvasID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM placements WHERE canvas_id = ?", canvasID).Scan(&total).Error
	return total, err
}
