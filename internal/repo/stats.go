// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
)

// PlacementsStats returns aggregate metadata for a canvas's history log: the
// total number of rows and the maximum PlacedAt timestamp among those rows.
// The history count is monotonic (overwrites append too), which is what makes
// it usable as an ETag component.
//
// It executes two lightweight queries against the placements table scoped to
// the provided canvasID. When the canvas has no history, the returned count
// is 0 and maxPlacedAt is nil.
//
// Return values:
//   - count:       total history rows for canvasID
//   - maxPlacedAt: pointer to the greatest PlacedAt, or nil if no rows
//   - err:         database error, if any
func PlacementsStats(ctx context.Context, db *gorm.DB, canvasID string) (count int64, maxPlacedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Placement{}).Where("canvas_id = ?", canvasID)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest placed_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		PlacedAt time.Time
	}
	if err = q.Select("placed_at").Order("placed_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.PlacedAt, nil
}
