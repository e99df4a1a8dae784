// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Pixel model,
// the authoritative current state of every painted cell.
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving validation (bounds, color format, canvas activity)
// to the services package.
//
// Error semantics:
//   - GetPixel returns ErrNotFound when the cell has never been painted.
//   - On other DB errors (connectivity, constraints, etc.), the raw gorm
//     error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
)

// UpsertPixel writes the current value of one cell, overwriting any previous
// value (last write wins). It returns the previous Pixel, or nil when the
// cell was painted for the first time.
//
// The read-then-upsert pair is only consistent when executed on a transaction
// handle; the placement pipeline always calls it inside the commit transaction.
func UpsertPixel(ctx context.Context, db *gorm.DB, canvasID string, x, y int, color string, who domain.Identity, at time.Time) (*domain.Pixel, error) {
	var prev *domain.Pixel
	var existing domain.Pixel
	err := db.WithContext(ctx).
		Where("canvas_id = ? AND x = ? AND y = ?", canvasID, x, y).
		First(&existing).Error
	switch {
	case err == nil:
		cp := existing
		prev = &cp
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first paint at this coordinate
	default:
		return nil, err
	}

	px := &domain.Pixel{
		ID:           uuid.NewString(),
		CanvasID:     canvasID,
		X:            x,
		Y:            y,
		Color:        color,
		PlacedByKind: string(who.Kind),
		PlacedBy:     who.ID,
		PlacedAt:     at,
	}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "canvas_id"}, {Name: "x"}, {Name: "y"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"color", "placed_by_kind", "placed_by", "placed_at",
		}),
	}).Create(px).Error
	if err != nil {
		return nil, err
	}
	return prev, nil
}

// GetPixel fetches the current value of one cell, or ErrNotFound if the cell
// has never been painted.
func GetPixel(ctx context.Context, db *gorm.DB, canvasID string, x, y int) (*domain.Pixel, error) {
	var px domain.Pixel
	err := db.WithContext(ctx).
		Where("canvas_id = ? AND x = ? AND y = ?", canvasID, x, y).
		First(&px).Error
	if err != nil {
		return nil, err
	}
	return &px, nil
}

// ListPixels returns every painted cell of a canvas in deterministic order
// (y ASC, x ASC). Cells that were never painted have no row and are simply
// absent from the result.
func ListPixels(ctx context.Context, db *gorm.DB, canvasID string) ([]domain.Pixel, error) {
	var out []domain.Pixel
	err := db.WithContext(ctx).
		Where("canvas_id = ?", canvasID).
		Order("y ASC, x ASC").
		Find(&out).Error
	return out, err
}

// CountPixels counts painted cells. Raw COUNT rather than Model().Count:
// GORM's model path can swallow a missing table into a zero count.
func CountPixels(ctx context.Context, db *gorm.DB, canvasID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM pixels WHERE canvas_id = ?", canvasID).
		Scan(&total).Error
	return total, err
}
