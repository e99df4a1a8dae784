// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Canvas model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a canvas is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - CreateCanvas(ctx, db, c) -> error
//     Inserts a fully populated Canvas row (id, slug, dimensions, policy).
//
//   - GetCanvas(ctx, db, id) -> *domain.Canvas, error
//     Fetches a single canvas by ID, or ErrNotFound if missing.
//
//   - GetCanvasBySlug(ctx, db, slug) -> *domain.Canvas, error
//     Fetches a single canvas by its unique slug, or ErrNotFound.
//
//   - ListCanvases(ctx, db) -> []domain.Canvas, error
//     Returns all canvases, ordered by creation time descending.
//
//   - CountCanvases(ctx, db) -> (int64, error)
//     Returns the total number of canvases.
//
//   - SetCanvasActive(ctx, db, id, active) -> error
//     Toggles the is_active flag. Returns ErrNotFound if the canvas
//     does not exist.
//
// Usage:
//
//	// Within a service layer
//	cv, err := repo.GetCanvas(ctx, db, id)
//	if errors.Is(err, repo.ErrNotFound) {
//	    // handle missing
//	} else if err != nil {
//	    // handle DB failure
//	}
//
// This repository is designed to be wrapped by higher-level services
// (see services.CanvasService) which enforce business rules such as
// dimension bounds and policy validation.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateCanvas inserts a new Canvas row. The caller (service layer) is
// responsible for populating the ID, slug, dimensions and placement policy;
// the repository only persists.
//
// On success, it returns nil. On failure, it returns a DB error.
func CreateCanvas(ctx context.Context, db *gorm.DB, c *domain.Canvas) error {
	return db.WithContext(ctx).Create(c).Error
}

// GetCanvas fetches a single canvas by its ID. If the record does not
// exist, it returns ErrNotFound. On other DB errors, the raw error is
// returned.
func GetCanvas(ctx context.Context, db *gorm.DB, id string) (*domain.Canvas, error) {
	var c domain.Canvas
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCanvasBySlug fetches a single canvas by its unique slug. If the record
// does not exist, it returns ErrNotFound. On other DB errors, the raw error
// is returned.
func GetCanvasBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Canvas, error) {
	var c domain.Canvas
	err := db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCanvases returns all canvases ordered by creation time descending
// (most recent first). It returns an empty slice if none exist. On DB error,
// it returns the error.
func ListCanvases(ctx context.Context, db *gorm.DB) ([]domain.Canvas, error) {
	var out []domain.Canvas
	err := db.WithContext(ctx).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountCanvases returns the total number of canvases.
// On DB error, it returns the error.
func CountCanvases(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Canvas{}).
		Count(&total).Error
	return total, err
}

// SetCanvasActive toggles the is_active flag of the canvas identified by id.
// If no rows are affected (canvas missing), it returns ErrNotFound. On DB
// error, the raw error is returned.
func SetCanvasActive(ctx context.Context, db *gorm.DB, id string, active bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Canvas{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
