// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the QuotaWindow
// model, the per-(canvas, identity) placement budget.
//
// The window row is the single hot, contended resource in the system: many
// parallel requests from one identity race to consume from it. Correctness
// therefore rests on two rules, both enforced here:
//
//  1. The row key is the canonical tagged subject ("user:<id>" / "anon:<token>"),
//     never a nullable user reference, so distinct anonymous sessions always
//     hold distinct rows.
//  2. Consumption is a single guarded UPDATE whose WHERE clause re-checks the
//     limit (and cooldown) at write time. RowsAffected tells the caller
//     whether the budget was actually taken. There is no read-compare-write
//     in application code.
//
// All functions expect to run on the placement pipeline's transaction handle
// so the increment commits or rolls back together with the cell write and the
// history append.
//
// Functions:
//
//   - EnsureQuotaWindow(ctx, db, canvasID, who, now) -> error
//     Lazily creates the window row on first attempt (no-op when present).
//
//   - GetQuotaWindow(ctx, db, canvasID, subject) -> *domain.QuotaWindow, error
//     Loads the row, or ErrNotFound.
//
//   - ResetQuotaWindowIfExpired(ctx, db, canvasID, subject, windowLen, now) -> error
//     Zeroes the counter and advances window_started_at when the window has
//     fully elapsed. Guarded by window_started_at so concurrent resets are
//     harmless.
//
//   - IncrementQuotaWindow(ctx, db, canvasID, subject, limit, cooldown, now) -> (bool, error)
//     The atomic increment-if-below-limit. Returns false when the budget is
//     exhausted or the cooldown has not elapsed; nothing is written in that
//     case.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
)

// EnsureQuotaWindow lazily creates the window row for (canvasID, subject) with
// a zero counter starting at now. When the row already exists the insert is a
// no-op, so the call is safe on every placement attempt.
func EnsureQuotaWindow(ctx context.Context, db *gorm.DB, canvasID string, who domain.Identity, now time.Time) error {
	w := &domain.QuotaWindow{
		ID:              uuid.NewString(),
		CanvasID:        canvasID,
		Subject:         who.Key(),
		IdentityKind:    string(who.Kind),
		CountInWindow:   0,
		WindowStartedAt: now,
		UpdatedAt:       now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "canvas_id"}, {Name: "subject"}},
		DoNothing: true,
	}).Create(w).Error
}

// GetQuotaWindow loads the window row for (canvasID, subject), or ErrNotFound.
func GetQuotaWindow(ctx context.Context, db *gorm.DB, canvasID, subject string) (*domain.QuotaWindow, error) {
	var w domain.QuotaWindow
	err := db.WithContext(ctx).
		Where("canvas_id = ? AND subject = ?", canvasID, subject).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ResetQuotaWindowIfExpired zeroes the counter and restarts the window at now
// when at least windowLen has elapsed since window_started_at. The cutoff in
// the WHERE clause makes the reset idempotent under concurrency: whichever
// transaction lands first performs it, later ones match zero rows.
func ResetQuotaWindowIfExpired(ctx context.Context, db *gorm.DB, canvasID, subject string, windowLen time.Duration, now time.Time) error {
	cutoff := now.Add(-windowLen)
	return db.WithContext(ctx).
		Model(&domain.QuotaWindow{}).
		Where("canvas_id = ? AND subject = ?", canvasID, subject).
		Where("window_started_at <= ?", cutoff).
		Updates(map[string]any{
			"count_in_window":   0,
			"window_started_at": now,
			"updated_at":        now,
		}).Error
}

// IncrementQuotaWindow atomically takes one unit of budget. The UPDATE only
// matches while count_in_window is still below limit and, when cooldown is
// positive, while last_placed_at is at least cooldown in the past. It returns
// true when the unit was taken (RowsAffected == 1) and false when the request
// must be denied; the row is untouched in the denied case.
func IncrementQuotaWindow(ctx context.Context, db *gorm.DB, canvasID, subject string, limit int, cooldown time.Duration, now time.Time) (bool, error) {
	q := db.WithContext(ctx).
		Model(&domain.QuotaWindow{}).
		Where("canvas_id = ? AND subject = ?", canvasID, subject).
		Where("count_in_window < ?", limit)
	if cooldown > 0 {
		q = q.Where("last_placed_at IS NULL OR last_placed_at <= ?", now.Add(-cooldown))
	}
	res := q.Updates(map[string]any{
		"count_in_window": gorm.Expr("count_in_window + 1"),
		"last_placed_at":  now,
		"updated_at":      now,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
