// Package services – SyncService
//
// This file implements SyncService, the read-only side of the canvas: full
// point-in-time snapshots for polling clients and the bounded recent-activity
// feed. Both run their queries inside one transaction so concurrent writers
// can never produce a torn view, and both keep working while a canvas is
// deactivated.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
	"github.com/tbourn/go-pixelwar-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Activity feed limits: requests are clamped into [1, MaxActivityLimit] with
// DefaultActivityLimit applied when the client sends nothing.
const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 500
)

// Snapshot is a consistent full-state view of one canvas: metadata plus every
// painted cell. Unpainted cells are absent from the map.
type Snapshot struct {
	Canvas *domain.Canvas
	Cells  []domain.Pixel
}

// ActivityPage is one newest-first page of the history log. NextBefore and
// NextBeforeID, when set, form the cursor for the following (older) page; the
// id half disambiguates rows that share the boundary timestamp.
type ActivityPage struct {
	Placements   []domain.Placement
	NextBefore   *time.Time
	NextBeforeID string
}

// SyncService serves consistent reads over the canvas store and history log.
type SyncService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Snapshot returns the canvas metadata and all painted cells as one
// point-in-time view. Works on inactive canvases.
func (s *SyncService) Snapshot(ctx context.Context, canvasID string) (*Snapshot, error) {
	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, "Snapshot",
		trace.WithAttributes(attribute.String("canvas.id", canvasID)),
	)
	defer span.End()

	var snap Snapshot
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		canvas, err := repo.GetCanvas(ctx, tx, canvasID)
		if err != nil {
			return err
		}
		cells, err := repo.ListPixels(ctx, tx, canvasID)
		if err != nil {
			return err
		}
		snap.Canvas = canvas
		snap.Cells = cells
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCanvasNotFound
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("cells", len(snap.Cells)))
	return &snap, nil
}

// Activity returns up to limit history entries newest first, optionally
// restricted to rows older than the (before, beforeID) cursor. The limit is
// clamped into [1, MaxActivityLimit]; limit <= 0 uses DefaultActivityLimit.
func (s *SyncService) Activity(ctx context.Context, canvasID string, limit int, before *time.Time, beforeID string) (*ActivityPage, error) {
	tr := otel.Tracer("services/SyncService")
	ctx, span := tr.Start(ctx, "Activity",
		trace.WithAttributes(
			attribute.String("canvas.id", canvasID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}

	// Canvas existence is part of the contract (404 vs. empty feed).
	if _, err := repo.GetCanvas(ctx, s.DB, canvasID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCanvasNotFound
		}
		return nil, err
	}

	rows, err := repo.ListPlacements(s.DB.WithContext(ctx), canvasID, limit, before, beforeID)
	if err != nil {
		return nil, err
	}
	page := &ActivityPage{Placements: rows}
	if len(rows) == limit {
		last := rows[len(rows)-1]
		ts := last.PlacedAt
		page.NextBefore = &ts
		page.NextBeforeID = last.ID
	}
	return page, nil
}

// Stats returns cheap aggregate metadata used by the HTTP layer for weak
// ETags: the history-log length and the most recent placement time. The log
// length is monotonic, so an overwrite that leaves the painted-cell count
// unchanged still produces a fresh tag.
func (s *SyncService) Stats(ctx context.Context, canvasID string) (int64, *time.Time, error) {
	return repo.PlacementsStats(ctx, s.DB, canvasID)
}
