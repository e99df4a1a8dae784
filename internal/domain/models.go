// Package domain defines the persistence models for canvases, pixels,
// placements, and quota windows. These types are mapped with GORM and form
// the core data layer of the pixel war application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Canvas represents one shared drawing surface. Dimensions are fixed at
// creation time; only the activity flag and display name may change later.
// Placement policy (window limits and cooldowns, split by identity tier) is
// stored on the row so operators can tune boards independently.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Slug: URL-safe unique handle, derived from the name at creation.
//   - Name: human-readable canvas title.
//   - Width / Height: grid dimensions in cells; immutable after creation.
//   - IsActive: placements are accepted only while true; reads always work.
//   - AnonWindowLimit / RegWindowLimit: placements allowed per rolling window.
//   - AnonCooldownSeconds / RegCooldownSeconds: minimum gap between two
//     placements by the same identity; 0 disables the cooldown.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retired boards stay for audit).
type Canvas struct {
	ID                  string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Slug                string         `json:"slug"       gorm:"type:varchar(64);not null;uniqueIndex:ux_canvas_slug"`
	Name                string         `json:"name"       gorm:"type:varchar(255);not null;default:'Untitled canvas'"`
	Width               int            `json:"width"      gorm:"not null"`
	Height              int            `json:"height"     gorm:"not null"`
	IsActive            bool           `json:"is_active"  gorm:"not null;default:true"`
	AnonWindowLimit     int            `json:"anon_window_limit" gorm:"not null"`
	RegWindowLimit      int            `json:"reg_window_limit"  gorm:"not null"`
	AnonCooldownSeconds int            `json:"anon_cooldown_seconds" gorm:"not null;default:0"`
	RegCooldownSeconds  int            `json:"reg_cooldown_seconds"  gorm:"not null;default:0"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Canvas.
func (Canvas) TableName() string { return "canvases" }

// Pixel is the current state of a single grid cell. Exactly one row exists
// per (canvas, x, y) that has ever been painted; later placements overwrite
// it in place (last write wins). Rows are never deleted individually.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - CanvasID: owning canvas (part of the cell's unique key).
//   - X / Y: zero-based cell coordinates inside the canvas bounds.
//   - Color: canonical lowercase "#rrggbb" value.
//   - PlacedByKind / PlacedBy: tagged identity of the last painter. The kind
//     column travels with the id so registered users and anonymous sessions
//     can never be confused even if their raw identifiers collide.
//   - PlacedAt: when the current color was applied.
type Pixel struct {
	ID           string    `json:"id"        gorm:"type:char(36);primaryKey"`
	CanvasID     string    `json:"canvas_id" gorm:"type:char(36);not null;uniqueIndex:ux_canvas_cell,priority:1"`
	X            int       `json:"x"         gorm:"not null;uniqueIndex:ux_canvas_cell,priority:2"`
	Y            int       `json:"y"         gorm:"not null;uniqueIndex:ux_canvas_cell,priority:3"`
	Color        string    `json:"color"     gorm:"type:varchar(7);not null"`
	PlacedByKind string    `json:"placed_by_kind" gorm:"type:varchar(8);not null;check:placed_by_kind IN ('user','anon')"`
	PlacedBy     string    `json:"placed_by" gorm:"type:varchar(64);not null"`
	PlacedAt     time.Time `json:"placed_at" gorm:"not null"`

	// Canvas is the parent board. Cells are cascade-deleted only when the
	// whole canvas is hard-removed.
	Canvas Canvas `json:"-" gorm:"foreignKey:CanvasID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Pixel.
func (Pixel) TableName() string { return "pixels" }

// Placement is one entry in the append-only history log. A row is written
// for every accepted placement, including ones that repainted an already
// colored cell, and is never updated afterwards.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - CanvasID: owning canvas, indexed together with PlacedAt for the
//     newest-first activity queries.
//   - X / Y / Color: the placement exactly as committed.
//   - PlacedByKind / PlacedBy: tagged identity of the painter.
//   - PlacedAt: commit timestamp, shared with the pixel row written in the
//     same transaction.
type Placement struct {
	ID           string    `json:"id"        gorm:"type:char(36);primaryKey"`
	CanvasID     string    `json:"canvas_id" gorm:"type:char(36);not null;index:idx_canvas_history,priority:1"`
	X            int       `json:"x"         gorm:"not null"`
	Y            int       `json:"y"         gorm:"not null"`
	Color        string    `json:"color"     gorm:"type:varchar(7);not null"`
	PlacedByKind string    `json:"placed_by_kind" gorm:"type:varchar(8);not null;check:placed_by_kind IN ('user','anon')"`
	PlacedBy     string    `json:"placed_by" gorm:"type:varchar(64);not null"`
	PlacedAt     time.Time `json:"placed_at" gorm:"not null;index:idx_canvas_history,priority:2"`

	// Canvas is the parent board; history goes with it on hard removal.
	Canvas Canvas `json:"-" gorm:"foreignKey:CanvasID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Placement.
func (Placement) TableName() string { return "placements" }

// QuotaWindow tracks one identity's placement budget on one canvas over the
// current rolling window. The row is keyed by the canonical subject string
// ("user:<id>" or "anon:<token>"), never by a bare user id, so anonymous
// sessions each get their own budget instead of pooling into a shared row.
//
// Counting is done with guarded UPDATEs inside the placement transaction;
// the struct itself carries no concurrency rules beyond the unique key.
type QuotaWindow struct {
	ID              string     `gorm:"type:TEXT NOT NULL;primaryKey"`
	CanvasID        string     `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_canvas_subject,priority:1"`
	Subject         string     `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_canvas_subject,priority:2"`
	IdentityKind    string     `gorm:"type:TEXT NOT NULL"`
	CountInWindow   int        `gorm:"type:INTEGER NOT NULL;default:0"`
	WindowStartedAt time.Time  `gorm:"type:DATETIME NOT NULL"`
	LastPlacedAt    *time.Time `gorm:"type:DATETIME"`
	UpdatedAt       time.Time  `gorm:"type:DATETIME NOT NULL"`
}

// TableName implements the GORM tabler interface.
func (QuotaWindow) TableName() string { return "quota_windows" }
