// Response views for painted state.
//
// Persistence rows store the raw attribution columns, and for anonymous
// painters PlacedBy is the session token itself — the same value as the
// pw_session cookie. Serving that verbatim would hand every snapshot viewer
// a working credential. These views are the only cell/history shapes the
// read endpoints and the live feed serialize: placed_by goes through
// domain.Identity.Display(), so registered users appear by id and anonymous
// sessions as a truncated "anon-xxxxxxxx" label.
package handlers

import (
	"time"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
)

// CellView is one painted cell as served by snapshots and placement replies.
type CellView struct {
	X            int       `json:"x"`
	Y            int       `json:"y"`
	Color        string    `json:"color"`
	PlacedByKind string    `json:"placed_by_kind"`
	PlacedBy     string    `json:"placed_by"`
	PlacedAt     time.Time `json:"placed_at"`
}

// PlacementView is one history entry as served by the activity feed and the
// live stream. ID doubles as the before_id half of the activity cursor.
type PlacementView struct {
	ID           string    `json:"id"`
	CanvasID     string    `json:"canvas_id"`
	X            int       `json:"x"`
	Y            int       `json:"y"`
	Color        string    `json:"color"`
	PlacedByKind string    `json:"placed_by_kind"`
	PlacedBy     string    `json:"placed_by"`
	PlacedAt     time.Time `json:"placed_at"`
}

// attribution renders the public label for a stored (kind, id) pair.
func attribution(kind, id string) string {
	return domain.Identity{Kind: domain.IdentityKind(kind), ID: id}.Display()
}

func cellView(p *domain.Pixel) *CellView {
	if p == nil {
		return nil
	}
	return &CellView{
		X: p.X, Y: p.Y, Color: p.Color,
		PlacedByKind: p.PlacedByKind,
		PlacedBy:     attribution(p.PlacedByKind, p.PlacedBy),
		PlacedAt:     p.PlacedAt,
	}
}

func cellViews(ps []domain.Pixel) []CellView {
	out := make([]CellView, 0, len(ps))
	for i := range ps {
		out = append(out, *cellView(&ps[i]))
	}
	return out
}

func placementView(p domain.Placement) PlacementView {
	return PlacementView{
		ID: p.ID, CanvasID: p.CanvasID, X: p.X, Y: p.Y, Color: p.Color,
		PlacedByKind: p.PlacedByKind,
		PlacedBy:     attribution(p.PlacedByKind, p.PlacedBy),
		PlacedAt:     p.PlacedAt,
	}
}

func placementViews(ps []domain.Placement) []PlacementView {
	out := make([]PlacementView, 0, len(ps))
	for _, p := range ps {
		out = append(out, placementView(p))
	}
	return out
}
