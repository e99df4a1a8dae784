// Canvas HTTP handlers.
//
// This file exposes REST endpoints for canvas resources:
//   - GET /canvases        (list boards)
//   - GET /canvases/{id}   (full snapshot, ETag support)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
	"github.com/tbourn/go-pixelwar-backend/internal/http/middleware"
	"github.com/tbourn/go-pixelwar-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// CanvasService defines canvas lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CanvasService interface {
	// Create provisions a new board with fixed dimensions and policy.
	Create(ctx context.Context, name string, width, height int, policy services.PlacementPolicy) (*domain.Canvas, error)
	// Get fetches a canvas by ID.
	Get(ctx context.Context, id string) (*domain.Canvas, error)
	// List returns all canvases, newest first.
	List(ctx context.Context) ([]domain.Canvas, error)
	// SetActive toggles whether the board accepts placements.
	SetActive(ctx context.Context, id string, active bool) error
}

// PlacementService defines the write side of the grid: the atomic placement
// pipeline and the read-only quota probe.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PlacementService interface {
	// Place commits one pixel for the identity, or explains the refusal.
	Place(ctx context.Context, canvasID string, x, y int, color string, who domain.Identity, idemKey string) (*services.PlacementResult, error)
	// Remaining reports the identity's current budget without consuming it.
	Remaining(ctx context.Context, canvasID string, who domain.Identity) (*services.QuotaStatus, error)
}

// SyncService defines the consistent read side: snapshots, the activity feed,
// and the cheap aggregate stats backing conditional responses.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SyncService interface {
	// Snapshot returns canvas metadata plus every painted cell, point in time.
	Snapshot(ctx context.Context, canvasID string) (*services.Snapshot, error)
	// Activity returns up to limit history entries newest first, older than
	// the optional (before, beforeID) cursor.
	Activity(ctx context.Context, canvasID string, limit int, before *time.Time, beforeID string) (*services.ActivityPage, error)
	// Stats returns the history length and latest placement time (for ETags).
	Stats(ctx context.Context, canvasID string) (int64, *time.Time, error)
}

// FeedSubscriber registers live listeners for one canvas. The returned cleanup
// must be safe to call more than once.
type FeedSubscriber interface {
	Subscribe(ctx context.Context, canvasID string) (<-chan domain.Placement, func())
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for canvases, placements, activity, quota,
// and the live feed. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	canvasSvc CanvasService
	placeSvc  PlacementService
	syncSvc   SyncService
	feed      FeedSubscriber

	// operatorToken guards the /admin endpoints; empty disables them.
	operatorToken string
}

// New constructs and returns a Handlers instance bound to the given services.
// feed may be nil when the live endpoint is not mounted.
func New(canvasSvc CanvasService, placeSvc PlacementService, syncSvc SyncService, feed FeedSubscriber, operatorToken string) *Handlers {
	return &Handlers{
		canvasSvc:     canvasSvc,
		placeSvc:      placeSvc,
		syncSvc:       syncSvc,
		feed:          feed,
		operatorToken: operatorToken,
	}
}

// identity extracts the resolved Identity from Gin context (set by upstream
// middleware). If the resolver did not run, it falls back to "X-User-ID"
// header (tests use it), then to the session cookie, and finally returns a
// zero Identity, which services reject.
func identity(c *gin.Context) domain.Identity {
	if who, ok := middleware.IdentityFrom(c); ok {
		return who
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader(middleware.HeaderUserID)); h != "" {
			return domain.RegisteredIdentity(h)
		}
		if cookie, err := c.Request.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
			return domain.AnonymousIdentity(cookie.Value)
		}
	}
	return domain.Identity{}
}

//
// DTOs
//

// SnapshotResponse is the full point-in-time state of one canvas.
type SnapshotResponse struct {
	Canvas *domain.Canvas `json:"canvas"`
	// Cells lists every painted cell; unpainted cells are omitted.
	Cells []CellView `json:"cells"`
}

// ListCanvasesResponse wraps the board list.
type ListCanvasesResponse struct {
	Canvases []domain.Canvas `json:"canvases"`
}

//
// Handlers
//

// ListCanvases godoc
// @ID          listCanvases
// @Summary     List canvases
// @Description Returns all boards, newest first, including inactive ones.
// @Tags        Canvases
// @Produce     json
//
// @Success     200  {object}  handlers.ListCanvasesResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /canvases [get]
func (h *Handlers) ListCanvases(c *gin.Context) {
	items, err := h.canvasSvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListCanvasesResponse{Canvases: items})
}

// GetCanvas godoc
// @ID          getCanvas
// @Summary     Get a canvas snapshot
// @Description Returns the canvas metadata plus every painted cell as one consistent view. Supports weak ETag via If-None-Match and may return 304. Works on inactive canvases.
// @Tags        Canvases
// @Produce     json
//
// @Param       id             path    string  true  "Canvas ID (UUID)"  format(uuid)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"canvas:abc:12:99\")
//
// @Success     200  {object} handlers.SnapshotResponse
// @Header      200  {string} ETag "Weak ETag for current canvas state"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Canvas not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /canvases/{id} [get]
func (h *Handlers) GetCanvas(c *gin.Context) {
	ctx := c.Request.Context()
	canvasID := c.Param("id")

	// ETag pre-check (best effort): cheap aggregate instead of the full scan.
	// The count comes from the append-only history log, so every placement —
	// overwrites included — changes the tag. A zero count is ambiguous: an
	// untouched board and an unknown id both report it, so no tag is issued
	// and Snapshot below settles existence.
	if count, maxTS, err := h.syncSvc.Stats(ctx, canvasID); err == nil && count > 0 {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"canvas:%s:%d:%d"`, canvasID, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	snap, err := h.syncSvc.Snapshot(ctx, canvasID)
	if err != nil {
		if errors.Is(err, services.ErrCanvasNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "canvas not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, SnapshotResponse{Canvas: snap.Canvas, Cells: cellViews(snap.Cells)})
}
