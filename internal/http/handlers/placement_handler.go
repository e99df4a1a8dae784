// Placement HTTP handlers.
//
// This file exposes the write side of the grid plus the quota probe:
//   - POST /canvases/{id}/pixels  (place one pixel)
//   - GET  /canvases/{id}/quota   (remaining budget, read-only)
//
// The placement handler is deliberately thin: every rule (bounds, color,
// activity flag, quota, idempotent replay) lives in the service; the handler
// only translates outcomes into statuses, codes, and the Retry-After header.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-pixelwar-backend/internal/http/middleware"
	"github.com/tbourn/go-pixelwar-backend/internal/services"
)

//
// DTOs
//

// PlacePixelRequest is the JSON payload for placing one pixel. Coordinates are
// zero-based; pointers distinguish "missing" from a legitimate 0.
type PlacePixelRequest struct {
	X *int `json:"x" binding:"required" example:"10"`
	Y *int `json:"y" binding:"required" example:"20"`
	// Color is a hex value; #abc shorthand is accepted and canonicalized.
	Color string `json:"color" binding:"required" example:"#ff0000"`
}

// PlacePixelResponse reports a committed (or replayed) placement.
type PlacePixelResponse struct {
	Pixel *CellView `json:"pixel"`
	// Previous is the overwritten cell state; null on first paint.
	Previous *CellView `json:"previous,omitempty"`
	// Remaining is the leftover window budget after this placement.
	Remaining int `json:"remaining"`
	// WindowResetsInSeconds is how long until the current window expires.
	WindowResetsInSeconds int `json:"window_resets_in_seconds"`
	// Replayed is true when an Idempotency-Key matched a stored result.
	Replayed bool `json:"replayed,omitempty"`
}

// QuotaResponse reports the caller's current budget on one canvas.
type QuotaResponse struct {
	Limit                 int `json:"limit"`
	Used                  int `json:"used"`
	Remaining             int `json:"remaining"`
	WindowResetsInSeconds int `json:"window_resets_in_seconds"`
	// CooldownSeconds is the per-placement gap for this identity tier; 0 when
	// the canvas has no cooldown configured.
	CooldownSeconds int `json:"cooldown_seconds,omitempty"`
}

//
// Handlers
//

// PlacePixel godoc
// @ID          placePixel
// @Summary     Place a pixel
// @Description Paints one cell for the calling identity. The quota charge, the cell write, and the history entry commit atomically. Supplying an Idempotency-Key makes retries replay the original result.
// @Tags        Placements
// @Accept      json
// @Produce     json
//
// @Param       id               path    string  true  "Canvas ID (UUID)"  format(uuid)
// @Param       X-User-ID        header  string  false "Registered user ID (set by upstream auth)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Client-generated key for safe retries"      example(a1b2c3)
// @Param       body             body    handlers.PlacePixelRequest  true  "Placement payload"
//
// @Success     200  {object} handlers.PlacePixelResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request / out of bounds / invalid color"
// @Failure     404  {object} handlers.ErrorResponse "Canvas not found"
// @Failure     403  {object} handlers.ErrorResponse "Canvas inactive"
// @Failure     429  {object} handlers.ErrorResponse "Quota exhausted or cooldown active"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /canvases/{id}/pixels [post]
func (h *Handlers) PlacePixel(c *gin.Context) {
	var req PlacePixelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "x, y, and color are required")
		return
	}

	// Prefer the validated key stashed by the idempotency middleware; fall
	// back to the raw header for bare engines (tests).
	idemKey, found := middleware.GetIdempotencyKey(c)
	if !found {
		idemKey = strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	}
	res, err := h.placeSvc.Place(c.Request.Context(), c.Param("id"), *req.X, *req.Y, req.Color, identity(c), idemKey)
	if err != nil {
		h.placeError(c, err)
		return
	}

	if res.Replayed {
		middleware.ObservePlacement("replayed")
	} else {
		middleware.ObservePlacement("accepted")
	}
	ok(c, http.StatusOK, PlacePixelResponse{
		Pixel:                 cellView(res.Pixel),
		Previous:              cellView(res.Previous),
		Remaining:             res.Remaining,
		WindowResetsInSeconds: int(res.WindowResetsIn / time.Second),
		Replayed:              res.Replayed,
	})
}

// placeError maps pipeline errors to stable statuses and codes.
func (h *Handlers) placeError(c *gin.Context, err error) {
	if denial, denied := services.AsQuotaDenial(err); denied {
		msg, outcome := "placement budget exhausted", "denied_quota"
		if denial.Cooldown {
			msg, outcome = "cooldown active", "denied_cooldown"
		}
		middleware.ObservePlacement(outcome)
		failRetryAfter(c, ErrCodeRateLimited, msg, denial.RetryAfterSeconds())
		return
	}
	switch {
	case errors.Is(err, services.ErrCanvasNotFound):
		middleware.ObservePlacement("rejected")
		fail(c, http.StatusNotFound, ErrCodeNotFound, "canvas not found")
	case errors.Is(err, services.ErrCanvasInactive):
		middleware.ObservePlacement("rejected")
		fail(c, http.StatusForbidden, ErrCodeCanvasInactive, "canvas is not accepting placements")
	case errors.Is(err, services.ErrOutOfBounds):
		middleware.ObservePlacement("rejected")
		fail(c, http.StatusBadRequest, ErrCodeOutOfBounds, "coordinates fall outside the canvas")
	case errors.Is(err, services.ErrInvalidColor):
		middleware.ObservePlacement("rejected")
		fail(c, http.StatusBadRequest, ErrCodeInvalidColor, "color must be #rgb or #rrggbb hex")
	case errors.Is(err, services.ErrIdentityMissing):
		middleware.ObservePlacement("rejected")
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "no identity resolved for this request")
	default:
		middleware.ObservePlacement("error")
		fail(c, http.StatusInternalServerError, ErrCodePlaceFailed, err.Error())
	}
}

// GetQuota godoc
// @ID          getQuota
// @Summary     Get remaining quota
// @Description Reports the calling identity's remaining placement budget on this canvas without consuming anything.
// @Tags        Placements
// @Produce     json
//
// @Param       id         path    string  true  "Canvas ID (UUID)"  format(uuid)
// @Param       X-User-ID  header  string  false "Registered user ID (set by upstream auth)"  example(user123)
//
// @Success     200  {object} handlers.QuotaResponse
// @Failure     404  {object} handlers.ErrorResponse "Canvas not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /canvases/{id}/quota [get]
func (h *Handlers) GetQuota(c *gin.Context) {
	status, err := h.placeSvc.Remaining(c.Request.Context(), c.Param("id"), identity(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCanvasNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "canvas not found")
		case errors.Is(err, services.ErrIdentityMissing):
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "no identity resolved for this request")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, QuotaResponse{
		Limit:                 status.Limit,
		Used:                  status.Used,
		Remaining:             status.Remaining,
		WindowResetsInSeconds: int(status.WindowResetsIn / time.Second),
		CooldownSeconds:       status.CooldownSeconds,
	})
}
