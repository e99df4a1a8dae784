// Operator HTTP handlers.
//
// This file exposes the operator surface:
//   - POST  /admin/canvases             (provision a board)
//   - PATCH /admin/canvases/{id}/active (open or freeze a board)
//
// Both endpoints require the X-Operator-Token header to match the configured
// token; deployments that leave the token unset have the surface disabled.
package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-pixelwar-backend/internal/services"
)

// HeaderOperatorToken authenticates operator requests.
const HeaderOperatorToken = "X-Operator-Token"

//
// DTOs
//

// CreateCanvasRequest is the JSON payload for provisioning a canvas.
// Zero-valued policy fields inherit the server defaults.
type CreateCanvasRequest struct {
	Name   string `json:"name" example:"Launch Mural"`
	Width  int    `json:"width"  binding:"required" example:"100"`
	Height int    `json:"height" binding:"required" example:"100"`

	AnonWindowLimit     int `json:"anon_window_limit,omitempty" example:"5"`
	RegWindowLimit      int `json:"reg_window_limit,omitempty" example:"30"`
	AnonCooldownSeconds int `json:"anon_cooldown_seconds,omitempty" example:"10"`
	RegCooldownSeconds  int `json:"reg_cooldown_seconds,omitempty" example:"0"`
}

// SetCanvasActiveRequest toggles the placement flag. A pointer distinguishes
// "missing" from an explicit false.
type SetCanvasActiveRequest struct {
	Active *bool `json:"active" binding:"required" example:"false"`
}

// requireOperator enforces the operator token. It writes the error response
// itself and reports whether the caller may proceed.
func (h *Handlers) requireOperator(c *gin.Context) bool {
	token := c.GetHeader(HeaderOperatorToken)
	if h.operatorToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.operatorToken)) != 1 {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "operator token required")
		return false
	}
	return true
}

// CreateCanvas godoc
// @ID          createCanvas
// @Summary     Create a canvas
// @Description Provisions a new board with fixed dimensions. Policy fields left at zero inherit the server defaults. Operator only.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-Operator-Token  header  string  true  "Operator token"
// @Param       body              body    handlers.CreateCanvasRequest  true  "Canvas payload"
//
// @Success     201  {object} domain.Canvas
// @Failure     400  {object} handlers.ErrorResponse "Bad dimensions or policy"
// @Failure     403  {object} handlers.ErrorResponse "Missing or wrong operator token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/canvases [post]
func (h *Handlers) CreateCanvas(c *gin.Context) {
	if !h.requireOperator(c) {
		return
	}
	var req CreateCanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "width and height are required")
		return
	}

	canvas, err := h.canvasSvc.Create(c.Request.Context(), req.Name, req.Width, req.Height, services.PlacementPolicy{
		AnonWindowLimit:     req.AnonWindowLimit,
		RegWindowLimit:      req.RegWindowLimit,
		AnonCooldownSeconds: req.AnonCooldownSeconds,
		RegCooldownSeconds:  req.RegCooldownSeconds,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDimensions):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "width and height must be between 10 and 500")
		case errors.Is(err, services.ErrInvalidPolicy):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "window limits must be >= 1 and cooldowns >= 0")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, canvas)
}

// SetCanvasActive godoc
// @ID          setCanvasActive
// @Summary     Open or freeze a canvas
// @Description Toggles whether a board accepts placements. Snapshots and activity keep serving either way. Operator only.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-Operator-Token  header  string  true  "Operator token"
// @Param       id                path    string  true  "Canvas ID (UUID)"  format(uuid)
// @Param       body              body    handlers.SetCanvasActiveRequest  true  "New state"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Missing or wrong operator token"
// @Failure     404  {object} handlers.ErrorResponse "Canvas not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/canvases/{id}/active [patch]
func (h *Handlers) SetCanvasActive(c *gin.Context) {
	if !h.requireOperator(c) {
		return
	}
	var req SetCanvasActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "active is required")
		return
	}

	if err := h.canvasSvc.SetActive(c.Request.Context(), c.Param("id"), *req.Active); err != nil {
		if errors.Is(err, services.ErrCanvasNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "canvas not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
