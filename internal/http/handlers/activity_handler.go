// Activity HTTP handler.
//
// GET /canvases/{id}/activity returns the most recent placements on a board,
// newest first, with keyset pagination over the placed_at timestamp. The feed
// keeps serving after a canvas is deactivated.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-pixelwar-backend/internal/services"
	"github.com/tbourn/go-pixelwar-backend/internal/utils"
)

// ActivityResponse wraps one page of the history log.
type ActivityResponse struct {
	Placements []PlacementView `json:"placements"`
	// NextBefore, when set, is the `before` cursor for the next (older) page.
	NextBefore *time.Time `json:"next_before,omitempty"`
	// NextBeforeID is the `before_id` half of the cursor; passing it back
	// keeps entries that share the boundary timestamp from being skipped.
	NextBeforeID string `json:"next_before_id,omitempty"`
}

// GetActivity godoc
// @ID          getActivity
// @Summary     Recent placements
// @Description Returns up to `limit` history entries newest first. Pass the returned next_before and next_before_id values back as `before` and `before_id` to page into older history.
// @Tags        Placements
// @Produce     json
//
// @Param       id         path   string  true  "Canvas ID (UUID)"  format(uuid)
// @Param       limit      query  int     false "Max entries to return"  minimum(1) maximum(500) default(50)
// @Param       before     query  string  false "Only entries older than this RFC 3339 timestamp"  example(2026-08-24T12:00:00Z)
// @Param       before_id  query  string  false "Tie-break id for entries sharing the `before` instant"
//
// @Success     200  {object} handlers.ActivityResponse
// @Failure     400  {object} handlers.ErrorResponse "Malformed cursor"
// @Failure     404  {object} handlers.ErrorResponse "Canvas not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /canvases/{id}/activity [get]
func (h *Handlers) GetActivity(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 0)
	before, err := utils.ParseBefore(c.Query("before"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	page, err := h.syncSvc.Activity(c.Request.Context(), c.Param("id"), limit, before, c.Query("before_id"))
	if err != nil {
		if errors.Is(err, services.ErrCanvasNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "canvas not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ActivityResponse{
		Placements:   placementViews(page.Placements),
		NextBefore:   page.NextBefore,
		NextBeforeID: page.NextBeforeID,
	})
}
