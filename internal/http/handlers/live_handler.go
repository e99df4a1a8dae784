// Live feed HTTP handler.
//
// GET /canvases/{id}/live upgrades to a WebSocket and streams every committed
// placement on the board as JSON, using the same record shape the activity
// endpoint serves. Delivery is best effort: a slow consumer drops frames and
// recovers by re-reading the snapshot.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tbourn/go-pixelwar-backend/internal/http/middleware"
	"github.com/tbourn/go-pixelwar-backend/internal/services"
)

const (
	// liveWriteTimeout bounds a single frame write to a slow client.
	liveWriteTimeout = 5 * time.Second
	// livePingInterval keeps intermediaries from reaping idle connections.
	livePingInterval = 30 * time.Second
)

// liveUpgrader performs the HTTP -> WebSocket upgrade. Origin checking is
// delegated to the CORS middleware in front of the router.
var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// LiveFeed godoc
// @ID          liveFeed
// @Summary     Live placement stream
// @Description Upgrades to a WebSocket and pushes every committed placement on this canvas as a JSON frame (same shape as the activity entries).
// @Tags        Placements
//
// @Param       id  path  string  true  "Canvas ID (UUID)"  format(uuid)
//
// @Success     101  {string} string "Switching Protocols"
// @Failure     404  {object} handlers.ErrorResponse "Canvas not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /canvases/{id}/live [get]
func (h *Handlers) LiveFeed(c *gin.Context) {
	canvasID := c.Param("id")

	// Refuse before upgrading so the client gets a proper error envelope.
	if _, err := h.canvasSvc.Get(c.Request.Context(), canvasID); err != nil {
		if errors.Is(err, services.ErrCanvasNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "canvas not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	conn, err := liveUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote its own response.
		lg := middleware.LoggerFrom(c)
		lg.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	stream, cancel := h.feed.Subscribe(ctx, canvasID)
	defer cancel()

	// Reader goroutine: we never expect client frames, but reading is the only
	// way to observe close frames and connection loss.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case placement, open := <-stream:
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := conn.WriteJSON(placementView(placement)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}
