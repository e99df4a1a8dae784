package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-pixelwar-backend/internal/config"
	"github.com/tbourn/go-pixelwar-backend/internal/domain"
	"github.com/tbourn/go-pixelwar-backend/internal/feed"
	"github.com/tbourn/go-pixelwar-backend/internal/http/middleware"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:routerdb_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// schema so handlers don't explode on list endpoints
	if err := db.AutoMigrate(
		&domain.Canvas{}, &domain.Pixel{}, &domain.Placement{},
		&domain.QuotaWindow{}, &domain.Idempotency{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testCfg(basePath string) config.Config {
	return config.Config{
		APIBasePath: basePath,
		RateRPS:     100,
		RateBurst:   10,
		CORS:        config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
		Session:     config.SessionConfig{CookieMaxAge: time.Hour},
		Canvas: config.CanvasConfig{
			AnonWindowLimit: 5,
			RegWindowLimit:  30,
		},
		IdempotencyTTL: time.Hour,
	}
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	db := newTestDB(t)
	RegisterRoutes(r, db, feed.NewBroker(), testCfg("/api/v1"))

	// /health works
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testCfg("/api/v2")
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	db := newTestDB(t)
	RegisterRoutes(r, db, feed.NewBroker(), cfg)

	// Any request runs through CORS middleware; header should reflect origin.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	// Hit all three
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/one", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "one" {
		t.Fatalf("GET /one got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/two", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "two" {
		t.Fatalf("GET /two got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("GET /api/ping got %d %q", rec.Code, rec.Body.String())
	}
}

// Smoke test that a request traverses identity + idempotency + ratelimit +
// otel + security headers pipeline.
func TestPipeline_Smoke(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testCfg("/api/v1")
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour} // enabled (but only set on https)
	db := newTestDB(t)
	RegisterRoutes(r, db, feed.NewBroker(), cfg)

	// Any request goes through the middleware stack
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	// simulate https so HSTS could be eligible if middleware checks scheme
	req.URL.Scheme = "https"
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	// RequestID header should be present (from RequestID middleware)
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

// An anonymous request to the API surface gets a session cookie minted by the
// identity resolver.
func TestPipeline_MintsAnonymousSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, feed.NewBroker(), testCfg("/api/v1"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/canvases", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/canvases = %d body=%s", w.Code, w.Body.String())
	}

	var minted bool
	for _, ck := range w.Result().Cookies() {
		if ck.Name == middleware.SessionCookieName && ck.Value != "" {
			minted = true
		}
	}
	if !minted {
		t.Fatalf("expected %s cookie on anonymous request", middleware.SessionCookieName)
	}
}

// Full round trip over the mounted API: seed a board, place a pixel, read the
// snapshot back.
func TestRegisterRoutes_PlaceAndSnapshot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, feed.NewBroker(), testCfg("/api/v1"))

	board := &domain.Canvas{
		ID: uuid.NewString(), Slug: "smoke", Name: "Smoke", Width: 20, Height: 20,
		IsActive: true, AnonWindowLimit: 5, RegWindowLimit: 30,
	}
	if err := db.Create(board).Error; err != nil {
		t.Fatalf("seed canvas: %v", err)
	}

	body, _ := json.Marshal(map[string]any{"x": 1, "y": 2, "color": "#00ff00"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/canvases/"+board.ID+"/pixels", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("POST pixels = %d body=%s", w.Code, w.Body.String())
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/canvases/"+board.ID, nil)
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("GET canvas = %d body=%s", w2.Code, w2.Body.String())
	}
	if w2.Header().Get("ETag") == "" {
		t.Fatalf("expected ETag on snapshot")
	}
}

func Test_canvasRepoShim_Proxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	shim := canvasRepoShim{}
	ctx := context.Background()

	// --- CreateCanvas ---
	c1 := &domain.Canvas{
		ID: uuid.NewString(), Slug: "shim-board", Name: "Shim Board",
		Width: 10, Height: 10, IsActive: true,
		AnonWindowLimit: 5, RegWindowLimit: 30,
	}
	if err := shim.CreateCanvas(ctx, db, c1); err != nil {
		t.Fatalf("CreateCanvas: %v", err)
	}

	// --- GetCanvas ---
	got, err := shim.GetCanvas(ctx, db, c1.ID)
	if err != nil {
		t.Fatalf("GetCanvas: %v", err)
	}
	if got.ID != c1.ID || got.Slug != "shim-board" {
		t.Fatalf("GetCanvas mismatch: %+v", got)
	}

	// --- GetCanvasBySlug ---
	bySlug, err := shim.GetCanvasBySlug(ctx, db, "shim-board")
	if err != nil {
		t.Fatalf("GetCanvasBySlug: %v", err)
	}
	if bySlug.ID != c1.ID {
		t.Fatalf("GetCanvasBySlug mismatch: %+v", bySlug)
	}

	// --- ListCanvases ---
	all, err := shim.ListCanvases(ctx, db)
	if err != nil {
		t.Fatalf("ListCanvases: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListCanvases expected 1, got %d", len(all))
	}

	// --- SetCanvasActive ---
	if err := shim.SetCanvasActive(ctx, db, c1.ID, false); err != nil {
		t.Fatalf("SetCanvasActive: %v", err)
	}
	got2, err := shim.GetCanvas(ctx, db, c1.ID)
	if err != nil {
		t.Fatalf("GetCanvas (after toggle): %v", err)
	}
	if got2.IsActive {
		t.Fatalf("SetCanvasActive did not deactivate the board")
	}
}

func TestRegisterRoutes_IdempotencyCallback_MissAndHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	db := newTestDB(t)
	RegisterRoutes(r, db, feed.NewBroker(), testCfg("/api/vX"))

	const userID = "u1"
	const key = "key-hit"
	canvasID := uuid.NewString()

	// --- MISS: record does not exist (executes 'rec == nil' branch) ---
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/vX/canvases/"+canvasID+"/pixels", bytes.NewBufferString("{}"))
	req.Header.Set(middleware.HeaderUserID, userID)
	req.Header.Set(middleware.HeaderIdempotencyKey, key)
	r.ServeHTTP(w, req)
	// 400/404 is expected for the bare body, but the middleware ran.

	// --- seed an idempotency record so the callback returns non-nil ---
	seed := &domain.Idempotency{
		ID:          "idem-seed-1",
		Subject:     "user:" + userID,
		CanvasID:    canvasID,
		Key:         key,
		PlacementID: "p-1",
		Status:      http.StatusOK,
		// ensure it's considered valid "now"
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := db.Create(seed).Error; err != nil {
		t.Fatalf("seed idempotency: %v", err)
	}

	// --- HIT: record exists (executes 'return true, nil' branch) ---
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/vX/canvases/"+canvasID+"/pixels", bytes.NewBufferString("{}"))
	req.Header.Set(middleware.HeaderUserID, userID)
	req.Header.Set(middleware.HeaderIdempotencyKey, key)
	r.ServeHTTP(w, req)
	// again, handler-level errors are fine; goal is to drive the middleware branch.
}

func TestRegisterRoutes_IdempotencyCallback_ErrorBranch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// Make a fresh in-memory DB and migrate normally.
	db := newTestDB(t)

	// Wire routes first...
	RegisterRoutes(r, db, feed.NewBroker(), testCfg("/api/v1"))

	// ...then force queries to fail by closing the underlying connection.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()

	// Now any repo.GetIdempotency call should error → drives (err != nil) branch,
	// which the lookup swallows as a miss.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/canvases/"+uuid.NewString()+"/pixels", bytes.NewBufferString("{}"))
	req.Header.Set(middleware.HeaderUserID, "u1")
	req.Header.Set(middleware.HeaderIdempotencyKey, "force-error")
	r.ServeHTTP(w, req)

	// The request reaches the handler, which fails on the dead DB or bad body;
	// either way the middleware must not have rejected the key.
	if w.Code == http.StatusTooManyRequests {
		t.Fatalf("lookup error must not surface as a rate-limit rejection, got %d", w.Code)
	}
}
