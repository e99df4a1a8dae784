// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, identity resolution, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/tbourn/go-pixelwar-backend/internal/config"
	"github.com/tbourn/go-pixelwar-backend/internal/domain"
	"github.com/tbourn/go-pixelwar-backend/internal/feed"
	"github.com/tbourn/go-pixelwar-backend/internal/http/handlers"
	"github.com/tbourn/go-pixelwar-backend/internal/http/middleware"
	"github.com/tbourn/go-pixelwar-backend/internal/repo"
	"github.com/tbourn/go-pixelwar-backend/internal/services"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// canvasRepoShim adapts the repository free functions to the
// services.CanvasRepo interface expected by the CanvasService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type canvasRepoShim struct{}

// CreateCanvas proxies repo.CreateCanvas.
func (canvasRepoShim) CreateCanvas(ctx context.Context, db *gorm.DB, c *domain.Canvas) error {
	return repo.CreateCanvas(ctx, db, c)
}

// GetCanvas proxies repo.GetCanvas.
func (canvasRepoShim) GetCanvas(ctx context.Context, db *gorm.DB, id string) (*domain.Canvas, error) {
	return repo.GetCanvas(ctx, db, id)
}

// GetCanvasBySlug proxies repo.GetCanvasBySlug.
func (canvasRepoShim) GetCanvasBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Canvas, error) {
	return repo.GetCanvasBySlug(ctx, db, slug)
}

// ListCanvases proxies repo.ListCanvases.
func (canvasRepoShim) ListCanvases(ctx context.Context, db *gorm.DB) ([]domain.Canvas, error) {
	return repo.ListCanvases(ctx, db)
}

// SetCanvasActive proxies repo.SetCanvasActive.
func (canvasRepoShim) SetCanvasActive(ctx context.Context, db *gorm.DB, id string, active bool) error {
	return repo.SetCanvasActive(ctx, db, id, active)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), identity resolution,
// idempotency and rate limiting, CORS and security headers, health and metrics
// endpoints, and then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Identity resolver (before idempotency so replays key by subject)
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per identity/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, broker *feed.Broker, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			handlers.HeaderOperatorToken,
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (64 KiB; placement payloads are tiny)
	r.Use(limitBody(64 << 10))

	// Compress responses: full snapshots of a 500x500 board shrink well.
	// Skip /metrics (Prometheus negotiates its own encoding) and the
	// WebSocket upgrade path.
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics"}),
		gzip.WithExcludedPathsRegexs([]string{`.*/live$`}),
	))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Resolve every request to a tagged identity (registered or anonymous)
	r.Use(middleware.IdentityResolver(middleware.IdentityOptions{
		CookieMaxAge: int(cfg.Session.CookieMaxAge / time.Second),
		CookieSecure: cfg.Session.CookieSecure,
	}))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, subject, canvasID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, subject, canvasID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per identity/IP. This is coarse edge
	// protection; the real placement budget lives in the quota tracker.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIdentityOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After"},
			AllowCredentials: true, // anonymous sessions ride on a cookie
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (off by default; see SWAGGER_ENABLED)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/broker
	canvasSvc := services.NewCanvasService(db, canvasRepoShim{}, services.PlacementPolicy{
		AnonWindowLimit:     cfg.Canvas.AnonWindowLimit,
		RegWindowLimit:      cfg.Canvas.RegWindowLimit,
		AnonCooldownSeconds: cfg.Canvas.AnonCooldownSeconds,
		RegCooldownSeconds:  cfg.Canvas.RegCooldownSeconds,
	})
	placeSvc := &services.PlacementService{
		DB:             db,
		Feed:           broker,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	syncSvc := &services.SyncService{DB: db}

	h := handlers.New(canvasSvc, placeSvc, syncSvc, broker, cfg.OperatorToken)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Canvases (read side)
		api.GET("/canvases", h.ListCanvases)
		api.GET("/canvases/:id", h.GetCanvas)
		api.GET("/canvases/:id/activity", h.GetActivity)
		api.GET("/canvases/:id/quota", h.GetQuota)
		api.GET("/canvases/:id/live", h.LiveFeed)

		// Placements (write side)
		api.POST("/canvases/:id/pixels", h.PlacePixel)

		// Operator surface
		api.POST("/admin/canvases", h.CreateCanvas)
		api.PATCH("/admin/canvases/:id/active", h.SetCanvasActive)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
