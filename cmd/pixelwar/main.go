// Command pixelwar runs the collaborative pixel canvas API server.
//
// Startup order: environment (.env) → config → logging → tracing → database →
// default canvas seed → HTTP router → server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	_ "github.com/tbourn/go-pixelwar-backend/docs" // swagger metadata

	"github.com/tbourn/go-pixelwar-backend/internal/config"
	"github.com/tbourn/go-pixelwar-backend/internal/domain"
	"github.com/tbourn/go-pixelwar-backend/internal/feed"
	httpapi "github.com/tbourn/go-pixelwar-backend/internal/http"
	"github.com/tbourn/go-pixelwar-backend/internal/observability"
	"github.com/tbourn/go-pixelwar-backend/internal/repo"
	"github.com/tbourn/go-pixelwar-backend/internal/services"
	"github.com/tbourn/go-pixelwar-backend/internal/sysutil"
)

const version = "1.0.0"

// @title        Pixel War API
// @version      1.0
// @description  Collaborative pixel canvas: place pixels on shared boards under per-identity quotas.
// @BasePath     /api/v1
func main() {
	// Load .env in dev; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op unless OTEL_ENABLED)
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(c); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		log.Fatal().Err(err).Msg("gorm tracing plugin failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	if err := seedDefaultCanvas(ctx, db, cfg); err != nil {
		log.Fatal().Err(err).Msg("default canvas seed failed")
	}

	broker := feed.NewBroker()

	r := gin.New()
	httpapi.RegisterRoutes(r, db, broker, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}
}

// setupLogging configures the global zerolog level and output format.
func setupLogging(cfg config.Config) {
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(sysutil.ConsoleWriter())
	}
}

// seedRepo adapts the repo free functions to services.CanvasRepo for the
// one-time startup seed.
type seedRepo struct{}

func (seedRepo) CreateCanvas(ctx context.Context, db *gorm.DB, c *domain.Canvas) error {
	return repo.CreateCanvas(ctx, db, c)
}

func (seedRepo) GetCanvas(ctx context.Context, db *gorm.DB, id string) (*domain.Canvas, error) {
	return repo.GetCanvas(ctx, db, id)
}

func (seedRepo) GetCanvasBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Canvas, error) {
	return repo.GetCanvasBySlug(ctx, db, slug)
}

func (seedRepo) ListCanvases(ctx context.Context, db *gorm.DB) ([]domain.Canvas, error) {
	return repo.ListCanvases(ctx, db)
}

func (seedRepo) SetCanvasActive(ctx context.Context, db *gorm.DB, id string, active bool) error {
	return repo.SetCanvasActive(ctx, db, id, active)
}

// seedDefaultCanvas provisions the configured default board on an empty
// database so a fresh deployment is immediately usable. No-op when any canvas
// exists or when DEFAULT_CANVAS_NAME is blank.
func seedDefaultCanvas(ctx context.Context, db *gorm.DB, cfg config.Config) error {
	if cfg.Canvas.DefaultName == "" {
		return nil
	}
	n, err := repo.CountCanvases(ctx, db)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	svc := services.NewCanvasService(db, seedRepo{}, services.PlacementPolicy{
		AnonWindowLimit:     cfg.Canvas.AnonWindowLimit,
		RegWindowLimit:      cfg.Canvas.RegWindowLimit,
		AnonCooldownSeconds: cfg.Canvas.AnonCooldownSeconds,
		RegCooldownSeconds:  cfg.Canvas.RegCooldownSeconds,
	})
	c, err := svc.Create(ctx, cfg.Canvas.DefaultName, cfg.Canvas.DefaultWidth, cfg.Canvas.DefaultHeight, services.PlacementPolicy{})
	if err != nil {
		return err
	}
	log.Info().Str("canvas_id", c.ID).Str("slug", c.Slug).
		Int("width", c.Width).Int("height", c.Height).
		Msg("seeded default canvas")
	return nil
}
