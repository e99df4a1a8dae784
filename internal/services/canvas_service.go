// Package services – CanvasService
//
// This file implements the CanvasService, which manages the lifecycle of
// canvases (the shared drawing boards). It validates and normalizes display
// names, derives URL-safe slugs, enforces dimension and policy bounds, and
// coordinates repository operations for creating, listing, and toggling
// boards. Placement policy values not supplied by the operator fall back to
// the configured defaults.
//
// Service-level errors (e.g., ErrCanvasNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canvas dimension bounds. Grids below 10 cells a side are not interesting;
// grids above 500 make full snapshots too heavy for the polling transport.
const (
	MinCanvasSide = 10
	MaxCanvasSide = 500
)

// CanvasRepo defines the repository contract required by CanvasService.
// Implementations are responsible for persistence of canvas aggregates.
type CanvasRepo interface {
	// CreateCanvas inserts a fully populated canvas row.
	CreateCanvas(ctx context.Context, db *gorm.DB, c *domain.Canvas) error

	// GetCanvas fetches a canvas by ID.
	GetCanvas(ctx context.Context, db *gorm.DB, id string) (*domain.Canvas, error)

	// GetCanvasBySlug fetches a canvas by its unique slug.
	GetCanvasBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Canvas, error)

	// ListCanvases returns all canvases, newest first.
	ListCanvases(ctx context.Context, db *gorm.DB) ([]domain.Canvas, error)

	// SetCanvasActive toggles the is_active flag.
	SetCanvasActive(ctx context.Context, db *gorm.DB, id string, active bool) error
}

// PlacementPolicy carries the per-tier rate-limit settings applied to a new
// canvas. Zero cooldowns disable the per-placement cooldown, leaving only the
// rolling window limit.
type PlacementPolicy struct {
	AnonWindowLimit     int
	RegWindowLimit      int
	AnonCooldownSeconds int
	RegCooldownSeconds  int
}

// CanvasService provides canvas-level operations such as creating, listing,
// and toggling boards. It enforces naming, dimension, and policy rules.
type CanvasService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the canvas repository used by this service.
	Repo CanvasRepo

	// DefaultPolicy is applied to fields the operator leaves at zero.
	DefaultPolicy PlacementPolicy

	// NameMaxLen caps stored display names by rune length.
	NameMaxLen int
	// NameLocale selects the casing rules for display-name normalization.
	NameLocale language.Tag
}

// NewCanvasService constructs a CanvasService with sane defaults for name
// handling and the given policy defaults.
func NewCanvasService(db *gorm.DB, r CanvasRepo, defaults PlacementPolicy) *CanvasService {
	return &CanvasService{
		DB:            db,
		Repo:          r,
		DefaultPolicy: defaults,
		NameMaxLen:    60,
		NameLocale:    language.Und,
	}
}

// Create inserts a new canvas with the given name, dimensions, and policy.
// Names are normalized and clipped; zero policy fields inherit the defaults.
// Width and height are immutable after this call.
func (s *CanvasService) Create(ctx context.Context, name string, width, height int, policy PlacementPolicy) (*domain.Canvas, error) {
	if width < MinCanvasSide || width > MaxCanvasSide || height < MinCanvasSide || height > MaxCanvasSide {
		return nil, ErrInvalidDimensions
	}

	p := s.withDefaults(policy)
	if p.AnonWindowLimit < 1 || p.RegWindowLimit < 1 || p.AnonCooldownSeconds < 0 || p.RegCooldownSeconds < 0 {
		return nil, ErrInvalidPolicy
	}

	name = s.normalizeName(name)
	if name == "" {
		name = "Untitled canvas"
	}
	name = s.clip(name)

	c := &domain.Canvas{
		ID:                  uuid.NewString(),
		Slug:                slugify(name),
		Name:                name,
		Width:               width,
		Height:              height,
		IsActive:            true,
		AnonWindowLimit:     p.AnonWindowLimit,
		RegWindowLimit:      p.RegWindowLimit,
		AnonCooldownSeconds: p.AnonCooldownSeconds,
		RegCooldownSeconds:  p.RegCooldownSeconds,
	}
	if err := s.Repo.CreateCanvas(ctx, s.DB, c); err != nil {
		// Slug collision: retry once with a uniquifying suffix.
		if isUniqueViolation(err) {
			c.Slug = c.Slug + "-" + c.ID[:8]
			if err2 := s.Repo.CreateCanvas(ctx, s.DB, c); err2 == nil {
				return c, nil
			}
		}
		return nil, err
	}
	return c, nil
}

// Get fetches a canvas by ID, mapping missing rows to ErrCanvasNotFound.
func (s *CanvasService) Get(ctx context.Context, id string) (*domain.Canvas, error) {
	c, err := s.Repo.GetCanvas(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCanvasNotFound
		}
		return nil, err
	}
	return c, nil
}

// GetBySlug fetches a canvas by slug, mapping missing rows to ErrCanvasNotFound.
func (s *CanvasService) GetBySlug(ctx context.Context, slug string) (*domain.Canvas, error) {
	c, err := s.Repo.GetCanvasBySlug(ctx, s.DB, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCanvasNotFound
		}
		return nil, err
	}
	return c, nil
}

// List returns all canvases, newest first.
func (s *CanvasService) List(ctx context.Context) ([]domain.Canvas, error) {
	return s.Repo.ListCanvases(ctx, s.DB)
}

// SetActive toggles whether the canvas accepts placements. Reads keep working
// either way.
func (s *CanvasService) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.Repo.SetCanvasActive(ctx, s.DB, id, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCanvasNotFound
		}
		return err
	}
	return nil
}

// withDefaults fills zero policy fields from the service defaults.
func (s *CanvasService) withDefaults(p PlacementPolicy) PlacementPolicy {
	if p.AnonWindowLimit == 0 {
		p.AnonWindowLimit = s.DefaultPolicy.AnonWindowLimit
	}
	if p.RegWindowLimit == 0 {
		p.RegWindowLimit = s.DefaultPolicy.RegWindowLimit
	}
	// Cooldowns default to 0 (disabled); negative values are rejected later.
	return p
}

// clip truncates a canvas name to the configured maximum rune length.
func (s *CanvasService) clip(name string) string {
	if s.NameMaxLen > 0 && utf8.RuneCountInString(name) > s.NameMaxLen {
		return string([]rune(name)[:s.NameMaxLen])
	}
	return name
}

// normalizeName trims whitespace, collapses runs of spaces, and title-cases
// the result with the configured locale.
func (s *CanvasService) normalizeName(name string) string {
	name = whitespaceRE.ReplaceAllString(strings.TrimSpace(name), " ")
	if name == "" {
		return ""
	}
	return cases.Title(s.localeOrDefault(), cases.NoLower).String(name)
}

// localeOrDefault returns the configured locale for casing or English if unset.
func (s *CanvasService) localeOrDefault() language.Tag {
	if s.NameLocale == language.Und {
		return language.English
	}
	return s.NameLocale
}

// slugify derives a URL-safe handle from a display name: lowercase, runs of
// non-alphanumerics collapsed to single hyphens, trimmed.
func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = nonSlugRE.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "canvas"
	}
	if len(slug) > 64 {
		slug = strings.Trim(slug[:64], "-")
	}
	return slug
}

// isUniqueViolation sniffs driver errors for unique-constraint failures.
// glebarez/sqlite often reports these as plain-text errors.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// nonSlugRE matches characters not allowed in slugs.
var nonSlugRE = regexp.MustCompile(`[^a-z0-9]+`)
