// Package services – PlacementService
//
// This file implements PlacementService, the application-level component that
// owns the placement pipeline: resolve identity → check quota → validate →
// atomically commit pixel + history + quota increment → publish. The quota
// increment, the cell upsert, and the history append always commit or roll
// back together; a denial or a crash mid-pipeline never leaves the counter
// ahead of the canvas.
//
// Optional enhancement: when the client supplies an Idempotency-Key, the
// committed placement is recorded so a retried request replays the original
// result without painting again or consuming quota twice.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include canvas/identity attributes and the placement outcome.
package services

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
	"github.com/tbourn/go-pixelwar-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// WindowLength is the rolling quota accounting period. Placement budgets
// reset this long after the window opened.
const WindowLength = 60 * time.Second

// defaultCommitAttempts bounds internal retries of the commit transaction on
// storage lock contention. Denials, validation failures, and errors of
// unknown commit outcome are never retried.
const defaultCommitAttempts = 3

// FeedPublisher receives every committed placement for fan-out to live
// subscribers. Implementations must not block.
type FeedPublisher interface {
	Publish(p domain.Placement)
}

// PlacementResult is the outcome of a successful (or replayed) placement.
type PlacementResult struct {
	// Pixel is the committed cell state.
	Pixel *domain.Pixel
	// Placement is the history record written for this placement.
	Placement *domain.Placement
	// Previous is the cell value that was overwritten, nil on first paint.
	Previous *domain.Pixel
	// Remaining is the identity's leftover window budget after this commit.
	Remaining int
	// WindowResetsIn is how long until the current window expires.
	WindowResetsIn time.Duration
	// Replayed is true when an Idempotency-Key matched a stored result and
	// no new placement was committed.
	Replayed bool
}

// QuotaStatus reports an identity's current budget on one canvas without
// consuming anything. Used by the read-only quota endpoint.
type QuotaStatus struct {
	Limit           int
	Used            int
	Remaining       int
	WindowResetsIn  time.Duration
	CooldownSeconds int
}

// PlacementService coordinates the atomic placement pipeline.
type PlacementService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// Feed, when set, receives every committed placement.
	Feed FeedPublisher

	// IdempotencyTTL is how long a recorded placement can be replayed.
	IdempotencyTTL time.Duration

	// CommitAttempts bounds retries of the commit transaction on storage
	// lock contention. Values < 1 default to defaultCommitAttempts.
	CommitAttempts int

	// Now returns the current time; defaults to time.Now. Injected by tests
	// that exercise window expiry.
	Now func() time.Time
}

// Place runs the full placement pipeline for one request. It returns
// ErrCanvasNotFound, ErrCanvasInactive, ErrOutOfBounds, ErrInvalidColor, a
// *QuotaDenial, or the committed PlacementResult. idemKey may be empty.
func (s *PlacementService) Place(ctx context.Context, canvasID string, x, y int, color string, who domain.Identity, idemKey string) (*PlacementResult, error) {
	tr := otel.Tracer("services/PlacementService")
	ctx, span := tr.Start(ctx, "Place",
		trace.WithAttributes(
			attribute.String("canvas.id", canvasID),
			attribute.String("identity.kind", string(who.Kind)),
			attribute.Int("pixel.x", x),
			attribute.Int("pixel.y", y),
		),
	)
	defer span.End()

	if who.IsZero() {
		return nil, ErrIdentityMissing
	}
	now := s.now()

	// Replay a stored result before touching quota or the edge of the grid.
	if idemKey != "" {
		if res, ok, err := s.replay(ctx, canvasID, who, idemKey, now); err != nil {
			return nil, err
		} else if ok {
			span.SetAttributes(attribute.Bool("placement.replayed", true))
			return res, nil
		}
	}

	canvas, err := repo.GetCanvas(ctx, s.DB, canvasID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCanvasNotFound
		}
		return nil, err
	}
	if !canvas.IsActive {
		return nil, ErrCanvasInactive
	}
	if x < 0 || x >= canvas.Width || y < 0 || y >= canvas.Height {
		return nil, ErrOutOfBounds
	}
	color, err = NormalizeColor(color)
	if err != nil {
		return nil, err
	}

	limit, cooldown := policyFor(canvas, who)

	var result *PlacementResult
	attempts := s.CommitAttempts
	if attempts < 1 {
		attempts = defaultCommitAttempts
	}
	for attempt := 0; ; attempt++ {
		result, err = s.commit(ctx, canvas, x, y, color, who, idemKey, limit, cooldown, now)
		if err == nil {
			break
		}
		// Only lock-contention errors are retried: SQLITE_BUSY means the
		// write lock was never acquired, so the transaction cannot have
		// committed. Any other failure is surfaced on the first attempt —
		// re-running a transaction whose COMMIT outcome is unknown could
		// charge quota twice.
		if !retryableCommitErr(err) || attempt+1 >= attempts {
			return nil, err
		}
		time.Sleep(time.Duration(attempt+1) * 25 * time.Millisecond)
	}

	span.SetAttributes(attribute.Int("quota.remaining", result.Remaining))
	if s.Feed != nil && result.Placement != nil {
		s.Feed.Publish(*result.Placement)
	}
	return result, nil
}

// commit runs the atomic portion of the pipeline: quota increment, cell
// upsert, history append, and idempotency record, in one transaction.
func (s *PlacementService) commit(ctx context.Context, canvas *domain.Canvas, x, y int, color string, who domain.Identity, idemKey string, limit int, cooldown time.Duration, now time.Time) (*PlacementResult, error) {
	var result PlacementResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subject := who.Key()
		if err := repo.EnsureQuotaWindow(ctx, tx, canvas.ID, who, now); err != nil {
			return err
		}
		if err := repo.ResetQuotaWindowIfExpired(ctx, tx, canvas.ID, subject, WindowLength, now); err != nil {
			return err
		}

		taken, err := repo.IncrementQuotaWindow(ctx, tx, canvas.ID, subject, limit, cooldown, now)
		if err != nil {
			return err
		}
		if !taken {
			denial, err := s.denialFor(ctx, tx, canvas.ID, subject, limit, cooldown, now)
			if err != nil {
				return err
			}
			return denial // rolls the transaction back
		}

		prev, err := repo.UpsertPixel(ctx, tx, canvas.ID, x, y, color, who, now)
		if err != nil {
			return err
		}
		rec, err := repo.AppendPlacement(tx, canvas.ID, x, y, color, who, now)
		if err != nil {
			return err
		}

		if idemKey != "" {
			ttl := s.IdempotencyTTL
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			if _, err := repo.CreateIdempotency(ctx, tx, subject, canvas.ID, idemKey, rec.ID, http.StatusOK, ttl); err != nil {
				// On repo.ErrDuplicate a concurrent retry with the same key
				// won the race; roll ours back so quota is charged once.
				return err
			}
		}

		w, err := repo.GetQuotaWindow(ctx, tx, canvas.ID, subject)
		if err != nil {
			return err
		}
		result = PlacementResult{
			Pixel: &domain.Pixel{
				CanvasID: canvas.ID, X: x, Y: y, Color: color,
				PlacedByKind: string(who.Kind), PlacedBy: who.ID, PlacedAt: now,
			},
			Placement:      rec,
			Previous:       prev,
			Remaining:      limit - w.CountInWindow,
			WindowResetsIn: windowRemaining(w.WindowStartedAt, now),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// denialFor inspects the window row after a refused increment and builds the
// matching QuotaDenial (window exhausted vs. cooldown active).
func (s *PlacementService) denialFor(ctx context.Context, tx *gorm.DB, canvasID, subject string, limit int, cooldown time.Duration, now time.Time) (*QuotaDenial, error) {
	w, err := repo.GetQuotaWindow(ctx, tx, canvasID, subject)
	if err != nil {
		return nil, err
	}
	if w.CountInWindow < limit && cooldown > 0 && w.LastPlacedAt != nil {
		return &QuotaDenial{
			RetryAfter: w.LastPlacedAt.Add(cooldown).Sub(now),
			Limit:      limit,
			Cooldown:   true,
		}, nil
	}
	return &QuotaDenial{
		RetryAfter: windowRemaining(w.WindowStartedAt, now),
		Limit:      limit,
	}, nil
}

// replay looks up a stored idempotency record and, when found, returns the
// original placement without committing anything new.
func (s *PlacementService) replay(ctx context.Context, canvasID string, who domain.Identity, idemKey string, now time.Time) (*PlacementResult, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, who.Key(), canvasID, idemKey, now)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var p domain.Placement
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", rec.PlacementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Record outlived its placement (canvas hard-removed); treat as
			// a fresh request.
			return nil, false, nil
		}
		return nil, false, err
	}

	px, err := repo.GetPixel(ctx, s.DB, canvasID, p.X, p.Y)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	// A replay consumes nothing, but clients key their UI off the budget
	// fields; report the live window instead of zero values.
	q, err := s.Remaining(ctx, canvasID, who)
	if err != nil {
		return nil, false, err
	}
	return &PlacementResult{
		Pixel:          px,
		Placement:      &p,
		Remaining:      q.Remaining,
		WindowResetsIn: q.WindowResetsIn,
		Replayed:       true,
	}, true, nil
}

// Remaining reports the identity's current budget on the canvas without
// consuming quota. A missing window row means a full budget.
func (s *PlacementService) Remaining(ctx context.Context, canvasID string, who domain.Identity) (*QuotaStatus, error) {
	tr := otel.Tracer("services/PlacementService")
	ctx, span := tr.Start(ctx, "Remaining",
		trace.WithAttributes(
			attribute.String("canvas.id", canvasID),
			attribute.String("identity.kind", string(who.Kind)),
		),
	)
	defer span.End()

	if who.IsZero() {
		return nil, ErrIdentityMissing
	}
	canvas, err := repo.GetCanvas(ctx, s.DB, canvasID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCanvasNotFound
		}
		return nil, err
	}
	limit, cooldown := policyFor(canvas, who)
	now := s.now()

	status := &QuotaStatus{
		Limit:           limit,
		Remaining:       limit,
		WindowResetsIn:  WindowLength,
		CooldownSeconds: int(cooldown / time.Second),
	}
	w, err := repo.GetQuotaWindow(ctx, s.DB, canvasID, who.Key())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return status, nil
		}
		return nil, err
	}
	if now.Sub(w.WindowStartedAt) >= WindowLength {
		// Expired window: the next placement resets it.
		return status, nil
	}
	status.Used = w.CountInWindow
	status.Remaining = limit - w.CountInWindow
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	status.WindowResetsIn = windowRemaining(w.WindowStartedAt, now)
	return status, nil
}

// retryableCommitErr reports whether a failed commit attempt is safe to
// re-run. SQLite reports lock contention (SQLITE_BUSY / SQLITE_LOCKED) before
// the transaction can land, so retrying never double-applies it. Quota
// denials and every other error are terminal.
func retryableCommitErr(err error) bool {
	if err == nil {
		return false
	}
	if _, denied := AsQuotaDenial(err); denied {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// now returns the injected clock or wall time.
func (s *PlacementService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// policyFor selects the window limit and cooldown for the identity tier.
func policyFor(c *domain.Canvas, who domain.Identity) (limit int, cooldown time.Duration) {
	if who.Kind == domain.IdentityUser {
		return c.RegWindowLimit, time.Duration(c.RegCooldownSeconds) * time.Second
	}
	return c.AnonWindowLimit, time.Duration(c.AnonCooldownSeconds) * time.Second
}

// windowRemaining returns the time left in a window opened at startedAt,
// clamped to [0, WindowLength].
func windowRemaining(startedAt, now time.Time) time.Duration {
	left := WindowLength - now.Sub(startedAt)
	if left < 0 {
		return 0
	}
	if left > WindowLength {
		return WindowLength
	}
	return left
}

// NormalizeColor canonicalizes a hex color to lowercase #rrggbb. Three-digit
// shorthand (#abc) is expanded; anything else is ErrInvalidColor.
func NormalizeColor(c string) (string, error) {
	c = strings.ToLower(strings.TrimSpace(c))
	switch {
	case shortHexRE.MatchString(c):
		return "#" + strings.Repeat(string(c[1]), 2) +
			strings.Repeat(string(c[2]), 2) +
			strings.Repeat(string(c[3]), 2), nil
	case longHexRE.MatchString(c):
		return c, nil
	default:
		return "", ErrInvalidColor
	}
}

var (
	shortHexRE = regexp.MustCompile(`^#[0-9a-f]{3}$`)
	longHexRE  = regexp.MustCompile(`^#[0-9a-f]{6}$`)
)
