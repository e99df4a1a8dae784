// Package services defines the business logic for canvases, placements, and
// state sync. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"
	"time"
)

// Canvas- and placement-related errors.
var (
	// ErrCanvasNotFound indicates that the requested canvas does not exist.
	ErrCanvasNotFound = errors.New("canvas not found")

	// ErrCanvasInactive is returned when a placement targets a canvas whose
	// is_active flag is false. Reads are unaffected.
	ErrCanvasInactive = errors.New("canvas is not accepting placements")

	// ErrOutOfBounds is returned when the requested coordinates fall outside
	// the canvas grid.
	ErrOutOfBounds = errors.New("coordinates out of canvas bounds")

	// ErrInvalidColor is returned when the submitted color is not a valid
	// hex value (#rgb or #rrggbb).
	ErrInvalidColor = errors.New("color must be a hex value like #1a2b3c")

	// ErrInvalidDimensions is returned when a canvas is created with a width
	// or height outside the allowed range.
	ErrInvalidDimensions = errors.New("canvas dimensions out of range")

	// ErrInvalidPolicy is returned when a canvas placement policy (window
	// limits, cooldowns) contains negative or zero values where positives
	// are required.
	ErrInvalidPolicy = errors.New("invalid placement policy")

	// ErrIdentityMissing indicates that no identity could be resolved for the
	// request. The placement pipeline treats this as fatal, never retried.
	ErrIdentityMissing = errors.New("no identity resolved for request")

	// ErrInvalidCursor is returned when an activity `before` cursor cannot be
	// parsed as an RFC3339 timestamp.
	ErrInvalidCursor = errors.New("invalid activity cursor")
)

// QuotaDenial is returned by the placement pipeline when the identity's
// window budget is exhausted or its cooldown has not elapsed. It carries the
// back-off hint the HTTP layer surfaces as retry_after_seconds.
type QuotaDenial struct {
	// RetryAfter is how long the caller should wait before retrying.
	// Always at least one second.
	RetryAfter time.Duration
	// Limit is the per-window budget that was exhausted.
	Limit int
	// Cooldown reports whether the denial came from the inter-placement
	// cooldown rather than the window limit.
	Cooldown bool
}

// Error implements the error interface.
func (d *QuotaDenial) Error() string {
	if d.Cooldown {
		return fmt.Sprintf("placement cooldown active, retry in %s", d.RetryAfter)
	}
	return fmt.Sprintf("placement quota exhausted, retry in %s", d.RetryAfter)
}

// RetryAfterSeconds returns the denial's back-off rounded up to whole
// seconds, minimum 1. This is the value written to Retry-After headers.
func (d *QuotaDenial) RetryAfterSeconds() int {
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// AsQuotaDenial unwraps err as a *QuotaDenial when possible.
func AsQuotaDenial(err error) (*QuotaDenial, bool) {
	var d *QuotaDenial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
