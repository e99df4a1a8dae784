// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"errors"
	"strconv"
	"time"
)

// ErrBadCursor reports a `before` query value that is not RFC 3339.
var ErrBadCursor = errors.New("cursor must be an RFC 3339 timestamp")

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ParseBefore parses an optional RFC 3339 `before` cursor. An empty string
// returns (nil, nil); a malformed value returns ErrBadCursor.
//
// Example:
//
//	ts, err := utils.ParseBefore("2026-08-24T12:00:00Z")
func ParseBefore(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, ErrBadCursor
	}
	t = t.UTC()
	return &t, nil
}
