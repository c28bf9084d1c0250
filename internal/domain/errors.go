// Package domain errors.go contains sentinel errors
package domain

import (
	"errors"
	"fmt"
)

// Sentinel domain-level errors reused by higher layers.
var (
	// ErrNotFound covers both a truly absent wish and a tombstoned one;
	// callers must not be able to tell the two apart.
	ErrNotFound = errors.New("wish not found")

	// ErrGone is the match target for GoneError via errors.Is.
	ErrGone = errors.New("wish gone")

	ErrInvalidSlug = errors.New("invalid wish slug")
	ErrSlugTaken   = errors.New("slug already taken")
)

// GoneError reports that a wish was found but is expired. The View path
// tombstones the wish as a side effect of producing this error.
type GoneError struct {
	Reason ExpiryReason
}

func (e *GoneError) Error() string {
	return fmt.Sprintf("wish gone: expired by %s", e.Reason)
}

// Is makes errors.Is(err, ErrGone) true for any GoneError.
func (e *GoneError) Is(target error) bool { return target == ErrGone }
