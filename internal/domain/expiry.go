// Package domain expiry.go contains the expiry evaluator: a pure function
// of the wish limits, its counters, and the supplied instant.
package domain

import "time"

// ExpiryReason names which limit exhausted a wish.
type ExpiryReason string

const (
	ExpiredByTime  ExpiryReason = "time"
	ExpiredByViews ExpiryReason = "views"
)

// ExpiryResult reports whether a wish is expired and by which criterion.
type ExpiryResult struct {
	Expired bool
	Reason  ExpiryReason // valid only when Expired
}

// EvaluateExpiry decides whether a wish with the given limits and counter is
// expired at now. Time expiry requires now strictly after expiresAt; view
// expiry requires currentViews >= maxViews. When both limits are exhausted
// at once the reason is ExpiredByTime; the time check runs first, matching
// the behavior callers have depended on since the first release.
func EvaluateExpiry(expiresAt *time.Time, maxViews *int, currentViews int, now time.Time) ExpiryResult {
	if expiresAt != nil && now.After(*expiresAt) {
		return ExpiryResult{Expired: true, Reason: ExpiredByTime}
	}
	if maxViews != nil && currentViews >= *maxViews {
		return ExpiryResult{Expired: true, Reason: ExpiredByViews}
	}
	return ExpiryResult{}
}

// Expiry evaluates the wish against now using its current counters.
func (w *Wish) Expiry(now time.Time) ExpiryResult {
	return EvaluateExpiry(w.ExpiresAt, w.MaxViews, w.CurrentViews, now)
}

// ViewLimitReached reports whether the view limit is exhausted for the
// current counter value. Used for the post-increment tombstone check, where
// time is deliberately not re-evaluated.
func (w *Wish) ViewLimitReached() bool {
	return w.MaxViews != nil && w.CurrentViews >= *w.MaxViews
}
