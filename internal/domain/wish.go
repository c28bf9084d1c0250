// Package domain holds the core records and rules for ephemeral wishes:
// the Wish and WishImage entities, slug generation, and the expiry
// evaluator. It performs no I/O; persistence lives behind the app ports.
package domain

import "time"

// Wish is the central entity: a short-lived message addressed by a public
// slug, limited by an absolute expiry time, a maximum view count, or both.
type Wish struct {
	ID           int64
	Slug         string
	Title        string // optional, empty means untitled
	Message      string
	Theme        string
	ExpiresAt    *time.Time // nil means no time limit
	MaxViews     *int       // nil means no view limit
	CurrentViews int
	IsDeleted    bool
	CreatedAt    time.Time
	DeletedAt    *time.Time // set exactly once, when IsDeleted flips true
	IPHash       string
	Images       []WishImage
}

// WishImage references one uploaded file belonging to a wish. It is never
// addressed on its own; deleting the wish row cascades to its images.
type WishImage struct {
	ID        int64
	WishID    int64
	Path      string // relative to the upload root
	CreatedAt time.Time
}

// RemainingViews returns the number of views left before the view limit
// fires, floored at zero. Returns nil when no view limit is set.
func (w *Wish) RemainingViews() *int {
	if w.MaxViews == nil {
		return nil
	}
	n := *w.MaxViews - w.CurrentViews
	if n < 0 {
		n = 0
	}
	return &n
}

// SoftDelete marks the wish as tombstoned at the given instant. Calling it
// on an already tombstoned wish is a no-op so DeletedAt is stamped once.
func (w *Wish) SoftDelete(now time.Time) {
	if w.IsDeleted {
		return
	}
	w.IsDeleted = true
	t := now
	w.DeletedAt = &t
}
