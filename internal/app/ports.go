// Package app defines the application layer "ports" (interfaces) and simple
// data contracts that the core use-cases of Wishaday depend upon. It follows
// a hexagonal (ports & adapters) design: this package declares what the core
// needs, while adapter packages (SQLite repository, filesystem media store,
// HTTP layer, janitor job) provide concrete implementations. No I/O, SQL, or
// network concerns belong here.
package app

import (
	"context"
	"time"

	"github.com/hareeshworks/wishaday/internal/domain"
)

// Clock abstracts time to enable deterministic testing of expiry logic.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
}

// WishRepository is the persistence port for wishes and their image records.
// Implementations must provide transactional isolation sufficient for the
// view-accounting guarantee: two concurrent View calls against the same
// near-exhausted wish must never both count a view past the limit.
type WishRepository interface {
	// Create inserts a new wish (and any attached image records), assigning
	// its ID. Returns domain.ErrSlugTaken when the slug already exists.
	Create(ctx context.Context, w *domain.Wish) error

	// FindBySlug returns the wish with its images eagerly loaded, whether or
	// not it is tombstoned. Returns domain.ErrNotFound when no row exists.
	FindBySlug(ctx context.Context, slug string) (*domain.Wish, error)

	// Save persists the wish's mutable state (counters and tombstone flags).
	Save(ctx context.Context, w *domain.Wish) error

	// Delete permanently removes the wish row, cascading to its images.
	Delete(ctx context.Context, w *domain.Wish) error

	// FindTombstonedBefore returns tombstoned wishes with deleted_at strictly
	// before cutoff, images eagerly loaded for deletion bookkeeping.
	FindTombstonedBefore(ctx context.Context, cutoff time.Time) ([]domain.Wish, error)

	// CountTombstoned splits tombstoned wishes around cutoff: ready holds
	// those purge-eligible (deleted_at < cutoff), inGrace the rest.
	CountTombstoned(ctx context.Context, cutoff time.Time) (ready, inGrace int, err error)

	CountAll(ctx context.Context) (int, error)
	CountImages(ctx context.Context) (int, error)

	// ListImages returns every image record, for orphan reconciliation.
	ListImages(ctx context.Context) ([]domain.WishImage, error)
	// DeleteImage removes a single image record by ID.
	DeleteImage(ctx context.Context, id int64) error

	// InTx runs fn against a transaction-scoped repository. fn returning an
	// error rolls the transaction back; otherwise it commits.
	InTx(ctx context.Context, fn func(WishRepository) error) error
}

// FileStore abstracts the on-disk media tree holding uploaded wish images.
type FileStore interface {
	// WishDir returns the directory holding all files for the given wish ID.
	WishDir(id int64) string
	// RemoveAll deletes a directory tree; an absent path is success.
	RemoveAll(path string) error
	// Exists reports whether the image at the given relative path is on disk.
	Exists(relPath string) bool
}

// Recorder receives operational counter events. Satisfied by the metrics
// manager; a nil Recorder on the Service disables recording.
type Recorder interface {
	Inc(name string, delta int64)
	Observe(name string, value int64)
}

// CreateInput carries the fields of a new wish. Validation of field lengths
// happens at the delivery layer; the at-least-one-limit rule is re-checked
// by the service.
type CreateInput struct {
	Title     string
	Message   string
	Theme     string
	ExpiresAt *time.Time
	MaxViews  *int
	IPHash    string
	Images    []string // relative media paths attached at creation
}

// CreateResult is returned on successful wish creation.
type CreateResult struct {
	Slug      string
	PublicURL string
}

// ViewPayload is the success result of the view protocol.
type ViewPayload struct {
	Title          string
	Message        string
	Theme          string
	Images         []string // public media URLs
	RemainingViews *int     // nil when no view limit is set
}

// WishStatus is the lifecycle state reported by Status.
type WishStatus string

const (
	StatusActive  WishStatus = "active"
	StatusExpired WishStatus = "expired"
	StatusDeleted WishStatus = "deleted"
)

// StatusPayload describes a wish without touching its counters.
type StatusPayload struct {
	Status         WishStatus
	ExpiryReason   domain.ExpiryReason // set only when Status is expired
	RemainingViews *int
	ExpiresAt      *time.Time
	DeletedAt      *time.Time
}

// SweepReport summarizes one reclamation sweep run.
type SweepReport struct {
	WishesDeleted int
	ImagesDeleted int
	Errors        int
}

// SummaryReport holds the read-only reclamation counters used for
// operational visibility. It never mutates anything.
type SummaryReport struct {
	ReadyForPurge int
	InGracePeriod int
	TotalWishes   int
	TotalImages   int
	GracePeriod   time.Duration
	SweepInterval time.Duration
}
