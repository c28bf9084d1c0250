// Package app contains the application orchestration layer for Wishaday. It
// wires the domain expiry rules with persistence ports without performing
// any I/O itself.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hareeshworks/wishaday/internal/domain"
)

// ErrNoExpiryLimit indicates a create request with neither an expiry time
// nor a view limit; such a wish would never self-destruct.
var ErrNoExpiryLimit = errors.New("either expires_at or max_views must be set")

// ErrSlugExhausted indicates slug generation kept colliding; practically
// unreachable with an 8-character random slug unless the table is enormous.
var ErrSlugExhausted = errors.New("could not generate a unique slug")

// Counter names recorded through the Recorder port.
const (
	CounterWishesCreated    = "wishes_created_total"
	CounterWishesViewed     = "wishes_viewed_total"
	CounterWishesTombstoned = "wishes_tombstoned_total"
	CounterSweepDeleted     = "sweep_wishes_deleted_total"
	CounterSweepErrors      = "sweep_errors_total"
	SummarySweepPerRun      = "sweep_deleted_per_run"
)

// slugAttempts bounds retries when a freshly generated slug collides.
const slugAttempts = 5

// Service exposes the core wish operations: creation, the view-accounting
// protocol, explicit deletion, status, and the reclamation sweep.
type Service struct {
	Repo          WishRepository
	Files         FileStore
	Clock         Clock
	Metrics       Recorder // optional
	Logger        *slog.Logger
	BaseURL       string
	GracePeriod   time.Duration
	SweepInterval time.Duration
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) inc(name string, delta int64) {
	if s.Metrics != nil {
		s.Metrics.Inc(name, delta)
	}
}

func (s *Service) observe(name string, v int64) {
	if s.Metrics != nil {
		s.Metrics.Observe(name, v)
	}
}

// Create validates the input, generates a unique slug, and persists the new
// wish. The delivery layer has already checked field lengths; the
// at-least-one-limit invariant is re-checked here because every later
// lifecycle decision depends on it.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	if in.ExpiresAt == nil && in.MaxViews == nil {
		return CreateResult{}, ErrNoExpiryLimit
	}
	now := s.Clock.Now()
	theme := in.Theme
	if theme == "" {
		theme = "default"
	}
	w := &domain.Wish{
		Title:     in.Title,
		Message:   in.Message,
		Theme:     theme,
		ExpiresAt: in.ExpiresAt,
		MaxViews:  in.MaxViews,
		CreatedAt: now,
		IPHash:    in.IPHash,
	}
	for _, p := range in.Images {
		w.Images = append(w.Images, domain.WishImage{Path: p, CreatedAt: now})
	}
	for attempt := 0; attempt < slugAttempts; attempt++ {
		slug, err := domain.NewSlug()
		if err != nil {
			return CreateResult{}, err
		}
		w.Slug = slug
		err = s.Repo.Create(ctx, w)
		if errors.Is(err, domain.ErrSlugTaken) {
			continue
		}
		if err != nil {
			return CreateResult{}, err
		}
		s.inc(CounterWishesCreated, 1)
		s.log().Info("wish created", "slug", w.Slug, "id", w.ID)
		return CreateResult{Slug: w.Slug, PublicURL: s.publicURL(w.Slug)}, nil
	}
	return CreateResult{}, ErrSlugExhausted
}

// View executes the view-accounting protocol for one public read. The whole
// sequence runs inside a single repository transaction so concurrent reads
// of the same wish serialize: at most MaxViews successful views are ever
// returned.
//
// An already-expired wish is tombstoned without counting a view and the
// caller receives a GoneError carrying the reason; the tombstone write still
// commits. A wish whose limit is reached by this very view is tombstoned in
// the same unit of work that counts the view.
func (s *Service) View(ctx context.Context, slug string) (*ViewPayload, error) {
	if _, err := domain.ParseSlug(slug); err != nil {
		return nil, domain.ErrNotFound
	}
	var (
		payload *ViewPayload
		gone    *domain.GoneError
	)
	err := s.Repo.InTx(ctx, func(r WishRepository) error {
		w, err := r.FindBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if w.IsDeleted {
			// Tombstoned wishes are indistinguishable from absent ones.
			return domain.ErrNotFound
		}
		now := s.Clock.Now()
		if res := w.Expiry(now); res.Expired {
			// No free view for an already-expired wish: tombstone and bail
			// out without touching the counter. Returning nil here lets the
			// tombstone commit; the Gone outcome is reported after.
			w.SoftDelete(now)
			if err := r.Save(ctx, w); err != nil {
				return err
			}
			gone = &domain.GoneError{Reason: res.Reason}
			return nil
		}
		w.CurrentViews++
		if w.ViewLimitReached() {
			// Time is not re-checked post-increment; it did not change
			// within this operation.
			w.SoftDelete(now)
		}
		if err := r.Save(ctx, w); err != nil {
			return err
		}
		payload = s.viewPayload(w)
		if w.IsDeleted {
			s.log().Info("wish viewed and tombstoned", "slug", w.Slug, "views", w.CurrentViews)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if gone != nil {
		s.inc(CounterWishesTombstoned, 1)
		s.log().Info("wish expired on view", "slug", slug, "reason", string(gone.Reason))
		return nil, gone
	}
	s.inc(CounterWishesViewed, 1)
	return payload, nil
}

// Delete tombstones a wish on explicit request. An absent or already
// tombstoned wish reports ErrNotFound so callers cannot probe for
// tombstone existence.
func (s *Service) Delete(ctx context.Context, slug string) error {
	if _, err := domain.ParseSlug(slug); err != nil {
		return domain.ErrNotFound
	}
	err := s.Repo.InTx(ctx, func(r WishRepository) error {
		w, err := r.FindBySlug(ctx, slug)
		if err != nil {
			return err
		}
		if w.IsDeleted {
			return domain.ErrNotFound
		}
		w.SoftDelete(s.Clock.Now())
		return r.Save(ctx, w)
	})
	if err != nil {
		return err
	}
	s.inc(CounterWishesTombstoned, 1)
	s.log().Info("wish deleted by request", "slug", slug)
	return nil
}

// Status reports the lifecycle state of a wish without counting a view or
// mutating anything. Unlike View, a tombstoned wish is reported as deleted;
// only a truly absent slug yields ErrNotFound.
func (s *Service) Status(ctx context.Context, slug string) (*StatusPayload, error) {
	if _, err := domain.ParseSlug(slug); err != nil {
		return nil, domain.ErrNotFound
	}
	w, err := s.Repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if w.IsDeleted {
		return &StatusPayload{Status: StatusDeleted, DeletedAt: w.DeletedAt}, nil
	}
	st := &StatusPayload{
		Status:         StatusActive,
		RemainingViews: w.RemainingViews(),
		ExpiresAt:      w.ExpiresAt,
	}
	if res := w.Expiry(s.Clock.Now()); res.Expired {
		st.Status = StatusExpired
		st.ExpiryReason = res.Reason
	}
	return st, nil
}

// RunSweep permanently removes every tombstoned wish whose grace period has
// elapsed: its media directory first, then its row (cascading to image
// records). Each candidate is processed independently; one failure is
// logged, counted, and never aborts the batch. A file-deletion failure does
// not block the row delete — leftover files are reclaimed by a later
// ReconcileImages pass or by hand.
func (s *Service) RunSweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	log := s.log().With("domain", "sweep")
	cutoff := s.Clock.Now().Add(-s.GracePeriod)
	candidates, err := s.Repo.FindTombstonedBefore(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("find sweep candidates: %w", err)
	}
	for i := range candidates {
		w := &candidates[i]
		if err := s.Files.RemoveAll(s.Files.WishDir(w.ID)); err != nil {
			log.Error("remove media dir", "slug", w.Slug, "id", w.ID, "err", err)
			report.Errors++
		}
		err := s.Repo.InTx(ctx, func(r WishRepository) error {
			return r.Delete(ctx, w)
		})
		if err != nil {
			log.Error("delete wish row", "slug", w.Slug, "id", w.ID, "err", err)
			report.Errors++
			continue
		}
		report.WishesDeleted++
		report.ImagesDeleted += len(w.Images)
		log.Info("wish purged", "slug", w.Slug, "id", w.ID, "images", len(w.Images))
	}
	s.inc(CounterSweepDeleted, int64(report.WishesDeleted))
	s.inc(CounterSweepErrors, int64(report.Errors))
	s.observe(SummarySweepPerRun, int64(report.WishesDeleted))
	return report, nil
}

// ReconcileImages removes image records whose backing file no longer exists
// on disk. Best-effort housekeeping; it returns the number of records
// removed and the first listing error, never aborting on per-record
// failures.
func (s *Service) ReconcileImages(ctx context.Context) (int, error) {
	imgs, err := s.Repo.ListImages(ctx)
	if err != nil {
		return 0, fmt.Errorf("list image records: %w", err)
	}
	removed := 0
	log := s.log().With("domain", "sweep")
	for _, img := range imgs {
		if s.Files.Exists(img.Path) {
			continue
		}
		if err := s.Repo.DeleteImage(ctx, img.ID); err != nil {
			log.Error("delete orphan image record", "image_id", img.ID, "path", img.Path, "err", err)
			continue
		}
		removed++
		log.Info("orphan image record removed", "image_id", img.ID, "path", img.Path)
	}
	return removed, nil
}

// Summary returns the read-only reclamation counters. Safe to call at any
// time; performs no mutation.
func (s *Service) Summary(ctx context.Context) (SummaryReport, error) {
	cutoff := s.Clock.Now().Add(-s.GracePeriod)
	ready, inGrace, err := s.Repo.CountTombstoned(ctx, cutoff)
	if err != nil {
		return SummaryReport{}, err
	}
	total, err := s.Repo.CountAll(ctx)
	if err != nil {
		return SummaryReport{}, err
	}
	images, err := s.Repo.CountImages(ctx)
	if err != nil {
		return SummaryReport{}, err
	}
	return SummaryReport{
		ReadyForPurge: ready,
		InGracePeriod: inGrace,
		TotalWishes:   total,
		TotalImages:   images,
		GracePeriod:   s.GracePeriod,
		SweepInterval: s.SweepInterval,
	}, nil
}

func (s *Service) viewPayload(w *domain.Wish) *ViewPayload {
	urls := make([]string, 0, len(w.Images))
	for _, img := range w.Images {
		urls = append(urls, s.mediaURL(img.Path))
	}
	return &ViewPayload{
		Title:          w.Title,
		Message:        w.Message,
		Theme:          w.Theme,
		Images:         urls,
		RemainingViews: w.RemainingViews(),
	}
}

func (s *Service) publicURL(slug string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/w/" + slug
}

func (s *Service) mediaURL(relPath string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/media/" + relPath
}
