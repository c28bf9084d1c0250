// Package janitor implements the background reclamation sweep: a periodic
// job that permanently removes tombstoned wishes once their grace period
// has elapsed, plus best-effort orphan image reconciliation. It runs
// independently from the request path so lifecycle concerns stay isolated
// from view accounting.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hareeshworks/wishaday/internal/app"
)

// Sweeper abstracts the core operations the janitor drives. Satisfied by
// *app.Service.
type Sweeper interface {
	// RunSweep purges tombstoned wishes past their grace period.
	RunSweep(ctx context.Context) (app.SweepReport, error)
	// ReconcileImages removes image records whose files are gone.
	ReconcileImages(ctx context.Context) (int, error)
}

// Config holds tunables for the Janitor.
type Config struct {
	Interval time.Duration // how often a cycle begins; <= 0 disables the janitor
	Logger   *slog.Logger  // optional logger (defaults to slog.Default())
}

// Metrics accumulates in-memory counters for operational insight.
type Metrics struct {
	mu                sync.Mutex
	Cycles            uint64
	WishesDeleted     uint64
	ImagesDeleted     uint64
	Errors            uint64
	OrphansRemoved    uint64
	LastCycleDuration time.Duration
}

// MetricsView is a read-only snapshot safe to copy.
type MetricsView struct {
	Cycles            uint64
	WishesDeleted     uint64
	ImagesDeleted     uint64
	Errors            uint64
	OrphansRemoved    uint64
	LastCycleDuration time.Duration
}

func (m *Metrics) record(rep app.SweepReport, orphans int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cycles++
	m.WishesDeleted += uint64(rep.WishesDeleted)
	m.ImagesDeleted += uint64(rep.ImagesDeleted)
	m.Errors += uint64(rep.Errors)
	if orphans > 0 {
		m.OrphansRemoved += uint64(orphans)
	}
	m.LastCycleDuration = d
}

// Janitor encapsulates the background sweep loop. Cycles run one at a time
// on a single goroutine, so a slow sweep delays the next tick instead of
// overlapping with it.
type Janitor struct {
	sweeper Sweeper
	cfg     Config
	metrics *Metrics

	ticker   *time.Ticker
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once
}

// New constructs but does not start a Janitor.
func New(sweeper Sweeper, cfg Config) *Janitor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Janitor{
		sweeper: sweeper,
		cfg:     cfg,
		metrics: &Metrics{},
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the janitor loop in a new goroutine. With a non-positive
// interval the janitor is disabled and Start is a no-op.
func (j *Janitor) Start(ctx context.Context) {
	if j.cfg.Interval <= 0 {
		j.cfg.Logger.Info("janitor disabled", "domain", "janitor")
		j.doneOnce.Do(func() { close(j.doneCh) })
		return
	}
	if j.ticker != nil {
		return // already started
	}
	j.ticker = time.NewTicker(j.cfg.Interval)
	go j.loop(ctx)
}

// Stop signals the loop to exit and waits for completion. Safe to call when
// the janitor was never started or was disabled.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
	if j.ticker == nil {
		j.doneOnce.Do(func() { close(j.doneCh) })
		return
	}
	<-j.doneCh
}

// MetricsSnapshot returns a copy of current metrics.
func (j *Janitor) MetricsSnapshot() MetricsView {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()
	return MetricsView{
		Cycles:            j.metrics.Cycles,
		WishesDeleted:     j.metrics.WishesDeleted,
		ImagesDeleted:     j.metrics.ImagesDeleted,
		Errors:            j.metrics.Errors,
		OrphansRemoved:    j.metrics.OrphansRemoved,
		LastCycleDuration: j.metrics.LastCycleDuration,
	}
}

func (j *Janitor) loop(ctx context.Context) {
	log := j.cfg.Logger.With("domain", "janitor")
	defer func() {
		j.ticker.Stop()
		j.doneOnce.Do(func() { close(j.doneCh) })
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("janitor stop", "reason", "context_cancel")
			return
		case <-j.stopCh:
			log.Info("janitor stop", "reason", "stop_signal")
			return
		case <-j.ticker.C:
			j.runCycle(ctx)
		}
	}
}

// runCycle performs one sweep plus orphan reconciliation.
func (j *Janitor) runCycle(ctx context.Context) {
	start := time.Now()
	log := j.cfg.Logger.With("domain", "janitor", "action", "cycle")
	rep, err := j.sweeper.RunSweep(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("sweep", "error", err)
	}
	orphans, rerr := j.sweeper.ReconcileImages(ctx)
	if rerr != nil && !errors.Is(rerr, context.Canceled) {
		log.Error("reconcile", "error", rerr)
	}
	j.metrics.record(rep, orphans, time.Since(start))
	log.Info("cycle complete",
		"wishes_deleted", rep.WishesDeleted,
		"images_deleted", rep.ImagesDeleted,
		"errors", rep.Errors,
		"orphans_removed", orphans,
		"ms", time.Since(start).Milliseconds())
}
