// Package metrics provides a lightweight persistent metrics manager.
// It batches in-memory counter and summary observations and periodically
// flushes them to the shared SQLite database used for wishes. Only
// monotonic counters and simple (count,sum,min,max) summaries are
// supported; anything fancier belongs in an external system.
package metrics

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Config controls flush cadence and logging.
type Config struct {
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// Manager aggregates metric events and flushes them. It satisfies the
// app.Recorder port.
type Manager struct {
	cfg     Config
	db      *sql.DB
	events  chan event
	stop    chan struct{}
	done    chan struct{}
	started bool

	// in-memory deltas (protected by mu)
	mu        sync.Mutex
	counters  map[string]int64
	summaries map[string]*summary
}

type eventKind int

const (
	eventInc eventKind = iota + 1
	eventObserve
)

type event struct {
	kind eventKind
	name string
	v    int64
}

// summary aggregates observations for one name.
type summary struct {
	count int64
	sum   int64
	min   int64
	max   int64
}

// SummaryView is the exported, copyable form of a summary.
type SummaryView struct {
	Count int64 `json:"count"`
	Sum   int64 `json:"sum"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

// New creates a Manager. Call Start to begin background flushing.
func New(db *sql.DB, cfg Config) *Manager {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		db:        db,
		events:    make(chan event, 1024),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		counters:  make(map[string]int64),
		summaries: make(map[string]*summary),
	}
}

// InitSchema ensures the metrics tables exist.
func (m *Manager) InitSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS metrics_counters (
name TEXT PRIMARY KEY,
value INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS metrics_summaries (
name TEXT PRIMARY KEY,
count INTEGER NOT NULL,
sum INTEGER NOT NULL,
min INTEGER NOT NULL,
max INTEGER NOT NULL
);`
	_, err := m.db.ExecContext(ctx, ddl)
	return err
}

// Start launches the background flush loop.
func (m *Manager) Start(ctx context.Context) {
	if m.started {
		return
	}
	m.started = true
	go m.loop(ctx)
}

// Stop signals the flush loop to exit and performs a final flush.
func (m *Manager) Stop(ctx context.Context) {
	if !m.started {
		_ = m.flush(ctx)
		return
	}
	close(m.stop)
	<-m.done
	_ = m.flush(ctx)
}

// Inc increments a counter by delta (>=1). Never blocks; events are dropped
// best-effort when the buffer is full.
func (m *Manager) Inc(name string, delta int64) {
	if delta <= 0 {
		return
	}
	select {
	case m.events <- event{kind: eventInc, name: name, v: delta}:
	default:
	}
}

// Observe records a summary observation.
func (m *Manager) Observe(name string, value int64) {
	select {
	case m.events <- event{kind: eventObserve, name: name, v: value}:
	default:
	}
}

func (m *Manager) loop(ctx context.Context) {
	log := m.cfg.Logger.With("domain", "metrics")
	ticker := time.NewTicker(m.cfg.FlushInterval)
	defer func() {
		ticker.Stop()
		close(m.done)
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("metrics stop", "reason", "context_cancel")
			return
		case <-m.stop:
			log.Info("metrics stop", "reason", "stop_signal")
			return
		case ev := <-m.events:
			m.apply(ev)
		case <-ticker.C:
			if err := m.flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("flush", "error", err)
			}
		}
	}
}

func (m *Manager) apply(ev event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.kind {
	case eventInc:
		m.counters[ev.name] += ev.v
	case eventObserve:
		agg := m.summaries[ev.name]
		if agg == nil {
			m.summaries[ev.name] = &summary{count: 1, sum: ev.v, min: ev.v, max: ev.v}
			return
		}
		agg.count++
		agg.sum += ev.v
		if ev.v < agg.min {
			agg.min = ev.v
		}
		if ev.v > agg.max {
			agg.max = ev.v
		}
	}
}

// Snapshot returns persisted state layered with unflushed in-memory deltas.
func (m *Manager) Snapshot(ctx context.Context) (map[string]int64, map[string]SummaryView, error) {
	counters := make(map[string]int64)
	summaries := make(map[string]SummaryView)
	rows, err := m.db.QueryContext(ctx, `SELECT name, value FROM metrics_counters`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var n string
		var v int64
		if err := rows.Scan(&n, &v); err != nil {
			return nil, nil, err
		}
		counters[n] = v
	}
	srows, err := m.db.QueryContext(ctx, `SELECT name, count, sum, min, max FROM metrics_summaries`)
	if err != nil {
		return nil, nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var n string
		var sv SummaryView
		if err := srows.Scan(&n, &sv.Count, &sv.Sum, &sv.Min, &sv.Max); err != nil {
			return nil, nil, err
		}
		summaries[n] = sv
	}
	m.mu.Lock()
	for n, v := range m.counters {
		counters[n] += v
	}
	for n, agg := range m.summaries {
		cur, ok := summaries[n]
		if !ok {
			summaries[n] = SummaryView{Count: agg.count, Sum: agg.sum, Min: agg.min, Max: agg.max}
			continue
		}
		cur.Count += agg.count
		cur.Sum += agg.sum
		if agg.min < cur.Min {
			cur.Min = agg.min
		}
		if agg.max > cur.Max {
			cur.Max = agg.max
		}
		summaries[n] = cur
	}
	m.mu.Unlock()
	return counters, summaries, nil
}

// flush writes in-memory deltas to SQLite in one transaction and resets them.
func (m *Manager) flush(ctx context.Context) error {
	m.mu.Lock()
	if len(m.counters) == 0 && len(m.summaries) == 0 {
		m.mu.Unlock()
		return nil
	}
	cCopy := m.counters
	sCopy := m.summaries
	m.counters = make(map[string]int64)
	m.summaries = make(map[string]*summary)
	m.mu.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for name, delta := range cCopy {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metrics_counters(name,value) VALUES(?,?)
ON CONFLICT(name) DO UPDATE SET value = value + excluded.value`, name, delta); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	for name, agg := range sCopy {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metrics_summaries(name,count,sum,min,max) VALUES(?,?,?,?,?)
ON CONFLICT(name) DO UPDATE SET
count = metrics_summaries.count + excluded.count,
sum = metrics_summaries.sum + excluded.sum,
min = MIN(metrics_summaries.min, excluded.min),
max = MAX(metrics_summaries.max, excluded.max)`,
			name, agg.count, agg.sum, agg.min, agg.max); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
