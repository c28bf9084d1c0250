// Package main provides the wishaday binary entry point: an HTTP service for
// sharing short-lived celebratory wishes that self-destruct after a deadline
// or a view limit.
//
// The application flow:
//  1. Load defaults and apply environment variables.
//  2. Validate configuration.
//  3. Open the SQLite database and media directory under the data dir.
//  4. Wire the service, metrics manager, janitor, and HTTP handler.
//  5. Serve until interrupted, then shut down gracefully.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hareeshworks/wishaday/internal/app"
	"github.com/hareeshworks/wishaday/internal/config"
	"github.com/hareeshworks/wishaday/internal/httpx"
	"github.com/hareeshworks/wishaday/internal/janitor"
	"github.com/hareeshworks/wishaday/internal/metrics"
	"github.com/hareeshworks/wishaday/internal/ratelimit"
	"github.com/hareeshworks/wishaday/internal/store/filesystem"
	"github.com/hareeshworks/wishaday/internal/store/sqlite"
)

// realClock implements app.Clock using time.Now.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(2)
	}
	return cfg
}

func ensureDataDir(dir string) string {
	if st, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if mkErr := os.MkdirAll(dir, 0o700); mkErr != nil {
				slog.Error("failed to create data directory", "dir", dir, "err", mkErr)
				os.Exit(3)
			}
		} else {
			slog.Error("stat data directory", "dir", dir, "err", err)
			os.Exit(3)
		}
	} else if !st.IsDir() {
		slog.Error("data path not directory", "dir", dir)
		os.Exit(3)
	}
	return dir
}

// openDatabase opens the wishes database with WAL journaling and immediate
// transactions, so concurrent view accounting serializes at BEGIN.
func openDatabase(dataDir string) (*sql.DB, *sqlite.Repo) {
	dsn := "file:" + filepath.Join(dataDir, "wishaday.db") +
		"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("open sqlite driver", "err", err)
		os.Exit(4)
	}
	repo, err := sqlite.New(db)
	if err != nil {
		slog.Error("init sqlite schema", "err", err)
		os.Exit(4)
	}
	return db, repo
}

func newMediaStore(dataDir string) *filesystem.MediaStore {
	media, err := filesystem.New(filepath.Join(dataDir, "media"))
	if err != nil {
		slog.Error("init media store", "err", err)
		os.Exit(5)
	}
	return media
}

func newMetrics(ctx context.Context, db *sql.DB, cfg *config.Config) *metrics.Manager {
	m := metrics.New(db, metrics.Config{FlushInterval: cfg.MetricsFlushInterval})
	if err := m.InitSchema(ctx); err != nil {
		slog.Error("init metrics schema", "err", err)
		os.Exit(4)
	}
	m.Start(ctx)
	return m
}

func buildService(repo *sqlite.Repo, media *filesystem.MediaStore, m *metrics.Manager, cfg *config.Config, clock app.Clock) *app.Service {
	return &app.Service{
		Repo:          repo,
		Files:         media,
		Clock:         clock,
		Metrics:       m,
		Logger:        slog.Default(),
		BaseURL:       cfg.BaseURL,
		GracePeriod:   cfg.GracePeriod,
		SweepInterval: cfg.SweepInterval,
	}
}

func buildHandler(cfg *config.Config, svc *app.Service, m *metrics.Manager, db *sql.DB, media *filesystem.MediaStore, clock app.Clock) http.Handler {
	readiness := func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if _, err := os.ReadDir(media.Root()); err != nil {
			return err
		}
		return nil
	}
	h := httpx.New(svc, cfg.MaxBodyBytes, readiness)
	h.Limiter = ratelimit.New(cfg.RateLimitPerDay, 24*time.Hour, clock)
	h.AdminToken = cfg.AdminToken
	h.Metrics = metrics.Handler(m, cfg.MetricsToken)
	return h.Router()
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{Addr: cfg.Addr, Handler: handler, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}
}

func run() error {
	cfg := loadConfig()
	dataDir := ensureDataDir(cfg.DataDir)
	db, repo := openDatabase(dataDir)
	defer db.Close()
	media := newMediaStore(dataDir)
	clock := realClock{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := newMetrics(ctx, db, cfg)
	svc := buildService(repo, media, m, cfg, clock)

	jan := janitor.New(svc, janitor.Config{Interval: cfg.SweepInterval, Logger: slog.Default()})
	jan.Start(ctx)

	srv := newServer(cfg, buildHandler(cfg, svc, m, db, media, clock))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("starting server", "addr", cfg.Addr, "pid", os.Getpid())

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Error("server shutdown", "err", err)
		}
	}
	jan.Stop()
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Stop(flushCtx)
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
