// Package sqlite provides the SQLite-backed implementation of the
// app.WishRepository port. Wishes and their image records live in two
// tables joined by a cascading foreign key, so deleting a wish row removes
// its image rows in the same statement.
//
// The view-accounting atomicity contract is carried by SQLite itself: open
// the database with _txlock=immediate so InTx takes the write lock at BEGIN,
// serializing concurrent read-check-increment sequences against the same
// file. Pair with _busy_timeout so waiting writers queue instead of failing.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/hareeshworks/wishaday/internal/app"
	"github.com/hareeshworks/wishaday/internal/domain"
)

var _ app.WishRepository = (*Repo)(nil)

// queryer is the common surface of *sql.DB and *sql.Tx the repository uses.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo implements app.WishRepository using SQLite (via database/sql). It is
// safe for concurrent use; database/sql manages connection pooling.
type Repo struct {
	db *sql.DB // nil when this Repo is transaction-scoped
	q  queryer
}

// New constructs a Repo, initializing the required schema if absent.
func New(db *sql.DB) (*Repo, error) {
	r := &Repo{db: db, q: db}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repo) init() error {
	schema := `CREATE TABLE IF NOT EXISTS wishes (
id INTEGER PRIMARY KEY AUTOINCREMENT,
slug TEXT NOT NULL UNIQUE,
title TEXT NOT NULL DEFAULT '',
message TEXT NOT NULL,
theme TEXT NOT NULL DEFAULT 'default',
expires_at INTEGER,
max_views INTEGER,
current_views INTEGER NOT NULL DEFAULT 0,
is_deleted INTEGER NOT NULL DEFAULT 0,
created_at INTEGER NOT NULL,
deleted_at INTEGER,
ip_hash TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_wishes_tombstone ON wishes(is_deleted, deleted_at);
CREATE TABLE IF NOT EXISTS wish_images (
id INTEGER PRIMARY KEY AUTOINCREMENT,
wish_id INTEGER NOT NULL REFERENCES wishes(id) ON DELETE CASCADE,
path TEXT NOT NULL,
created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wish_images_wish ON wish_images(wish_id);`
	_, err := r.db.Exec(schema)
	return err
}

// InTx runs fn against a transaction-scoped repository. When already inside
// a transaction the callback reuses it; SQLite has no real nesting and the
// outer scope already owns the write lock.
func (r *Repo) InTx(ctx context.Context, fn func(app.WishRepository) error) error {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Repo{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Create inserts the wish and its image records, assigning IDs.
func (r *Repo) Create(ctx context.Context, w *domain.Wish) error {
	const q = `INSERT INTO wishes (slug, title, message, theme, expires_at, max_views, current_views, is_deleted, created_at, deleted_at, ip_hash)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.q.ExecContext(ctx, q,
		w.Slug, w.Title, w.Message, w.Theme,
		nullUnix(w.ExpiresAt), nullInt(w.MaxViews),
		w.CurrentViews, boolInt(w.IsDeleted), w.CreatedAt.Unix(), nullUnix(w.DeletedAt), w.IPHash,
	)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return domain.ErrSlugTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = id
	for i := range w.Images {
		img := &w.Images[i]
		img.WishID = id
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO wish_images (wish_id, path, created_at) VALUES (?,?,?)`,
			id, img.Path, img.CreatedAt.Unix())
		if err != nil {
			return err
		}
		if img.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}

const wishColumns = `id, slug, title, message, theme, expires_at, max_views, current_views, is_deleted, created_at, deleted_at, ip_hash`

// FindBySlug returns the wish with images eagerly loaded, tombstoned or not.
func (r *Repo) FindBySlug(ctx context.Context, slug string) (*domain.Wish, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+wishColumns+` FROM wishes WHERE slug=?`, slug)
	w, err := scanWish(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadImages(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Save persists the wish's mutable lifecycle state.
func (r *Repo) Save(ctx context.Context, w *domain.Wish) error {
	const q = `UPDATE wishes SET current_views=?, is_deleted=?, deleted_at=? WHERE id=?`
	res, err := r.q.ExecContext(ctx, q, w.CurrentViews, boolInt(w.IsDeleted), nullUnix(w.DeletedAt), w.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the wish row; image rows cascade via the foreign key.
func (r *Repo) Delete(ctx context.Context, w *domain.Wish) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM wishes WHERE id=?`, w.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindTombstonedBefore returns purge candidates with images loaded.
func (r *Repo) FindTombstonedBefore(ctx context.Context, cutoff time.Time) ([]domain.Wish, error) {
	const q = `SELECT ` + wishColumns + ` FROM wishes
WHERE is_deleted=1 AND deleted_at IS NOT NULL AND deleted_at < ?
ORDER BY deleted_at`
	rows, err := r.q.QueryContext(ctx, q, cutoff.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Wish
	for rows.Next() {
		w, err := scanWish(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.loadImages(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CountTombstoned splits tombstoned wishes into purge-eligible and in-grace.
func (r *Repo) CountTombstoned(ctx context.Context, cutoff time.Time) (ready, inGrace int, err error) {
	const q = `SELECT
COALESCE(SUM(CASE WHEN deleted_at < ? THEN 1 ELSE 0 END), 0),
COALESCE(SUM(CASE WHEN deleted_at >= ? THEN 1 ELSE 0 END), 0)
FROM wishes WHERE is_deleted=1 AND deleted_at IS NOT NULL`
	err = r.q.QueryRowContext(ctx, q, cutoff.Unix(), cutoff.Unix()).Scan(&ready, &inGrace)
	return ready, inGrace, err
}

func (r *Repo) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM wishes`).Scan(&n)
	return n, err
}

func (r *Repo) CountImages(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM wish_images`).Scan(&n)
	return n, err
}

// ListImages returns every image record, for orphan reconciliation.
func (r *Repo) ListImages(ctx context.Context) ([]domain.WishImage, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, wish_id, path, created_at FROM wish_images ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.WishImage
	for rows.Next() {
		var (
			img     domain.WishImage
			created int64
		)
		if err := rows.Scan(&img.ID, &img.WishID, &img.Path, &created); err != nil {
			return nil, err
		}
		img.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, img)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteImage(ctx context.Context, id int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM wish_images WHERE id=?`, id)
	return err
}

func (r *Repo) loadImages(ctx context.Context, w *domain.Wish) error {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, path, created_at FROM wish_images WHERE wish_id=? ORDER BY id`, w.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	w.Images = nil
	for rows.Next() {
		var (
			img     domain.WishImage
			created int64
		)
		if err := rows.Scan(&img.ID, &img.Path, &created); err != nil {
			return err
		}
		img.WishID = w.ID
		img.CreatedAt = time.Unix(created, 0).UTC()
		w.Images = append(w.Images, img)
	}
	return rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface{ Scan(dest ...any) error }

func scanWish(row rowScanner) (*domain.Wish, error) {
	var (
		w         domain.Wish
		expires   sql.NullInt64
		maxViews  sql.NullInt64
		deleted   int
		createdAt int64
		deletedAt sql.NullInt64
	)
	err := row.Scan(&w.ID, &w.Slug, &w.Title, &w.Message, &w.Theme,
		&expires, &maxViews, &w.CurrentViews, &deleted, &createdAt, &deletedAt, &w.IPHash)
	if err != nil {
		return nil, err
	}
	w.IsDeleted = deleted == 1
	w.CreatedAt = time.Unix(createdAt, 0).UTC()
	if expires.Valid {
		t := time.Unix(expires.Int64, 0).UTC()
		w.ExpiresAt = &t
	}
	if maxViews.Valid {
		n := int(maxViews.Int64)
		w.MaxViews = &n
	}
	if deletedAt.Valid {
		t := time.Unix(deletedAt.Int64, 0).UTC()
		w.DeletedAt = &t
	}
	return &w, nil
}

func nullUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
