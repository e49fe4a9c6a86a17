package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ KV = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get implements KV
func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.queries.GetKV(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get key %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements KV
func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	if err := r.queries.UpsertKV(ctx, UpsertKVParams{Key: key, Value: value}); err != nil {
		return fmt.Errorf("set key %s: %w", key, err)
	}
	slog.DebugContext(ctx, "Key written to SQLite", "key", key, "bytes", len(value))
	return nil
}

// Delete implements KV
func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if err := r.queries.DeleteKV(ctx, key); err != nil {
		return fmt.Errorf("delete key %s: %w", key, err)
	}
	return nil
}

// CacheGenerations lists cache generation names in creation order.
func (r *SQLiteRepository) CacheGenerations(ctx context.Context) ([]string, error) {
	names, err := r.queries.ListCacheGenerations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cache generations: %w", err)
	}
	return names, nil
}

// EnsureCacheGeneration creates the generation if it does not exist yet.
func (r *SQLiteRepository) EnsureCacheGeneration(ctx context.Context, name string) error {
	if err := r.queries.CreateCacheGeneration(ctx, name); err != nil {
		return fmt.Errorf("create cache generation %s: %w", name, err)
	}
	return nil
}

// PutCacheEntry stores e, replacing any entry with the same generation and URL.
func (r *SQLiteRepository) PutCacheEntry(ctx context.Context, e CacheEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.CreateCacheGeneration(ctx, e.Generation); err != nil {
		return fmt.Errorf("create cache generation %s: %w", e.Generation, err)
	}
	err = q.UpsertCacheEntry(ctx, UpsertCacheEntryParams{
		Generation: e.Generation,
		Url:        e.Url,
		Status:     e.Status,
		Headers:    e.Headers,
		Body:       e.Body,
		StoredAt:   e.StoredAt,
	})
	if err != nil {
		return fmt.Errorf("upsert cache entry %s: %w", e.Url, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// GetCacheEntry returns the entry for url in generation, if any.
func (r *SQLiteRepository) GetCacheEntry(ctx context.Context, generation, url string) (CacheEntry, bool, error) {
	e, err := r.queries.GetCacheEntry(ctx, GetCacheEntryParams{Generation: generation, Url: url})
	if errors.Is(err, sql.ErrNoRows) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, fmt.Errorf("get cache entry %s: %w", url, err)
	}
	return e, true, nil
}

// DeleteCacheGeneration drops a generation and all of its entries. It reports
// whether the generation existed.
func (r *SQLiteRepository) DeleteCacheGeneration(ctx context.Context, name string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteCacheEntriesByGeneration(ctx, name); err != nil {
		return false, fmt.Errorf("delete cache entries of %s: %w", name, err)
	}
	n, err := q.DeleteCacheGeneration(ctx, name)
	if err != nil {
		return false, fmt.Errorf("delete cache generation %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit cache generation delete: %w", err)
	}

	slog.InfoContext(ctx, "Cache generation deleted from SQLite", "generation", name, "existed", n > 0)
	return n > 0, nil
}

// CountCacheEntries returns the number of entries stored in generation.
func (r *SQLiteRepository) CountCacheEntries(ctx context.Context, generation string) (int64, error) {
	n, err := r.queries.CountCacheEntries(ctx, generation)
	if err != nil {
		return 0, fmt.Errorf("count cache entries of %s: %w", generation, err)
	}
	return n, nil
}
