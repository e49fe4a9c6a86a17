package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

const getKV = `-- name: GetKV :one
SELECT value FROM kv_entries WHERE key = ?
`

func (q *Queries) GetKV(ctx context.Context, key string) (string, error) {
	row := q.db.QueryRowContext(ctx, getKV, key)
	var value string
	err := row.Scan(&value)
	return value, err
}

const upsertKV = `-- name: UpsertKV :exec
INSERT INTO kv_entries (key, value, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`

type UpsertKVParams struct {
	Key   string
	Value string
}

func (q *Queries) UpsertKV(ctx context.Context, arg UpsertKVParams) error {
	_, err := q.db.ExecContext(ctx, upsertKV, arg.Key, arg.Value)
	return err
}

const deleteKV = `-- name: DeleteKV :exec
DELETE FROM kv_entries WHERE key = ?
`

func (q *Queries) DeleteKV(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteKV, key)
	return err
}

const createCacheGeneration = `-- name: CreateCacheGeneration :exec
INSERT OR IGNORE INTO cache_generations (name) VALUES (?)
`

func (q *Queries) CreateCacheGeneration(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, createCacheGeneration, name)
	return err
}

const listCacheGenerations = `-- name: ListCacheGenerations :many
SELECT name FROM cache_generations ORDER BY rowid
`

func (q *Queries) ListCacheGenerations(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCacheGenerations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteCacheEntriesByGeneration = `-- name: DeleteCacheEntriesByGeneration :exec
DELETE FROM cache_entries WHERE generation = ?
`

func (q *Queries) DeleteCacheEntriesByGeneration(ctx context.Context, generation string) error {
	_, err := q.db.ExecContext(ctx, deleteCacheEntriesByGeneration, generation)
	return err
}

const deleteCacheGeneration = `-- name: DeleteCacheGeneration :execrows
DELETE FROM cache_generations WHERE name = ?
`

func (q *Queries) DeleteCacheGeneration(ctx context.Context, name string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCacheGeneration, name)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertCacheEntry = `-- name: UpsertCacheEntry :exec
INSERT INTO cache_entries (generation, url, status, headers, body, stored_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(generation, url) DO UPDATE SET
    status = excluded.status,
    headers = excluded.headers,
    body = excluded.body,
    stored_at = excluded.stored_at
`

type UpsertCacheEntryParams struct {
	Generation string
	Url        string
	Status     int64
	Headers    string
	Body       []byte
	StoredAt   int64
}

func (q *Queries) UpsertCacheEntry(ctx context.Context, arg UpsertCacheEntryParams) error {
	_, err := q.db.ExecContext(ctx, upsertCacheEntry,
		arg.Generation,
		arg.Url,
		arg.Status,
		arg.Headers,
		arg.Body,
		arg.StoredAt,
	)
	return err
}

const getCacheEntry = `-- name: GetCacheEntry :one
SELECT generation, url, status, headers, body, stored_at FROM cache_entries
WHERE generation = ? AND url = ?
`

type GetCacheEntryParams struct {
	Generation string
	Url        string
}

func (q *Queries) GetCacheEntry(ctx context.Context, arg GetCacheEntryParams) (CacheEntry, error) {
	row := q.db.QueryRowContext(ctx, getCacheEntry, arg.Generation, arg.Url)
	var i CacheEntry
	err := row.Scan(
		&i.Generation,
		&i.Url,
		&i.Status,
		&i.Headers,
		&i.Body,
		&i.StoredAt,
	)
	return i, err
}

const countCacheEntries = `-- name: CountCacheEntries :one
SELECT COUNT(*) FROM cache_entries WHERE generation = ?
`

func (q *Queries) CountCacheEntries(ctx context.Context, generation string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countCacheEntries, generation)
	var count int64
	err := row.Scan(&count)
	return count, err
}
