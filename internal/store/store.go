// Package store persists token frequencies in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/go-nbtok/internal/freq"
)

// ErrEmptyPath is returned by Open when no database path is given.
var ErrEmptyPath = errors.New("store path is empty")

const schema = `
CREATE TABLE IF NOT EXISTS token_counts (
	token TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS token_counts_count ON token_counts (count DESC);
`

const upsertCount = `INSERT INTO token_counts (token, count) VALUES (?, ?)
ON CONFLICT(token) DO UPDATE SET count = count + excluded.count`

// Store is a token frequency table. It is safe for concurrent use; writes
// are serialized by SQLite.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at path, creating the file and schema
// if needed. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	// ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(schema)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Add adds counts to the stored totals in one transaction.
func (s *Store) Add(ctx context.Context, counts freq.Counts) error {
	if len(counts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PreparexContext(ctx, upsertCount)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for tok, n := range counts {
		_, err = stmt.ExecContext(ctx, tok, n)
		if err != nil {
			return fmt.Errorf("upsert %q: %w", tok, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Top returns the n most frequent tokens, ordered by count descending then
// token ascending. n <= 0 returns every row.
func (s *Store) Top(ctx context.Context, n int) ([]freq.Entry, error) {
	query := `SELECT token, count FROM token_counts ORDER BY count DESC, token ASC`
	args := []any{}

	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}

	entries := []freq.Entry{}

	err := s.db.SelectContext(ctx, &entries, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select top: %w", err)
	}

	return entries, nil
}

// Get returns the stored count for token, or 0 if it was never added.
func (s *Store) Get(ctx context.Context, token string) (int, error) {
	var n int

	err := s.db.GetContext(ctx, &n, `SELECT count FROM token_counts WHERE token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("get %q: %w", token, err)
	}

	return n, nil
}

// Total returns the number of tokens counted and the number of distinct
// tokens.
func (s *Store) Total(ctx context.Context) (tokens, distinct int, err error) {
	var row struct {
		Tokens   sql.NullInt64 `db:"tokens"`
		Distinct int           `db:"distinct_tokens"`
	}

	err = s.db.GetContext(ctx, &row,
		`SELECT SUM(count) AS tokens, COUNT(*) AS distinct_tokens FROM token_counts`)
	if err != nil {
		return 0, 0, fmt.Errorf("total: %w", err)
	}

	return int(row.Tokens.Int64), row.Distinct, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
