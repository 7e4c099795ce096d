// Package history keeps a sqlite ledger of prepared batches.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vmunix/batchprep/internal/batch"
	"github.com/vmunix/batchprep/internal/migrations"
)

// Entry is one reserved job.
type Entry struct {
	ID        int64
	BatchID   string
	Ordinal   int
	ItemID    string
	Title     string
	Path      string
	Container string
	Quality   string
	CreatedAt time.Time
}

// Filter specifies criteria for listing entries.
type Filter struct {
	BatchID string
	Limit   int
}

// Store persists ledger entries.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path and applies the schema.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Each connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// NewStore creates a ledger store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts every job of a batch in one transaction.
func (s *Store) Record(ctx context.Context, batchID string, jobs []batch.Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reservations (batch_id, ordinal, item_id, title, path, container, quality, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, j := range jobs {
		if _, err := stmt.ExecContext(ctx,
			batchID, j.Ordinal, j.Item.ID, j.Item.Title, j.Path,
			j.Container.Name, j.Quality.String(), now,
		); err != nil {
			return fmt.Errorf("insert reservation %d: %w", j.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List returns entries matching the filter, newest batch first and in
// selection order within a batch. Returns ErrNotFound if a batch filter matches nothing.
func (s *Store) List(ctx context.Context, f Filter) ([]*Entry, error) {
	var conditions []string
	var args []any

	if f.BatchID != "" {
		conditions = append(conditions, "batch_id = ?")
		args = append(args, f.BatchID)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := `SELECT id, batch_id, ordinal, item_id, title, path, container, quality, created_at
		FROM reservations ` + whereClause + ` ORDER BY created_at DESC, batch_id, ordinal`

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.BatchID, &e.Ordinal, &e.ItemID, &e.Title, &e.Path,
			&e.Container, &e.Quality, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}

	if f.BatchID != "" && len(results) == 0 {
		return nil, fmt.Errorf("%w: batch %s", ErrNotFound, f.BatchID)
	}
	return results, nil
}
