package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite"

	"github.com/ppetrov/opinia/internal/model"
)

// DefaultTable is the table read when configuration names none
const DefaultTable = "feedback"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore reads feedback records from a SQLite database
type SQLiteStore struct {
	db    *sql.DB
	path  string
	table string
}

// NewSQLiteStore opens the database and verifies the connection
func NewSQLiteStore(cfg model.StoreConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store requires a database path")
	}

	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	// The table name is interpolated into the query text, so reject anything
	// that is not a plain identifier.
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Path, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database %s: %w", cfg.Path, err)
	}

	return &SQLiteStore{
		db:    db,
		path:  cfg.Path,
		table: table,
	}, nil
}

// Kind identifies the backend
func (s *SQLiteStore) Kind() string {
	return "sqlite"
}

// Query reads all feedback rows ordered by id
func (s *SQLiteStore) Query(ctx context.Context) ([]model.FeedbackRecord, error) {
	query := fmt.Sprintf("SELECT id, source, message, created_at FROM %s ORDER BY id", s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	records := []model.FeedbackRecord{}
	for rows.Next() {
		var r model.FeedbackRecord
		var createdAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Source, &r.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning feedback row: %w", err)
		}
		if createdAt.Valid {
			r.Timestamp = parseTimestamp(createdAt.String)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback rows: %w", err)
	}

	return records, nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
