package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/smarthome-hub/internal/infrastructure/database"
)

// Page size bounds.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// createdAtLayout is fixed width so created_at orders correctly as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

const entryColumns = "id, action, entity_type, entity_id, source, details, created_at"

// Query selects entries. Empty string fields match everything.
type Query struct {
	Action     string
	EntityType string
	EntityID   string
	Limit      int // 0 means defaultLimit; capped at maxLimit
	Offset     int
}

// Page is one window of matching entries, newest first. Total counts
// every match, not just this window.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Store persists entries.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, q Query) (*Page, error)
}

// SQLStore is a Store over the hub database.
type SQLStore struct {
	db *database.DB
}

// NewSQLStore returns a store writing to db, which must be migrated.
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Append inserts e, filling in ID and CreatedAt when they are unset.
func (s *SQLStore) Append(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "aud-" + uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	var details sql.NullString
	if e.Details != nil {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encoding details of %s %s: %w", e.Action, e.EntityID, err)
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_logs ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Action, e.EntityType, e.EntityID, e.Source, details,
		e.CreatedAt.UTC().Format(createdAtLayout),
	); err != nil {
		return fmt.Errorf("appending audit entry %s: %w", e.ID, err)
	}
	return nil
}

// List returns the page of entries q selects.
func (s *SQLStore) List(ctx context.Context, q Query) (*Page, error) {
	q = q.bounded()
	where, args := q.where()

	page := &Page{Entries: []Entry{}, Limit: q.Limit, Offset: q.Offset}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_logs"+where, args...,
	).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}
	if page.Total <= q.Offset {
		return page, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM audit_logs"+where+
			" ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?",
		append(args, q.Limit, q.Offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		page.Entries = append(page.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	return page, nil
}

func (q Query) bounded() Query {
	switch {
	case q.Limit <= 0:
		q.Limit = defaultLimit
	case q.Limit > maxLimit:
		q.Limit = maxLimit
	}
	q.Offset = max(q.Offset, 0)
	return q
}

// where renders the non-empty fields of q as a WHERE clause. Column names
// are fixed; only values travel as arguments.
func (q Query) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	for _, f := range []struct{ column, value string }{
		{"action", q.Action},
		{"entity_type", q.EntityType},
		{"entity_id", q.EntityID},
	} {
		if f.value != "" {
			clauses = append(clauses, f.column+" = ?")
			args = append(args, f.value)
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e         Entry
		details   sql.NullString
		createdAt string
	)
	if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &e.Source, &details, &createdAt); err != nil {
		return e, fmt.Errorf("reading audit entry: %w", err)
	}
	// Undecodable details are dropped rather than failing the page.
	if details.Valid {
		json.Unmarshal([]byte(details.String), &e.Details) //nolint:errcheck // See above
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return e, fmt.Errorf("audit entry %s has bad timestamp %q: %w", e.ID, createdAt, err)
	}
	e.CreatedAt = t
	return e, nil
}
