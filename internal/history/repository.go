package history

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Repository handles post history persistence.
type Repository struct {
	db  *sql.DB
	mu  sync.Mutex // serialises writes
	now func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Lookup returns the first posting of url, or nil if not found.
func (r *Repository) Lookup(ctx context.Context, url string) (*Entry, error) {
	var e Entry
	var title sql.NullString
	var createdAt string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, url, nick, channel, title, created_at
		FROM posts WHERE url = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, url).Scan(&e.ID, &e.URL, &e.Nick, &e.Channel, &title, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.Title = title.String
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &e, nil
}

// Record appends a posting. Reposts are expected and each gets its own row.
func (r *Repository) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (id, url, nick, channel, title, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.URL, e.Nick, e.Channel, nullString(e.Title), e.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// nullString returns sql.NullString for optional text fields.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
