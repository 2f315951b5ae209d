package history

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrorLog appends failed resolutions to the fetch_errors table.
type ErrorLog struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

func NewErrorLog(db *sql.DB) *ErrorLog {
	return &ErrorLog{db: db, now: time.Now}
}

func (l *ErrorLog) Record(ctx context.Context, f *Failure) error {
	if f.ID == "" {
		f.ID = ulid.Make().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = l.now().UTC()
	}

	var status sql.NullInt64
	if f.Status != 0 {
		status = sql.NullInt64{Int64: int64(f.Status), Valid: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO fetch_errors (id, url, kind, status, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, f.ID, f.URL, f.Kind, status, f.Detail, f.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// Recent returns up to limit failures, newest first.
func (l *ErrorLog) Recent(ctx context.Context, limit int) ([]Failure, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, url, kind, status, detail, created_at
		FROM fetch_errors
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Failure
	for rows.Next() {
		var f Failure
		var status sql.NullInt64
		var createdAt string

		if err := rows.Scan(&f.ID, &f.URL, &f.Kind, &status, &f.Detail, &createdAt); err != nil {
			return nil, err
		}

		f.Status = int(status.Int64)
		f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		result = append(result, f)
	}

	return result, rows.Err()
}
