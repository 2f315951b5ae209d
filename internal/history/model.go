package history

import (
	"context"
	"time"
)

// Entry is one posting of a URL.
type Entry struct {
	ID        string
	URL       string
	Nick      string
	Channel   string
	Title     string
	CreatedAt time.Time
}

// Store records postings and reports the first sighting of a URL.
type Store interface {
	// Lookup returns the earliest entry for url, or nil if it was never posted.
	Lookup(ctx context.Context, url string) (*Entry, error)
	// Record appends e. ID and CreatedAt are filled in when empty.
	Record(ctx context.Context, e *Entry) error
}

// Failure is one failed link resolution kept for operator diagnosis.
type Failure struct {
	ID        string
	URL       string
	Kind      string
	Status    int
	Detail    string
	CreatedAt time.Time
}

// NopStore is used when history is disabled. Lookups never find anything
// and records are discarded.
type NopStore struct{}

func (NopStore) Lookup(context.Context, string) (*Entry, error) { return nil, nil }
func (NopStore) Record(context.Context, *Entry) error          { return nil }
