package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/enzyme/urlbot/internal/testutil"
)

func TestLookup_NotFound(t *testing.T) {
	db := testutil.TestDB(t)
	repo := NewRepository(db)

	e, err := repo.Lookup(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e != nil {
		t.Fatalf("expected nil, got %+v", e)
	}
}

func TestRecordAndLookup(t *testing.T) {
	db := testutil.TestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	entry := &Entry{URL: "https://example.com/a", Nick: "alice", Channel: "#go", Title: "A"}
	if err := repo.Record(ctx, entry); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Fatal("expected ID and CreatedAt to be filled in")
	}

	got, err := repo.Lookup(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry")
	}
	if got.Nick != "alice" || got.Channel != "#go" || got.Title != "A" {
		t.Errorf("unexpected entry %+v", got)
	}
	if got.CreatedAt.After(entry.CreatedAt) {
		t.Errorf("lookup timestamp %s after recorded %s", got.CreatedAt, entry.CreatedAt)
	}

	// Exact match only
	other, err := repo.Lookup(ctx, "https://example.com/a/")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if other != nil {
		t.Errorf("expected no match for different URL, got %+v", other)
	}
}

func TestLookup_ReturnsFirstSighting(t *testing.T) {
	db := testutil.TestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	posts := []*Entry{
		{URL: "https://example.com", Nick: "alice", Channel: "#a", CreatedAt: base},
		{URL: "https://example.com", Nick: "bob", Channel: "#b", CreatedAt: base.Add(time.Hour)},
		{URL: "https://example.com", Nick: "carol", Channel: "#c", CreatedAt: base.Add(2 * time.Hour)},
	}
	// Insert out of order; the earliest row still wins.
	for _, i := range []int{2, 0, 1} {
		if err := repo.Record(ctx, posts[i]); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := repo.Lookup(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Nick != "alice" {
		t.Errorf("nick = %q, want alice", got.Nick)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("created_at = %s, want %s", got.CreatedAt, base)
	}

	if n := testutil.CountPosts(t, db, "https://example.com"); n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestRecord_Concurrent(t *testing.T) {
	db := testutil.TestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Record(ctx, &Entry{URL: "https://example.com/race", Nick: "n", Channel: "#c"}); err != nil {
				t.Errorf("Record: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := testutil.CountRows(t, db, "posts"); n != 20 {
		t.Errorf("rows = %d, want 20", n)
	}
}

func TestNopStore(t *testing.T) {
	var s Store = NopStore{}
	ctx := context.Background()

	if err := s.Record(ctx, &Entry{URL: "https://example.com"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	e, err := s.Lookup(ctx, "https://example.com")
	if err != nil || e != nil {
		t.Fatalf("Lookup = %+v, %v; want nil, nil", e, err)
	}
}
