package testutil

import (
	"database/sql"
	"testing"

	"github.com/enzyme/urlbot/internal/database"
)

// TestDB creates an in-memory SQLite database with migrations applied.
// The database is automatically closed when the test completes.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("running migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db.DB
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return n
}

// CountPosts returns the number of history rows recorded for url.
func CountPosts(t *testing.T, db *sql.DB, url string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM posts WHERE url = ?", url).Scan(&n); err != nil {
		t.Fatalf("counting posts for %s: %v", url, err)
	}
	return n
}
