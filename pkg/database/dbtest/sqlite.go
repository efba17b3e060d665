// Package dbtest opens throwaway databases for repository tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite opens a private in-memory database and runs ddl against it.
// The pool is pinned to one connection so every query sees the same database.
func SQLite(t testing.TB, ddl ...string) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	for _, stmt := range ddl {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			t.Fatalf("apply ddl: %v", err)
		}
	}
	return db
}

// Schema is implemented by repositories that can create their own tables.
type Schema interface {
	EnsureTable(ctx context.Context) error
}

// Ensure runs EnsureTable on each repository.
func Ensure(t testing.TB, repos ...Schema) {
	t.Helper()
	for _, r := range repos {
		if err := r.EnsureTable(context.Background()); err != nil {
			t.Fatalf("ensure table: %v", err)
		}
	}
}
