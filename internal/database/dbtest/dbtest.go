package dbtest

import (
	"context"
	"testing"

	"github.com/mixelka/codewatch/internal/database"
)

// NewTestDB creates an in-memory sqlite DB with migrations applied.
// It automatically closes the DB when the test completes.
func NewTestDB(t *testing.T, opts ...database.Option) *database.DB {
	t.Helper()

	db, err := database.New(database.DriverSQLite, ":memory:", opts...)
	if err != nil {
		t.Fatalf("creating test db: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing test db: %v", err)
		}
	})

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	return db
}
