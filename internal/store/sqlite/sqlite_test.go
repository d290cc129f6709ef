package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shoptalk/shoptalk/internal/store"
	"github.com/shoptalk/shoptalk/internal/store/storetest"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db)
}

func TestSqliteStoreConformance(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	// Re-running migrate against an already-migrated database is a no-op.
	require.NoError(t, migrate(db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	require.Equal(t, len(migrations), n)
}
