package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Die PostgreSQL-Tests laufen nur mit TEST_DATABASE_URL, z.B.
// TEST_DATABASE_URL="host=localhost user=promise password=promise dbname=promise_test sslmode=disable"
func TestGormStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := OpenPostgres(dsn)
	require.NoError(t, err)
	store := NewGormStore(db)
	require.NoError(t, store.Migrate())
	require.NoError(t, db.Exec("TRUNCATE votes, status_events, evidence, users, promises").Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(30)
	t.Cleanup(func() { _ = sqlDB.Close() })

	runBackendSuite(t, func(t *testing.T) Backend { return store })
}
