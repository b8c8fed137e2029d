package scenario

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Runs against a live database only when TEST_DATABASE_URL is set.
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn, Config{Clock: steppingClock()})
	require.NoError(t, err)
	_, err = s.pool.Exec(ctx, "TRUNCATE scenarios RESTART IDENTITY")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStore(t *testing.T) {
	exerciseStore(t, newTestPostgresStore(t))
}

func TestPostgresStoreRejectsInvalidSave(t *testing.T) {
	exerciseSaveRejects(t, newTestPostgresStore(t))
}

func TestPostgresStoreKeepsWideIntegers(t *testing.T) {
	exerciseWideIntegers(t, newTestPostgresStore(t))
}
