package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A file-backed database per test: in-memory sqlite hands every pooled
// connection its own empty database.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func TestDriverForDSN(t *testing.T) {
	driver, d := driverForDSN("postgres://user@localhost:5432/tus")
	assert.Equal(t, "pgx", driver)
	assert.Equal(t, dialectPostgres, d)

	driver, d = driverForDSN("postgresql://user@localhost/tus")
	assert.Equal(t, "pgx", driver)
	assert.Equal(t, dialectPostgres, d)

	driver, d = driverForDSN("data/tus.db")
	assert.Equal(t, "sqlite3", driver)
	assert.Equal(t, dialectSQLite, d)

	driver, _ = driverForDSN("file:data/tus.db?cache=shared")
	assert.Equal(t, "sqlite3", driver)
}

func TestSQLiteFilePath(t *testing.T) {
	assert.Equal(t, "data/tus.db", sqliteFilePath("data/tus.db"))
	assert.Equal(t, "data/tus.db", sqliteFilePath("file:data/tus.db?cache=shared"))
}

func TestInsertIgnoreSQL(t *testing.T) {
	// Both dialects target the uniqueness constraint explicitly so only a
	// duplicate key is a no-op; anything else stays a real error.
	s := &Store{dialect: dialectSQLite}
	assert.Equal(t,
		"INSERT INTO posiciones (a, b) VALUES (?, ?) ON CONFLICT (a) DO NOTHING",
		s.insertIgnore("posiciones", []string{"a", "b"}, []string{"a"}))

	s = &Store{dialect: dialectPostgres}
	assert.Equal(t,
		"INSERT INTO posiciones (a, b) VALUES ($1, $2) ON CONFLICT (a) DO NOTHING",
		s.insertIgnore("posiciones", []string{"a", "b"}, []string{"a"}))
}

func TestInsertEstimationIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	row := Estimation{
		CollectedAt:      "2026-02-15T10:00:00Z",
		StopID:           i64(1001),
		Line:             str("1"),
		FeedInstant:      str("2026-02-15T09:59:30Z"),
		ETA1:             i64(120),
		ETA2:             i64(600),
		Destination1:     str("Valdenoja"),
		PredictedArrival: str("2026-02-15T10:01:30Z"),
	}

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	inserted, err := s.InsertEstimation(ctx, tx, row)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same (stop, line, feed-instant) key: a no-op, not an error.
	inserted, err = s.InsertEstimation(ctx, tx, row)
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, tx.Commit())

	count, _, err := s.TableStats(ctx, "estimaciones", "collected_at")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// A later cycle re-fetching the same feed instant changes nothing.
	row.CollectedAt = "2026-02-15T10:05:00Z"
	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	inserted, err = s.InsertEstimation(ctx, tx, row)
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, tx.Commit())
}

func TestInsertPositionIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	row := Position{
		CollectedAt: "2026-02-15T10:00:00Z",
		Instant:     str("2026-02-15T09:59:58Z"),
		Vehicle:     i64(42),
		Line:        i64(1),
		Lat:         f64(43.4623),
		Lon:         f64(-3.8099),
		Speed:       i64(23),
		Status:      i64(0),
	}

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	inserted, err := s.InsertPosition(ctx, tx, row)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertPosition(ctx, tx, row)
	require.NoError(t, err)
	assert.False(t, inserted)

	// Same vehicle, new instant: a fresh row.
	row.Instant = str("2026-02-15T10:00:58Z")
	inserted, err = s.InsertPosition(ctx, tx, row)
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NoError(t, tx.Commit())

	count, latest, err := s.TableStats(ctx, "posiciones", "instante")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.NotNil(t, latest)
	assert.Equal(t, "2026-02-15T10:00:58Z", *latest)
}

func TestInsertPositionNullInstantRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	// instante is NOT NULL; a record without it is a per-record failure
	// the collector logs and skips.
	_, err = s.InsertPosition(ctx, tx, Position{
		CollectedAt: "2026-02-15T10:00:00Z",
		Vehicle:     i64(42),
	})
	assert.Error(t, err)
}

func TestInsertEstimationPartialData(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	// Missing feed instant and ETA: still stored, prediction left null.
	inserted, err := s.InsertEstimation(ctx, tx, Estimation{
		CollectedAt: "2026-02-15T10:00:00Z",
		StopID:      i64(1001),
		Line:        str("1"),
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NoError(t, tx.Commit())
}

func TestTableStatsEmpty(t *testing.T) {
	s := openTestStore(t)

	count, latest, err := s.TableStats(context.Background(), "estimaciones", "collected_at")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Nil(t, latest)
}

func TestTableStatsUnknownTable(t *testing.T) {
	s := openTestStore(t)

	_, _, err := s.TableStats(context.Background(), "users", "created_at")
	assert.Error(t, err)
}
