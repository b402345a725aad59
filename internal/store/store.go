// Package store persists collected live-feed rows in a relational store.
// The default target is a single sqlite file; a postgres:// DSN switches to
// the pgx driver for deployments that already run Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the database handle together with the dialect picked from
// the DSN.
type Store struct {
	DB      *sql.DB
	dialect dialect
}

// Open connects to the store identified by dsn. Anything that is not a
// postgres URL is treated as a sqlite file path; the parent directory is
// created on demand so a fresh checkout can run the collector directly.
func Open(dsn string) (*Store, error) {
	driver, d := driverForDSN(dsn)

	if d == dialectSQLite {
		if dir := filepath.Dir(sqliteFilePath(dsn)); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if d == dialectPostgres {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	return &Store{DB: db, dialect: d}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.DB.PingContext(ctx)
}

// Begin opens the transaction that holds one resource's full insert batch.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	return s.DB.BeginTx(ctx, nil)
}

// Estimation is one normalized arrival prediction for a (stop, line) pair.
// Source fields are nullable; a row with missing pieces is still stored.
type Estimation struct {
	CollectedAt      string
	StopID           *int64
	Line             *string
	FeedInstant      *string
	ETA1             *int64
	ETA2             *int64
	Distance1        *int64
	Distance2        *int64
	Destination1     *string
	Destination2     *string
	PredictedArrival *string
}

// Position is one normalized vehicle location report.
type Position struct {
	CollectedAt string
	Instant     *string
	Vehicle     *int64
	Line        *int64
	Lat         *float64
	Lon         *float64
	Speed       *int64
	Status      *int64
}

// InsertEstimation inserts with ignore-on-conflict semantics against the
// (parada_id, linea, fech_actual) uniqueness constraint. It reports whether
// a new row was actually written; a duplicate is a no-op, not an error.
func (s *Store) InsertEstimation(ctx context.Context, tx *sql.Tx, e Estimation) (bool, error) {
	q := s.insertIgnore(
		"estimaciones",
		[]string{"collected_at", "parada_id", "linea", "fech_actual", "tiempo1", "tiempo2",
			"distancia1", "distancia2", "destino1", "destino2", "predicted_arrival"},
		[]string{"parada_id", "linea", "fech_actual"},
	)
	res, err := tx.ExecContext(ctx, q,
		e.CollectedAt, e.StopID, e.Line, e.FeedInstant, e.ETA1, e.ETA2,
		e.Distance1, e.Distance2, e.Destination1, e.Destination2, e.PredictedArrival,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertPosition inserts with ignore-on-conflict semantics against the
// (vehiculo, instante) uniqueness constraint.
func (s *Store) InsertPosition(ctx context.Context, tx *sql.Tx, p Position) (bool, error) {
	q := s.insertIgnore(
		"posiciones",
		[]string{"collected_at", "instante", "vehiculo", "linea", "lat", "lon", "velocidad", "estado"},
		[]string{"vehiculo", "instante"},
	)
	res, err := tx.ExecContext(ctx, q,
		p.CollectedAt, p.Instant, p.Vehicle, p.Line, p.Lat, p.Lon, p.Speed, p.Status,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TableStats returns the row count and the most recent value of the
// table's relevant timestamp column. latest is nil when the table is empty.
func (s *Store) TableStats(ctx context.Context, table, timeCol string) (int64, *string, error) {
	q, err := statsQuery(table, timeCol)
	if err != nil {
		return 0, nil, err
	}
	var count int64
	var latest sql.NullString
	if err := s.DB.QueryRowContext(ctx, q).Scan(&count, &latest); err != nil {
		return 0, nil, fmt.Errorf("stats for %s: %w", table, err)
	}
	if !latest.Valid {
		return count, nil, nil
	}
	return count, &latest.String, nil
}

// Only the two collector tables are queryable; anything else is a caller bug.
func statsQuery(table, timeCol string) (string, error) {
	switch {
	case table == "estimaciones" && timeCol == "collected_at",
		table == "posiciones" && timeCol == "instante":
		return fmt.Sprintf("SELECT COUNT(*), MAX(%s) FROM %s", timeCol, table), nil
	}
	return "", fmt.Errorf("unknown table/column pair %s.%s", table, timeCol)
}
