// Package validator is the read-only health check over the collector
// tables: it asserts both live-data tables have rows and that the newest
// row is recent enough.
package validator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pulsetransit/internal/feed"
	"pulsetransit/internal/store"
)

// TableStatus is the freshness verdict for one table.
type TableStatus struct {
	Table  string
	OK     bool
	Rows   int64
	Latest *time.Time
	Age    time.Duration
	Reason string
}

// String renders the human-readable status line the CLI prints.
func (s TableStatus) String() string {
	verdict := "OK"
	if !s.OK {
		verdict = "FAIL"
	}
	if s.Latest == nil {
		return fmt.Sprintf("  %s — %s: %s", verdict, s.Table, s.Reason)
	}
	return fmt.Sprintf("  %s — %s: %d rows, latest %s (%d min ago)",
		verdict, s.Table, s.Rows, s.Latest.UTC().Format("15:04 UTC"), int(s.Age.Minutes()))
}

// Validator checks both tables against a staleness threshold. The clock is
// injectable so tests can pin "now".
type Validator struct {
	store  *store.Store
	maxAge time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func New(st *store.Store, maxAge time.Duration, logger *zap.Logger) *Validator {
	return &Validator{
		store:  st,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// CheckTable computes row count and the age of the newest relevant
// timestamp. A table with no rows cannot have an age and fails outright.
func (v *Validator) CheckTable(ctx context.Context, table, timeCol string) (TableStatus, error) {
	status := TableStatus{Table: table}

	count, latest, err := v.store.TableStats(ctx, table, timeCol)
	if err != nil {
		return status, err
	}
	status.Rows = count

	if latest == nil {
		status.Reason = "no data at all"
		return status, nil
	}

	latestAt, err := feed.ParseInstant(*latest)
	if err != nil {
		status.Reason = fmt.Sprintf("unparseable latest timestamp %q", *latest)
		return status, nil
	}
	latestUTC := latestAt.UTC()
	status.Latest = &latestUTC
	status.Age = v.now().UTC().Sub(latestUTC)
	status.OK = status.Age < v.maxAge
	return status, nil
}

// Run checks both tables and reports the aggregate verdict. The checks
// never throw on staleness; a stale table is a reported status, and only a
// store-level error fails the run itself.
func (v *Validator) Run(ctx context.Context) (bool, []TableStatus, error) {
	checks := []struct {
		table   string
		timeCol string
	}{
		{"estimaciones", "collected_at"},
		{"posiciones", "instante"},
	}

	pass := true
	statuses := make([]TableStatus, 0, len(checks))
	for _, c := range checks {
		status, err := v.CheckTable(ctx, c.table, c.timeCol)
		if err != nil {
			return false, statuses, err
		}
		v.logger.Info("table checked",
			zap.String("table", status.Table),
			zap.Bool("ok", status.OK),
			zap.Int64("rows", status.Rows),
			zap.Duration("age", status.Age),
		)
		statuses = append(statuses, status)
		if !status.OK {
			pass = false
		}
	}
	return pass, statuses, nil
}
