// Package collector pulls the live feeds and lands them in the store with
// idempotent insert semantics.
package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pulsetransit/internal/feed"
	"pulsetransit/internal/metrics"
	"pulsetransit/internal/publisher"
	"pulsetransit/internal/store"
)

// Outcome classifies what happened to a single fetched record. The feed is
// noisy, so "this row went nowhere" is a normal, counted result rather
// than a silent catch.
type Outcome int

const (
	// OutcomeInserted means a new row was written.
	OutcomeInserted Outcome = iota
	// OutcomeSkipped means the row duplicated an existing uniqueness key.
	OutcomeSkipped
	// OutcomeMalformed means the insert itself failed; the record is
	// logged and dropped without aborting the batch.
	OutcomeMalformed
)

// Result summarizes one resource's collection cycle.
type Result struct {
	Dataset     string
	CollectedAt time.Time
	Fetched     int
	Inserted    int
	Skipped     int
	Malformed   int
}

// Collector runs collection cycles. Metrics and the NATS publisher are
// optional; a nil value disables that concern.
type Collector struct {
	store   *store.Store
	client  *feed.Client
	logger  *zap.Logger
	metrics *metrics.Collector
	pub     *publisher.NATSPublisher
}

func New(st *store.Store, client *feed.Client, logger *zap.Logger, m *metrics.Collector, pub *publisher.NATSPublisher) *Collector {
	return &Collector{
		store:   st,
		client:  client,
		logger:  logger,
		metrics: m,
		pub:     pub,
	}
}

// CollectEstimations fetches the arrival-estimation dataset and inserts
// every record in one transaction. Each inserted row carries the cycle's
// shared collected_at stamp so later queries can group by collection run.
func (c *Collector) CollectEstimations(ctx context.Context) (Result, error) {
	res := Result{Dataset: feed.DatasetEstimations, CollectedAt: time.Now().UTC()}

	records, err := c.fetchEstimations(ctx)
	if err != nil {
		return res, err
	}
	res.Fetched = len(records)

	stamp := res.CollectedAt.Format(time.RFC3339)
	tx, err := c.store.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin estimaciones batch: %w", err)
	}

	for _, rec := range records {
		var predicted *string
		if at := rec.PredictedArrival(); at != nil {
			p := at.Format(time.RFC3339)
			predicted = &p
		}

		row := store.Estimation{
			CollectedAt:      stamp,
			StopID:           rec.StopID.Ptr(),
			Line:             rec.Line.Ptr(),
			FeedInstant:      rec.FeedInstant.Ptr(),
			ETA1:             rec.ETA1.Ptr(),
			ETA2:             rec.ETA2.Ptr(),
			Distance1:        rec.Distance1.Ptr(),
			Distance2:        rec.Distance2.Ptr(),
			Destination1:     rec.Destination1.Ptr(),
			Destination2:     rec.Destination2.Ptr(),
			PredictedArrival: predicted,
		}

		inserted, err := c.store.InsertEstimation(ctx, tx, row)
		if c.recordOutcome(&res, inserted, err) == OutcomeMalformed {
			c.logger.Warn("estimaciones insert failed",
				zap.Any("stop_id", row.StopID),
				zap.Any("line", row.Line),
				zap.Error(err),
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit estimaciones batch: %w", err)
	}

	c.finishCycle(res)
	return res, nil
}

// CollectPositions fetches the vehicle-position dataset and inserts every
// record in one transaction. Newly inserted positions are also fanned out
// to NATS when a publisher is configured.
func (c *Collector) CollectPositions(ctx context.Context) (Result, error) {
	res := Result{Dataset: feed.DatasetPositions, CollectedAt: time.Now().UTC()}

	records, err := c.fetchPositions(ctx)
	if err != nil {
		return res, err
	}
	res.Fetched = len(records)

	stamp := res.CollectedAt.Format(time.RFC3339)
	tx, err := c.store.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin posiciones batch: %w", err)
	}

	for _, rec := range records {
		row := store.Position{
			CollectedAt: stamp,
			Instant:     rec.Instant.Ptr(),
			Vehicle:     rec.Vehicle.Ptr(),
			Line:        rec.Line.Ptr(),
			Lat:         rec.Lat.Ptr(),
			Lon:         rec.Lon.Ptr(),
			Speed:       rec.Speed.Ptr(),
			Status:      rec.Status.Ptr(),
		}

		inserted, err := c.store.InsertPosition(ctx, tx, row)
		switch c.recordOutcome(&res, inserted, err) {
		case OutcomeMalformed:
			c.logger.Warn("posiciones insert failed",
				zap.Any("vehicle", row.Vehicle),
				zap.Any("instant", row.Instant),
				zap.Error(err),
			)
		case OutcomeInserted:
			c.publishPosition(row, res.CollectedAt)
		}
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit posiciones batch: %w", err)
	}

	c.finishCycle(res)
	return res, nil
}

func (c *Collector) fetchEstimations(ctx context.Context) ([]feed.EstimationRecord, error) {
	start := time.Now()
	records, err := c.client.FetchEstimations(ctx)
	c.observeFetch(feed.DatasetEstimations, start, err)
	return records, err
}

func (c *Collector) fetchPositions(ctx context.Context) ([]feed.PositionRecord, error) {
	start := time.Now()
	records, err := c.client.FetchPositions(ctx)
	c.observeFetch(feed.DatasetPositions, start, err)
	return records, err
}

func (c *Collector) observeFetch(dataset string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.metrics.FeedFetches.WithLabelValues(dataset, result).Inc()
	c.metrics.FetchDuration.WithLabelValues(dataset).Observe(time.Since(start).Seconds())
}

func (c *Collector) recordOutcome(res *Result, inserted bool, err error) Outcome {
	switch {
	case err != nil:
		res.Malformed++
		return OutcomeMalformed
	case inserted:
		res.Inserted++
		return OutcomeInserted
	default:
		res.Skipped++
		return OutcomeSkipped
	}
}

func (c *Collector) publishPosition(row store.Position, collectedAt time.Time) {
	if c.pub == nil {
		return
	}
	msg := publisher.PositionMessage{
		Vehicle:     row.Vehicle,
		Line:        row.Line,
		Instant:     row.Instant,
		Lat:         row.Lat,
		Lon:         row.Lon,
		Speed:       row.Speed,
		Status:      row.Status,
		CollectedAt: collectedAt,
	}
	if err := c.pub.PublishPosition(msg); err != nil {
		c.logger.Warn("position publish failed", zap.Error(err))
	}
}

func (c *Collector) finishCycle(res Result) {
	if c.metrics != nil {
		c.metrics.RowsFetched.WithLabelValues(res.Dataset).Add(float64(res.Fetched))
		c.metrics.RowsInserted.WithLabelValues(res.Dataset).Add(float64(res.Inserted))
		c.metrics.RowsSkipped.WithLabelValues(res.Dataset).Add(float64(res.Skipped))
		c.metrics.RowsMalformed.WithLabelValues(res.Dataset).Add(float64(res.Malformed))
	}
	c.logger.Info(fmt.Sprintf("%s: %d new rows from %d fetched", res.Dataset, res.Inserted, res.Fetched),
		zap.Time("collected_at", res.CollectedAt),
		zap.Int("skipped", res.Skipped),
		zap.Int("malformed", res.Malformed),
	)
}
