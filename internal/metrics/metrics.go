package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Collector struct {
	reg *prometheus.Registry

	FeedFetches   *prometheus.CounterVec   // dataset, result label: ok|error
	FetchDuration *prometheus.HistogramVec // dataset label

	RowsFetched   *prometheus.CounterVec // dataset label
	RowsInserted  *prometheus.CounterVec
	RowsSkipped   *prometheus.CounterVec
	RowsMalformed *prometheus.CounterVec

	CyclesRun prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	CollectInterval prometheus.Gauge // seconds; 0 for one-shot runs
	FeedRows        prometheus.Gauge
}

func NewCollector(collectInterval time.Duration, feedRows int) *Collector {
	reg := prometheus.NewRegistry()

	datasetLabels := []string{"dataset"}

	c := &Collector{
		reg: reg,
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_feed_fetches_total",
			Help: "Total feed fetch attempts by dataset and result.",
		}, []string{"dataset", "result"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collector_fetch_duration_seconds",
			Help:    "Duration of feed fetch and decode.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, datasetLabels),
		RowsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_rows_fetched_total",
			Help: "Total records returned by the feed.",
		}, datasetLabels),
		RowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_rows_inserted_total",
			Help: "Total new rows written to the store.",
		}, datasetLabels),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_rows_skipped_total",
			Help: "Total duplicate rows ignored on conflict.",
		}, datasetLabels),
		RowsMalformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_rows_malformed_total",
			Help: "Total rows rejected by per-record insert errors.",
		}, datasetLabels),
		CyclesRun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_cycles_total",
			Help: "Total collection cycles run.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		CollectInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_interval_seconds",
			Help: "Configured collection interval in seconds.",
		}),
		FeedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_feed_rows",
			Help: "Configured rows requested per feed fetch.",
		}),
	}

	// Register
	reg.MustRegister(
		c.FeedFetches, c.FetchDuration,
		c.RowsFetched, c.RowsInserted, c.RowsSkipped, c.RowsMalformed,
		c.CyclesRun,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.CollectInterval, c.FeedRows,
	)

	c.CollectInterval.Set(collectInterval.Seconds())
	c.FeedRows.Set(float64(feedRows))

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", addr))
	return srv
}
