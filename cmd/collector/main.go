package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pulsetransit/internal/collector"
	"pulsetransit/internal/config"
	"pulsetransit/internal/feed"
	"pulsetransit/internal/metrics"
	"pulsetransit/internal/publisher"
	"pulsetransit/internal/store"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	// One positional argument selects the feed(s); default is both.
	var modeArg string
	if len(os.Args) > 1 {
		modeArg = os.Args[1]
	}
	mode, err := collector.ParseMode(modeArg)
	if err != nil {
		logger.Fatal("bad mode argument", zap.Error(err))
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("store open error", zap.Error(err))
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		logger.Fatal("store ping error", zap.Error(err))
	}
	if err := st.InitSchema(ctx); err != nil {
		logger.Fatal("store schema error", zap.Error(err))
	}

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.CollectInterval, cfg.FeedRows)
		srv := mcol.Serve(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// NATS fan-out of new positions, when configured
	var pub *publisher.NATSPublisher
	if cfg.NATSURL != "" {
		pub, err = publisher.NewNATSPublisher(cfg.NATSURL, cfg.LogNATSSubjects, logger, wrapPublisherMetrics(mcol))
		if err != nil {
			logger.Fatal("nats error", zap.Error(err))
		}
		defer pub.Close()
	}

	client := feed.NewClient(cfg.FeedBaseURL, cfg.FeedRows, logger)
	col := collector.New(st, client, logger, mcol, pub)

	if cfg.CollectInterval > 0 {
		col.RunPeriodic(ctx, cfg.CollectInterval, mode)
	} else {
		col.RunCycle(ctx, mode)
	}
}

// wrapPublisherMetrics adapts the metrics Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()  { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc() { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
