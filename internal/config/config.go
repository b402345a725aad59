package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseDSN     string
	FeedBaseURL     string
	FeedRows        int
	GTFSDir         string
	MaxAge          time.Duration
	CollectInterval time.Duration
	Location        *time.Location
	NATSURL         string
	LogNATSSubjects bool
	MetricsAddr     string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Store DSN: a postgres:// URL or a sqlite file path
	cfg.DatabaseDSN = firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("DATABASE_PATH"),
		"data/tus.db",
	)

	cfg.FeedBaseURL = getenvDefault("FEED_BASE_URL", "http://datos.santander.es/api/rest/datasets")

	// Rows requested per feed fetch
	if v := os.Getenv("FEED_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid FEED_ROWS: %q", v)
		}
		cfg.FeedRows = n
	} else {
		cfg.FeedRows = 5000
	}

	cfg.GTFSDir = getenvDefault("GTFS_DIR", "data/gtfs-static")

	// Staleness threshold for the freshness validator (hours)
	if v := os.Getenv("MAX_AGE_HOURS"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h <= 0 {
			return nil, fmt.Errorf("invalid MAX_AGE_HOURS: %q", v)
		}
		cfg.MaxAge = time.Duration(h) * time.Hour
	} else {
		cfg.MaxAge = 2 * time.Hour
	}

	// Collection interval (seconds); 0 means run once and exit
	if v := os.Getenv("COLLECT_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			return nil, fmt.Errorf("invalid COLLECT_INTERVAL_SEC: %q", v)
		}
		cfg.CollectInterval = time.Duration(sec) * time.Second
	}

	// NATS fan-out of newly inserted positions; empty disables
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Debug logging for NATS publish subjects
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.LogNATSSubjects = true
		default:
			cfg.LogNATSSubjects = false
		}
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	// Time zone used to derive the civil date for schedule queries
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
