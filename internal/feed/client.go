// Package feed fetches the city's live open-data resources: per-stop
// arrival estimations and fleet vehicle positions.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DatasetEstimations is the per-stop arrival estimation resource.
	DatasetEstimations = "control_flotas_estimaciones"
	// DatasetPositions is the fleet vehicle position resource.
	DatasetPositions = "control_flotas_posiciones"

	fetchTimeout = 30 * time.Second
)

// Client fetches datasets from the open-data API. Each dataset is a JSON
// object with a "resources" array of flat records.
type Client struct {
	httpClient *http.Client
	baseURL    string
	rows       int
	logger     *zap.Logger
}

// NewClient returns a client against the given API base URL requesting at
// most rows records per fetch.
func NewClient(baseURL string, rows int, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: fetchTimeout},
		baseURL:    baseURL,
		rows:       rows,
		logger:     logger,
	}
}

// FetchEstimations retrieves the current arrival estimations.
func (c *Client) FetchEstimations(ctx context.Context) ([]EstimationRecord, error) {
	var envelope struct {
		Resources []EstimationRecord `json:"resources"`
	}
	if err := c.fetchDataset(ctx, DatasetEstimations, &envelope); err != nil {
		return nil, err
	}
	return envelope.Resources, nil
}

// FetchPositions retrieves the current vehicle positions.
func (c *Client) FetchPositions(ctx context.Context) ([]PositionRecord, error) {
	var envelope struct {
		Resources []PositionRecord `json:"resources"`
	}
	if err := c.fetchDataset(ctx, DatasetPositions, &envelope); err != nil {
		return nil, err
	}
	return envelope.Resources, nil
}

func (c *Client) fetchDataset(ctx context.Context, dataset string, out any) error {
	url := fmt.Sprintf("%s/%s.json?rows=%d", c.baseURL, dataset, c.rows)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", dataset, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", dataset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %d", dataset, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", dataset, err)
	}

	c.logger.Debug("fetched dataset",
		zap.String("dataset", dataset),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
