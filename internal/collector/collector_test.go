package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pulsetransit/internal/feed"
	"pulsetransit/internal/store"
)

const estimationsBody = `{
  "resources": [
    {
      "ayto:paradaId": "1001",
      "ayto:etiqLinea": "1",
      "ayto:fechActual": "2026-02-15T10:00:00Z",
      "ayto:tiempo1": "120",
      "ayto:tiempo2": "600",
      "ayto:destino1": "Valdenoja"
    },
    {
      "ayto:paradaId": "1001",
      "ayto:etiqLinea": "2",
      "ayto:fechActual": "2026-02-15T10:00:00Z",
      "ayto:tiempo1": "300",
      "ayto:destino1": "El Sardinero"
    },
    {
      "ayto:paradaId": "1001",
      "ayto:etiqLinea": "2",
      "ayto:fechActual": "2026-02-15T10:00:00Z",
      "ayto:tiempo1": "300",
      "ayto:destino1": "El Sardinero"
    },
    {
      "ayto:paradaId": "1002",
      "ayto:etiqLinea": "1",
      "ayto:fechActual": "not-a-timestamp",
      "ayto:tiempo1": "45"
    }
  ]
}`

const positionsBody = `{
  "resources": [
    {
      "ayto:instante": "2026-02-15T10:00:00Z",
      "ayto:vehiculo": "42",
      "ayto:linea": "1",
      "wgs84_pos:lat": "43.4623",
      "wgs84_pos:long": "-3.8099",
      "ayto:velocidad": "23",
      "ayto:estado": "0"
    },
    {
      "ayto:instante": "2026-02-15T10:00:05Z",
      "ayto:vehiculo": "43",
      "ayto:linea": "2",
      "wgs84_pos:lat": "43.4610",
      "wgs84_pos:long": "-3.7950",
      "ayto:velocidad": null,
      "ayto:estado": null
    },
    {
      "ayto:instante": null,
      "ayto:vehiculo": "44",
      "ayto:linea": "2"
    }
  ]
}`

func newTestCollector(t *testing.T, estimations, positions string) *Collector {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/" + feed.DatasetEstimations + ".json":
			if estimations == "" {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(estimations))
		case "/" + feed.DatasetPositions + ".json":
			if positions == "" {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(positions))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	st, err := store.Open(filepath.Join(t.TempDir(), "tus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.InitSchema(context.Background()))

	client := feed.NewClient(srv.URL, 5000, zap.NewNop())
	return New(st, client, zap.NewNop(), nil, nil)
}

func TestCollectEstimations(t *testing.T) {
	c := newTestCollector(t, estimationsBody, positionsBody)
	ctx := context.Background()

	res, err := c.CollectEstimations(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Fetched)
	// One record duplicates another's (stop, line, instant) key within
	// the batch; the unparseable-timestamp record still lands, just with
	// a null prediction.
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Malformed)

	count, latest, err := c.store.TableStats(ctx, "estimaciones", "collected_at")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NotNil(t, latest)
}

func TestCollectEstimationsIdempotentAcrossCycles(t *testing.T) {
	c := newTestCollector(t, estimationsBody, positionsBody)
	ctx := context.Background()

	_, err := c.CollectEstimations(ctx)
	require.NoError(t, err)

	// The feed still reports the same instants: everything is a no-op.
	res, err := c.CollectEstimations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 4, res.Skipped)

	count, _, err := c.store.TableStats(ctx, "estimaciones", "collected_at")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestCollectPositions(t *testing.T) {
	c := newTestCollector(t, estimationsBody, positionsBody)
	ctx := context.Background()

	res, err := c.CollectPositions(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 0, res.Skipped)
	// The record without an instant violates NOT NULL: logged, counted,
	// batch continues.
	assert.Equal(t, 1, res.Malformed)

	res, err = c.CollectPositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Malformed)
}

func TestRunCycleResourcesIndependent(t *testing.T) {
	// Estimations feed down, positions feed up: the positions cycle still
	// completes.
	c := newTestCollector(t, "", positionsBody)

	results := c.RunCycle(context.Background(), ModeBoth)
	require.Len(t, results, 1)
	assert.Equal(t, feed.DatasetPositions, results[0].Dataset)
	assert.Equal(t, 2, results[0].Inserted)
}

func TestRunCycleModeSelection(t *testing.T) {
	c := newTestCollector(t, estimationsBody, positionsBody)

	results := c.RunCycle(context.Background(), ModeEstimations)
	require.Len(t, results, 1)
	assert.Equal(t, feed.DatasetEstimations, results[0].Dataset)

	count, _, err := c.store.TableStats(context.Background(), "posiciones", "instante")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeBoth, mode)

	mode, err = ParseMode("estimaciones")
	require.NoError(t, err)
	assert.Equal(t, ModeEstimations, mode)

	mode, err = ParseMode("posiciones")
	require.NoError(t, err)
	assert.Equal(t, ModePositions, mode)

	_, err = ParseMode("everything")
	assert.Error(t, err)
}

func TestSharedCollectedAtStamp(t *testing.T) {
	c := newTestCollector(t, estimationsBody, positionsBody)
	ctx := context.Background()

	res, err := c.CollectEstimations(ctx)
	require.NoError(t, err)

	rows, err := c.store.DB.QueryContext(ctx, "SELECT DISTINCT collected_at FROM estimaciones")
	require.NoError(t, err)
	defer rows.Close()

	var stamps []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		stamps = append(stamps, s)
	}
	require.NoError(t, rows.Err())

	// Every row of one cycle carries the cycle's single start stamp.
	require.Len(t, stamps, 1)
	assert.Equal(t, res.CollectedAt.Format("2006-01-02T15:04:05Z"), stamps[0])
}
