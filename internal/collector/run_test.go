package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunPeriodicStopsOnCancel(t *testing.T) {
	c := newTestCollector(t, estimationsBody, positionsBody)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunPeriodic(ctx, 25*time.Millisecond, ModePositions)
		close(done)
	}()

	// Let the immediate cycle and at least one tick run.
	time.Sleep(80 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunPeriodic did not stop on context cancellation")
	}

	count, _, err := c.store.TableStats(context.Background(), "posiciones", "instante")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}
