package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Mode selects which feed(s) one invocation collects.
type Mode string

const (
	ModeEstimations Mode = "estimaciones"
	ModePositions   Mode = "posiciones"
	ModeBoth        Mode = "both"
)

// ParseMode validates a CLI mode argument. An empty argument means both.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeBoth, nil
	case ModeEstimations, ModePositions, ModeBoth:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want estimaciones, posiciones or both)", s)
}

// RunCycle collects the selected resources sequentially. The two feeds are
// independent: a transport or decode failure on one is logged and does not
// stop the other.
func (c *Collector) RunCycle(ctx context.Context, mode Mode) []Result {
	if c.metrics != nil {
		c.metrics.CyclesRun.Inc()
	}

	var results []Result
	if mode == ModeEstimations || mode == ModeBoth {
		res, err := c.CollectEstimations(ctx)
		if err != nil {
			c.logger.Error("estimaciones collection failed", zap.Error(err))
		} else {
			results = append(results, res)
		}
	}
	if mode == ModePositions || mode == ModeBoth {
		res, err := c.CollectPositions(ctx)
		if err != nil {
			c.logger.Error("posiciones collection failed", zap.Error(err))
		} else {
			results = append(results, res)
		}
	}
	return results
}

// RunPeriodic runs a cycle immediately and then on every tick until the
// context is cancelled. This is the daemon counterpart of the one-shot CLI
// invocation; deployments that prefer cron simply leave the interval unset.
func (c *Collector) RunPeriodic(ctx context.Context, interval time.Duration, mode Mode) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("collector running periodically",
		zap.Duration("interval", interval),
		zap.String("mode", string(mode)),
	)

	c.RunCycle(ctx, mode)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("collector stopping", zap.Error(ctx.Err()))
			return
		case <-ticker.C:
			c.RunCycle(ctx, mode)
		}
	}
}
