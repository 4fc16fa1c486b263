package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Drainer periodically drains the work queue in the background. It runs a
// single loop so queued tasks keep their one-at-a-time ordering.
type Drainer struct {
	orch     *Orchestrator
	interval time.Duration
	limit    int
	logger   *zap.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewDrainer creates a drainer that calls DrainQueue every interval,
// processing up to limit items per pass.
func NewDrainer(
	orch *Orchestrator,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) *Drainer {
	ctx, cancel := context.WithCancel(context.Background())

	if limit <= 0 {
		limit = DefaultDrainLimit
	}

	return &Drainer{
		orch:     orch,
		interval: interval,
		limit:    limit,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the drain loop.
func (d *Drainer) Start() error {
	if d.interval <= 0 {
		return fmt.Errorf("drain interval must be positive")
	}

	d.logger.Info("starting queue drainer",
		zap.Duration("interval", d.interval),
		zap.Int("limit", d.limit))

	d.wg.Add(1)
	go d.run(d.ctx)

	return nil
}

// Shutdown stops the drain loop and waits for an in-flight pass to finish.
func (d *Drainer) Shutdown(ctx context.Context) error {
	d.logger.Info("shutting down queue drainer")

	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("queue drainer shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// run is the main drain loop.
func (d *Drainer) run(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := d.orch.DrainQueue(ctx, d.limit)
			if err != nil {
				d.logger.Error("queue drain pass failed",
					zap.Int("processed", len(results)),
					zap.Error(err))
				continue
			}
			if len(results) > 0 {
				d.logger.Info("queue drain pass complete",
					zap.Int("processed", len(results)))
			}
		}
	}
}
