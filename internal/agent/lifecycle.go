package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

func (a *Agent) run(ctx context.Context) error {
	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("start heartbeat scheduler: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runHealthLoop(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		// Scheduler shutdown is bounded by the termination wait; an
		// in-flight tick past that bound is logged, not fatal.
		a.scheduler.Stop()
		return nil
	})
	if a.cfg.ProbeListenAddr != "" {
		g.Go(func() error {
			return a.runProbeListener(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *Agent) runHealthLoop(ctx context.Context) error {
	t := time.NewTicker(healthLogInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			a.logger.Debug("agent health", "snapshot", a.health.Snapshot())
		}
	}
}

func (a *Agent) shutdown(ctx context.Context) {
	if err := a.transport.Close(ctx); err != nil {
		a.logger.Warn("c2 transport close failed", "error", err)
	}
	a.health.SetTransportConnected(false)
}
