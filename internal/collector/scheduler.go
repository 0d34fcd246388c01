package collector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"flowbridge-c2-agent/internal/model"
)

// Sink transmits one heartbeat and returns any operations the
// controller issued in response.
type Sink interface {
	SendHeartbeat(ctx context.Context, hb model.Heartbeat) ([]model.Operation, error)
}

type schedulerState int

const (
	stateStopped schedulerState = iota
	stateRunning
	stateStopping
)

// HeartbeatScheduler drives the periodic heartbeat cycle on a single
// goroutine: Stopped -> Running -> Stopping -> Stopped. Fixed-rate
// semantics come from time.Ticker: a tick that overruns the period does
// not stack the missed fires, the next tick lands on the original
// cadence.
type HeartbeatScheduler struct {
	logger       *slog.Logger
	builder      *SnapshotBuilder
	factory      *HeartbeatFactory
	sink         Sink
	onOperations func(context.Context, []model.Operation)

	period          time.Duration
	initialDelay    time.Duration
	terminationWait time.Duration

	mu     sync.Mutex
	state  schedulerState
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHeartbeatScheduler(
	logger *slog.Logger,
	builder *SnapshotBuilder,
	factory *HeartbeatFactory,
	sink Sink,
	onOperations func(context.Context, []model.Operation),
	period, initialDelay, terminationWait time.Duration,
) *HeartbeatScheduler {
	if terminationWait <= 0 {
		terminationWait = 5 * time.Second
	}
	return &HeartbeatScheduler{
		logger:          logger,
		builder:         builder,
		factory:         factory,
		sink:            sink,
		onOperations:    onOperations,
		period:          period,
		initialDelay:    initialDelay,
		terminationWait: terminationWait,
	}
}

func (s *HeartbeatScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateStopped {
		return errors.New("heartbeat scheduler already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = stateRunning
	go s.run(ctx, s.done)
	return nil
}

// Stop cancels future ticks and waits up to the termination bound for an
// in-flight tick to finish. An expired wait is informational, not fatal;
// no tick fires after Stop returns.
func (s *HeartbeatScheduler) Stop() {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		return
	}
	s.state = stateStopping
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(s.terminationWait):
		s.logger.Info("heartbeat drain wait elapsed before in-flight tick finished, shutting down anyway", "wait", s.terminationWait)
	}

	s.mu.Lock()
	s.state = stateStopped
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()
}

func (s *HeartbeatScheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	delay := time.NewTimer(s.initialDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	}

	s.tick()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A fire buffered while a slow tick ran can be drawn even
			// though cancellation is also ready; no new tick may start
			// once Stop has been requested.
			if ctx.Err() != nil {
				return
			}
			s.tick()
		}
	}
}

// tick is independent of the scheduling context: once started it runs to
// completion, bounded only by the transport's own timeouts. A failed
// transmission is logged and never cancels future ticks.
func (s *HeartbeatScheduler) tick() {
	ctx := context.Background()
	snap := s.builder.Build(ctx)
	hb := s.factory.Make(snap)

	ops, err := s.sink.SendHeartbeat(ctx, hb)
	if err != nil {
		s.logger.Warn("heartbeat transmission failed", "error", err)
		return
	}
	s.factory.MarkTransmitted(hb)

	if len(ops) > 0 && s.onOperations != nil {
		// Operation handling runs off the heartbeat goroutine so a
		// slow handler cannot delay the cadence.
		go s.onOperations(ctx, ops)
	}
}
