package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flowbridge-c2-agent/internal/collector"
	"flowbridge-c2-agent/internal/config"
	"flowbridge-c2-agent/internal/flow"
	"flowbridge-c2-agent/internal/flowid"
	"flowbridge-c2-agent/internal/model"
	"flowbridge-c2-agent/internal/operation"
	"flowbridge-c2-agent/internal/stream"
)

const healthLogInterval = 30 * time.Second

type Agent struct {
	cfg       config.Config
	logger    *slog.Logger
	scheduler *collector.HeartbeatScheduler
	registry  *operation.Registry
	transport stream.Transport
	health    *HealthStatus
}

func New(cfg config.Config, status flow.StatusSource, manifest flow.ManifestSource, logger *slog.Logger) (*Agent, error) {
	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return nil, fmt.Errorf("tls config: %w", err)
	}

	transport, err := stream.NewTransportFromConfig(cfg, tlsCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("c2 transport: %w", err)
	}

	health := NewHealthStatus()
	wrappedTransport := &healthTransport{transport: transport, health: health}

	flowIDHolder := flowid.NewHolder(cfg.ConfDirectory)
	applier := operation.NewConfigApplier(cfg.TargetConfigFile(), logger)
	bundle := operation.NewBundleCollector(cfg.DebugBundleCandidates())

	// The registry and the snapshot builder reference each other: the
	// builder advertises the registry's names, the describe-manifest
	// handler rebuilds snapshots. Handlers receive their capabilities
	// explicitly so tests can substitute them.
	var builder *collector.SnapshotBuilder
	registry := operation.NewRegistry(
		operation.NewUpdateConfigurationHandler(applier, flowIDHolder, logger),
		operation.NewDescribeManifestHandler(snapshotSourceFunc(func(ctx context.Context) model.RuntimeSnapshot {
			return builder.Build(ctx)
		})),
		operation.NewDebugHandler(bundle, operation.SafeText, logger),
	)
	builder = collector.NewSnapshotBuilder(status, manifest, registry, logger)

	factory := collector.NewHeartbeatFactory(cfg.AgentIdentifier, cfg.AgentClass, cfg.FullHeartbeat, flowIDHolder)

	a := &Agent{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		transport: wrappedTransport,
		health:    health,
	}
	a.scheduler = collector.NewHeartbeatScheduler(
		logger,
		builder,
		factory,
		wrappedTransport,
		a.dispatchOperations,
		cfg.HeartbeatPeriod,
		cfg.InitialDelay,
		cfg.TerminationWait,
	)
	return a, nil
}

func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting c2 agent", "agent_id", a.cfg.AgentIdentifier, "agent_class", a.cfg.AgentClass, "transport", a.cfg.Transport)
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
		// Agent terminated by itself (startup error/parent ctx canceled).
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", a.cfg.ShutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(a.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
			// graceful stop completed in time
		case sig2 := <-sigCh:
			a.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			a.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", a.cfg.ShutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancelShutdown()
	a.shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("c2 agent stopped")
	return nil
}

// dispatchOperations routes controller-issued operations through the
// registry and acknowledges each outcome. It runs concurrently with the
// heartbeat cycle; handlers touch disjoint resources from the snapshot
// builder so no locking happens here.
func (a *Agent) dispatchOperations(ctx context.Context, ops []model.Operation) {
	for _, op := range ops {
		a.logger.Info("dispatching operation", "operation_id", op.ID, "name", op.Name)
		ack := a.registry.Dispatch(ctx, op)
		a.health.MarkOperation(time.Now().UTC())
		if err := a.transport.SendAck(ctx, ack); err != nil {
			a.logger.Warn("operation ack not delivered", "operation_id", op.ID, "state", ack.State, "error", err)
		}
	}
}

func BuildLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, hOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, hOpts))
}

type snapshotSourceFunc func(ctx context.Context) model.RuntimeSnapshot

func (f snapshotSourceFunc) Build(ctx context.Context) model.RuntimeSnapshot {
	return f(ctx)
}

// healthTransport mirrors every transport outcome into HealthStatus.
type healthTransport struct {
	transport stream.Transport
	health    *HealthStatus
}

func (t *healthTransport) SendHeartbeat(ctx context.Context, hb model.Heartbeat) ([]model.Operation, error) {
	ops, err := t.transport.SendHeartbeat(ctx, hb)
	if err != nil {
		t.health.SetTransportConnected(false)
		t.health.MarkHeartbeatFailure()
		return nil, err
	}
	t.health.SetTransportConnected(true)
	t.health.MarkHeartbeat(time.Now().UTC())
	return ops, nil
}

func (t *healthTransport) SendAck(ctx context.Context, ack model.OperationAck) error {
	err := t.transport.SendAck(ctx, ack)
	if err != nil {
		t.health.SetTransportConnected(false)
		return err
	}
	t.health.SetTransportConnected(true)
	return nil
}

func (t *healthTransport) Close(ctx context.Context) error {
	return t.transport.Close(ctx)
}
