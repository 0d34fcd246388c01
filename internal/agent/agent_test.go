package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowbridge-c2-agent/internal/flowid"
	"flowbridge-c2-agent/internal/model"
	"flowbridge-c2-agent/internal/operation"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTransport struct {
	mu           sync.Mutex
	acks         []model.OperationAck
	heartbeatErr error
	ackErr       error
}

func (f *fakeTransport) SendHeartbeat(ctx context.Context, hb model.Heartbeat) ([]model.Operation, error) {
	return nil, f.heartbeatErr
}

func (f *fakeTransport) SendAck(ctx context.Context, ack model.OperationAck) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, ack)
	return f.ackErr
}

func (f *fakeTransport) Close(ctx context.Context) error {
	return nil
}

type okApplier struct{}

func (okApplier) Apply(content []byte) bool { return true }

func TestDispatchOperationsAcksEachOutcome(t *testing.T) {
	transport := &fakeTransport{}
	registry := operation.NewRegistry(
		operation.NewUpdateConfigurationHandler(okApplier{}, flowid.NewHolder(t.TempDir()), discardLogger()),
	)
	a := &Agent{
		logger:    discardLogger(),
		registry:  registry,
		transport: transport,
		health:    NewHealthStatus(),
	}

	a.dispatchOperations(context.Background(), []model.Operation{
		{ID: "op-1", Name: model.OperationUpdateConfiguration, Content: []byte("conf")},
		{ID: "op-2", Name: "unknown-op"},
	})

	require.Len(t, transport.acks, 2)
	assert.Equal(t, model.AckFullyApplied, transport.acks[0].State)
	assert.Equal(t, model.AckNotApplied, transport.acks[1].State)

	snap := a.health.Snapshot()
	assert.Contains(t, snap, "last_operation_at")
}

func TestHealthTransportTracksOutcomes(t *testing.T) {
	inner := &fakeTransport{}
	health := NewHealthStatus()
	ht := &healthTransport{transport: inner, health: health}

	_, err := ht.SendHeartbeat(context.Background(), model.Heartbeat{})
	require.NoError(t, err)
	assert.Equal(t, true, health.Snapshot()["transport_connected"])

	inner.heartbeatErr = errors.New("controller unreachable")
	_, err = ht.SendHeartbeat(context.Background(), model.Heartbeat{})
	require.Error(t, err)
	snap := health.Snapshot()
	assert.Equal(t, false, snap["transport_connected"])
	assert.Equal(t, int64(1), snap["heartbeat_failures"])
}
