// Package stream is the agent's transport boundary to the controller:
// heartbeats out, operations and acknowledgments back. The REST client
// is the default; the gRPC client streams the same JSON frames for
// deployments fronted by a gRPC gateway.
package stream

import (
	"context"

	"flowbridge-c2-agent/internal/model"
)

type Transport interface {
	SendHeartbeat(ctx context.Context, hb model.Heartbeat) ([]model.Operation, error)
	SendAck(ctx context.Context, ack model.OperationAck) error
	Close(ctx context.Context) error
}
