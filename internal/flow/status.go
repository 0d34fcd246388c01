package flow

import (
	"context"

	"flowbridge-c2-agent/internal/model"
)

// StorageUsage is a point-in-time usage reading for one repository's
// backing store.
type StorageUsage struct {
	UsedSpace  int64
	TotalSpace int64
}

// ConnectionStatus is the queue state of one connection in the root
// process group, including its configured backpressure thresholds.
type ConnectionStatus struct {
	ID                          string `json:"id"`
	QueuedCount                 int64  `json:"queued_count"`
	QueuedBytes                 int64  `json:"queued_bytes"`
	BackpressureObjectThreshold int64  `json:"backpressure_object_threshold"`
	BackpressureBytesThreshold  int64  `json:"backpressure_bytes_threshold"`
}

// StatusSource exposes read-only status accessors of the monitored flow
// engine. Implementations must not block indefinitely and must not
// mutate engine state.
type StatusSource interface {
	FlowFileRepositoryUsage(ctx context.Context) (StorageUsage, error)
	ProvenanceRepositoryUsage(ctx context.Context) (map[string]StorageUsage, error)
	RootConnections(ctx context.Context) ([]ConnectionStatus, error)
}

// ManifestSource provides the static manifest descriptor; the dynamic
// supported-operation list is attached by the snapshot builder.
type ManifestSource interface {
	Manifest(ctx context.Context) (model.Manifest, error)
}
