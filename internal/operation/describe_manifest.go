package operation

import (
	"context"

	"flowbridge-c2-agent/internal/model"
)

// SnapshotSource rebuilds runtime info on demand, outside the heartbeat
// cadence.
type SnapshotSource interface {
	Build(ctx context.Context) model.RuntimeSnapshot
}

type DescribeManifestHandler struct {
	snapshots SnapshotSource
}

func NewDescribeManifestHandler(snapshots SnapshotSource) *DescribeManifestHandler {
	return &DescribeManifestHandler{snapshots: snapshots}
}

func (h *DescribeManifestHandler) Name() string {
	return model.OperationDescribeManifest
}

func (h *DescribeManifestHandler) Handle(ctx context.Context, op model.Operation) model.OperationAck {
	snap := h.snapshots.Build(ctx)
	return model.OperationAck{
		OperationID: op.ID,
		State:       model.AckFullyApplied,
		Payload:     snap,
	}
}
