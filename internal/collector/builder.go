package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/zeebo/blake3"

	"flowbridge-c2-agent/internal/flow"
	"flowbridge-c2-agent/internal/model"
)

// SupportedOperations exposes the stable operation-name set advertised
// in every snapshot.
type SupportedOperations interface {
	SupportedOperationNames() []string
}

// SnapshotBuilder assembles an immutable runtime snapshot from the live
// system's status accessors. It holds no mutable state of its own.
type SnapshotBuilder struct {
	logger   *slog.Logger
	status   flow.StatusSource
	manifest flow.ManifestSource
	ops      SupportedOperations
}

func NewSnapshotBuilder(status flow.StatusSource, manifest flow.ManifestSource, ops SupportedOperations, logger *slog.Logger) *SnapshotBuilder {
	return &SnapshotBuilder{logger: logger, status: status, manifest: manifest, ops: ops}
}

// Build never fails: any sub-status query that errors degrades to a
// zero value for that sub-part only, so a single unavailable metric
// cannot block heartbeat transmission.
func (b *SnapshotBuilder) Build(ctx context.Context) model.RuntimeSnapshot {
	snap := model.RuntimeSnapshot{
		Repositories:    b.repositories(ctx),
		Queues:          b.queues(ctx),
		CollectedAtUnix: time.Now().UTC().Unix(),
	}

	m, err := b.manifest.Manifest(ctx)
	if err != nil {
		b.logger.Warn("manifest unavailable, heartbeat degrades to empty manifest", "error", err)
		m = model.Manifest{}
	}
	m.SupportedOperations = b.ops.SupportedOperationNames()
	snap.Manifest = &m
	snap.ManifestHash = manifestHash(m)
	return snap
}

func (b *SnapshotBuilder) repositories(ctx context.Context) model.Repositories {
	var repos model.Repositories

	ffUsage, err := b.status.FlowFileRepositoryUsage(ctx)
	if err != nil {
		b.logger.Warn("flowfile repository usage unavailable", "error", err)
	} else {
		repos.FlowFile = model.RepositoryStatus{DataSize: ffUsage.UsedSpace, DataSizeMax: ffUsage.TotalSpace}
	}

	// A provenance store with zero entries still yields a zero-valued
	// status; consumers rely on the field being present.
	provUsages, err := b.status.ProvenanceRepositoryUsage(ctx)
	if err != nil {
		b.logger.Warn("provenance repository usage unavailable", "error", err)
		return repos
	}
	for _, usage := range provUsages {
		repos.Provenance = model.RepositoryStatus{DataSize: usage.UsedSpace, DataSizeMax: usage.TotalSpace}
		break
	}
	return repos
}

func (b *SnapshotBuilder) queues(ctx context.Context) map[string]model.QueueStatus {
	queues := map[string]model.QueueStatus{}
	connections, err := b.status.RootConnections(ctx)
	if err != nil {
		b.logger.Warn("root connection status unavailable", "error", err)
		return queues
	}
	for _, conn := range connections {
		queues[conn.ID] = model.QueueStatus{
			Size:        conn.QueuedCount,
			SizeMax:     conn.BackpressureObjectThreshold,
			DataSize:    conn.QueuedBytes,
			DataSizeMax: conn.BackpressureBytesThreshold,
		}
	}
	return queues
}

// manifestHash fingerprints the manifest (supported operations included)
// for change detection between heartbeats.
func manifestHash(m model.Manifest) string {
	raw, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(raw)
	return fmt.Sprintf("%x", sum[:])
}
