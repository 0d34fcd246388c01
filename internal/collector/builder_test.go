package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowbridge-c2-agent/internal/flow"
	"flowbridge-c2-agent/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStatusSource struct {
	flowFile    flow.StorageUsage
	flowFileErr error
	provenance  map[string]flow.StorageUsage
	provErr     error
	connections []flow.ConnectionStatus
	connErr     error
}

func (f *fakeStatusSource) FlowFileRepositoryUsage(ctx context.Context) (flow.StorageUsage, error) {
	return f.flowFile, f.flowFileErr
}

func (f *fakeStatusSource) ProvenanceRepositoryUsage(ctx context.Context) (map[string]flow.StorageUsage, error) {
	return f.provenance, f.provErr
}

func (f *fakeStatusSource) RootConnections(ctx context.Context) ([]flow.ConnectionStatus, error) {
	return f.connections, f.connErr
}

type fakeManifestSource struct {
	manifest model.Manifest
	err      error
}

func (f *fakeManifestSource) Manifest(ctx context.Context) (model.Manifest, error) {
	return f.manifest, f.err
}

type fakeOps struct {
	names []string
}

func (f *fakeOps) SupportedOperationNames() []string {
	return append([]string(nil), f.names...)
}

func TestBuildCopiesLiveStatus(t *testing.T) {
	status := &fakeStatusSource{
		flowFile:   flow.StorageUsage{UsedSpace: 100, TotalSpace: 1000},
		provenance: map[string]flow.StorageUsage{"provenance": {UsedSpace: 7, TotalSpace: 70}},
		connections: []flow.ConnectionStatus{
			// Over threshold on purpose: backpressure breach is reported
			// as-is, never clamped.
			{ID: "conn-1", QueuedCount: 150, QueuedBytes: 4096, BackpressureObjectThreshold: 100, BackpressureBytesThreshold: 2048},
			{ID: "conn-2", QueuedCount: 3, QueuedBytes: 30, BackpressureObjectThreshold: 10, BackpressureBytesThreshold: 100},
		},
	}
	manifest := &fakeManifestSource{manifest: model.Manifest{Identifier: "m-1", AgentType: "edge", Version: "0.4.0"}}
	b := NewSnapshotBuilder(status, manifest, &fakeOps{names: []string{"debug", "update-configuration"}}, discardLogger())

	snap := b.Build(context.Background())

	assert.Equal(t, int64(100), snap.Repositories.FlowFile.DataSize)
	assert.Equal(t, int64(1000), snap.Repositories.FlowFile.DataSizeMax)
	assert.Equal(t, int64(7), snap.Repositories.Provenance.DataSize)

	require.Len(t, snap.Queues, 2)
	assert.Equal(t, model.QueueStatus{Size: 150, SizeMax: 100, DataSize: 4096, DataSizeMax: 2048}, snap.Queues["conn-1"])
	assert.Equal(t, model.QueueStatus{Size: 3, SizeMax: 10, DataSize: 30, DataSizeMax: 100}, snap.Queues["conn-2"])

	require.NotNil(t, snap.Manifest)
	assert.Equal(t, "m-1", snap.Manifest.Identifier)
	assert.Equal(t, []string{"debug", "update-configuration"}, snap.Manifest.SupportedOperations)
	assert.NotEmpty(t, snap.ManifestHash)
}

func TestBuildZeroProvenanceWhenNoStores(t *testing.T) {
	status := &fakeStatusSource{provenance: map[string]flow.StorageUsage{}}
	b := NewSnapshotBuilder(status, &fakeManifestSource{}, &fakeOps{}, discardLogger())

	snap := b.Build(context.Background())
	assert.Equal(t, model.RepositoryStatus{}, snap.Repositories.Provenance)
}

func TestBuildDegradesFailedSubStatusOnly(t *testing.T) {
	status := &fakeStatusSource{
		flowFile:    flow.StorageUsage{UsedSpace: 5, TotalSpace: 50},
		provErr:     errors.New("provenance offline"),
		connections: []flow.ConnectionStatus{{ID: "c", QueuedCount: 1}},
	}
	b := NewSnapshotBuilder(status, &fakeManifestSource{err: errors.New("manifest service down")}, &fakeOps{names: []string{"debug"}}, discardLogger())

	snap := b.Build(context.Background())

	// Failed parts degrade to zero values; the rest survives.
	assert.Equal(t, int64(5), snap.Repositories.FlowFile.DataSize)
	assert.Equal(t, model.RepositoryStatus{}, snap.Repositories.Provenance)
	assert.Len(t, snap.Queues, 1)
	require.NotNil(t, snap.Manifest)
	assert.Equal(t, []string{"debug"}, snap.Manifest.SupportedOperations)
}

func TestManifestHashTracksManifestChanges(t *testing.T) {
	status := &fakeStatusSource{}
	manifest := &fakeManifestSource{manifest: model.Manifest{Identifier: "m-1"}}
	b := NewSnapshotBuilder(status, manifest, &fakeOps{names: []string{"debug"}}, discardLogger())

	first := b.Build(context.Background()).ManifestHash
	assert.Equal(t, first, b.Build(context.Background()).ManifestHash)

	manifest.manifest.Identifier = "m-2"
	assert.NotEqual(t, first, b.Build(context.Background()).ManifestHash)
}
