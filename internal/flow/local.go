package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"flowbridge-c2-agent/internal/model"
)

// LocalStatusSource reads flow status from the local machine: repository
// usage from the filesystem backing the configured repository
// directories, and queue status from a JSON status file the engine
// refreshes as it runs. An unconfigured part yields empty results so the
// snapshot builder can degrade it to zeros.
type LocalStatusSource struct {
	flowFileDir   string
	provenanceDir string
	statusPath    string
}

func NewLocalStatusSource(flowFileDir, provenanceDir, statusPath string) *LocalStatusSource {
	return &LocalStatusSource{
		flowFileDir:   flowFileDir,
		provenanceDir: provenanceDir,
		statusPath:    statusPath,
	}
}

func (s *LocalStatusSource) FlowFileRepositoryUsage(ctx context.Context) (StorageUsage, error) {
	if s.flowFileDir == "" {
		return StorageUsage{}, nil
	}
	return partitionUsage(s.flowFileDir)
}

func (s *LocalStatusSource) ProvenanceRepositoryUsage(ctx context.Context) (map[string]StorageUsage, error) {
	if s.provenanceDir == "" {
		return map[string]StorageUsage{}, nil
	}
	usage, err := partitionUsage(s.provenanceDir)
	if err != nil {
		return nil, err
	}
	return map[string]StorageUsage{"provenance": usage}, nil
}

func (s *LocalStatusSource) RootConnections(ctx context.Context) ([]ConnectionStatus, error) {
	if s.statusPath == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(s.statusPath)
	if err != nil {
		return nil, fmt.Errorf("read flow status file %s: %w", s.statusPath, err)
	}
	var doc struct {
		Connections []ConnectionStatus `json:"connections"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode flow status file %s: %w", s.statusPath, err)
	}
	return doc.Connections, nil
}

// StaticManifestSource serves a fixed manifest descriptor assembled at
// startup from configuration.
type StaticManifestSource struct {
	manifest model.Manifest
}

func NewStaticManifestSource(identifier, agentType, version string) *StaticManifestSource {
	return &StaticManifestSource{manifest: model.Manifest{
		Identifier: identifier,
		AgentType:  agentType,
		Version:    version,
	}}
}

func (s *StaticManifestSource) Manifest(ctx context.Context) (model.Manifest, error) {
	return s.manifest, nil
}
