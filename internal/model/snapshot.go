package model

// RepositoryStatus carries storage usage for one agent repository. A
// repository with no backing store reports zero used and zero capacity
// rather than being absent.
type RepositoryStatus struct {
	DataSize    int64 `json:"data_size"`
	DataSizeMax int64 `json:"data_size_max"`
}

type Repositories struct {
	FlowFile   RepositoryStatus `json:"flow_file"`
	Provenance RepositoryStatus `json:"provenance"`
}

// QueueStatus mirrors what the live flow reports for one connection.
// Size may exceed SizeMax (and DataSize may exceed DataSizeMax) when the
// queue is over its backpressure threshold; the values are copied verbatim.
type QueueStatus struct {
	Size        int64 `json:"size"`
	SizeMax     int64 `json:"size_max"`
	DataSize    int64 `json:"data_size"`
	DataSizeMax int64 `json:"data_size_max"`
}

// Manifest describes the agent's static capabilities plus the dynamic
// list of operations it currently accepts from the controller.
type Manifest struct {
	Identifier          string   `json:"identifier"`
	AgentType           string   `json:"agent_type"`
	Version             string   `json:"version"`
	SupportedOperations []string `json:"supported_operations"`
}

// RuntimeSnapshot is built fresh on every heartbeat tick and never
// mutated afterwards. Manifest is nil on lightweight heartbeats where
// the hash has not changed since the last transmission.
type RuntimeSnapshot struct {
	Repositories    Repositories           `json:"repositories"`
	Queues          map[string]QueueStatus `json:"queues"`
	Manifest        *Manifest              `json:"manifest,omitempty"`
	ManifestHash    string                 `json:"manifest_hash"`
	CollectedAtUnix int64                  `json:"collected_at_unix"`
}
