package model

// Heartbeat is the periodic status report sent to the controller.
type Heartbeat struct {
	AgentID       string          `json:"agent_id"`
	AgentClass    string          `json:"agent_class,omitempty"`
	FlowID        string          `json:"flow_id,omitempty"`
	TimestampUnix int64           `json:"timestamp_unix"`
	Snapshot      RuntimeSnapshot `json:"snapshot"`
}

// HeartbeatResponse is what the controller returns for one heartbeat:
// zero or more operations for the agent to execute.
type HeartbeatResponse struct {
	Operations []Operation `json:"operations,omitempty"`
}
