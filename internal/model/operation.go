package model

const (
	OperationUpdateConfiguration = "update-configuration"
	OperationDescribeManifest    = "describe-manifest"
	OperationDebug               = "debug"
)

type AckState string

const (
	AckFullyApplied AckState = "FULLY_APPLIED"
	AckNotApplied   AckState = "NOT_APPLIED"
	AckNoOperation  AckState = "NO_OPERATION"
)

// Operation is a remote instruction delivered by the controller in a
// heartbeat response. Content carries the raw payload for operations
// that ship one (a new configuration file), Args everything else.
type Operation struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Args    map[string]string `json:"args,omitempty"`
	Content []byte            `json:"content,omitempty"`
}

// OperationAck reports the outcome of one dispatched operation back to
// the controller. Payload is operation-specific response data.
type OperationAck struct {
	OperationID string   `json:"operation_id"`
	State       AckState `json:"state"`
	Details     string   `json:"details,omitempty"`
	Payload     any      `json:"payload,omitempty"`
}
