package agent

import (
	"sync/atomic"
	"time"
)

type HealthStatus struct {
	transportConnected atomic.Bool
	lastHeartbeatAt    atomic.Int64
	lastOperationAt    atomic.Int64
	heartbeatFailures  atomic.Int64
}

func NewHealthStatus() *HealthStatus {
	h := &HealthStatus{}
	h.transportConnected.Store(false)
	return h
}

func (h *HealthStatus) SetTransportConnected(ok bool) {
	h.transportConnected.Store(ok)
}

func (h *HealthStatus) MarkHeartbeat(ts time.Time) {
	h.lastHeartbeatAt.Store(ts.UnixNano())
}

func (h *HealthStatus) MarkOperation(ts time.Time) {
	h.lastOperationAt.Store(ts.UnixNano())
}

func (h *HealthStatus) MarkHeartbeatFailure() {
	h.heartbeatFailures.Add(1)
}

func (h *HealthStatus) Snapshot() map[string]any {
	out := map[string]any{
		"transport_connected": h.transportConnected.Load(),
		"heartbeat_failures":  h.heartbeatFailures.Load(),
	}
	if v := h.lastHeartbeatAt.Load(); v > 0 {
		out["last_heartbeat_at"] = time.Unix(0, v).UTC()
	}
	if v := h.lastOperationAt.Load(); v > 0 {
		out["last_operation_at"] = time.Unix(0, v).UTC()
	}
	return out
}
