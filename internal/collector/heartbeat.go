package collector

import (
	"sync"
	"time"

	"flowbridge-c2-agent/internal/flowid"
	"flowbridge-c2-agent/internal/model"
)

// HeartbeatFactory turns a runtime snapshot into a heartbeat payload.
// When full heartbeats are disabled it strips the manifest from payloads
// whose hash matches the last transmitted one, so the controller only
// sees the manifest again after it changes.
type HeartbeatFactory struct {
	agentID    string
	agentClass string
	full       bool
	flowID     *flowid.Holder

	mu           sync.Mutex
	lastSentHash string
}

func NewHeartbeatFactory(agentID, agentClass string, full bool, flowID *flowid.Holder) *HeartbeatFactory {
	return &HeartbeatFactory{agentID: agentID, agentClass: agentClass, full: full, flowID: flowID}
}

func (f *HeartbeatFactory) Make(snap model.RuntimeSnapshot) model.Heartbeat {
	hb := model.Heartbeat{
		AgentID:       f.agentID,
		AgentClass:    f.agentClass,
		FlowID:        f.flowID.Get(),
		TimestampUnix: time.Now().UTC().Unix(),
		Snapshot:      snap,
	}
	if !f.full {
		f.mu.Lock()
		if snap.ManifestHash != "" && snap.ManifestHash == f.lastSentHash {
			hb.Snapshot.Manifest = nil
		}
		f.mu.Unlock()
	}
	return hb
}

// MarkTransmitted records the manifest hash of a heartbeat that the
// transport accepted.
func (f *HeartbeatFactory) MarkTransmitted(hb model.Heartbeat) {
	f.mu.Lock()
	f.lastSentHash = hb.Snapshot.ManifestHash
	f.mu.Unlock()
}
