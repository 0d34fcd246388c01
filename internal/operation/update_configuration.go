package operation

import (
	"context"
	"log/slog"

	"flowbridge-c2-agent/internal/flowid"
	"flowbridge-c2-agent/internal/model"
)

// Applier persists a configuration payload; true means fully applied.
type Applier interface {
	Apply(content []byte) bool
}

type UpdateConfigurationHandler struct {
	logger  *slog.Logger
	applier Applier
	flowID  *flowid.Holder
}

func NewUpdateConfigurationHandler(applier Applier, flowID *flowid.Holder, logger *slog.Logger) *UpdateConfigurationHandler {
	return &UpdateConfigurationHandler{logger: logger, applier: applier, flowID: flowID}
}

func (h *UpdateConfigurationHandler) Name() string {
	return model.OperationUpdateConfiguration
}

func (h *UpdateConfigurationHandler) Handle(ctx context.Context, op model.Operation) model.OperationAck {
	if len(op.Content) == 0 {
		return model.OperationAck{
			OperationID: op.ID,
			State:       model.AckNotApplied,
			Details:     "operation carried no configuration content",
		}
	}
	if !h.applier.Apply(op.Content) {
		return model.OperationAck{
			OperationID: op.ID,
			State:       model.AckNotApplied,
			Details:     "configuration write failed",
		}
	}
	if id := op.Args["flow_id"]; id != "" {
		if err := h.flowID.Set(id); err != nil {
			h.logger.Warn("flow identifier not persisted", "flow_id", id, "error", err)
		}
	}
	return model.OperationAck{OperationID: op.ID, State: model.AckFullyApplied}
}
