package operation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"flowbridge-c2-agent/internal/flowid"
	"flowbridge-c2-agent/internal/model"
)

func TestUpdateConfigurationHandler(t *testing.T) {
	tests := []struct {
		name      string
		applierOK bool
		op        model.Operation
		wantState model.AckState
	}{
		{
			name:      "applied",
			applierOK: true,
			op:        model.Operation{ID: "1", Name: model.OperationUpdateConfiguration, Content: []byte("c")},
			wantState: model.AckFullyApplied,
		},
		{
			name:      "empty content",
			applierOK: true,
			op:        model.Operation{ID: "2", Name: model.OperationUpdateConfiguration},
			wantState: model.AckNotApplied,
		},
		{
			name:      "write failure",
			applierOK: false,
			op:        model.Operation{ID: "3", Name: model.OperationUpdateConfiguration, Content: []byte("c")},
			wantState: model.AckNotApplied,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			holder := flowid.NewHolder(t.TempDir())
			h := NewUpdateConfigurationHandler(&fakeApplier{ok: tc.applierOK}, holder, discardLogger())

			ack := h.Handle(context.Background(), tc.op)
			assert.Equal(t, tc.op.ID, ack.OperationID)
			assert.Equal(t, tc.wantState, ack.State)
		})
	}
}

func TestUpdateConfigurationHandlerPersistsFlowID(t *testing.T) {
	confDir := t.TempDir()
	holder := flowid.NewHolder(confDir)
	h := NewUpdateConfigurationHandler(&fakeApplier{ok: true}, holder, discardLogger())

	ack := h.Handle(context.Background(), model.Operation{
		ID:      "1",
		Name:    model.OperationUpdateConfiguration,
		Content: []byte("c"),
		Args:    map[string]string{"flow_id": "flow-42"},
	})
	assert.Equal(t, model.AckFullyApplied, ack.State)
	assert.Equal(t, "flow-42", holder.Get())

	// Survives a restart via the persisted file.
	assert.Equal(t, "flow-42", flowid.NewHolder(confDir).Get())
}
