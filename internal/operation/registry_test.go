package operation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowbridge-c2-agent/internal/flowid"
	"flowbridge-c2-agent/internal/model"
)

type fakeApplier struct {
	ok      bool
	applied [][]byte
}

func (f *fakeApplier) Apply(content []byte) bool {
	f.applied = append(f.applied, content)
	return f.ok
}

func newTestRegistry(t *testing.T, applier Applier) *Registry {
	t.Helper()
	holder := flowid.NewHolder(t.TempDir())
	return NewRegistry(
		NewUpdateConfigurationHandler(applier, holder, discardLogger()),
		NewDebugHandler(NewBundleCollector(nil), SafeText, discardLogger()),
	)
}

func TestRegistrySupportedNamesSortedAndStable(t *testing.T) {
	r := newTestRegistry(t, &fakeApplier{ok: true})

	want := []string{model.OperationDebug, model.OperationUpdateConfiguration}
	assert.Equal(t, want, r.SupportedOperationNames())

	// Dispatching does not disturb the advertised set.
	r.Dispatch(context.Background(), model.Operation{ID: "1", Name: model.OperationDebug})
	assert.Equal(t, want, r.SupportedOperationNames())

	// Returned slice is a copy.
	names := r.SupportedOperationNames()
	names[0] = "mutated"
	assert.Equal(t, want, r.SupportedOperationNames())
}

func TestRegistryDispatchUnknownOperation(t *testing.T) {
	r := newTestRegistry(t, &fakeApplier{ok: true})

	ack := r.Dispatch(context.Background(), model.Operation{ID: "op-9", Name: "restart"})
	assert.Equal(t, "op-9", ack.OperationID)
	assert.Equal(t, model.AckNotApplied, ack.State)
	assert.Contains(t, ack.Details, "restart")
}

func TestRegistryDispatchRoutesToHandler(t *testing.T) {
	applier := &fakeApplier{ok: true}
	r := newTestRegistry(t, applier)

	ack := r.Dispatch(context.Background(), model.Operation{
		ID:      "op-1",
		Name:    model.OperationUpdateConfiguration,
		Content: []byte("conf"),
	})
	assert.Equal(t, model.AckFullyApplied, ack.State)
	require.Len(t, applier.applied, 1)
	assert.Equal(t, []byte("conf"), applier.applied[0])
}
