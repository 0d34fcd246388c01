// Package operation binds remote operation names to their handlers and
// implements the handlers the agent supports: configuration update,
// manifest description, and diagnostic bundle collection.
package operation

import (
	"context"
	"fmt"
	"sort"

	"flowbridge-c2-agent/internal/model"
)

type Handler interface {
	Name() string
	Handle(ctx context.Context, op model.Operation) model.OperationAck
}

// Registry holds a fixed set of name-to-handler bindings established at
// construction. The name set is stable for the life of the process and
// advertised verbatim in every snapshot.
type Registry struct {
	handlers map[string]Handler
	names    []string
}

func NewRegistry(handlers ...Handler) *Registry {
	byName := make(map[string]Handler, len(handlers))
	names := make([]string, 0, len(handlers))
	for _, h := range handlers {
		if _, dup := byName[h.Name()]; dup {
			continue
		}
		byName[h.Name()] = h
		names = append(names, h.Name())
	}
	sort.Strings(names)
	return &Registry{handlers: byName, names: names}
}

func (r *Registry) SupportedOperationNames() []string {
	return append([]string(nil), r.names...)
}

// Dispatch routes one inbound operation to its handler. An operation
// with no binding is acknowledged as not applied rather than dropped.
func (r *Registry) Dispatch(ctx context.Context, op model.Operation) model.OperationAck {
	h, ok := r.handlers[op.Name]
	if !ok {
		return model.OperationAck{
			OperationID: op.ID,
			State:       model.AckNotApplied,
			Details:     fmt.Sprintf("unsupported operation %q", op.Name),
		}
	}
	return h.Handle(ctx, op)
}
