package ipc

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
)

// Invocation carries everything one inbound request needs: the command
// name, the raw argument bytes, the caller surface id, a generated
// invocation id and an optional application-state handle. It is built per
// request and discarded after the response is produced (or, for deferred
// commands, after settlement).
type Invocation struct {
	ID        string
	Command   string
	SurfaceID string
	Body      []byte

	// State is the shared application state handle passed through to
	// handlers. The dispatch layer never inspects it.
	State any

	deliver func(Response)
	table   *DeferredTable
}

// InvocationOption configures an Invocation.
type InvocationOption func(*Invocation)

// WithState attaches the shared application state handle.
func WithState(state any) InvocationOption {
	return func(inv *Invocation) { inv.State = state }
}

// WithDeliver sets the callback that receives the settled response of a
// deferred command. Synchronous responses are returned from Invoke
// directly and never pass through this callback.
func WithDeliver(deliver func(Response)) InvocationOption {
	return func(inv *Invocation) { inv.deliver = deliver }
}

// NewInvocation builds an invocation for a command sent by a surface.
func NewInvocation(command, surfaceID string, body []byte, opts ...InvocationOption) *Invocation {
	inv := &Invocation{
		ID:        ulid.Make().String(),
		Command:   command,
		SurfaceID: surfaceID,
		Body:      body,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// ErrNotDispatched is returned by Defer when the invocation was not
// produced by a Registry.Invoke call and therefore has no slot table.
var ErrNotDispatched = errors.New("invocation is not being dispatched")

// Defer allocates a deferred slot bound to this invocation's delivery
// callback. The handler returns Pending(slot) and hands the slot to the
// responder that will eventually settle it.
func (inv *Invocation) Defer() (*Deferred, error) {
	if inv.table == nil {
		return nil, ErrNotDispatched
	}
	return inv.table.Allocate(inv.deliver), nil
}

// registryKey is the context key for the dispatching registry.
type registryKey struct{}

// WithRegistry returns a context carrying the registry, so request-scoped
// code reaches the explicitly constructed instance instead of a process
// global.
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// RegistryFromContext extracts the registry placed by WithRegistry.
func RegistryFromContext(ctx context.Context) (*Registry, bool) {
	r, ok := ctx.Value(registryKey{}).(*Registry)
	return r, ok
}
