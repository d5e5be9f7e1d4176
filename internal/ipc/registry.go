package ipc

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/veloxhq/velox/internal/acl"
	"github.com/veloxhq/velox/internal/event"
	"github.com/veloxhq/velox/internal/logging"
)

// Handler executes one command. It returns a terminal response, a pending
// placeholder obtained through Invocation.Defer, or an error. Errors of
// type *CommandError keep their code and message verbatim; any other
// error is reported under CodeHandlerError.
type Handler func(ctx context.Context, inv *Invocation) (Response, error)

// registration pairs a handler with its scope-value extractors.
type registration struct {
	handler Handler
	// scopeFields maps a scope name to the gjson path of the argument
	// field carrying its value.
	scopeFields map[string]string
}

// defaultScopeFields are probed when a registration declares none. They
// cover the common cases of path- and URL-shaped arguments.
var defaultScopeFields = map[string]string{
	"path": "path",
	"url":  "url",
}

// RegisterOption configures a command registration.
type RegisterOption func(*registration)

// WithScopeField declares that the argument field at the given gjson path
// carries the value for the named scope. Repeat for multiple scopes;
// declaring any replaces the default path/url probing.
func WithScopeField(scope, path string) RegisterOption {
	return func(reg *registration) {
		if reg.scopeFields == nil {
			reg.scopeFields = make(map[string]string)
		}
		reg.scopeFields[scope] = path
	}
}

// Registry is the command table: it maps command names to handlers,
// consults the policy manager before every invocation and tracks deferred
// results. Registration happens at setup; Invoke runs concurrently from
// many surfaces afterwards. Handler execution happens outside all locks.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]*registration

	manager  *acl.Manager
	deferred *DeferredTable

	log zerolog.Logger
	bus *event.Bus
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the registry's logger.
func WithRegistryLogger(log zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// WithRegistryBus sets the event bus lifecycle events are published on.
func WithRegistryBus(bus *event.Bus) RegistryOption {
	return func(r *Registry) { r.bus = bus }
}

// NewRegistry creates a command registry gated by the given policy
// manager.
func NewRegistry(manager *acl.Manager, opts ...RegistryOption) *Registry {
	r := &Registry{
		handlers: make(map[string]*registration),
		manager:  manager,
		deferred: NewDeferredTable(),
		log:      logging.Component("ipc"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.deferred.bus = r.bus
	return r
}

// Deferred returns the registry's deferred slot table, used by responders
// that address slots by id.
func (r *Registry) Deferred() *DeferredTable {
	return r.deferred
}

// Register adds a handler under the exact command name. Registering the
// same name again replaces the previous handler.
func (r *Registry) Register(name string, h Handler, opts ...RegisterOption) error {
	if name == "" {
		return errors.New("command name must not be empty")
	}
	if h == nil {
		return errors.New("handler must not be nil")
	}
	reg := &registration{handler: h}
	for _, opt := range opts {
		opt(reg)
	}
	r.mu.Lock()
	r.handlers[name] = reg
	r.mu.Unlock()
	r.log.Debug().Str("command", name).Msg("command registered")
	return nil
}

// PluginCommand returns the namespaced name a plugin command is
// registered and invoked under: plugin:<plugin>|<name>.
func PluginCommand(plugin, name string) string {
	return acl.PluginPrefix + plugin + "|" + name
}

// RegisterPlugin registers a handler under the plugin namespace.
func (r *Registry) RegisterPlugin(plugin, name string, h Handler, opts ...RegisterOption) error {
	if plugin == "" {
		return errors.New("plugin name must not be empty")
	}
	return r.Register(PluginCommand(plugin, name), h, opts...)
}

// lookup fetches a registration without failing; Invoke needs the scope
// extractors before it knows whether the handler exists, because a policy
// denial must win over UnknownCommand.
func (r *Registry) lookup(name string) *registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[name]
}

// extractScopeValues pulls scope-relevant string fields out of the raw
// argument payload. Only top-level-addressable string values participate;
// anything else is left to the handler's own decoding.
func extractScopeValues(body []byte, fields map[string]string) map[string]string {
	if len(body) == 0 || len(fields) == 0 {
		return nil
	}
	var values map[string]string
	for scope, path := range fields {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String {
			if values == nil {
				values = make(map[string]string, len(fields))
			}
			values[scope] = v.Str
		}
	}
	return values
}

// Invoke runs one command invocation: scope extraction, policy check,
// handler lookup, handler execution. The policy gate is the only gate; a
// denied invocation never reaches the handler and produces no partial
// execution.
func (r *Registry) Invoke(ctx context.Context, inv *Invocation) Response {
	reg := r.lookup(inv.Command)

	fields := defaultScopeFields
	if reg != nil && reg.scopeFields != nil {
		fields = reg.scopeFields
	}
	scopeValues := extractScopeValues(inv.Body, fields)

	decision := r.manager.CheckPermission(inv.Command, inv.SurfaceID, scopeValues)
	if !decision.Allowed {
		return r.fail(inv, decision.Code, decision.Reason)
	}

	if reg == nil {
		return r.fail(inv, CodeUnknownCommand,
			"no handler registered for command "+inv.Command)
	}

	inv.table = r.deferred
	ctx = WithRegistry(ctx, r)

	// Handler execution happens outside every lock so a long-running
	// handler never blocks other lookups or policy checks.
	resp, err := reg.handler(ctx, inv)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return r.fail(inv, cmdErr.Code, cmdErr.Message)
		}
		return r.fail(inv, CodeHandlerError, err.Error())
	}
	if resp.IsError() {
		return r.fail(inv, resp.ErrorCode(), resp.ErrorMessage())
	}

	r.log.Debug().
		Str("invocation", inv.ID).
		Str("command", inv.Command).
		Str("surface", inv.SurfaceID).
		Bool("deferred", resp.IsPending()).
		Msg("command invoked")
	if r.bus != nil {
		r.bus.Publish(event.Event{
			Type: event.CommandInvoked,
			Data: event.CommandInvokedData{
				InvocationID: inv.ID,
				Command:      inv.Command,
				SurfaceID:    inv.SurfaceID,
				Deferred:     resp.IsPending(),
			},
		})
	}
	return resp
}

// fail logs and publishes a failed invocation and returns its response.
func (r *Registry) fail(inv *Invocation, code, message string) Response {
	r.log.Debug().
		Str("invocation", inv.ID).
		Str("command", inv.Command).
		Str("surface", inv.SurfaceID).
		Str("code", code).
		Msg("command failed")
	if r.bus != nil {
		r.bus.Publish(event.Event{
			Type: event.CommandFailed,
			Data: event.CommandFailedData{
				InvocationID: inv.ID,
				Command:      inv.Command,
				SurfaceID:    inv.SurfaceID,
				Code:         code,
				Message:      message,
			},
		})
	}
	return Fail(code, message)
}
