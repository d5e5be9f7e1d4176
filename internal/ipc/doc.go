// Package ipc implements the command dispatch layer that sits between
// frontend surfaces and native handlers.
//
// # Overview
//
// A Registry maps command names to handlers. Every invocation passes the
// policy gate first: the registry extracts scope-relevant values from the
// raw argument payload, asks the acl.Manager for a decision, and only
// invokes the handler on allow. Denials produce a structured error
// response and the handler never runs.
//
//	reg := ipc.NewRegistry(manager)
//	reg.Register("greet", func(ctx context.Context, inv *ipc.Invocation) (ipc.Response, error) {
//		return ipc.Ok("hello"), nil
//	})
//	resp := reg.Invoke(ctx, ipc.NewInvocation("greet", "main", body))
//
// # Deferred results
//
// A handler may return a pending placeholder instead of a terminal
// result. It calls Invocation.Defer to allocate a slot, hands the slot to
// whatever will produce the result (background goroutine, UI-thread
// callback, timer) and returns ipc.Pending(slot). The responder settles
// the slot exactly once with Resolve, ResolveBinary or Reject; duplicate
// settlement is a silent no-op. The delivery callback attached to the
// invocation receives the final response.
//
// A slot whose responder never settles it stays pending forever. There is
// no sweeper for stale slots; that is a documented limitation of the
// layer, not something handlers should rely on.
//
// # Plugin commands
//
// RegisterPlugin prefixes the handler name with the plugin namespace,
// `plugin:<name>|<command>`. The policy manager applies its plugin
// default policy (deny) to such commands when no capability speaks for
// them.
package ipc
