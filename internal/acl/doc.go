// Package acl implements the capability-based authorization core that
// decides, for every command a frontend surface sends to the backend,
// whether that command may execute.
//
// # Overview
//
// Authorization is described by three kinds of values:
//
//   - Scope: a constraint on one named parameter of an invocation,
//     such as a file path or a URL.
//   - Permission: allow/deny command patterns plus named scopes,
//     governing one or more commands.
//   - Capability: a named bundle of permission grants targeted at
//     specific window or webview labels.
//
// The Manager aggregates capabilities, permissions, custom scope
// validators and the two default command policies, and exposes the
// single decision entry point:
//
//	m := acl.NewManager()
//	if err := m.Configure(doc); err != nil {
//		// fatal: refuse to start
//	}
//	decision := m.CheckPermission("fs|read", "main", map[string]string{
//		"path": "/tmp/notes.txt",
//	})
//
// # Decision procedure
//
// CheckPermission classifies the command (app vs plugin namespace),
// scans every enabled capability that targets the calling surface, and
// evaluates the permissions those capabilities list. An explicit deny
// always wins over an allow for the same permission. When no capability
// covers the command and none targets the surface at all, the namespace
// default policy applies: app commands default to allow, plugin
// commands to deny.
//
// # Configuration
//
// Configuration arrives as a parsed JSONC document (ParseDocument).
// Malformed documents fail at load time with a *ConfigError; the caller
// must treat that as fatal rather than run with a partial policy.
//
// # Concurrency
//
// Manager state is mutated during setup and read by many concurrent
// invocations afterwards. All map access is guarded by a RWMutex.
// Custom validators must be pure and safe for concurrent use, since the
// same validator instance is shared process-wide.
package acl
