package acl

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/veloxhq/velox/internal/event"
	"github.com/veloxhq/velox/internal/logging"
)

// Policy is a default decision applied when no capability speaks for a
// command.
type Policy string

const (
	PolicyAllow Policy = "allow"
	PolicyDeny  Policy = "deny"
)

// valid reports whether the policy is one of the two known values.
func (p Policy) valid() bool {
	return p == PolicyAllow || p == PolicyDeny
}

// PluginPrefix marks plugin-namespaced commands. Commands without it are
// app-namespaced.
const PluginPrefix = "plugin:"

// Manager aggregates capabilities, permissions, custom validators and
// default policies, and renders allow/deny decisions. It is created
// empty, populated once during startup (Configure or the incremental
// Register* calls) and read concurrently by every subsequent invocation;
// configuration is never rolled back.
type Manager struct {
	mu            sync.RWMutex
	permissions   map[string]Permission
	capabilities  map[string]Capability
	validators    map[string]Validator
	appDefault    Policy
	pluginDefault Policy

	log zerolog.Logger
	bus *event.Bus
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithBus sets the event bus decisions are published on.
func WithBus(bus *event.Bus) ManagerOption {
	return func(m *Manager) { m.bus = bus }
}

// NewManager creates an empty policy manager. App-namespaced commands
// default to allow, plugin-namespaced commands to deny.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		permissions:   make(map[string]Permission),
		capabilities:  make(map[string]Capability),
		validators:    make(map[string]Validator),
		appDefault:    PolicyAllow,
		pluginDefault: PolicyDeny,
		log:           logging.Component("acl"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterPermission adds or replaces a permission configuration.
func (m *Manager) RegisterPermission(p Permission) error {
	if p.Identifier == "" {
		return configErrorf("permission with empty identifier")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permissions[p.Identifier] = p
	return nil
}

// RegisterCapability adds a capability. Disabled capabilities are
// silently skipped; duplicate identifiers are a configuration error.
func (m *Manager) RegisterCapability(c Capability) error {
	if c.Identifier == "" {
		return configErrorf("capability with empty identifier")
	}
	for _, pid := range c.Permissions {
		if pid == "" {
			return configErrorf("capability %q lists an empty permission identifier", c.Identifier)
		}
	}
	if !c.IsEnabled() {
		m.log.Debug().Str("capability", c.Identifier).Msg("skipping disabled capability")
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.capabilities[c.Identifier]; exists {
		return configErrorf("duplicate capability %q", c.Identifier)
	}
	m.capabilities[c.Identifier] = c
	return nil
}

// RegisterValidator registers a named custom scope validator. Validators
// must be pure and safe for concurrent use; the same instance is called
// from every policy-check call site.
func (m *Manager) RegisterValidator(name string, v Validator) error {
	if name == "" {
		return configErrorf("validator with empty name")
	}
	if v == nil {
		return configErrorf("validator %q is nil", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validators[name] = v
	return nil
}

// SetAppDefaultPolicy sets the default policy for app-namespaced commands.
func (m *Manager) SetAppDefaultPolicy(p Policy) error {
	if !p.valid() {
		return configErrorf("unknown app default policy %q", p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appDefault = p
	return nil
}

// SetPluginDefaultPolicy sets the default policy for plugin-namespaced
// commands.
func (m *Manager) SetPluginDefaultPolicy(p Policy) error {
	if !p.valid() {
		return configErrorf("unknown plugin default policy %q", p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pluginDefault = p
	return nil
}

// Configure applies a parsed configuration document in bulk. The first
// error aborts; callers must treat any error as fatal and refuse to
// start.
func (m *Manager) Configure(doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if doc.DefaultAppCommandPolicy != "" {
		if err := m.SetAppDefaultPolicy(doc.DefaultAppCommandPolicy); err != nil {
			return err
		}
	}
	if doc.DefaultPluginCommandPolicy != "" {
		if err := m.SetPluginDefaultPolicy(doc.DefaultPluginCommandPolicy); err != nil {
			return err
		}
	}
	for id, p := range doc.Permissions {
		if p.Identifier == "" {
			p.Identifier = id
		}
		if err := m.RegisterPermission(p); err != nil {
			return err
		}
	}
	for _, c := range doc.Capabilities {
		if err := m.RegisterCapability(c); err != nil {
			return err
		}
	}
	m.log.Info().
		Int("capabilities", len(doc.Capabilities)).
		Int("permissions", len(doc.Permissions)).
		Msg("policy configured")
	return nil
}

// denyRank orders concurrent denial reasons so the strongest is reported:
// an explicit deny beats a scope violation, which beats the generic
// covered-but-untargeted denial.
func denyRank(d Decision) int {
	switch {
	case d.Code == CodePermissionDenied:
		return 2
	case d.Code == CodeScopeViolation:
		return 1
	default:
		return 0
	}
}

// CheckPermission is the single decision entry point. It classifies the
// command by namespace, scans every enabled capability for permission ids
// covering the command, and evaluates the matching permission
// configurations for capabilities that target the calling surface.
//
// The default policy applies in exactly two situations: no capabilities
// are registered at all, or no capability covers the command and none
// targets the surface either. A surface that any capability targets gets
// a deny for uncovered commands instead of the default.
func (m *Manager) CheckPermission(command, surfaceID string, scopeValues map[string]string) Decision {
	m.mu.RLock()
	decision := m.check(command, surfaceID, scopeValues)
	m.mu.RUnlock()

	if decision.Allowed {
		m.log.Debug().
			Str("command", command).
			Str("surface", surfaceID).
			Msg("permission granted")
		m.publish(event.PermissionGranted, command, surfaceID, decision)
	} else {
		m.log.Info().
			Str("command", command).
			Str("surface", surfaceID).
			Str("code", decision.Code).
			Str("reason", decision.Reason).
			Msg("permission denied")
		m.publish(event.PermissionDenied, command, surfaceID, decision)
	}
	return decision
}

// check runs the decision procedure. Callers hold the read lock; the
// validator lookup reads the map directly so the lock is never re-taken.
func (m *Manager) check(command, surfaceID string, scopeValues map[string]string) Decision {
	defaultPolicy := m.appDefault
	if strings.HasPrefix(command, PluginPrefix) {
		defaultPolicy = m.pluginDefault
	}

	if len(m.capabilities) == 0 {
		return m.defaultDecision(command, defaultPolicy)
	}

	lookup := func(name string) (Validator, bool) {
		v, ok := m.validators[name]
		return v, ok
	}

	covered := false
	surfaceTargeted := false
	var strongestDeny Decision

	for _, capability := range m.capabilities {
		targets := capability.TargetsSurface(surfaceID)
		if targets {
			surfaceTargeted = true
		}
		for _, pid := range capability.Permissions {
			if pid != "*" && !MatchesPermissionID(command, pid) {
				continue
			}
			covered = true
			if !targets {
				continue
			}
			if pid == "*" {
				// The bare wildcard grants everything the capability
				// targets, bypassing scope checks.
				return Allow()
			}
			permission, configured := m.permissions[pid]
			if !configured {
				// A listed id without a permission config is a bare grant.
				return Allow()
			}
			d := permission.Evaluate(command, scopeValues, lookup)
			if d.Allowed {
				return Allow()
			}
			// A denial here does not fail fast; another capability or
			// permission may still grant the command.
			if denyRank(d) > denyRank(strongestDeny) || strongestDeny.Code == "" {
				strongestDeny = d
			}
		}
	}

	if covered {
		if strongestDeny.Code != "" {
			return strongestDeny
		}
		return Deny(CodePermissionDenied,
			fmt.Sprintf("command %q is not allowed by any capability targeting surface %q", command, surfaceID))
	}

	if !surfaceTargeted {
		return m.defaultDecision(command, defaultPolicy)
	}
	return Deny(CodePermissionDenied,
		fmt.Sprintf("no capability grants command %q to surface %q", command, surfaceID))
}

// defaultDecision renders the namespace default policy outcome.
func (m *Manager) defaultDecision(command string, policy Policy) Decision {
	if policy == PolicyAllow {
		return Allow()
	}
	return Deny(CodePermissionDenied,
		fmt.Sprintf("command %q denied by default policy", command))
}

// publish emits a decision event when a bus is configured.
func (m *Manager) publish(t event.Type, command, surfaceID string, d Decision) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(event.Event{
		Type: t,
		Data: event.PermissionDecisionData{
			Command:   command,
			SurfaceID: surfaceID,
			Code:      d.Code,
			Reason:    d.Reason,
		},
	})
}
