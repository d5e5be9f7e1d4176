package acl

import (
	"fmt"
	"strings"
)

// Permission is a named rule governing one or more commands: optional
// allow and deny command-pattern lists plus named scope constraints.
type Permission struct {
	Identifier string           `json:"identifier"`
	Allow      []string         `json:"allow,omitempty"`
	Deny       []string         `json:"deny,omitempty"`
	Scopes     map[string]Scope `json:"scopes,omitempty"`
}

// matchCommandPattern implements the allow/deny pattern grammar: exact
// equality, the bare wildcard `*`, or a trailing-`*` prefix match.
func matchCommandPattern(pattern, command string) bool {
	if pattern == command || pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(command, prefix)
	}
	return false
}

// Evaluate renders the permission's verdict for a command. The deny list
// is checked first and cannot be overridden by an allow match. Scope
// constraints apply to every scope name the permission declares that also
// appears in scopeValues; the first violation denies.
func (p Permission) Evaluate(command string, scopeValues map[string]string, lookup ValidatorLookup) Decision {
	for _, pattern := range p.Deny {
		if matchCommandPattern(pattern, command) {
			return Deny(CodePermissionDenied,
				fmt.Sprintf("command %q explicitly denied by permission %q", command, p.Identifier))
		}
	}

	if len(p.Allow) > 0 {
		allowed := false
		for _, pattern := range p.Allow {
			if matchCommandPattern(pattern, command) {
				allowed = true
				break
			}
		}
		if !allowed {
			return Deny(CodePermissionDenied,
				fmt.Sprintf("command %q is not in the allow list of permission %q", command, p.Identifier))
		}
	}

	for name, scope := range p.Scopes {
		value, present := scopeValues[name]
		if !present {
			continue
		}
		if !scope.Allows(value, lookup) {
			return Deny(CodeScopeViolation,
				fmt.Sprintf("scope violation: %s value %q rejected by permission %q", name, value, p.Identifier))
		}
	}

	return Allow()
}
