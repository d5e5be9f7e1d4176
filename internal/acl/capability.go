package acl

import (
	"slices"
	"strings"
)

// Capability is a named bundle of permission grants targeted at specific
// frontend surfaces. A capability with no window or webview targets is
// global: it applies to every surface.
type Capability struct {
	Identifier  string   `json:"identifier"`
	Description string   `json:"description,omitempty"`
	Windows     []string `json:"windows,omitempty"`
	Webviews    []string `json:"webviews,omitempty"`
	Permissions []string `json:"permissions"`
	// Enabled defaults to true when omitted. Disabled capabilities are
	// never registered.
	Enabled *bool `json:"enabled,omitempty"`
}

// IsEnabled reports whether the capability should be loaded.
func (c Capability) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// TargetsSurface reports whether the capability applies to the surface
// with the given label. Window and webview target lists are equivalent
// for this purpose; a label in either grants targeting.
func (c Capability) TargetsSurface(label string) bool {
	if len(c.Windows) == 0 && len(c.Webviews) == 0 {
		return true
	}
	return slices.Contains(c.Windows, label) || slices.Contains(c.Webviews, label)
}

// MatchesPermissionID reports whether a permission identifier listed on a
// capability covers a command name. Matches are: exact equality; the
// command begins with the identifier followed by a namespace separator;
// or the identifier carries a `:*` or `|*` wildcard suffix and the
// command begins with the unsuffixed prefix. Both `:` and `|` separators
// are accepted when matching, for compatibility with documents written
// either way; registration always emits the `|` form.
func MatchesPermissionID(command, permissionID string) bool {
	if command == permissionID {
		return true
	}
	if rest, ok := strings.CutPrefix(command, permissionID); ok {
		if rest[0] == ':' || rest[0] == '|' {
			return true
		}
	}
	if prefix, ok := strings.CutSuffix(permissionID, ":*"); ok {
		return strings.HasPrefix(command, prefix)
	}
	if prefix, ok := strings.CutSuffix(permissionID, "|*"); ok {
		return strings.HasPrefix(command, prefix)
	}
	return false
}
