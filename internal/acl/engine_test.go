package acl

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_DefaultPolicies_NoCapabilities(t *testing.T) {
	m := NewManager()

	// App-namespaced commands default to allow, plugin-namespaced to deny.
	assert.True(t, m.CheckPermission("fs|read", "main", nil).Allowed)

	d := m.CheckPermission("plugin:fs|read", "main", nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodePermissionDenied, d.Code)
}

func TestManager_DefaultPolicies_Overridden(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.SetAppDefaultPolicy(PolicyDeny))
	require.NoError(t, m.SetPluginDefaultPolicy(PolicyAllow))

	assert.False(t, m.CheckPermission("fs|read", "main", nil).Allowed)
	assert.True(t, m.CheckPermission("plugin:fs|read", "main", nil).Allowed)
}

func TestManager_SetDefaultPolicy_RejectsUnknown(t *testing.T) {
	m := NewManager()
	assert.Error(t, m.SetAppDefaultPolicy("ask"))
	assert.Error(t, m.SetPluginDefaultPolicy(""))
}

func TestManager_SurfaceTargeting(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "main-only",
		Windows:     []string{"main"},
		Permissions: []string{"secret"},
	}))

	assert.True(t, m.CheckPermission("secret", "main", nil).Allowed)

	d := m.CheckPermission("secret", "settings", nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, CodePermissionDenied, d.Code)
}

func TestManager_GlobalCapabilityTargetsEverySurface(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "everywhere",
		Permissions: []string{"greet"},
	}))

	for _, surface := range []string{"main", "settings", "popup"} {
		assert.True(t, m.CheckPermission("greet", surface, nil).Allowed, "surface %s", surface)
	}
}

func TestManager_BareWildcardBypassesScopes(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.RegisterPermission(Permission{
		Identifier: "fs",
		Scopes: map[string]Scope{
			"path": GlobsScope("/tmp/*"),
		},
	}))
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "trusted",
		Windows:     []string{"main"},
		Permissions: []string{"*"},
	}))

	// The wildcard grants everything, even values the fs permission's
	// scope would reject.
	d := m.CheckPermission("fs|read", "main", map[string]string{"path": "/etc/passwd"})
	assert.True(t, d.Allowed)
}

func TestManager_BareGrantWithoutPermissionConfig(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "cap",
		Permissions: []string{"window"},
	}))

	// "window" has no Permission config registered, so listing it is a
	// bare grant for the commands it covers.
	assert.True(t, m.CheckPermission("window|close", "main", nil).Allowed)
}

func TestManager_ScopeEnforcement(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.RegisterPermission(Permission{
		Identifier: "fs",
		Scopes: map[string]Scope{
			"path": GlobsScope("/tmp/*"),
		},
	}))
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "files",
		Permissions: []string{"fs"},
	}))

	assert.True(t, m.CheckPermission("fs|read", "main", map[string]string{"path": "/tmp/a"}).Allowed)

	d := m.CheckPermission("fs|read", "main", map[string]string{"path": "/etc/passwd"})
	assert.False(t, d.Allowed)
	assert.Equal(t, CodeScopeViolation, d.Code)
}

func TestManager_DenialKeepsScanning(t *testing.T) {
	// One capability's permission denies, but another capability still
	// grants the command; the scan must not fail fast on the first deny.
	m := NewManager()
	require.NoError(t, m.RegisterPermission(Permission{
		Identifier: "fs",
		Deny:       []string{"fs|read"},
	}))
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "restricted",
		Permissions: []string{"fs"},
	}))
	// "fs|*" has no Permission config, so it is a bare grant covering
	// the same command.
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "open",
		Permissions: []string{"fs|*"},
	}))

	assert.True(t, m.CheckPermission("fs|read", "main", nil).Allowed)
}

func TestManager_CoveredButUntargetedDenies(t *testing.T) {
	// A capability covers the command but targets a different surface,
	// and another capability targets the calling surface. The default
	// policy must not apply: the result is a deny.
	m := NewManager()
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "other-surface",
		Windows:     []string{"main"},
		Permissions: []string{"secret"},
	}))
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "settings-caps",
		Windows:     []string{"settings"},
		Permissions: []string{"prefs"},
	}))

	d := m.CheckPermission("secret", "settings", nil)
	assert.False(t, d.Allowed)
}

func TestManager_UncoveredCommand(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "main-caps",
		Windows:     []string{"main"},
		Permissions: []string{"greet"},
	}))

	// "settings" is targeted by no capability at all, so the app default
	// policy (allow) applies to its uncovered commands.
	assert.True(t, m.CheckPermission("untracked", "settings", nil).Allowed)

	// "main" is targeted by a capability, so uncovered commands deny.
	d := m.CheckPermission("untracked", "main", nil)
	assert.False(t, d.Allowed)

	// The plugin default (deny) still applies on untargeted surfaces.
	assert.False(t, m.CheckPermission("plugin:x|y", "settings", nil).Allowed)
}

func TestManager_ExplicitDenyOutranksScopeViolation(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.RegisterPermission(Permission{
		Identifier: "fs",
		Scopes: map[string]Scope{
			"path": GlobsScope("/tmp/*"),
		},
	}))
	require.NoError(t, m.RegisterPermission(Permission{
		Identifier: "fs|read",
		Deny:       []string{"*"},
	}))
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "both",
		Permissions: []string{"fs", "fs|read"},
	}))

	d := m.CheckPermission("fs|read", "main", map[string]string{"path": "/etc/passwd"})
	require.False(t, d.Allowed)
	assert.Equal(t, CodePermissionDenied, d.Code)
	assert.Contains(t, d.Reason, "explicitly denied")
}

func TestManager_DisabledCapabilityNeverLoads(t *testing.T) {
	disabled := false
	m := NewManager()
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "off",
		Permissions: []string{"secret"},
		Enabled:     &disabled,
	}))

	// With the disabled capability skipped the manager has zero
	// capabilities, so the app default applies.
	assert.True(t, m.CheckPermission("anything", "main", nil).Allowed)
}

func TestManager_RegisterCapability_Validation(t *testing.T) {
	m := NewManager()

	err := m.RegisterCapability(Capability{Permissions: []string{"x"}})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	require.NoError(t, m.RegisterCapability(Capability{Identifier: "dup", Permissions: []string{"x"}}))
	err = m.RegisterCapability(Capability{Identifier: "dup", Permissions: []string{"y"}})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestManager_CustomValidator(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.RegisterValidator("tmp-only", func(value string) bool {
		return GlobMatch("/tmp/*", value)
	}))
	require.NoError(t, m.RegisterPermission(Permission{
		Identifier: "fs",
		Scopes: map[string]Scope{
			"path": CustomScope("tmp-only"),
		},
	}))
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "files",
		Permissions: []string{"fs"},
	}))

	assert.True(t, m.CheckPermission("fs|read", "main", map[string]string{"path": "/tmp/a"}).Allowed)
	assert.False(t, m.CheckPermission("fs|read", "main", map[string]string{"path": "/etc/a"}).Allowed)
}

func TestManager_ConcurrentChecks(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.RegisterPermission(Permission{
		Identifier: "fs",
		Scopes: map[string]Scope{
			"path": GlobsScope("/tmp/*"),
		},
	}))
	require.NoError(t, m.RegisterCapability(Capability{
		Identifier:  "files",
		Windows:     []string{"main"},
		Permissions: []string{"fs"},
	}))

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("/tmp/file-%d", i)
			d := m.CheckPermission("fs|read", "main", map[string]string{"path": path})
			assert.True(t, d.Allowed)

			d = m.CheckPermission("fs|read", "settings", nil)
			assert.False(t, d.Allowed)
		}(i)
	}
	wg.Wait()
}
