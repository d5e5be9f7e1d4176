package acl

import (
	"encoding/json"

	"github.com/tidwall/jsonc"
)

// Document is the parsed configuration consumed by Manager.Configure.
// File discovery and layering belong to the external loader; this package
// only accepts the document's bytes. JSONC comments and trailing commas
// are tolerated.
type Document struct {
	Capabilities               []Capability          `json:"capabilities"`
	Permissions                map[string]Permission `json:"permissions"`
	DefaultAppCommandPolicy    Policy                `json:"defaultAppCommandPolicy"`
	DefaultPluginCommandPolicy Policy                `json:"defaultPluginCommandPolicy"`
}

// ParseDocument decodes and validates a configuration document. Any error
// is a *ConfigError and must abort startup: running with a partially
// loaded policy is worse than not running.
func ParseDocument(data []byte) (*Document, error) {
	data = jsonc.ToJSON(data)

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Reason: "malformed document", Err: err}
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks structural invariants the JSON decoder cannot express.
func (d *Document) Validate() error {
	if d.DefaultAppCommandPolicy != "" && !d.DefaultAppCommandPolicy.valid() {
		return configErrorf("unknown app default policy %q", d.DefaultAppCommandPolicy)
	}
	if d.DefaultPluginCommandPolicy != "" && !d.DefaultPluginCommandPolicy.valid() {
		return configErrorf("unknown plugin default policy %q", d.DefaultPluginCommandPolicy)
	}

	seen := make(map[string]bool, len(d.Capabilities))
	for _, c := range d.Capabilities {
		if c.Identifier == "" {
			return configErrorf("capability with empty identifier")
		}
		if seen[c.Identifier] {
			return configErrorf("duplicate capability %q", c.Identifier)
		}
		seen[c.Identifier] = true
		for _, pid := range c.Permissions {
			if pid == "" {
				return configErrorf("capability %q lists an empty permission identifier", c.Identifier)
			}
		}
	}

	for id, p := range d.Permissions {
		if id == "" {
			return configErrorf("permission with empty identifier")
		}
		if p.Identifier != "" && p.Identifier != id {
			return configErrorf("permission %q declares mismatched identifier %q", id, p.Identifier)
		}
	}

	return nil
}
