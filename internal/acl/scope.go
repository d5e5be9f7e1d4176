package acl

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
)

// ScopeKind discriminates the active variant of a Scope.
type ScopeKind string

const (
	// ScopeAny matches every value.
	ScopeAny ScopeKind = "any"
	// ScopeValues matches by case-sensitive membership in a value set.
	ScopeValues ScopeKind = "values"
	// ScopeGlobs matches against one or more glob patterns.
	ScopeGlobs ScopeKind = "globs"
	// ScopeURLPatterns matches against one or more URL templates.
	ScopeURLPatterns ScopeKind = "urls"
	// ScopeCustom delegates to a named validator registered on the Manager.
	ScopeCustom ScopeKind = "custom"
)

// Validator is a custom scope predicate. Validators must be pure,
// side-effect-free and safe for concurrent use: the same instance is
// invoked from every policy-check call site in the process.
type Validator func(value string) bool

// ValidatorLookup resolves a validator by name. An unknown name reports
// false, which makes the owning Custom scope match nothing.
type ValidatorLookup func(name string) (Validator, bool)

// Scope constrains one named parameter of a command invocation. Exactly
// one variant is active; values are built through the constructor
// functions or decoded from JSON, so the discriminator is always valid.
type Scope struct {
	kind ScopeKind

	values   []string
	patterns []string
	urls     []string
	name     string

	compiledGlobs []*regexp.Regexp
	compiledURLs  []urlPattern
}

// AnyScope returns a scope that matches every value.
func AnyScope() Scope {
	return Scope{kind: ScopeAny}
}

// ValuesScope returns a scope matching exactly the given strings.
func ValuesScope(values ...string) Scope {
	return Scope{kind: ScopeValues, values: values}
}

// GlobsScope returns a scope matching any of the given glob patterns.
func GlobsScope(patterns ...string) Scope {
	s := Scope{kind: ScopeGlobs, patterns: patterns}
	s.compile()
	return s
}

// URLScope returns a scope matching any of the given URL templates.
func URLScope(urls ...string) Scope {
	s := Scope{kind: ScopeURLPatterns, urls: urls}
	s.compile()
	return s
}

// CustomScope returns a scope that delegates to the named validator.
func CustomScope(name string) Scope {
	return Scope{kind: ScopeCustom, name: name}
}

// compile prepares the matchers for the glob-bearing variants.
func (s *Scope) compile() {
	switch s.kind {
	case ScopeGlobs:
		s.compiledGlobs = make([]*regexp.Regexp, len(s.patterns))
		for i, p := range s.patterns {
			s.compiledGlobs[i] = compileGlob(p)
		}
	case ScopeURLPatterns:
		s.compiledURLs = make([]urlPattern, len(s.urls))
		for i, u := range s.urls {
			s.compiledURLs[i] = parseURLPattern(u)
		}
	}
}

// Kind returns the active variant.
func (s Scope) Kind() ScopeKind { return s.kind }

// Allows reports whether value satisfies the scope. The lookup resolves
// Custom scopes; it may be nil, in which case Custom scopes never match.
func (s Scope) Allows(value string, lookup ValidatorLookup) bool {
	switch s.kind {
	case ScopeAny:
		return true
	case ScopeValues:
		return slices.Contains(s.values, value)
	case ScopeGlobs:
		for _, re := range s.compiledGlobs {
			if re.MatchString(value) {
				return true
			}
		}
		return false
	case ScopeURLPatterns:
		for _, p := range s.compiledURLs {
			if p.matches(value) {
				return true
			}
		}
		return false
	case ScopeCustom:
		if lookup == nil {
			return false
		}
		v, ok := lookup(s.name)
		if !ok {
			return false
		}
		return v(value)
	}
	// Unreachable for constructed or decoded scopes.
	return false
}

// Equal reports whether two scopes have the same variant and payload.
func (s Scope) Equal(o Scope) bool {
	return s.kind == o.kind &&
		slices.Equal(s.values, o.values) &&
		slices.Equal(s.patterns, o.patterns) &&
		slices.Equal(s.urls, o.urls) &&
		s.name == o.name
}

// scopeJSON is the wire form of a Scope.
type scopeJSON struct {
	Type   ScopeKind `json:"type"`
	Values []string  `json:"values,omitempty"`
	Globs  []string  `json:"globs,omitempty"`
	URLs   []string  `json:"urls,omitempty"`
	Name   string    `json:"name,omitempty"`
}

// MarshalJSON encodes the active variant and its payload.
func (s Scope) MarshalJSON() ([]byte, error) {
	out := scopeJSON{Type: s.kind}
	switch s.kind {
	case ScopeAny:
	case ScopeValues:
		out.Values = s.values
	case ScopeGlobs:
		out.Globs = s.patterns
	case ScopeURLPatterns:
		out.URLs = s.urls
	case ScopeCustom:
		out.Name = s.name
	default:
		return nil, fmt.Errorf("scope has no active variant")
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a scope, rejecting unknown or missing variants so
// a malformed document fails at load time rather than at first check.
func (s *Scope) UnmarshalJSON(data []byte) error {
	var in scopeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Type {
	case ScopeAny:
		*s = Scope{kind: ScopeAny}
	case ScopeValues:
		*s = Scope{kind: ScopeValues, values: in.Values}
	case ScopeGlobs:
		*s = Scope{kind: ScopeGlobs, patterns: in.Globs}
	case ScopeURLPatterns:
		*s = Scope{kind: ScopeURLPatterns, urls: in.URLs}
	case ScopeCustom:
		if in.Name == "" {
			return fmt.Errorf("custom scope requires a validator name")
		}
		*s = Scope{kind: ScopeCustom, name: in.Name}
	default:
		return fmt.Errorf("unknown scope type %q", in.Type)
	}
	s.compile()
	return nil
}
