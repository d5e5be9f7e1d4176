package acl

import (
	"net/url"
	"regexp"
	"strings"
)

// urlPattern is a parsed URL template. Scheme `*` matches any scheme,
// host `*` matches any host, host `*.suffix` matches any host ending in
// `.suffix`, and the path component is a glob. A missing or root path
// places no constraint on the value's path.
type urlPattern struct {
	scheme string
	host   string
	path   *regexp.Regexp
}

// parseURLPattern splits a template into scheme, host and path. Patterns
// are not required to be valid URLs (a bare `*` scheme is not), so this
// parses structurally instead of using url.Parse.
func parseURLPattern(raw string) urlPattern {
	rest := raw
	var p urlPattern
	if i := strings.Index(rest, "://"); i >= 0 {
		p.scheme = rest[:i]
		rest = rest[i+3:]
	}
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		p.host = rest[:j]
		if path := rest[j:]; path != "/" {
			p.path = compileGlob(path)
		}
	} else {
		p.host = rest
	}
	return p
}

// matches reports whether a concrete URL value satisfies the pattern.
// Values that do not parse as URLs never match.
func (p urlPattern) matches(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	if p.scheme != "" && p.scheme != "*" && p.scheme != u.Scheme {
		return false
	}
	if p.host != "" && p.host != "*" {
		if strings.HasPrefix(p.host, "*.") {
			// "*.trusted.com" requires the ".trusted.com" suffix.
			if !strings.HasSuffix(u.Host, p.host[1:]) {
				return false
			}
		} else if p.host != u.Host {
			return false
		}
	}
	if p.path != nil && !p.path.MatchString(u.Path) {
		return false
	}
	return true
}

// URLMatch reports whether value matches the URL template pattern.
func URLMatch(pattern, value string) bool {
	return parseURLPattern(pattern).matches(value)
}
