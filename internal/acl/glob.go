package acl

import (
	"regexp"
	"strings"
)

// compileGlob translates a glob pattern into an anchored regular
// expression. `*` matches any run of characters, `?` matches exactly one
// character, and everything else (path separators included) matches
// literally.
func compileGlob(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`\A`)
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`\z`)
	return regexp.MustCompile(b.String())
}

// GlobMatch reports whether value matches the glob pattern.
func GlobMatch(pattern, value string) bool {
	return compileGlob(pattern).MatchString(value)
}
