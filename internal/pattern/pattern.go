// Package pattern implements glob matching for config and ignore rules.
//
// Patterns use slash-separated paths regardless of platform: `*` matches any
// run of characters except a separator, `**` matches zero or more whole path
// segments, and `?` matches one non-separator character.
package pattern

import (
	"path"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phobologic/deptrack/internal/model"
)

// compiled caches sets and their warnings by pattern list.
var compiled, _ = lru.New[string, compiledSet](256)

type compiledSet struct {
	set      *Set
	warnings []model.Warning
}

// Set is a compiled list of patterns. Invalid patterns are dropped at
// compile time, so matching never fails. A Set is immutable.
type Set struct {
	patterns []string
}

// Compile validates patterns and returns the usable ones. Every invalid
// pattern produces one warning and is treated as non-matching. Equal
// pattern lists share one Set.
func Compile(patterns []string) (*Set, []model.Warning) {
	key := strings.Join(patterns, "\x00")
	c, ok := compiled.Get(key)
	if !ok {
		c = compile(patterns)
		compiled.Add(key, c)
	}
	return c.set, append([]model.Warning(nil), c.warnings...)
}

func compile(patterns []string) compiledSet {
	c := compiledSet{set: &Set{}}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		norm := Normalize(p)
		if !doublestar.ValidatePattern(norm) {
			c.warnings = append(c.warnings, model.Warning{
				Message: "invalid pattern " + strconv.Quote(p) + " skipped",
			})
			continue
		}
		c.set.patterns = append(c.set.patterns, norm)
	}
	return c
}

// Len returns the number of usable patterns.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Match reports whether any candidate path matches any pattern. An empty set
// matches nothing.
func (s *Set) Match(paths ...string) bool {
	if s.Len() == 0 {
		return false
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		p = Normalize(p)
		for _, pat := range s.patterns {
			if ok, _ := doublestar.Match(pat, p); ok {
				return true
			}
		}
	}
	return false
}

// Matches reports whether path matches any of patterns. Invalid patterns are
// skipped and returned as warnings.
func Matches(p string, patterns []string) (bool, []model.Warning) {
	if len(patterns) == 0 {
		return false, nil
	}
	s, warnings := Compile(patterns)
	return s.Match(p), warnings
}

// Normalize converts p to the canonical slash-separated form.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return p
	}
	cleaned := path.Clean(p)
	return strings.TrimPrefix(cleaned, "./")
}
