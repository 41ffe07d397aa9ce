// Package assemble merges declaration and usage items into the final
// result collection.
package assemble

import (
	"github.com/phobologic/deptrack/internal/model"
)

// Policy is the subset of the suppression policy applied to items.
type Policy interface {
	IsFileIgnored(path string) bool
	IsMemberIgnored(path, name string) bool
}

// Inline reports inline suppression comments.
type Inline interface {
	Suppressed(path string, line int) bool
}

type key struct {
	usage     bool
	path      string
	line      int
	character int
	name      string
}

// Assemble returns declarations followed by usages, each in the order
// given, after suppression and de-duplication. Items without a severity
// get def. Items failing validation are dropped and reported as warnings.
// inline may be nil.
func Assemble(decls, usages []model.DeprecatedItem, p Policy, inline Inline, def model.Severity) ([]model.DeprecatedItem, []model.Warning) {
	out := make([]model.DeprecatedItem, 0, len(decls)+len(usages))
	var warnings []model.Warning
	seen := make(map[key]struct{}, cap(out))

	add := func(it model.DeprecatedItem) {
		if suppressed(it, p, inline) {
			return
		}
		k := key{it.Kind == model.Usage, it.FilePath, it.Line, it.Character, it.Name}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		if it.Severity == "" {
			it.Severity = def
		}
		if err := it.Validate(); err != nil {
			warnings = append(warnings, model.Warning{Path: it.FilePath, Message: err.Error()})
			return
		}
		out = append(out, it)
	}
	for _, it := range decls {
		add(it)
	}
	for _, it := range usages {
		add(it)
	}
	return out, warnings
}

func suppressed(it model.DeprecatedItem, p Policy, inline Inline) bool {
	if p != nil {
		if p.IsFileIgnored(it.FilePath) || p.IsMemberIgnored(it.FilePath, it.Name) {
			return true
		}
		if d := it.DeprecatedDeclaration; d != nil && p.IsMemberIgnored(d.FilePath, d.Name) {
			return true
		}
	}
	return inline != nil && inline.Suppressed(it.FilePath, it.Line)
}
