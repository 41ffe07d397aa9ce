// Package usage turns references to deprecated declarations into usage items.
package usage

import (
	"github.com/phobologic/deptrack/internal/classify"
	"github.com/phobologic/deptrack/internal/model"
	"github.com/phobologic/deptrack/internal/symbols"
)

// FilePolicy decides whether a file's items are suppressed.
type FilePolicy interface {
	IsFileIgnored(path string) bool
}

// Resolve returns one usage item per reference bound to a deprecated
// declaration, in discovery order. A reference is reported only when every
// declaration it binds to is deprecated; the item links to the first.
func Resolve(m *symbols.Model, decls *classify.Result, p FilePolicy) []model.DeprecatedItem {
	var out []model.DeprecatedItem
	for _, f := range m.Files {
		if p != nil && p.IsFileIgnored(f.Path) {
			continue
		}
		for _, r := range f.Refs {
			if d := target(r, decls); d != nil {
				out = append(out, item(r, d))
			}
		}
	}
	return out
}

// target returns the deprecated declaration r reports, or nil.
func target(r *symbols.Ref, decls *classify.Result) *classify.Declaration {
	if r.Trusted || len(r.Targets) == 0 {
		return nil
	}
	var first *classify.Declaration
	for _, t := range r.Targets {
		d := decls.Lookup(t)
		if d == nil {
			return nil
		}
		if t.File == r.File && t.Pos.Offset == r.Pos.Offset {
			return nil
		}
		if first == nil {
			first = d
		}
	}
	if insideOtherDeprecated(r, decls) {
		return nil
	}
	return first
}

// insideOtherDeprecated reports whether r sits in the body of a deprecated
// declaration other than one it refers to.
func insideOtherDeprecated(r *symbols.Ref, decls *classify.Result) bool {
	for e := r.Enclosing; e != nil; e = e.Parent {
		if decls.Lookup(e) == nil {
			continue
		}
		self := false
		for _, t := range r.Targets {
			if t == e {
				self = true
				break
			}
		}
		if !self {
			return true
		}
	}
	return false
}

func item(r *symbols.Ref, d *classify.Declaration) model.DeprecatedItem {
	s := d.Symbol
	return model.DeprecatedItem{
		Name:              r.Name,
		FileName:          r.File.Name,
		FilePath:          r.File.Path,
		Line:              r.Pos.Line,
		Character:         r.Pos.Character,
		Kind:              model.Usage,
		Severity:          d.Severity,
		DeprecationReason: d.Reason,
		DeprecatedDeclaration: &model.DeclarationRef{
			Name:     s.Name,
			FileName: s.File.Name,
			FilePath: s.File.Path,
			Line:     s.Pos.Line,
		},
	}
}
