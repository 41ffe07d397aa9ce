// Package classify finds the declarations that carry a deprecation marker.
package classify

import (
	"strings"

	"github.com/phobologic/deptrack/internal/lang"
	"github.com/phobologic/deptrack/internal/model"
	"github.com/phobologic/deptrack/internal/symbols"
	"github.com/phobologic/deptrack/internal/tags"
)

// Marker is a tag that deprecates the declaration it documents.
type Marker struct {
	Tag string // includes the sigil
	// Severity overrides the default severity of items it marks.
	Severity model.Severity
}

// Markers returns the built-in marker followed by the enabled custom tags.
func Markers(custom []tags.CustomTag) []Marker {
	out := []Marker{{Tag: tags.Builtin}}
	for _, t := range custom {
		if t.Enabled && !strings.EqualFold(t.Tag, tags.Builtin) {
			out = append(out, Marker{Tag: t.Tag, Severity: t.Severity})
		}
	}
	return out
}

// Options control classification.
type Options struct {
	// IgnoreInComments drops markers found only in stray comments that are
	// not attached documentation.
	IgnoreInComments bool
}

// Declaration is a deprecated declaration.
type Declaration struct {
	Symbol   *symbols.Symbol
	Marker   Marker
	Reason   string
	Severity model.Severity // per-item override, or ""
}

// Item returns the declaration's result record.
func (d *Declaration) Item() model.DeprecatedItem {
	s := d.Symbol
	return model.DeprecatedItem{
		Name:              s.Name,
		FileName:          s.File.Name,
		FilePath:          s.File.Path,
		Line:              s.Pos.Line,
		Character:         s.Pos.Character,
		Kind:              s.ItemKind(),
		Severity:          d.Severity,
		DeprecationReason: d.Reason,
	}
}

// Result holds the deprecated declarations of a model in discovery order.
type Result struct {
	Declarations []*Declaration
	bySymbol     map[*symbols.Symbol]*Declaration
}

// Lookup returns the declaration record for s, or nil if s is not deprecated.
func (r *Result) Lookup(s *symbols.Symbol) *Declaration {
	if r == nil {
		return nil
	}
	return r.bySymbol[s]
}

// Items returns the declaration items in discovery order.
func (r *Result) Items() []model.DeprecatedItem {
	out := make([]model.DeprecatedItem, 0, len(r.Declarations))
	for _, d := range r.Declarations {
		out = append(out, d.Item())
	}
	return out
}

// Classify inspects every reportable declaration of m. Declarations inside
// trusted packages are skipped.
func Classify(m *symbols.Model, markers []Marker, opts Options) *Result {
	r := &Result{bySymbol: make(map[*symbols.Symbol]*Declaration)}
	for _, f := range m.Files {
		if m.Trusted(f) {
			continue
		}
		for _, s := range f.Symbols {
			if s.ItemKind() == "" {
				continue
			}
			d := classifySymbol(s, markers, opts)
			if d == nil {
				continue
			}
			r.Declarations = append(r.Declarations, d)
			r.bySymbol[s] = d
		}
	}
	return r
}

func classifySymbol(s *symbols.Symbol, markers []Marker, opts Options) *Declaration {
	comments := s.Doc
	if !opts.IgnoreInComments {
		comments = append(append([]symbols.Comment(nil), s.Loose...), s.Doc...)
	}
	// Closest comment first.
	for i := len(comments) - 1; i >= 0; i-- {
		text := comments[i].Text
		m, end, ok := FindMarker(text, markers)
		if !ok {
			continue
		}
		return &Declaration{
			Symbol:   s,
			Marker:   m,
			Reason:   ExtractReason(text, end),
			Severity: m.Severity,
		}
	}
	return nil
}

// FindMarker returns the earliest marker occurring in text as a whole tag,
// and the offset just past it.
func FindMarker(text string, markers []Marker) (Marker, int, bool) {
	best, bestAt := Marker{}, -1
	for _, m := range markers {
		if at := indexTag(text, m.Tag); at >= 0 && (bestAt < 0 || at < bestAt) {
			best, bestAt = m, at
		}
	}
	if bestAt < 0 {
		return Marker{}, 0, false
	}
	return best, bestAt + len(best.Tag), true
}

func indexTag(text, tag string) int {
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], tag)
		if i < 0 {
			return -1
		}
		at := from + i
		end := at + len(tag)
		if tagStart(text, at) && (end == len(text) || !isTagChar(text[end])) {
			return at
		}
		from = end
	}
	return -1
}

// tagStart reports whether a tag at offset at begins a JSDoc block tag:
// it follows whitespace, comment decoration or an inline `{`.
func tagStart(text string, at int) bool {
	if at == 0 {
		return true
	}
	switch text[at-1] {
	case ' ', '\t', '\n', '\r', '*', '/', '{':
		return true
	}
	return false
}

func isTagChar(c byte) bool {
	return c == '_' || c == '-' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// ExtractReason returns the text after a marker ending at offset at: the
// rest of its line plus continuation lines up to the next tag or the end
// of the comment, stripped of comment decoration.
func ExtractReason(text string, at int) string {
	if at > len(text) {
		return ""
	}
	lines := strings.Split(text[at:], "\n")
	parts := []string{stripDecoration(lines[0])}
	for _, line := range lines[1:] {
		line = stripDecoration(line)
		if strings.HasPrefix(line, tags.Sigil) {
			break
		}
		parts = append(parts, line)
	}
	return lang.CollapseWhitespace(strings.Join(parts, " "))
}

func stripDecoration(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, "*/")
	switch {
	case strings.HasPrefix(line, "/**"):
		line = line[3:]
	case strings.HasPrefix(line, "/*"), strings.HasPrefix(line, "//"):
		line = line[2:]
	case strings.HasPrefix(line, "*"):
		line = line[1:]
	}
	return strings.TrimSpace(line)
}
