// Package policy decides which declarations and usages are suppressed.
//
// A Policy is built once per scan from frozen snapshots and never performs
// I/O, so every answer is a pure function of its inputs.
package policy

import (
	"path/filepath"
	"strings"

	"github.com/phobologic/deptrack/internal/config"
	"github.com/phobologic/deptrack/internal/ignore"
	"github.com/phobologic/deptrack/internal/model"
	"github.com/phobologic/deptrack/internal/pattern"
)

// Policy answers suppression questions for one scan.
type Policy struct {
	root           string
	files          map[string]struct{}
	members        map[string]map[string]struct{}
	globalMembers  map[string]struct{}
	filePatterns   *pattern.Set
	memberPatterns *pattern.Set
	trusted        *pattern.Set
}

// New builds a policy for the project at root. Invalid glob patterns are
// reported as warnings and never match.
func New(root string, rules ignore.Rules, cfg config.Config) (*Policy, []model.Warning) {
	p := &Policy{
		root:          filepath.Clean(root),
		files:         make(map[string]struct{}, len(rules.Files)),
		members:       make(map[string]map[string]struct{}, len(rules.Members)),
		globalMembers: toSet(rules.GlobalMembers),
	}
	for _, f := range rules.Files {
		p.files[filepath.Clean(f)] = struct{}{}
	}
	for f, names := range rules.Members {
		p.members[filepath.Clean(f)] = toSet(names)
	}

	var warnings []model.Warning
	var w []model.Warning
	p.filePatterns, w = pattern.Compile(rules.FilePatterns)
	warnings = append(warnings, w...)
	p.memberPatterns, w = pattern.Compile(rules.MemberPatterns)
	warnings = append(warnings, w...)
	p.trusted, w = pattern.Compile(cfg.TrustedPackages)
	warnings = append(warnings, w...)
	return p, warnings
}

// IsFileIgnored reports whether path is explicitly ignored or matches a
// file-ignore glob (against either its absolute or root-relative form).
func (p *Policy) IsFileIgnored(path string) bool {
	abs := p.abs(path)
	if _, ok := p.files[abs]; ok {
		return true
	}
	return p.filePatterns.Match(abs, p.rel(abs))
}

// IsMemberIgnored reports whether member name is ignored in the file at path,
// globally, or by a member-ignore glob.
func (p *Policy) IsMemberIgnored(path, name string) bool {
	if _, ok := p.members[p.abs(path)][name]; ok {
		return true
	}
	if _, ok := p.globalMembers[name]; ok {
		return true
	}
	return p.memberPatterns.Match(name)
}

// IsPackageTrusted reports whether importSource names a trusted package.
// Relative and absolute specifiers are never trusted.
func (p *Policy) IsPackageTrusted(importSource string) bool {
	name := PackageName(importSource)
	if name == "" {
		return false
	}
	return p.trusted.Match(name)
}

// PackageName extracts the package name from a bare module specifier:
// "@scope/pkg/sub" yields "@scope/pkg" and "pkg/sub" yields "pkg".
func PackageName(spec string) string {
	if spec == "" || strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") {
		return ""
	}
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return ""
		}
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

func (p *Policy) abs(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.root, path)
	}
	return filepath.Clean(path)
}

func (p *Policy) rel(abs string) string {
	rel, err := filepath.Rel(p.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

func toSet(list []string) map[string]struct{} {
	s := make(map[string]struct{}, len(list))
	for _, v := range list {
		s[v] = struct{}{}
	}
	return s
}
