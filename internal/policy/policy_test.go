package policy

import (
	"testing"

	"github.com/phobologic/deptrack/internal/config"
	"github.com/phobologic/deptrack/internal/ignore"
)

func TestIsFileIgnored(t *testing.T) {
	t.Parallel()

	rules := ignore.Rules{
		Files:        []string{"/proj/src/b.ts"},
		FilePatterns: []string{"legacy/**", "**/*.gen.ts"},
	}
	p, warnings := New("/proj", rules, config.Default())
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/proj/src/b.ts", true},
		{"src/b.ts", true},
		{"/proj/src/./b.ts", true},
		{"/proj/src/a.ts", false},
		{"/proj/legacy/old.ts", true},
		{"/proj/src/api.gen.ts", true},
		{"/elsewhere/legacy/x.ts", false},
	}
	for _, tt := range tests {
		if got := p.IsFileIgnored(tt.path); got != tt.want {
			t.Errorf("IsFileIgnored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsMemberIgnored(t *testing.T) {
	t.Parallel()

	rules := ignore.Rules{
		Members:        map[string][]string{"/proj/a.ts": {"oldMethod"}},
		GlobalMembers:  []string{"legacyHelper"},
		MemberPatterns: []string{"unsafe*"},
	}
	p, _ := New("/proj", rules, config.Default())

	tests := []struct {
		path, name string
		want       bool
	}{
		{"/proj/a.ts", "oldMethod", true},
		{"/proj/b.ts", "oldMethod", false},
		{"/proj/b.ts", "legacyHelper", true},
		{"/proj/b.ts", "unsafeParse", true},
		{"/proj/b.ts", "parse", false},
	}
	for _, tt := range tests {
		if got := p.IsMemberIgnored(tt.path, tt.name); got != tt.want {
			t.Errorf("IsMemberIgnored(%q, %q) = %v, want %v", tt.path, tt.name, got, tt.want)
		}
	}
}

func TestIsPackageTrusted(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.TrustedPackages = append(cfg.TrustedPackages, "@acme/*")
	p, _ := New("/proj", ignore.Rules{}, cfg)

	tests := []struct {
		spec string
		want bool
	}{
		{"rxjs", true},
		{"rxjs/operators", true},
		{"@angular/core", true},
		{"@angular/core/testing", true},
		{"@angular/router", false},
		{"@acme/widgets", true},
		{"./rxjs", false},
		{"../lodash", false},
		{"left-pad", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.IsPackageTrusted(tt.spec); got != tt.want {
			t.Errorf("IsPackageTrusted(%q) = %v, want %v", tt.spec, got, tt.want)
		}
	}
}

func TestPackageName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"rxjs":           "rxjs",
		"rxjs/operators": "rxjs",
		"@scope/pkg":     "@scope/pkg",
		"@scope/pkg/a/b": "@scope/pkg",
		"@scope":         "",
		"./local":        "",
		"/abs/path":      "",
		"node:fs":        "node:fs",
	}
	for in, want := range tests {
		if got := PackageName(in); got != want {
			t.Errorf("PackageName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInvalidPatternsWarn(t *testing.T) {
	t.Parallel()

	rules := ignore.Rules{FilePatterns: []string{"[invalid"}, MemberPatterns: []string{"ok*"}}
	p, warnings := New("/proj", rules, config.Default())
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if p.IsFileIgnored("/proj/[invalid") {
		t.Error("invalid pattern must not match")
	}
	if !p.IsMemberIgnored("/proj/a.ts", "okName") {
		t.Error("valid member pattern should still apply")
	}
}
