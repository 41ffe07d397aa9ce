package pattern

import (
	"strings"
	"testing"
)

func TestMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"src/a.ts", nil, false},
		{"src/a.ts", []string{}, false},
		{"src/a.ts", []string{"src/*.ts"}, true},
		{"src/lib/a.ts", []string{"src/*.ts"}, false},
		{"src/lib/a.ts", []string{"src/**/*.ts"}, true},
		{"src/a.ts", []string{"src/**/*.ts"}, true},
		{"a.ts", []string{"**/*.ts"}, true},
		{"node_modules/x/index.js", []string{"**/node_modules/**"}, true},
		{`src\lib\a.ts`, []string{"src/lib/*.ts"}, true},
		{"src/ab.ts", []string{"src/a?.ts"}, true},
		{"src/a/b.ts", []string{"src/a?b.ts"}, false},
		{"src/aXts", []string{"src/a.ts"}, false},
		{"./src/a.ts", []string{"src/a.ts"}, true},
	}

	for _, tt := range tests {
		got, _ := Matches(tt.path, tt.patterns)
		if got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.path, tt.patterns, got, tt.want)
		}
	}
}

func TestCompileInvalidPattern(t *testing.T) {
	t.Parallel()

	s, warnings := Compile([]string{"[invalid", "**/*.spec.ts", "  "})
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0].Message, "[invalid") {
		t.Errorf("warning should name the pattern: %q", warnings[0].Message)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 usable pattern, got %d", s.Len())
	}
	if !s.Match("src/a.spec.ts") {
		t.Error("valid pattern should still match after an invalid one")
	}
	if s.Match("[invalid") {
		t.Error("invalid pattern must not match")
	}
}

func TestMatchesInvalidOnly(t *testing.T) {
	t.Parallel()

	ok, warnings := Matches("anything.ts", []string{"[invalid"})
	if ok {
		t.Error("invalid pattern must be non-matching")
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", warnings)
	}
}

func TestCompileCachesSets(t *testing.T) {
	t.Parallel()

	patterns := []string{"cache-test/**", "[cache-test"}
	first, w1 := Compile(patterns)
	second, w2 := Compile([]string{"cache-test/**", "[cache-test"})
	if first != second {
		t.Error("equal pattern lists should share one compiled set")
	}
	if len(w1) != 1 || len(w2) != 1 {
		t.Errorf("warnings = %v, %v; want one each", w1, w2)
	}

	w1[0].Message = "changed"
	if _, w3 := Compile(patterns); w3[0].Message == "changed" {
		t.Error("returned warnings must not alias the cached ones")
	}

	other, _ := Compile([]string{"cache-test/**"})
	if other == first {
		t.Error("different pattern lists must not share a set")
	}
}

func TestSetMatchAnyCandidate(t *testing.T) {
	t.Parallel()

	s, _ := Compile([]string{"legacy/**"})
	if !s.Match("/abs/project/src/x.ts", "legacy/x.ts") {
		t.Error("expected relative candidate to match")
	}
	if s.Match("/abs/project/src/x.ts", "src/x.ts") {
		t.Error("unexpected match")
	}

	var nilSet *Set
	if nilSet.Match("a") {
		t.Error("nil set must match nothing")
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		`a\b\c.ts`: "a/b/c.ts",
		"./a/b":    "a/b",
		"a//b/":    "a/b",
		"":         "",
		"/abs/x":   "/abs/x",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
