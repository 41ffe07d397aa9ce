package classify

import (
	"context"
	"path"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/deptrack/internal/discover"
	"github.com/phobologic/deptrack/internal/lang"
	"github.com/phobologic/deptrack/internal/model"
	"github.com/phobologic/deptrack/internal/parse"
	"github.com/phobologic/deptrack/internal/symbols"
	"github.com/phobologic/deptrack/internal/tags"
)

func link(t *testing.T, sources map[string]string, pkgs []discover.Package, trust symbols.Trust) *symbols.Model {
	t.Helper()
	var names []string
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	var files []*symbols.File
	for _, name := range names {
		l := lang.ForPath(name)
		f, err := parse.Extract(context.Background(), l, l.NewParser(), []byte(sources[name]), path.Join("/proj", name), name)
		if err != nil {
			t.Fatalf("Extract(%s): %v", name, err)
		}
		files = append(files, f)
	}
	return symbols.Link(files, pkgs, trust)
}

type trustAll struct{}

func (trustAll) IsPackageTrusted(string) bool { return true }

func TestFindMarker(t *testing.T) {
	t.Parallel()

	markers := []Marker{{Tag: "@deprecated"}, {Tag: "@legacy", Severity: model.SeverityError}}
	tests := []struct {
		text    string
		wantTag string
		wantEnd int
		ok      bool
	}{
		{"/** @deprecated use x */", "@deprecated", 15, true},
		{"/** @deprecatedSoon */", "", 0, false},
		{"/** @legacy and @deprecated */", "@legacy", 11, true},
		{"/** @legacy-api */", "", 0, false},
		{"/** nothing here */", "", 0, false},
		{"// @deprecated", "@deprecated", 14, true},
		{"/** Contact ops@deprecated.example */", "", 0, false},
		{"/** see x@legacy then @legacy */", "@legacy", 29, true},
		{"/**@deprecated*/", "@deprecated", 14, true},
		{"/** {@deprecated} */", "@deprecated", 16, true},
	}
	for _, tt := range tests {
		m, end, ok := FindMarker(tt.text, markers)
		if ok != tt.ok || m.Tag != tt.wantTag || end != tt.wantEnd {
			t.Errorf("FindMarker(%q) = %q, %d, %v; want %q, %d, %v", tt.text, m.Tag, end, ok, tt.wantTag, tt.wantEnd, tt.ok)
		}
	}
}

func TestExtractReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"single line", "/** @deprecated use sum */", "use sum"},
		{"empty", "/** @deprecated */", ""},
		{"line comment", "// @deprecated   gone soon", "gone soon"},
		{
			"continuation",
			"/**\n * Adds.\n * @deprecated since 2.0,\n *   use {@link sum}\n * instead.\n * @param a first\n */",
			"since 2.0, use {@link sum} instead.",
		},
		{"stops at comment end", "/**\n * @deprecated bye\n */", "bye"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, end, ok := FindMarker(tt.text, []Marker{{Tag: tags.Builtin}})
			if !ok {
				t.Fatalf("no marker in %q", tt.text)
			}
			if got := ExtractReason(tt.text, end); got != tt.want {
				t.Errorf("ExtractReason = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkers(t *testing.T) {
	t.Parallel()

	got := Markers([]tags.CustomTag{
		{Tag: "@legacy", Enabled: true, Severity: model.SeverityError},
		{Tag: "@old", Enabled: false},
		{Tag: "@Deprecated", Enabled: true},
	})
	want := []Marker{{Tag: "@deprecated"}, {Tag: "@legacy", Severity: model.SeverityError}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Markers mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	m := link(t, map[string]string{
		"a.ts": `export class C {
  /** @deprecated use d */
  m() {}
  d() {}
  /** @legacy */
  old: number;
  // @deprecated stray
  loose() {}
}
/** @deprecated */
export interface Shape {}
/** @deprecated */
export const helper = () => 1;
/** @deprecated */
export type Alias = string;
`,
	}, nil, nil)

	markers := Markers([]tags.CustomTag{{Tag: "@legacy", Enabled: true, Severity: model.SeverityError}})
	r := Classify(m, markers, Options{IgnoreInComments: true})
	want := []model.DeprecatedItem{
		{Name: "m", FileName: "a.ts", FilePath: "/proj/a.ts", Line: 3, Character: 2, Kind: model.Method, DeprecationReason: "use d"},
		{Name: "old", FileName: "a.ts", FilePath: "/proj/a.ts", Line: 6, Character: 2, Kind: model.Property, Severity: model.SeverityError},
		{Name: "Shape", FileName: "a.ts", FilePath: "/proj/a.ts", Line: 11, Character: 17, Kind: model.Interface},
		{Name: "helper", FileName: "a.ts", FilePath: "/proj/a.ts", Line: 13, Character: 13, Kind: model.Function},
	}
	if diff := cmp.Diff(want, r.Items()); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	r = Classify(m, markers, Options{IgnoreInComments: false})
	var names []string
	for _, d := range r.Declarations {
		names = append(names, d.Symbol.Name)
	}
	if diff := cmp.Diff([]string{"m", "old", "loose", "Shape", "helper"}, names); diff != "" {
		t.Errorf("with loose markers (-want +got):\n%s", diff)
	}
	if r.Lookup(r.Declarations[0].Symbol) != r.Declarations[0] {
		t.Error("Lookup did not return the declaration record")
	}
}

func TestClassifySkipsTrustedPackages(t *testing.T) {
	t.Parallel()

	m := link(t, map[string]string{
		"vendor/lib/index.ts": "/** @deprecated */\nexport function old() {}\n",
		"src/a.ts":            "/** @deprecated */\nexport function mine() {}\n",
	}, []discover.Package{{Name: "lib", Dir: "/proj/vendor/lib"}}, trustAll{})

	r := Classify(m, Markers(nil), Options{IgnoreInComments: true})
	if len(r.Declarations) != 1 || r.Declarations[0].Symbol.Name != "mine" {
		t.Errorf("declarations = %v, want only mine", r.Declarations)
	}
}
