package graph

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/deptrack/internal/model"
)

func decl(file, name string) model.DeprecatedItem {
	return model.DeprecatedItem{
		Name:     name,
		FileName: file,
		FilePath: "/proj/" + file,
		Line:     1,
		Kind:     model.Function,
		Severity: model.SeverityWarning,
	}
}

func use(file, name, declFile string, sev model.Severity) model.DeprecatedItem {
	return model.DeprecatedItem{
		Name:     name,
		FileName: file,
		FilePath: "/proj/" + file,
		Line:     3,
		Kind:     model.Usage,
		Severity: sev,
		DeprecatedDeclaration: &model.DeclarationRef{
			Name:     name,
			FileName: declFile,
			FilePath: "/proj/" + declFile,
			Line:     1,
		},
	}
}

func TestDependenciesCrossFile(t *testing.T) {
	t.Parallel()

	items := []model.DeprecatedItem{
		decl("lib.ts", "old"),
		decl("lib.ts", "older"),
		use("a.ts", "older", "lib.ts", model.SeverityWarning),
		use("a.ts", "old", "lib.ts", model.SeverityWarning),
		use("a.ts", "old", "lib.ts", model.SeverityWarning),
		use("b.ts", "old", "lib.ts", model.SeverityWarning),
	}

	got := Dependencies(items)
	want := []model.Dependency{
		{Source: "a.ts", Target: "lib.ts", Symbols: []string{"old", "older"}},
		{Source: "b.ts", Target: "lib.ts", Symbols: []string{"old"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestDependenciesNoSelfEdge(t *testing.T) {
	t.Parallel()

	items := []model.DeprecatedItem{
		decl("a.ts", "old"),
		use("a.ts", "old", "a.ts", model.SeverityWarning),
	}
	if deps := Dependencies(items); len(deps) != 0 {
		t.Errorf("expected 0 deps (no self-edges), got %v", deps)
	}
}

func TestDependenciesEmpty(t *testing.T) {
	t.Parallel()
	if deps := Dependencies(nil); deps != nil {
		t.Errorf("expected nil, got %v", deps)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	items := []model.DeprecatedItem{
		decl("lib.ts", "old"),
		use("a.ts", "old", "lib.ts", model.SeverityWarning),
		use("b.ts", "old", "lib.ts", model.SeverityError),
		use("b.ts", "old", "lib.ts", model.SeverityError),
	}

	s := Summarize(items)
	if s.Declarations != 1 || s.Usages != 3 {
		t.Errorf("counts = %d decls, %d usages; want 1, 3", s.Declarations, s.Usages)
	}
	wantSev := map[model.Severity]int{model.SeverityWarning: 2, model.SeverityError: 2}
	if diff := cmp.Diff(wantSev, s.BySeverity); diff != "" {
		t.Errorf("BySeverity mismatch (-want +got):\n%s", diff)
	}
	if len(s.Files) != 3 {
		t.Fatalf("expected 3 files, got %+v", s.Files)
	}
	if s.Files[0].Path != "lib.ts" {
		t.Errorf("declaring file should rank first, got %+v", s.Files)
	}
	if s.Files[0].Declarations != 1 {
		t.Errorf("lib.ts declarations = %d, want 1", s.Files[0].Declarations)
	}
	for _, f := range s.Files[1:] {
		switch f.Path {
		case "a.ts":
			if f.Usages != 1 {
				t.Errorf("a.ts usages = %d, want 1", f.Usages)
			}
		case "b.ts":
			if f.Usages != 2 {
				t.Errorf("b.ts usages = %d, want 2", f.Usages)
			}
		default:
			t.Errorf("unexpected file %q", f.Path)
		}
	}
}

func TestSummarizeDeclaringFileOutsideItems(t *testing.T) {
	t.Parallel()

	// The declaration itself was suppressed; its file still ranks.
	items := []model.DeprecatedItem{use("a.ts", "old", "lib.ts", model.SeverityWarning)}
	s := Summarize(items)
	if len(s.Files) != 2 || s.Files[0].Path != "lib.ts" {
		t.Errorf("files = %+v", s.Files)
	}
}

func TestRankUniform(t *testing.T) {
	t.Parallel()

	files := []model.FileStat{{Path: "b.ts"}, {Path: "a.ts"}}
	Rank(files, nil)
	for _, f := range files {
		if math.Abs(f.Rank-0.5) > 1e-9 {
			t.Errorf("%s rank = %f, want 0.5", f.Path, f.Rank)
		}
	}
	if files[0].Path != "a.ts" {
		t.Errorf("equal ranks should sort by path, got %+v", files)
	}
}

func TestRankSumsToOne(t *testing.T) {
	t.Parallel()

	files := []model.FileStat{{Path: "a.ts"}, {Path: "b.ts"}, {Path: "c.ts"}}
	deps := []model.Dependency{
		{Source: "a.ts", Target: "c.ts", Symbols: []string{"x", "y"}},
		{Source: "b.ts", Target: "c.ts", Symbols: []string{"x"}},
		{Source: "a.ts", Target: "gone.ts", Symbols: []string{"z"}},
	}
	Rank(files, deps)

	var total float64
	for _, f := range files {
		total += f.Rank
	}
	if math.Abs(total-1.0) > 1e-4 {
		t.Errorf("ranks sum to %f, want 1.0", total)
	}
	if files[0].Path != "c.ts" {
		t.Errorf("most used file should rank first, got %+v", files)
	}
}

func TestRankEmpty(t *testing.T) {
	t.Parallel()
	Rank(nil, nil)
}
