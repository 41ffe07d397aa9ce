package discover

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWalkSourceFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "src/a.ts", "export class A {}")
	writeFile(t, dir, "src/view.tsx", "export const V = () => <div />;")
	writeFile(t, dir, "lib/util.js", "module.exports = {}")
	writeFile(t, dir, "types/index.d.ts", "export declare function f(): void;")
	writeFile(t, dir, "readme.md", "hello")
	writeFile(t, dir, ".hidden.ts", "secret")

	tree, err := Walk(dir, Options{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	var got []string
	for _, f := range tree.Files {
		got = append(got, f.Path+":"+f.Language)
	}
	want := []string{
		"lib/util.js:javascript",
		"src/a.ts:typescript",
		"src/view.tsx:tsx",
		"types/index.d.ts:typescript",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("files (-want +got):\n%s", diff)
	}
	if tree.Files[0].Abs != filepath.Join(dir, "lib", "util.js") {
		t.Errorf("Abs = %q", tree.Files[0].Abs)
	}
}

func TestWalkSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "main.ts", "")
	writeFile(t, dir, "node_modules/pkg/index.ts", "")
	writeFile(t, dir, ".cache/x.ts", "")
	writeFile(t, dir, ".deptrack/state.ts", "")

	tree, err := Walk(dir, Options{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(tree.Files) != 1 || tree.Files[0].Path != "main.ts" {
		t.Fatalf("expected only main.ts, got %+v", tree.Files)
	}
}

func TestWalkIncludeExclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "src/a.ts", "")
	writeFile(t, dir, "src/a.gen.ts", "")
	writeFile(t, dir, "dist/a.js", "")
	writeFile(t, dir, "scripts/build.js", "")

	tree, err := Walk(dir, Options{
		Include: []string{"src/**", "dist/**"},
		Exclude: []string{"**/dist/**", "**/*.gen.ts", "[invalid"},
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(tree.Files) != 1 || tree.Files[0].Path != "src/a.ts" {
		t.Errorf("files = %+v", tree.Files)
	}
	if len(tree.Warnings) != 1 {
		t.Errorf("expected one pattern warning, got %v", tree.Warnings)
	}
}

func TestWalkMaxFileSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "small.ts", "let a = 1;")
	writeFile(t, dir, "big.ts", "let aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa = 1;")

	tree, err := Walk(dir, Options{MaxFileSize: 20})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(tree.Files) != 1 || tree.Files[0].Path != "small.ts" {
		t.Errorf("files = %+v", tree.Files)
	}
	if len(tree.Warnings) != 1 || tree.Warnings[0].Path != filepath.Join(dir, "big.ts") {
		t.Errorf("warnings = %+v", tree.Warnings)
	}
}

func TestWalkGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "generated/\n")
	writeFile(t, dir, "a.ts", "")
	writeFile(t, dir, "generated/b.ts", "")

	tree, err := Walk(dir, Options{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(tree.Files) != 1 || tree.Files[0].Path != "a.ts" {
		t.Errorf("files = %+v", tree.Files)
	}
}

func TestWalkSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.ts", "")
	if err := os.Symlink(filepath.Join(dir, "real.ts"), filepath.Join(dir, "link.ts")); err != nil {
		t.Skip("symlinks not supported")
	}

	tree, err := Walk(dir, Options{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(tree.Files) != 1 || tree.Files[0].Path != "real.ts" {
		t.Errorf("files = %+v", tree.Files)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Walk(filepath.Join(t.TempDir(), "nope"), Options{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestWalkPackages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": "root-app"}`)
	writeFile(t, dir, "packages/core/package.json", `{
  "name": "@acme/core",
  "main": "dist/index.js",
  "exports": {".": {"types": "./src/index.ts", "default": "./dist/index.js"}}
}`)
	writeFile(t, dir, "packages/broken/package.json", `{"name": `)
	writeFile(t, dir, "packages/anon/package.json", `{"private": true}`)

	tree, err := Walk(dir, Options{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(tree.Packages) != 2 {
		t.Fatalf("packages = %+v", tree.Packages)
	}
	core := tree.Packages[1]
	if core.Name != "@acme/core" {
		t.Fatalf("expected @acme/core second, got %+v", tree.Packages)
	}
	coreDir := filepath.Join(dir, "packages", "core")
	want := []string{
		filepath.Join(coreDir, "src", "index.ts"),
		filepath.Join(coreDir, "dist", "index.js"),
		filepath.Join(coreDir, "src", "index"),
		filepath.Join(coreDir, "index"),
	}
	if diff := cmp.Diff(want, core.Entries); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
	if len(tree.Warnings) != 1 {
		t.Errorf("expected a warning for the broken manifest, got %v", tree.Warnings)
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
