// Package discover finds parseable source files and workspace packages in a
// project tree.
package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/deptrack/internal/lang"
	"github.com/phobologic/deptrack/internal/model"
	"github.com/phobologic/deptrack/internal/pattern"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // slash-separated, relative to the root
	Abs      string
	Language string
	Size     int64
}

// Package is a workspace package declared by a package.json.
type Package struct {
	Name string
	Dir  string // absolute
	// Entries are candidate entry files, most specific first, absolute and
	// without guaranteed existence.
	Entries []string
}

// Tree is the result of walking a project.
type Tree struct {
	Root     string
	Files    []FileEntry
	Packages []Package
	Warnings []model.Warning
}

// Options control which files are returned.
type Options struct {
	Include []string // empty means every supported file
	Exclude []string
	// MaxFileSize skips larger files when positive.
	MaxFileSize int64
}

var skipDirs = map[string]struct{}{
	"node_modules":     {},
	".git":             {},
	".hg":              {},
	".svn":             {},
	".deptrack":        {},
	"bower_components": {},
}

// SkipDir reports whether a directory named name is never scanned.
func SkipDir(name string) bool {
	_, skip := skipDirs[name]
	return skip || strings.HasPrefix(name, ".")
}

// Walk discovers source files and package.json manifests under root. It
// fails only when root itself cannot be read.
func Walk(root string, opts Options) (*Tree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, err
	}

	t := &Tree{Root: root}
	include, w := pattern.Compile(opts.Include)
	t.Warnings = append(t.Warnings, w...)
	exclude, w := pattern.Compile(opts.Exclude)
	t.Warnings = append(t.Warnings, w...)

	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var manifests []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path != root {
				t.Warnings = append(t.Warnings, model.Warning{Path: path, Message: err.Error()})
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if SkipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		if name == "package.json" {
			manifests = append(manifests, path)
			return nil
		}

		l := lang.ForPath(name)
		if l == nil {
			return nil
		}
		if include.Len() > 0 && !include.Match(rel) {
			return nil
		}
		if exclude.Match(rel, path) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			t.Warnings = append(t.Warnings, model.Warning{Path: path, Message: err.Error()})
			return nil
		}
		if opts.MaxFileSize > 0 && fi.Size() > opts.MaxFileSize {
			t.Warnings = append(t.Warnings, model.Warning{
				Path:    path,
				Message: fmt.Sprintf("skipped: %d bytes exceeds limit of %d", fi.Size(), opts.MaxFileSize),
			})
			return nil
		}

		t.Files = append(t.Files, FileEntry{Path: rel, Abs: path, Language: l.Name, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(t.Files, func(i, j int) bool {
		return t.Files[i].Path < t.Files[j].Path
	})

	for _, m := range manifests {
		pkg, err := readPackage(m)
		if err != nil {
			t.Warnings = append(t.Warnings, model.Warning{Path: m, Message: err.Error()})
			continue
		}
		if pkg.Name != "" {
			t.Packages = append(t.Packages, pkg)
		}
	}
	sort.Slice(t.Packages, func(i, j int) bool {
		return t.Packages[i].Dir < t.Packages[j].Dir
	})
	return t, nil
}

type manifest struct {
	Name    string          `json:"name"`
	Types   string          `json:"types"`
	Typings string          `json:"typings"`
	Module  string          `json:"module"`
	Main    string          `json:"main"`
	Exports json.RawMessage `json:"exports"`
}

func readPackage(path string) (Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Package{}, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Package{}, fmt.Errorf("parsing package.json: %w", err)
	}

	dir := filepath.Dir(path)
	pkg := Package{Name: m.Name, Dir: dir}
	seen := map[string]bool{}
	add := func(rel string) {
		if rel == "" {
			return
		}
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if !seen[abs] {
			seen[abs] = true
			pkg.Entries = append(pkg.Entries, abs)
		}
	}
	add(m.Types)
	add(m.Typings)
	for _, e := range exportEntries(m.Exports) {
		add(e)
	}
	add(m.Module)
	add(m.Main)
	add("src/index")
	add("index")
	return pkg, nil
}

// exportEntries extracts the root export target from an "exports" field,
// preferring the types condition.
func exportEntries(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return []string{s}
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return nil
	}
	if root, ok := obj["."]; ok {
		return exportEntries(root)
	}
	var out []string
	for _, cond := range []string{"types", "import", "require", "default"} {
		if v, ok := obj[cond]; ok {
			out = append(out, exportEntries(v)...)
		}
	}
	return out
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
