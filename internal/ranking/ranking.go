// Package ranking narrows a report to the files and symbols a reader asked for.
package ranking

import (
	"strings"

	"github.com/phobologic/deptrack/internal/model"
)

// SelectFiles returns a new Report with only the top-ranked files, their
// items, and the dependencies between them. If maxFiles is <= 0 or >=
// len(files), r is returned unchanged.
func SelectFiles(r *model.Report, maxFiles int) *model.Report {
	if maxFiles <= 0 || maxFiles >= len(r.Files) {
		return r
	}

	selected := r.Files[:maxFiles]
	selectedPaths := make(map[string]struct{}, maxFiles)
	for i := range selected {
		selectedPaths[selected[i].Path] = struct{}{}
	}

	var deps []model.Dependency
	for i := range r.Dependencies {
		d := &r.Dependencies[i]
		_, srcOK := selectedPaths[d.Source]
		_, tgtOK := selectedPaths[d.Target]
		if srcOK && tgtOK {
			deps = append(deps, *d)
		}
	}

	return &model.Report{
		Root:         r.Root,
		Items:        itemsIn(r.Items, selectedPaths),
		Files:        selected,
		Dependencies: deps,
		Warnings:     r.Warnings,
	}
}

// FilterBySymbol returns a new Report containing only items whose name, or
// whose deprecated declaration's name, contains substr (case-insensitive),
// together with the files they live in and the edges touching those files.
func FilterBySymbol(r *model.Report, substr string) *model.Report {
	lower := strings.ToLower(substr)
	match := func(name string) bool {
		return strings.Contains(strings.ToLower(name), lower)
	}

	var items []model.DeprecatedItem
	matchedFiles := make(map[string]struct{})
	for i := range r.Items {
		it := &r.Items[i]
		ok := match(it.Name)
		if !ok && it.DeprecatedDeclaration != nil {
			ok = match(it.DeprecatedDeclaration.Name)
		}
		if !ok {
			continue
		}
		items = append(items, *it)
		matchedFiles[it.FileName] = struct{}{}
		if it.DeprecatedDeclaration != nil {
			matchedFiles[it.DeprecatedDeclaration.FileName] = struct{}{}
		}
	}

	var deps []model.Dependency
	for i := range r.Dependencies {
		d := &r.Dependencies[i]
		var syms []string
		for _, s := range d.Symbols {
			if match(s) {
				syms = append(syms, s)
			}
		}
		if len(syms) > 0 {
			deps = append(deps, model.Dependency{Source: d.Source, Target: d.Target, Symbols: syms})
		}
	}

	return &model.Report{
		Root:         r.Root,
		Items:        items,
		Files:        filesIn(r.Files, matchedFiles),
		Dependencies: deps,
		Warnings:     r.Warnings,
	}
}

// FilterByFile returns a new Report containing only files whose path
// contains substr (case-insensitive), their items, and every dependency
// edge touching those files.
func FilterByFile(r *model.Report, substr string) *model.Report {
	lower := strings.ToLower(substr)

	matchedFiles := make(map[string]struct{})
	for i := range r.Files {
		if strings.Contains(strings.ToLower(r.Files[i].Path), lower) {
			matchedFiles[r.Files[i].Path] = struct{}{}
		}
	}

	var deps []model.Dependency
	for i := range r.Dependencies {
		d := &r.Dependencies[i]
		_, srcOK := matchedFiles[d.Source]
		_, tgtOK := matchedFiles[d.Target]
		if srcOK || tgtOK {
			deps = append(deps, *d)
		}
	}

	return &model.Report{
		Root:         r.Root,
		Items:        itemsIn(r.Items, matchedFiles),
		Files:        filesIn(r.Files, matchedFiles),
		Dependencies: deps,
		Warnings:     r.Warnings,
	}
}

func itemsIn(items []model.DeprecatedItem, paths map[string]struct{}) []model.DeprecatedItem {
	var out []model.DeprecatedItem
	for i := range items {
		if _, ok := paths[items[i].FileName]; ok {
			out = append(out, items[i])
		}
	}
	return out
}

func filesIn(files []model.FileStat, paths map[string]struct{}) []model.FileStat {
	var out []model.FileStat
	for i := range files {
		if _, ok := paths[files[i].Path]; ok {
			out = append(out, files[i])
		}
	}
	return out
}
