// Package graph builds the file dependency graph of a deprecation report and
// ranks files by how much deprecated API flows into them.
package graph

import (
	"math"
	"sort"

	"github.com/phobologic/deptrack/internal/model"
)

// Dependencies creates edges from each file that uses deprecated symbols to
// the files declaring them. Edges are sorted by source then target.
func Dependencies(items []model.DeprecatedItem) []model.Dependency {
	type edgeKey struct{ src, tgt string }
	edgeSymbols := make(map[edgeKey][]string)

	for i := range items {
		it := &items[i]
		if it.Kind != model.Usage || it.DeprecatedDeclaration == nil {
			continue
		}
		tgt := it.DeprecatedDeclaration.FileName
		if tgt == it.FileName {
			continue // no self-edges
		}
		key := edgeKey{it.FileName, tgt}
		if !contains(edgeSymbols[key], it.DeprecatedDeclaration.Name) {
			edgeSymbols[key] = append(edgeSymbols[key], it.DeprecatedDeclaration.Name)
		}
	}

	var deps []model.Dependency
	for key, syms := range edgeSymbols {
		sort.Strings(syms)
		deps = append(deps, model.Dependency{
			Source:  key.src,
			Target:  key.tgt,
			Symbols: syms,
		})
	}

	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})
	return deps
}

// Summary aggregates a result set.
type Summary struct {
	Declarations int
	Usages       int
	BySeverity   map[model.Severity]int
	// Files holds one entry per file that appears in the items, ranked.
	Files []model.FileStat
}

// Summarize counts items per kind, severity and file, then ranks the files
// over the dependency graph of items.
func Summarize(items []model.DeprecatedItem) Summary {
	s := Summary{BySeverity: make(map[model.Severity]int)}
	index := make(map[string]int)
	stat := func(path string) *model.FileStat {
		i, ok := index[path]
		if !ok {
			i = len(s.Files)
			index[path] = i
			s.Files = append(s.Files, model.FileStat{Path: path})
		}
		return &s.Files[i]
	}

	for i := range items {
		it := &items[i]
		s.BySeverity[it.Severity]++
		if it.Kind == model.Usage {
			s.Usages++
			stat(it.FileName).Usages++
			// Declaring files outside the item set still take part in ranking.
			if it.DeprecatedDeclaration != nil {
				stat(it.DeprecatedDeclaration.FileName)
			}
			continue
		}
		s.Declarations++
		stat(it.FileName).Declarations++
	}

	Rank(s.Files, Dependencies(items))
	return s
}

// Rank applies PageRank to files and sorts them by rank descending. An edge
// from a user to a declaring file carries one unit per symbol, so files
// whose deprecated API is widely used rank highest.
func Rank(files []model.FileStat, deps []model.Dependency) {
	if len(files) == 0 {
		return
	}

	if len(deps) == 0 {
		uniform := 1.0 / float64(len(files))
		for i := range files {
			files[i].Rank = uniform
		}
		sortFiles(files)
		return
	}

	outEdges := make(map[string][]string) // node → targets, repeated per symbol
	outDegree := make(map[string]int)
	nodes := make(map[string]struct{})

	for i := range files {
		nodes[files[i].Path] = struct{}{}
	}

	for _, d := range deps {
		if _, ok := nodes[d.Source]; !ok {
			continue
		}
		if _, ok := nodes[d.Target]; !ok {
			continue
		}
		for range d.Symbols {
			outEdges[d.Source] = append(outEdges[d.Source], d.Target)
			outDegree[d.Source]++
		}
	}

	ranks := pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
	for i := range files {
		files[i].Rank = ranks[files[i].Path]
	}
	sortFiles(files)
}

func sortFiles(files []model.FileStat) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Rank != files[j].Rank {
			return files[i].Rank > files[j].Rank
		}
		return files[i].Path < files[j].Path
	})
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Nodes without outgoing edges spread their rank evenly.
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for src, targets := range outEdges {
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}
		rank = newRank
		if diff < tol {
			break
		}
	}

	return rank
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
