// Package scan runs the full deprecation scan of a project: discovery,
// parallel parsing, linking, classification, usage resolution and assembly.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/deptrack/internal/assemble"
	"github.com/phobologic/deptrack/internal/classify"
	"github.com/phobologic/deptrack/internal/config"
	"github.com/phobologic/deptrack/internal/discover"
	"github.com/phobologic/deptrack/internal/ignore"
	"github.com/phobologic/deptrack/internal/lang"
	"github.com/phobologic/deptrack/internal/logging"
	"github.com/phobologic/deptrack/internal/model"
	"github.com/phobologic/deptrack/internal/parse"
	"github.com/phobologic/deptrack/internal/policy"
	"github.com/phobologic/deptrack/internal/symbols"
	"github.com/phobologic/deptrack/internal/tags"
	"github.com/phobologic/deptrack/internal/usage"
)

// ErrRootUnreadable is wrapped by scan errors caused by a missing or
// inaccessible project root.
var ErrRootUnreadable = errors.New("project root unreadable")

// Error is a scan-level failure.
type Error struct {
	Op   string
	Root string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Root, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options are the frozen inputs of one scan.
type Options struct {
	Root   string
	Config config.Config
	Rules  ignore.Rules
	// Tags are the custom tags; only enabled ones mark declarations.
	Tags   []tags.CustomTag
	Logger *slog.Logger
}

// Stats summarizes a scan.
type Stats struct {
	Files        int // discovered source files
	Parsed       int
	Skipped      int // ignored or unparsable
	Declarations int
	Usages       int
	Duration     time.Duration
}

// Result is a complete scan result.
type Result struct {
	Root     string
	Items    []model.DeprecatedItem
	Warnings []model.Warning
	Stats    Stats
}

// Run scans the project at opts.Root. It fails only when the root cannot be
// read or ctx is cancelled; per-file problems become warnings.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	cfg := opts.Config

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, &Error{Op: "scan", Root: opts.Root, Err: fmt.Errorf("%w: %w", ErrRootUnreadable, err)}
	}

	tree, err := discover.Walk(root, discover.Options{
		Include:     cfg.IncludePatterns,
		Exclude:     cfg.ExcludePatterns,
		MaxFileSize: int64(cfg.MaxFileSize),
	})
	if err != nil {
		return nil, &Error{Op: "scan", Root: root, Err: fmt.Errorf("%w: %w", ErrRootUnreadable, err)}
	}

	res := &Result{Root: root}
	warn := func(ws []model.Warning) {
		for _, w := range ws {
			logger.Warn(w.Message, "path", w.Path)
		}
		res.Warnings = append(res.Warnings, ws...)
	}
	warn(tree.Warnings)

	pol, ws := policy.New(root, opts.Rules, cfg)
	warn(ws)

	res.Stats.Files = len(tree.Files)
	var entries []discover.FileEntry
	for _, f := range tree.Files {
		if pol.IsFileIgnored(f.Abs) {
			logger.Debug("file ignored", "path", f.Path)
			continue
		}
		entries = append(entries, f)
	}

	files, ws, err := parseFiles(ctx, entries, cfg.Workers)
	if err != nil {
		return nil, err
	}
	warn(ws)
	res.Stats.Parsed = len(files)
	res.Stats.Skipped = res.Stats.Files - len(files)
	logger.Debug("parsed files", "parsed", len(files), "skipped", res.Stats.Skipped)

	m := symbols.Link(files, tree.Packages, pol)
	decls := classify.Classify(m, classify.Markers(opts.Tags), classify.Options{
		IgnoreInComments: cfg.IgnoreDeprecatedInComments,
	})
	usages := usage.Resolve(m, decls, pol)

	def := cfg.DefaultSeverity
	if def == "" {
		def = model.SeverityWarning
	}
	items, ws := assemble.Assemble(decls.Items(), usages, pol, m, def)
	warn(ws)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Items = items
	for _, it := range items {
		if it.Kind == model.Usage {
			res.Stats.Usages++
		} else {
			res.Stats.Declarations++
		}
	}
	res.Stats.Duration = time.Since(start)
	logger.Info("scan complete",
		"root", root,
		"files", res.Stats.Parsed,
		"declarations", res.Stats.Declarations,
		"usages", res.Stats.Usages,
		"duration", res.Stats.Duration.Round(time.Millisecond))
	return res, nil
}

// parseFiles extracts every entry in parallel, one parser per worker per
// language. The result keeps entry order and omits files that failed.
func parseFiles(ctx context.Context, entries []discover.FileEntry, workers int) ([]*symbols.File, []model.Warning, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(entries) {
		workers = len(entries)
	}

	files := make([]*symbols.File, len(entries))
	failures := make([]*model.Warning, len(entries))
	work := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for i := range entries {
			select {
			case work <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			parsers := make(map[string]*sitter.Parser)
			for idx := range work {
				if err := gctx.Err(); err != nil {
					return err
				}
				e := entries[idx]
				l := lang.Languages[e.Language]
				if l == nil {
					continue
				}
				p, ok := parsers[e.Language]
				if !ok {
					p = l.NewParser()
					parsers[e.Language] = p
				}

				source, err := os.ReadFile(e.Abs)
				if err != nil {
					failures[idx] = &model.Warning{Path: e.Abs, Message: err.Error()}
					continue
				}
				f, err := parse.Extract(gctx, l, p, source, e.Abs, e.Path)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					failures[idx] = &model.Warning{Path: e.Abs, Message: "skipped: " + err.Error()}
					continue
				}
				files[idx] = f
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var out []*symbols.File
	var warnings []model.Warning
	for i := range entries {
		if failures[i] != nil {
			warnings = append(warnings, *failures[i])
		}
		if files[i] != nil {
			out = append(out, files[i])
		}
	}
	return out, warnings, nil
}
