// deptrack reports deprecated TypeScript and JavaScript declarations and
// every place a project still uses them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/deptrack/internal/config"
	"github.com/phobologic/deptrack/internal/graph"
	"github.com/phobologic/deptrack/internal/ignore"
	"github.com/phobologic/deptrack/internal/logging"
	"github.com/phobologic/deptrack/internal/model"
	"github.com/phobologic/deptrack/internal/ranking"
	"github.com/phobologic/deptrack/internal/scan"
	"github.com/phobologic/deptrack/internal/tags"
	"github.com/phobologic/deptrack/internal/toon"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var fe *failError
		if errors.As(err, &fe) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	return execute(context.Background(), args, stdout, stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// globals are the flags shared by every subcommand.
type globals struct {
	verbose int
	quiet   bool
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{stdout: stdout, stderr: stderr}
	cmd := &cobra.Command{
		Use:   "deptrack",
		Short: "Find deprecated declarations and their usages",
		Long: `deptrack scans a TypeScript or JavaScript project, finds declarations
marked @deprecated (or a custom tag), and reports every place the project
still uses them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("deptrack {{.Version}}\n")
	cmd.PersistentFlags().CountVarP(&g.verbose, "verbose", "v", "log more (-v info, -vv debug)")
	cmd.PersistentFlags().BoolVarP(&g.quiet, "quiet", "q", false, "disable logging")

	cmd.AddCommand(
		newScanCmd(g),
		newWatchCmd(g),
		newInitCmd(g),
		newIgnoreCmd(g),
		newUnignoreCmd(g),
		newTagsCmd(g),
	)
	return cmd
}

// rootArg returns the absolute project root named by args, or the working
// directory.
func rootArg(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	return abs, nil
}

// loadProject reads the configuration, ignore rules and custom tags of root
// and returns the frozen inputs of one scan.
func (g *globals) loadProject(root string) (scan.Options, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return scan.Options{}, err
	}
	store, err := ignore.Open(root)
	if err != nil {
		return scan.Options{}, err
	}
	tagStore, err := tags.Open(root, ignore.StateDir)
	if err != nil {
		return scan.Options{}, err
	}
	return scan.Options{
		Root:   root,
		Config: cfg,
		Rules:  store.Snapshot(),
		Tags:   tagStore.Enabled(),
		Logger: g.logger(cfg),
	}, nil
}

func (g *globals) logger(cfg config.Config) *slog.Logger {
	level := logging.LevelFromVerbosity(g.verbose, g.quiet, logging.ParseLevel(cfg.Logging.Level))
	return logging.New(g.stderr, level)
}

// outputOptions shape how a result is printed.
type outputOptions struct {
	format   string
	maxFiles int
	symbol   string
	file     string
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "toon", "output format: toon or json")
	cmd.Flags().IntVarP(&o.maxFiles, "max-files", "n", 0, "limit output to the top N ranked files")
	cmd.Flags().StringVar(&o.symbol, "symbol", "", "only items whose name contains this text")
	cmd.Flags().StringVar(&o.file, "file", "", "only files whose path contains this text")
}

func (o *outputOptions) validate() error {
	switch o.format {
	case "toon", "json":
		return nil
	}
	return fmt.Errorf("unknown format %q (want toon or json)", o.format)
}

// buildReport arranges a scan result for output.
func buildReport(res *scan.Result) *model.Report {
	summary := graph.Summarize(res.Items)
	return &model.Report{
		Root:         filepath.Base(res.Root),
		Items:        res.Items,
		Files:        summary.Files,
		Dependencies: graph.Dependencies(res.Items),
		Warnings:     res.Warnings,
	}
}

func (o *outputOptions) apply(r *model.Report) *model.Report {
	if o.symbol != "" {
		r = ranking.FilterBySymbol(r, o.symbol)
	}
	if o.file != "" {
		r = ranking.FilterByFile(r, o.file)
	}
	if o.maxFiles > 0 {
		r = ranking.SelectFiles(r, o.maxFiles)
	}
	return r
}

func (o *outputOptions) write(w io.Writer, r *model.Report) error {
	if o.format == "json" {
		if r.Items == nil {
			r.Items = []model.DeprecatedItem{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, err := fmt.Fprintln(w, toon.Encode(r))
	return err
}

// failError reports that items reached the --fail-on severity.
type failError struct {
	count int
	min   model.Severity
}

func (e *failError) Error() string {
	return fmt.Sprintf("%d item(s) at or above severity %s", e.count, e.min)
}

func newScanCmd(g *globals) *cobra.Command {
	var (
		out    outputOptions
		failOn string
	)
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a project and print deprecated declarations and usages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.validate(); err != nil {
				return err
			}
			var min model.Severity
			if failOn != "" {
				sev, err := model.ParseSeverity(failOn)
				if err != nil {
					return fmt.Errorf("--fail-on: %w", err)
				}
				min = sev
			}

			root, err := rootArg(args)
			if err != nil {
				return err
			}
			opts, err := g.loadProject(root)
			if err != nil {
				return err
			}
			res, err := scan.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			opts.Logger.Info("scan complete",
				"files", res.Stats.Files,
				"parsed", res.Stats.Parsed,
				"skipped", res.Stats.Skipped,
				"declarations", res.Stats.Declarations,
				"usages", res.Stats.Usages,
				"duration", res.Stats.Duration)

			report := out.apply(buildReport(res))
			if err := out.write(g.stdout, report); err != nil {
				return err
			}

			if min != "" {
				n := 0
				for _, it := range report.Items {
					if it.Severity.AtLeast(min) {
						n++
					}
				}
				if n > 0 {
					return &failError{count: n, min: min}
				}
			}
			return nil
		},
	}
	out.register(cmd)
	cmd.Flags().StringVar(&failOn, "fail-on", "", "exit with status 2 when an item reaches this severity (info, warning, error)")
	return cmd
}
