package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phobologic/deptrack/internal/scan"
	"github.com/phobologic/deptrack/internal/watch"
)

func newWatchCmd(g *globals) *cobra.Command {
	var (
		out   outputOptions
		delay time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Rescan a project whenever its sources or settings change",
		Long: `watch prints a full report, then prints a new one after every batch of
changes to source files, package.json manifests, the config file or the
ignore and tag state. A scan still running when new changes arrive is
abandoned.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.validate(); err != nil {
				return err
			}
			root, err := rootArg(args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return g.watch(ctx, root, delay, &out)
		},
	}
	out.register(cmd)
	cmd.Flags().DurationVar(&delay, "delay", 300*time.Millisecond, "quiet period before a rescan")
	return cmd
}

func (g *globals) watch(ctx context.Context, root string, delay time.Duration, out *outputOptions) error {
	var tracker scan.Tracker

	// Settings are reread on every pass so edits to them apply.
	rescan := func() error {
		opts, err := g.loadProject(root)
		if err != nil {
			return err
		}
		res, err := tracker.Rescan(ctx, opts)
		if errors.Is(err, scan.ErrSuperseded) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		return out.write(g.stdout, out.apply(buildReport(res)))
	}

	if err := rescan(); err != nil {
		return err
	}

	opts, err := g.loadProject(root)
	if err != nil {
		return err
	}
	logger := opts.Logger
	w, err := watch.New(root, delay, logger)
	if err != nil {
		return err
	}
	defer w.Close()
	logger.Info("watching", "root", root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			logger.Info("change detected", "paths", len(batch))
			if err := rescan(); err != nil {
				// A broken config or ignore file is reported and retried on
				// the next change.
				logger.Error("rescan failed", "err", err)
				if prev := tracker.Current(); prev != nil {
					logger.Warn("keeping previous result", "items", len(prev.Items))
				}
			}
		}
	}
}
