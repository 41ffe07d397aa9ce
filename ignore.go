package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/phobologic/deptrack/internal/ignore"
	"github.com/phobologic/deptrack/internal/toon"
)

// stateFlags locate the project whose persisted state a command edits.
type stateFlags struct {
	root string
}

func (s *stateFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&s.root, "root", "C", ".", "project root")
}

func (s *stateFlags) open() (*ignore.Store, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	return ignore.Open(root)
}

// edit opens the ignore store, applies fn and saves when fn changed it.
func (s *stateFlags) edit(fn func(*ignore.Store) (bool, error)) error {
	store, err := s.open()
	if err != nil {
		return err
	}
	changed, err := fn(store)
	if err != nil || !changed {
		return err
	}
	return store.Save()
}

func absPaths(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", a, err)
		}
		out = append(out, abs)
	}
	return out, nil
}

func newIgnoreCmd(g *globals) *cobra.Command {
	var state stateFlags
	cmd := &cobra.Command{
		Use:   "ignore",
		Short: "Suppress files, members or patterns from results",
	}
	state.register(cmd)

	fileCmd := &cobra.Command{
		Use:   "file <path>...",
		Short: "Ignore every item in the given files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := absPaths(args)
			if err != nil {
				return err
			}
			return state.edit(func(s *ignore.Store) (bool, error) {
				changed := false
				for _, p := range paths {
					if s.IgnoreFile(p) {
						changed = true
						_, _ = fmt.Fprintf(g.stderr, "ignoring %s\n", p)
					}
				}
				return changed, nil
			})
		},
	}

	var methodFile string
	methodCmd := &cobra.Command{
		Use:   "method <name>",
		Short: "Ignore a member name, in one file with --in or everywhere",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := optionalAbs(methodFile)
			if err != nil {
				return err
			}
			return state.edit(func(s *ignore.Store) (bool, error) {
				return s.IgnoreMethod(path, args[0]), nil
			})
		},
	}
	methodCmd.Flags().StringVar(&methodFile, "in", "", "restrict the rule to this file")

	var members bool
	patternCmd := &cobra.Command{
		Use:   "pattern <glob>",
		Short: "Ignore files (or member names with --members) matching a glob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.edit(func(s *ignore.Store) (bool, error) {
				if members {
					return s.IgnoreMemberPattern(args[0]), nil
				}
				return s.IgnoreFilePattern(args[0]), nil
			})
		},
	}
	patternCmd.Flags().BoolVar(&members, "members", false, "match member names instead of file paths")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the ignore rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := state.open()
			if err != nil {
				return err
			}
			rules := store.Snapshot()
			if rules.Empty() {
				_, _ = fmt.Fprintln(g.stderr, "no ignore rules")
			}
			_, err = fmt.Fprintln(g.stdout, rulesTable(rules))
			return err
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every ignore rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.edit(func(s *ignore.Store) (bool, error) {
				s.ClearAll()
				return true, nil
			})
		},
	}

	cmd.AddCommand(fileCmd, methodCmd, patternCmd, listCmd, clearCmd)
	return cmd
}

func newUnignoreCmd(g *globals) *cobra.Command {
	var state stateFlags
	cmd := &cobra.Command{
		Use:   "unignore",
		Short: "Remove file or member ignore rules",
	}
	state.register(cmd)

	fileCmd := &cobra.Command{
		Use:   "file <path>...",
		Short: "Stop ignoring the given files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := absPaths(args)
			if err != nil {
				return err
			}
			return state.edit(func(s *ignore.Store) (bool, error) {
				changed := false
				for _, p := range paths {
					if s.RemoveFileIgnore(p) {
						changed = true
					} else {
						_, _ = fmt.Fprintf(g.stderr, "%s was not ignored\n", p)
					}
				}
				return changed, nil
			})
		},
	}

	var methodFile string
	methodCmd := &cobra.Command{
		Use:   "method <name>",
		Short: "Stop ignoring a member name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := optionalAbs(methodFile)
			if err != nil {
				return err
			}
			return state.edit(func(s *ignore.Store) (bool, error) {
				if !s.RemoveMethodIgnore(path, args[0]) {
					return false, fmt.Errorf("member %q is not ignored", args[0])
				}
				return true, nil
			})
		},
	}
	methodCmd.Flags().StringVar(&methodFile, "in", "", "the file the rule is restricted to")

	cmd.AddCommand(fileCmd, methodCmd)
	return cmd
}

func optionalAbs(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return abs, nil
}

// rulesTable renders rules as one TOON table of kind, target rows.
func rulesTable(r ignore.Rules) string {
	var rows [][]string
	for _, f := range r.Files {
		rows = append(rows, []string{"file", f, ""})
	}
	files := make([]string, 0, len(r.Members))
	for f := range r.Members {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		for _, m := range r.Members[f] {
			rows = append(rows, []string{"method", f, m})
		}
	}
	for _, m := range r.GlobalMembers {
		rows = append(rows, []string{"method", "", m})
	}
	for _, p := range r.FilePatterns {
		rows = append(rows, []string{"file-pattern", p, ""})
	}
	for _, p := range r.MemberPatterns {
		rows = append(rows, []string{"member-pattern", "", p})
	}
	return toon.Table("rules", []string{"kind", "file", "name"}, rows)
}
