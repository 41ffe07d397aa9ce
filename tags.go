package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/deptrack/internal/ignore"
	"github.com/phobologic/deptrack/internal/model"
	"github.com/phobologic/deptrack/internal/tags"
	"github.com/phobologic/deptrack/internal/toon"
)

func openTags(root string) (*tags.Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	return tags.Open(abs, ignore.StateDir)
}

func newTagsCmd(g *globals) *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage custom deprecation tags",
		Long: `Custom tags such as @legacy are treated like @deprecated while enabled.
A tag may carry its own severity for the items it marks.`,
	}
	cmd.PersistentFlags().StringVarP(&root, "root", "C", ".", "project root")

	// save opens the tag store, applies fn and persists the result.
	save := func(fn func(*tags.Store) error) error {
		s, err := openTags(root)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		return s.Save()
	}

	var label, description, color, severity string
	addCmd := &cobra.Command{
		Use:   "add <@tag>",
		Short: "Add an enabled custom tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return save(func(s *tags.Store) error {
				t, err := s.Add(args[0], label, description, color, model.Severity(severity))
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(g.stderr, "added %s (%s)\n", t.Tag, t.ID)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&label, "label", "", "display label (defaults to the tag without @)")
	addCmd.Flags().StringVar(&description, "description", "", "what the tag means")
	addCmd.Flags().StringVar(&color, "color", "", "display color as #rrggbb")
	addCmd.Flags().StringVar(&severity, "severity", "", "severity of items marked by the tag (info, warning, error)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the custom tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openTags(root)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(g.stdout, tagsTable(s.List()))
			return err
		},
	}

	toggle := func(use, short string, enabled bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <@tag|id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return save(func(s *tags.Store) error {
					return s.SetEnabled(args[0], enabled)
				})
			},
		}
	}

	var edit struct{ label, description, color, severity string }
	editCmd := &cobra.Command{
		Use:   "edit <@tag|id>",
		Short: "Change the label, description, color or severity of a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return save(func(s *tags.Store) error {
				t, ok := findTag(s.List(), args[0])
				if !ok {
					return fmt.Errorf("tag %q not found", args[0])
				}
				flags := cmd.Flags()
				if flags.Changed("label") {
					t.Label = edit.label
				}
				if flags.Changed("description") {
					t.Description = edit.description
				}
				if flags.Changed("color") {
					t.Color = edit.color
				}
				if flags.Changed("severity") {
					t.Severity = model.Severity(edit.severity)
				}
				return s.Update(t)
			})
		},
	}
	editCmd.Flags().StringVar(&edit.label, "label", "", "display label")
	editCmd.Flags().StringVar(&edit.description, "description", "", "what the tag means")
	editCmd.Flags().StringVar(&edit.color, "color", "", "display color as #rrggbb")
	editCmd.Flags().StringVar(&edit.severity, "severity", "", "severity of items marked by the tag, empty for the default")

	removeCmd := &cobra.Command{
		Use:   "remove <@tag|id>",
		Short: "Delete a custom tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return save(func(s *tags.Store) error {
				return s.Remove(args[0])
			})
		},
	}

	cmd.AddCommand(
		addCmd,
		listCmd,
		toggle("enable", "Enable a custom tag", true),
		toggle("disable", "Disable a custom tag", false),
		editCmd,
		removeCmd,
	)
	return cmd
}

// findTag looks a tag up by ID or, case-insensitively, by tag text.
func findTag(list []tags.CustomTag, key string) (tags.CustomTag, bool) {
	for _, t := range list {
		if t.ID == key || strings.EqualFold(t.Tag, key) {
			return t, true
		}
	}
	return tags.CustomTag{}, false
}

func tagsTable(list []tags.CustomTag) string {
	rows := make([][]string, 0, len(list))
	for _, t := range list {
		rows = append(rows, []string{
			t.Tag,
			t.Label,
			strconv.FormatBool(t.Enabled),
			string(t.Severity),
			t.Description,
			t.ID,
		})
	}
	return toon.Table("tags", []string{"tag", "label", "enabled", "severity", "description", "id"}, rows)
}
