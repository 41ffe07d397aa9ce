package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phobologic/deptrack/internal/config"
)

// newInitCmd implements `deptrack init`, which writes a default
// .deptrack.yaml to the project root.
func newInitCmd(g *globals) *cobra.Command {
	var force, dryRun bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default .deptrack.yaml",
		Long: `Write a .deptrack.yaml holding the built-in defaults to the project root
(the current directory unless a path is given). An existing file is left
alone unless --force is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()

			// --dry-run: just print the document.
			if dryRun {
				data, err := config.Encode(cfg)
				if err != nil {
					return err
				}
				_, err = g.stdout.Write(data)
				return err
			}

			root, err := rootArg(args)
			if err != nil {
				return err
			}
			path, err := config.Write(root, cfg, force)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(g.stderr, "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the config without writing it")
	return cmd
}
