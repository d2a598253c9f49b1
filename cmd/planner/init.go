package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nick-dorsch/planner/internal/config"
)

const gitignore = "planner.db*\n"

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create .planner/ with a default config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.dir
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	out := cmd.OutOrStdout()

	plannerDir := filepath.Join(dir, config.DirName)
	if err := os.MkdirAll(plannerDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", config.DirName, err)
	}
	fmt.Fprintf(out, "✓ Created %s/ directory\n", config.DirName)

	if err := os.WriteFile(filepath.Join(plannerDir, ".gitignore"), []byte(gitignore), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Fprintf(out, "✓ Created %s/.gitignore\n", config.DirName)

	cfgPath := config.ProjectConfigPath(dir)
	_, err := os.Stat(cfgPath)
	switch {
	case err == nil && !force:
		fmt.Fprintf(out, "• Kept existing %s (use --force to overwrite)\n", cfgPath)
	case err == nil || errors.Is(err, fs.ErrNotExist):
		if err := config.WriteDefault(cfgPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote %s\n", cfgPath)
	default:
		return fmt.Errorf("failed to check %s: %w", cfgPath, err)
	}

	fmt.Fprintln(out, "✓ Planner initialized successfully")
	return nil
}
