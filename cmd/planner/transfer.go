package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every task as CSV",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write instead of stdout")

	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		if output == "" {
			return a.svc.ExportTo(cmd.OutOrStdout())
		}

		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		if err := a.svc.ExportTo(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d tasks to %s\n", a.svc.Tasks().Len(), output)
		return nil
	})
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace every task with the contents of a CSV file",
		Long: `Replace every task with the contents of a CSV file, as written by export.

Columns are matched by header name. Rows that cannot be parsed are skipped and
rows whose parent is missing become top-level tasks. Use - to read stdin.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		report, err := a.svc.Import(cmd.Context(), string(data))
		if err := localOnly(err); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d rows (%d skipped, %d orphaned)\n",
			report.Rows, report.Skipped, len(report.Orphans))
		return nil
	})
	return cmd
}
