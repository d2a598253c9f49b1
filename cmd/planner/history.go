package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nick-dorsch/planner/internal/codec"
	"github.com/nick-dorsch/planner/internal/storage"
)

var errNoHistory = errors.New("history needs the sqlite storage backend")

// localSQLite finds the SQLite store behind s, looking through a SyncStore.
func localSQLite(s storage.Store) (*storage.SQLiteStore, bool) {
	switch st := s.(type) {
	case *storage.SQLiteStore:
		return st, true
	case *storage.SyncStore:
		return localSQLite(st.Local)
	}
	return nil, false
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit   int
		restore string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or restore earlier saves (sqlite backend)",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of revisions to show, 0 for all")
	cmd.Flags().StringVar(&restore, "restore", "", "Revision id to restore")

	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		st, ok := localSQLite(a.store)
		if !ok {
			return errNoHistory
		}
		out := cmd.OutOrStdout()

		if restore != "" {
			id, err := strconv.ParseInt(restore, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid revision id %q", restore)
			}
			revs, err := st.Revisions(cmd.Context(), 0)
			if err != nil {
				return err
			}
			for _, r := range revs {
				if r.ID != id {
					continue
				}
				report, err := a.svc.Import(cmd.Context(), r.Value)
				if err := localOnly(err); err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Restored revision %d (%d tasks)\n", r.ID, report.Rows)
				return nil
			}
			return fmt.Errorf("revision %d not found", id)
		}

		revs, err := st.Revisions(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(revs) == 0 {
			fmt.Fprintln(out, "No revisions.")
			return nil
		}
		fmt.Fprintf(out, "%-6s %-25s %s\n", "ID", "SAVED AT", "TASKS")
		for _, r := range revs {
			f, _ := codec.Decode(r.Value)
			fmt.Fprintf(out, "%-6d %-25s %d\n", r.ID, r.SavedAt.Local().Format("2006-01-02 15:04:05"), f.Len())
		}
		return nil
	})
	return cmd
}
