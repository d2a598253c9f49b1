package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nick-dorsch/planner/internal/planner"
	"github.com/nick-dorsch/planner/internal/stats"
	"github.com/nick-dorsch/planner/pkg/models"
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func printTasks(w io.Writer, list []models.Task, depth int) {
	for _, t := range list {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		line := fmt.Sprintf("%s[%s] %s  %s", strings.Repeat("  ", depth), mark, shortID(t.ID), t.Title)
		var meta []string
		if t.Priority != "" && t.Priority != models.DefaultPriority {
			meta = append(meta, string(t.Priority))
		}
		if t.Category == models.CategoryWork {
			meta = append(meta, string(t.Category))
		}
		if t.DueDate != "" {
			meta = append(meta, "due "+t.DueDate)
		}
		if len(meta) > 0 {
			line += " (" + strings.Join(meta, ", ") + ")"
		}
		fmt.Fprintln(w, line)
		printTasks(w, t.Subtasks, depth+1)
	}
}

func printStats(w io.Writer, s stats.Stats) {
	fmt.Fprintf(w, "Total:       %d\n", s.Total)
	fmt.Fprintf(w, "Completed:   %d\n", s.Completed)
	fmt.Fprintf(w, "Pending:     %d\n", s.Pending)
	fmt.Fprintf(w, "Completion:  %d%%\n", s.CompletionRate)
	if s.Overdue > 0 {
		fmt.Fprintf(w, "Overdue:     %d\n", s.Overdue)
	}

	if len(s.ByPriority) > 0 {
		fmt.Fprintln(w, "\nBy priority:")
		for _, p := range []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
			if c, ok := s.ByPriority[p]; ok {
				fmt.Fprintf(w, "  %-8s %d/%d\n", p, c.Completed, c.Total)
			}
		}
	}
	if len(s.ByCategory) > 0 {
		fmt.Fprintln(w, "\nBy category:")
		for _, c := range []models.Category{models.CategoryPersonal, models.CategoryWork} {
			if n, ok := s.ByCategory[c]; ok {
				fmt.Fprintf(w, "  %-8s %d/%d\n", c, n.Completed, n.Total)
			}
		}
	}
}

type listOutput struct {
	Period  string        `json:"period"`
	Label   string        `json:"label"`
	Current bool          `json:"current"`
	Tasks   models.Forest `json:"tasks"`
	Stats   stats.Stats   `json:"stats"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newListCmd(a *app) *cobra.Command {
	var (
		unit   string
		date   string
		status string
		search string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show tasks for a week, month, year or all time",
		Args:    cobra.NoArgs,
	}
	cmd.Flags().StringVar(&unit, "period", "week", "Period: week, month, year or all")
	cmd.Flags().StringVar(&date, "date", "", "Any day inside the period (YYYY-MM-DD), default today")
	cmd.Flags().StringVarP(&status, "status", "s", "all", "Status: all, pending or completed")
	cmd.Flags().StringVarP(&search, "search", "q", "", "Only tasks whose title or description contains this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a tree")

	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		q, err := planner.ParseQuery(unit, date, status, search, time.Local)
		if err != nil {
			return err
		}
		v := a.svc.View(q)
		out := cmd.OutOrStdout()

		if asJSON {
			return writeJSON(out, listOutput{
				Period:  v.Query.Unit.String(),
				Label:   v.Label,
				Current: v.Current,
				Tasks:   v.Tasks,
				Stats:   v.Stats,
			})
		}

		header := v.Label
		if v.Current {
			header += " (current)"
		}
		fmt.Fprintln(out, header)
		fmt.Fprintln(out, strings.Repeat("-", len([]rune(header))))
		if len(v.Tasks) == 0 {
			fmt.Fprintln(out, "No tasks.")
			return nil
		}
		printTasks(out, v.Tasks, 0)
		fmt.Fprintf(out, "\n%d/%d completed (%d%%)\n", v.Stats.Completed, v.Stats.Total, v.Stats.CompletionRate)
		return nil
	})
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics over every task",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		s := a.svc.Stats()
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), s)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Planner Statistics")
		fmt.Fprintln(cmd.OutOrStdout(), "==================")
		printStats(cmd.OutOrStdout(), s)
		return nil
	})
	return cmd
}
