package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nick-dorsch/planner/internal/tasks"
	"github.com/nick-dorsch/planner/pkg/models"
)

// taskFlags are the optional fields shared by add and sub.
type taskFlags struct {
	description string
	due         string
	category    string
	priority    string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Longer description")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.category, "category", "", "Category: personal or work")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "Priority: low, medium or high")
}

func (f *taskFlags) newTask(title string) (tasks.NewTask, error) {
	if err := validateDue(f.due); err != nil {
		return tasks.NewTask{}, err
	}
	cat, err := parseCategory(f.category)
	if err != nil {
		return tasks.NewTask{}, err
	}
	pri, err := parsePriority(f.priority)
	if err != nil {
		return tasks.NewTask{}, err
	}
	return tasks.NewTask{
		Title:       title,
		Description: f.description,
		DueDate:     f.due,
		Category:    cat,
		Priority:    pri,
	}, nil
}

func validateDue(due string) error {
	if due == "" {
		return nil
	}
	if _, ok := (models.Task{DueDate: due}).Due(); !ok {
		return fmt.Errorf("invalid due date %q, expected YYYY-MM-DD", due)
	}
	return nil
}

// parseCategory returns "" for an empty flag so the default or the parent's
// value applies.
func parseCategory(s string) (models.Category, error) {
	if s == "" {
		return "", nil
	}
	c := models.Category(strings.ToLower(s))
	if models.ParseCategory(string(c)) != c {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

func parsePriority(s string) (models.Priority, error) {
	if s == "" {
		return "", nil
	}
	p := models.Priority(strings.ToLower(s))
	if models.ParsePriority(string(p)) != p {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// resolveID accepts a full id or an unambiguous prefix of one.
func (a *app) resolveID(ref string) (string, error) {
	if _, ok := a.svc.Get(ref); ok {
		return ref, nil
	}

	var matches []string
	tasks.Walk(a.svc.Tasks(), func(t models.Task, _ string, _ int) bool {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t.ID)
		}
		return true
	})
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", tasks.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("id prefix %q is ambiguous (%d tasks)", ref, len(matches))
}

func newAddCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
	}
	f.register(cmd)
	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		nt, err := f.newTask(strings.Join(args, " "))
		if err != nil {
			return err
		}
		t, err := a.svc.AddTask(cmd.Context(), nt)
		if err := localOnly(err); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s %s\n", shortID(t.ID), t.Title)
		return nil
	})
	return cmd
}

func newSubCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "sub <parent-id> <title>",
		Short: "Add a subtask under an existing task",
		Long: `Add a subtask. Category and priority default to the parent's.

The parent may be given by a unique prefix of its id.`,
		Args: cobra.MinimumNArgs(2),
	}
	f.register(cmd)
	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		parentID, err := a.resolveID(args[0])
		if err != nil {
			return err
		}
		nt, err := f.newTask(strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		t, err := a.svc.AddSubtask(cmd.Context(), parentID, nt)
		if err := localOnly(err); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s %s under %s\n", shortID(t.ID), t.Title, shortID(parentID))
		return nil
	})
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var (
		f         taskFlags
		title     string
		completed bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().BoolVar(&completed, "completed", false, "Set completion without cascading to subtasks")

	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		id, err := a.resolveID(args[0])
		if err != nil {
			return err
		}

		var p tasks.Patch
		flags := cmd.Flags()
		if flags.Changed("title") {
			p.Title = &title
		}
		if flags.Changed("description") {
			p.Description = &f.description
		}
		if flags.Changed("due") {
			if err := validateDue(f.due); err != nil {
				return err
			}
			p.DueDate = &f.due
		}
		if flags.Changed("category") {
			c, err := parseCategory(f.category)
			if err != nil {
				return err
			}
			p.Category = &c
		}
		if flags.Changed("priority") {
			pr, err := parsePriority(f.priority)
			if err != nil {
				return err
			}
			p.Priority = &pr
		}
		if flags.Changed("completed") {
			p.Completed = &completed
		}

		t, err := a.svc.Edit(cmd.Context(), id, p)
		if err := localOnly(err); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated %s %s\n", shortID(t.ID), t.Title)
		return nil
	})
	return cmd
}

func newToggleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a task between pending and completed",
		Long:  "Flip a task between pending and completed. Completing a task also completes its direct subtasks.",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		id, err := a.resolveID(args[0])
		if err != nil {
			return err
		}
		t, err := a.svc.Toggle(cmd.Context(), id)
		if err := localOnly(err); err != nil {
			return err
		}
		state := "pending"
		if t.Completed {
			state = "completed"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is now %s\n", t.Title, state)
		return nil
	})
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task and all of its subtasks",
		Args:    cobra.ExactArgs(1),
	}
	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		id, err := a.resolveID(args[0])
		if err != nil {
			return err
		}
		t, _ := a.svc.Get(id)
		if err := localOnly(a.svc.Delete(cmd.Context(), id)); err != nil {
			return err
		}
		n := models.Forest{t}.Len()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s (%d task(s))\n", t.Title, n)
		return nil
	})
	return cmd
}
