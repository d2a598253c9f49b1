// Package tasks holds the pure task and forest operations.
//
// Nothing in this package mutates its inputs: every operation returns a new
// task or forest, rebuilding only the path from the root to the changed node
// and sharing untouched subtrees with the input.
package tasks

import (
	"strings"
	"time"

	"github.com/nick-dorsch/planner/internal/ids"
	"github.com/nick-dorsch/planner/pkg/models"
)

// Clock supplies "now". Tests pin it; production uses SystemClock.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// stamp normalizes a timestamp to the precision the export format keeps.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NewTask carries the user supplied fields of a task being created.
type NewTask struct {
	Title       string
	Description string
	DueDate     string
	ParentID    string
	Category    models.Category
	Priority    models.Priority
}

// Patch lists field changes for Update. Nil fields are left alone.
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
	DueDate     *string
	Category    *models.Category
	Priority    *models.Priority
	// CreatedAt overrides the creation time; only imports and restores set it.
	CreatedAt *time.Time
}

// ValidateTitle trims a title and rejects it when nothing is left.
// Create itself accepts any title.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	return title, nil
}

// Create builds a new, incomplete task with a fresh id.
func Create(clock Clock, nt NewTask) models.Task {
	now := stamp(clock())
	category := nt.Category
	if category == "" {
		category = models.DefaultCategory
	}
	priority := nt.Priority
	if priority == "" {
		priority = models.DefaultPriority
	}
	return models.Task{
		ID:          ids.New(),
		Title:       nt.Title,
		Description: nt.Description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueDate:     nt.DueDate,
		Category:    category,
		Priority:    priority,
		ParentID:    nt.ParentID,
		Subtasks:    []models.Task{},
	}
}

// Update returns a copy of task with p merged over it and UpdatedAt refreshed.
func Update(clock Clock, task models.Task, p Patch) models.Task {
	out := task
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Completed != nil {
		out.Completed = *p.Completed
	}
	if p.DueDate != nil {
		out.DueDate = *p.DueDate
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.CreatedAt != nil {
		out.CreatedAt = stamp(*p.CreatedAt)
	}
	out.UpdatedAt = stamp(clock())
	return out
}

// Toggle flips Completed. Completing a task also completes its immediate
// subtasks; un-completing it leaves them alone.
func Toggle(clock Clock, task models.Task) models.Task {
	completed := !task.Completed
	out := Update(clock, task, Patch{Completed: &completed})
	if completed && len(out.Subtasks) > 0 {
		done := true
		subtasks := make([]models.Task, len(out.Subtasks))
		for i, st := range out.Subtasks {
			subtasks[i] = Update(clock, st, Patch{Completed: &done})
		}
		out.Subtasks = subtasks
	}
	return out
}
