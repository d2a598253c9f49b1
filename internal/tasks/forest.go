package tasks

import (
	"fmt"

	"github.com/nick-dorsch/planner/pkg/models"
)

// Add appends a root task.
func Add(f models.Forest, t models.Task) models.Forest {
	out := make(models.Forest, 0, len(f)+1)
	out = append(out, f...)
	return append(out, t)
}

// AddSubtask creates a subtask under parentID, at any depth. The subtask takes
// the parent's category and priority unless nt names its own, and the parent's
// UpdatedAt is refreshed.
func AddSubtask(clock Clock, f models.Forest, parentID string, nt NewTask) (models.Forest, models.Task, error) {
	var created models.Task
	out, ok := replace(f, parentID, func(parent models.Task) models.Task {
		nt.ParentID = parent.ID
		if nt.Category == "" {
			nt.Category = parent.Category
		}
		if nt.Priority == "" {
			nt.Priority = parent.Priority
		}
		created = Create(clock, nt)

		updated := Update(clock, parent, Patch{})
		subtasks := make([]models.Task, 0, len(parent.Subtasks)+1)
		subtasks = append(subtasks, parent.Subtasks...)
		updated.Subtasks = append(subtasks, created)
		return updated
	})
	if !ok {
		return f, models.Task{}, fmt.Errorf("%w: %s", ErrNotFound, parentID)
	}
	return out, created, nil
}

// Edit applies p to the task with the given id, wherever it sits.
func Edit(clock Clock, f models.Forest, id string, p Patch) (models.Forest, error) {
	out, ok := replace(f, id, func(t models.Task) models.Task {
		return Update(clock, t, p)
	})
	if !ok {
		return f, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return out, nil
}

// ToggleByID toggles the task with the given id, wherever it sits.
func ToggleByID(clock Clock, f models.Forest, id string) (models.Forest, error) {
	out, ok := replace(f, id, func(t models.Task) models.Task {
		return Toggle(clock, t)
	})
	if !ok {
		return f, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return out, nil
}

// Remove drops every task with the given id, at any depth, together with its
// subtree. The parent does not need to be known.
func Remove(f models.Forest, id string) (models.Forest, error) {
	out, removed := remove(f, id)
	if !removed {
		return f, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return models.Forest(out), nil
}

func remove(list []models.Task, id string) ([]models.Task, bool) {
	removed := false
	out := make([]models.Task, 0, len(list))
	for _, t := range list {
		if t.ID == id {
			removed = true
			continue
		}
		if len(t.Subtasks) > 0 {
			subtasks, ok := remove(t.Subtasks, id)
			if ok {
				removed = true
				t.Subtasks = subtasks
			}
		}
		out = append(out, t)
	}
	return out, removed
}

// Find returns the task with the given id, at any depth.
func Find(f models.Forest, id string) (models.Task, bool) {
	var found models.Task
	ok := false
	Walk(f, func(t models.Task, _ string, _ int) bool {
		if t.ID == id {
			found, ok = t, true
			return false
		}
		return true
	})
	return found, ok
}

// Walk visits tasks in depth-first pre-order with their parent id and depth
// (0 for roots). Returning false from fn stops the walk.
func Walk(f models.Forest, fn func(t models.Task, parentID string, depth int) bool) {
	walk(f, "", 0, fn)
}

func walk(list []models.Task, parentID string, depth int, fn func(models.Task, string, int) bool) bool {
	for _, t := range list {
		if !fn(t, parentID, depth) {
			return false
		}
		if !walk(t.Subtasks, t.ID, depth+1, fn) {
			return false
		}
	}
	return true
}

// Clone deep-copies a forest.
func Clone(f models.Forest) models.Forest {
	return models.Forest(cloneList(f))
}

func cloneList(list []models.Task) []models.Task {
	if list == nil {
		return nil
	}
	out := make([]models.Task, len(list))
	for i, t := range list {
		t.Subtasks = cloneList(t.Subtasks)
		out[i] = t
	}
	return out
}

// replace rebuilds the path to the first task with the given id, swapping it
// for fn's result.
func replace(list []models.Task, id string, fn func(models.Task) models.Task) ([]models.Task, bool) {
	for i, t := range list {
		if t.ID == id {
			out := make([]models.Task, len(list))
			copy(out, list)
			out[i] = fn(t)
			return out, true
		}
		if subtasks, ok := replace(t.Subtasks, id, fn); ok {
			out := make([]models.Task, len(list))
			copy(out, list)
			t.Subtasks = subtasks
			out[i] = t
			return out, true
		}
	}
	return list, false
}
