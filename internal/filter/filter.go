// Package filter derives visible subsets of a task forest.
//
// Every filter keeps the tree shape: a surviving task carries its own
// subtasks, filtered the same way. Inputs are never modified.
package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nick-dorsch/planner/internal/period"
	"github.com/nick-dorsch/planner/pkg/models"
)

var ErrUnknownStatus = errors.New("unknown status filter")

type Status int

const (
	StatusAll Status = iota
	StatusCompleted
	StatusPending
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusPending:
		return "pending"
	default:
		return "all"
	}
}

// ParseStatus accepts "all", "completed" and "pending". Empty is StatusAll.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "", "all":
		return StatusAll, nil
	case "completed", "done":
		return StatusCompleted, nil
	case "pending", "open":
		return StatusPending, nil
	}
	return StatusAll, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// prune keeps tasks for which keep holds, recursing into the survivors.
func prune(list []models.Task, keep func(models.Task) bool) []models.Task {
	out := make([]models.Task, 0, len(list))
	for _, t := range list {
		if !keep(t) {
			continue
		}
		t.Subtasks = prune(t.Subtasks, keep)
		out = append(out, t)
	}
	return out
}

// ByDateRange keeps tasks created inside r. Tasks without a creation time
// are dropped.
func ByDateRange(f models.Forest, r period.Range) models.Forest {
	return prune(f, func(t models.Task) bool {
		return !t.CreatedAt.IsZero() && r.Contains(t.CreatedAt)
	})
}

// ByStatus keeps tasks whose completion matches s, level by level.
func ByStatus(f models.Forest, s Status) models.Forest {
	if s == StatusAll {
		return prune(f, func(models.Task) bool { return true })
	}
	want := s == StatusCompleted
	return prune(f, func(t models.Task) bool { return t.Completed == want })
}

// BySearch keeps tasks whose title or description contains q, ignoring
// case, and tasks with a matching descendant. Non-matching descendants are
// pruned. A blank query keeps everything.
func BySearch(f models.Forest, q string) models.Forest {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return prune(f, func(models.Task) bool { return true })
	}
	return search(f, q)
}

func search(list []models.Task, q string) []models.Task {
	out := make([]models.Task, 0)
	for _, t := range list {
		subtasks := search(t.Subtasks, q)
		if !matches(t, q) && len(subtasks) == 0 {
			continue
		}
		t.Subtasks = subtasks
		out = append(out, t)
	}
	return out
}

func matches(t models.Task, q string) bool {
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

// Query is a composed view: a period window around Date, a status and a
// search string. Zero fields apply no filtering.
type Query struct {
	Unit   period.Unit
	Date   time.Time
	Status Status
	Search string
}

// Range returns the window the query selects, if any.
func (q Query) Range() (period.Range, bool) {
	if q.Date.IsZero() {
		return period.Range{}, false
	}
	return period.RangeFor(q.Date, q.Unit)
}

// Apply runs the date and status filters before the search. Both are plain
// per-task predicates, so their order does not matter; running them first
// means search only credits a task for descendants that are still visible.
func (q Query) Apply(f models.Forest) models.Forest {
	out := f
	if r, ok := q.Range(); ok {
		out = ByDateRange(out, r)
	}
	if q.Status != StatusAll {
		out = ByStatus(out, q.Status)
	}
	if strings.TrimSpace(q.Search) != "" {
		out = BySearch(out, q.Search)
	}
	return out
}
