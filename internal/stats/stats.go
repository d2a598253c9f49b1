// Package stats aggregates completion counts over a task forest.
package stats

import (
	"math"
	"time"

	"github.com/nick-dorsch/planner/pkg/models"
)

// Counts is a total/completed/pending tally.
type Counts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

type Stats struct {
	Counts
	// CompletionRate is the rounded percentage of completed tasks, 0 when
	// there are none.
	CompletionRate int `json:"completionRate"`
	// Overdue counts pending tasks due before the reference day. Only
	// ComputeAt fills it in.
	Overdue    int                        `json:"overdue"`
	ByCategory map[models.Category]Counts `json:"byCategory"`
	ByPriority map[models.Priority]Counts `json:"byPriority"`
}

// Compute counts every task and subtask at every depth.
func Compute(f models.Forest) Stats {
	return compute(f, time.Time{})
}

// ComputeAt is Compute plus the overdue count relative to now.
func ComputeAt(f models.Forest, now time.Time) Stats {
	return compute(f, now)
}

func compute(f models.Forest, now time.Time) Stats {
	s := Stats{
		ByCategory: make(map[models.Category]Counts),
		ByPriority: make(map[models.Priority]Counts),
	}
	var today time.Time
	if !now.IsZero() {
		y, m, d := now.Date()
		today = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	var count func(list []models.Task)
	count = func(list []models.Task) {
		for _, t := range list {
			s.Counts = s.Counts.add(t.Completed)
			s.ByCategory[t.Category] = s.ByCategory[t.Category].add(t.Completed)
			s.ByPriority[t.Priority] = s.ByPriority[t.Priority].add(t.Completed)
			if !today.IsZero() && !t.Completed {
				if due, ok := t.Due(); ok && due.Before(today) {
					s.Overdue++
				}
			}
			count(t.Subtasks)
		}
	}
	count(f)

	s.CompletionRate = Rate(s.Completed, s.Total)
	return s
}

func (c Counts) add(completed bool) Counts {
	c.Total++
	if completed {
		c.Completed++
	} else {
		c.Pending++
	}
	return c
}

// Rate returns round(100*completed/total), or 0 for an empty total.
func Rate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}
