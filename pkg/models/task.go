package models

import "time"

// TimestampLayout is the text form of CreatedAt/UpdatedAt in exports.
// It matches the millisecond UTC form browsers emit for ISO-8601 dates.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DueDateLayout is the calendar-day form used by due dates.
const DueDateLayout = "2006-01-02"

type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	DefaultCategory = CategoryPersonal
	DefaultPriority = PriorityMedium
)

// ParseCategory maps a label to a Category, falling back to the default.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryPersonal, CategoryWork:
		return Category(s)
	}
	return DefaultCategory
}

// ParsePriority maps a label to a Priority, falling back to the default.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s)
	}
	return DefaultPriority
}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	DueDate     string    `json:"dueDate,omitempty"`
	Category    Category  `json:"category,omitempty"`
	Priority    Priority  `json:"priority,omitempty"`
	ParentID    string    `json:"parentId,omitempty"`
	Subtasks    []Task    `json:"subtasks"`
}

// Due parses DueDate. Unparseable or empty values report false.
func (t Task) Due() (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{DueDateLayout, time.RFC3339Nano} {
		if d, err := time.Parse(layout, t.DueDate); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// Forest is the ordered collection of root tasks.
type Forest []Task

// Len counts every task at every depth.
func (f Forest) Len() int {
	n := 0
	for _, t := range f {
		n += 1 + Forest(t.Subtasks).Len()
	}
	return n
}
