package codec

import (
	"strconv"
	"strings"
	"time"

	"github.com/nick-dorsch/planner/pkg/models"
)

// Row is one task flattened out of its tree. ParentID is the id of the task
// it was nested under, empty for roots.
type Row struct {
	ID          string
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DueDate     string
	ParentID    string
	Category    models.Category
	Priority    models.Priority
}

// Rows flattens a forest depth-first in pre-order, so every parent precedes
// its children.
func Rows(f models.Forest) []Row {
	rows := make([]Row, 0, f.Len())
	var flatten func(list []models.Task, parentID string)
	flatten = func(list []models.Task, parentID string) {
		for _, t := range list {
			rows = append(rows, Row{
				ID:          t.ID,
				Title:       t.Title,
				Description: t.Description,
				Completed:   t.Completed,
				CreatedAt:   t.CreatedAt,
				UpdatedAt:   t.UpdatedAt,
				DueDate:     t.DueDate,
				ParentID:    parentID,
				Category:    t.Category,
				Priority:    t.Priority,
			})
			flatten(t.Subtasks, t.ID)
		}
	}
	flatten(f, "")
	return rows
}

func (r Row) task() models.Task {
	category := r.Category
	if category == "" {
		category = models.DefaultCategory
	}
	priority := r.Priority
	if priority == "" {
		priority = models.DefaultPriority
	}
	return models.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		DueDate:     r.DueDate,
		ParentID:    r.ParentID,
		Category:    category,
		Priority:    priority,
		Subtasks:    []models.Task{},
	}
}

// fields renders the row in the schema's column order.
func (r Row) fields(s Schema) []string {
	out := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		switch col {
		case ColID:
			out[i] = r.ID
		case ColTitle:
			out[i] = r.Title
		case ColDescription:
			out[i] = r.Description
		case ColCompleted:
			out[i] = strconv.FormatBool(r.Completed)
		case ColCreatedAt:
			out[i] = FormatTimestamp(r.CreatedAt)
		case ColUpdatedAt:
			out[i] = FormatTimestamp(r.UpdatedAt)
		case ColDueDate:
			out[i] = r.DueDate
		case ColParentID:
			out[i] = r.ParentID
		case ColCategory:
			out[i] = string(r.Category)
		case ColPriority:
			out[i] = string(r.Priority)
		}
	}
	return out
}

func rowFromRecord(h header, record []string) Row {
	return Row{
		ID:          strings.TrimSpace(h.get(record, ColID)),
		Title:       h.get(record, ColTitle),
		Description: h.get(record, ColDescription),
		Completed:   strings.EqualFold(strings.TrimSpace(h.get(record, ColCompleted)), "true"),
		CreatedAt:   ParseTimestamp(h.get(record, ColCreatedAt)),
		UpdatedAt:   ParseTimestamp(h.get(record, ColUpdatedAt)),
		DueDate:     strings.TrimSpace(h.get(record, ColDueDate)),
		ParentID:    strings.TrimSpace(h.get(record, ColParentID)),
		Category:    models.ParseCategory(strings.TrimSpace(h.get(record, ColCategory))),
		Priority:    models.ParsePriority(strings.TrimSpace(h.get(record, ColPriority))),
	}
}

// FormatTimestamp renders t in models.TimestampLayout; the zero time is "".
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(models.TimestampLayout)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	models.DueDateLayout,
}

// ParseTimestamp accepts ISO-8601 date-times and plain dates. Anything it
// cannot read becomes the zero time, which callers treat as absent.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
