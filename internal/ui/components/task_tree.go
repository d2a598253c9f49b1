package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nick-dorsch/planner/internal/tasks"
	"github.com/nick-dorsch/planner/pkg/models"
)

var (
	treeBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	treeHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Strikethrough(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)

	priorityColors = map[models.Priority]lipgloss.Color{
		models.PriorityHigh:   lipgloss.Color("196"),
		models.PriorityMedium: lipgloss.Color("214"),
		models.PriorityLow:    lipgloss.Color("244"),
	}
)

// Line is one visible row of the tree.
type Line struct {
	Task  models.Task
	Depth int
}

// Flatten lists the forest in display order.
func Flatten(f models.Forest) []Line {
	var lines []Line
	tasks.Walk(f, func(t models.Task, _ string, depth int) bool {
		lines = append(lines, Line{Task: t, Depth: depth})
		return true
	})
	return lines
}

// TaskTree renders a forest as an indented checklist inside a box.
type TaskTree struct {
	Title  string
	Width  int
	Cursor int
	// Focused controls whether the cursor row is highlighted.
	Focused bool

	lines []Line
}

func NewTaskTree(width int) *TaskTree {
	return &TaskTree{
		Title: "Tasks",
		Width: width,
	}
}

func (t *TaskTree) SetForest(f models.Forest) {
	t.lines = Flatten(f)
	t.clampCursor()
}

func (t *TaskTree) Lines() []Line {
	return t.lines
}

// Selected returns the task under the cursor.
func (t *TaskTree) Selected() (models.Task, bool) {
	if t.Cursor < 0 || t.Cursor >= len(t.lines) {
		return models.Task{}, false
	}
	return t.lines[t.Cursor].Task, true
}

func (t *TaskTree) MoveCursor(delta int) {
	t.Cursor += delta
	t.clampCursor()
}

// Focus moves the cursor onto the task with the given id, if visible.
func (t *TaskTree) Focus(id string) {
	for i, l := range t.lines {
		if l.Task.ID == id {
			t.Cursor = i
			return
		}
	}
}

func (t *TaskTree) clampCursor() {
	if t.Cursor >= len(t.lines) {
		t.Cursor = len(t.lines) - 1
	}
	if t.Cursor < 0 {
		t.Cursor = 0
	}
}

func (t *TaskTree) View() string {
	var content string
	if len(t.lines) == 0 {
		content = placeholderStyle.Render("No tasks in this period")
	} else {
		innerWidth := t.Width - 4
		if innerWidth < 0 {
			innerWidth = 0
		}
		rows := make([]string, 0, len(t.lines))
		for i, l := range t.lines {
			rows = append(rows, t.renderLine(l, i == t.Cursor && t.Focused, innerWidth))
		}
		content = treeBoxStyle.Width(boxWidth(t.Width)).Render(strings.Join(rows, "\n"))
	}

	if t.Title == "" {
		return content
	}
	return treeHeaderStyle.Render(t.Title) + "\n" + content
}

// boxWidth leaves room for the border around a block of the given width.
func boxWidth(width int) int {
	if width < 2 {
		return 0
	}
	return width - 2
}

func (t *TaskTree) renderLine(l Line, selected bool, width int) string {
	indent := strings.Repeat("  ", l.Depth)
	icon, style := "○", pendingStyle
	if l.Task.Completed {
		icon, style = "✓", doneStyle
	}

	prefix := "  "
	if selected {
		prefix = "> "
	}

	var meta []string
	if l.Task.Priority != "" {
		color, ok := priorityColors[l.Task.Priority]
		if !ok {
			color = priorityColors[models.PriorityLow]
		}
		meta = append(meta, lipgloss.NewStyle().Foreground(color).Render(string(l.Task.Priority)))
	}
	if l.Task.DueDate != "" {
		meta = append(meta, metaStyle.Render("due "+l.Task.DueDate))
	}

	title := style.Render(l.Task.Title)
	if selected {
		title = cursorStyle.Render(l.Task.Title)
	}
	line := fmt.Sprintf("%s%s%s %s", prefix, indent, icon, title)
	if len(meta) > 0 {
		line += " " + strings.Join(meta, " ")
	}
	if width > 0 {
		line = lipgloss.NewStyle().MaxWidth(width).Render(line)
	}
	return line
}
