package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// ActivityLog is a scrolling record of what the user did and how saving went.
type ActivityLog struct {
	viewport viewport.Model
	entries  []string
	limit    int
	ready    bool
}

// NewActivityLog keeps at most limit entries; 0 keeps everything.
func NewActivityLog(width, height, limit int) *ActivityLog {
	l := &ActivityLog{limit: limit}
	l.SetSize(width, height)
	return l
}

func (l *ActivityLog) SetSize(width, height int) {
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !l.ready {
		l.viewport = viewport.New(vpWidth, height)
		l.ready = true
	} else {
		l.viewport.Width = vpWidth
		l.viewport.Height = height
	}
	l.refresh()
}

// Add records an informational entry stamped with at.
func (l *ActivityLog) Add(at time.Time, msg string) {
	l.push(timeStyle.Render(at.Format("15:04:05")) + " " + msg)
}

// AddError records a failure.
func (l *ActivityLog) AddError(at time.Time, err error) {
	l.push(timeStyle.Render(at.Format("15:04:05")) + " " + errorStyle.Render(fmt.Sprintf("error: %v", err)))
}

func (l *ActivityLog) push(entry string) {
	l.entries = append(l.entries, entry)
	if l.limit > 0 && len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
	l.refresh()
}

func (l *ActivityLog) Len() int {
	return len(l.entries)
}

func (l *ActivityLog) Reset() {
	l.entries = nil
	l.refresh()
}

func (l *ActivityLog) refresh() {
	content := strings.Join(l.entries, "\n")
	if w := l.viewport.Width; w > 0 {
		content = logStyle.Width(w).Render(content)
	} else {
		content = logStyle.Render(content)
	}
	l.viewport.SetContent(content)
	l.viewport.GotoBottom()
}

func (l *ActivityLog) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	l.viewport, cmd = l.viewport.Update(msg)
	return cmd
}

func (l *ActivityLog) View() string {
	if !l.ready {
		return ""
	}
	if l.viewport.TotalLineCount() <= l.viewport.Height {
		return l.viewport.View()
	}

	h := l.viewport.Height
	handlePos := int(float64(h-1) * l.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, l.viewport.View(), sb.String())
}
