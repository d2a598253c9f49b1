package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nick-dorsch/planner/internal/stats"
	"github.com/nick-dorsch/planner/pkg/models"
)

var (
	statsBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("42")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	overdueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	barFullStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
)

// StatsPanel shows completion counts for the visible tasks.
type StatsPanel struct {
	Title string
	Width int
	Stats stats.Stats
}

func NewStatsPanel(width int) *StatsPanel {
	return &StatsPanel{Title: "Progress", Width: width}
}

func (p *StatsPanel) View() string {
	s := p.Stats
	innerWidth := p.Width - 4
	if innerWidth < 10 {
		innerWidth = 10
	}

	lines := []string{
		row("Total", s.Total),
		row("Completed", s.Completed),
		row("Pending", s.Pending),
		fmt.Sprintf("%s %d%%", labelStyle.Render(fmt.Sprintf("%-10s", "Rate")), s.CompletionRate),
		progressBar(s.CompletionRate, innerWidth),
	}
	if s.Overdue > 0 {
		lines = append(lines, overdueStyle.Render(fmt.Sprintf("%d overdue", s.Overdue)))
	}

	for _, c := range []models.Category{models.CategoryPersonal, models.CategoryWork} {
		if n, ok := s.ByCategory[c]; ok && n.Total > 0 {
			lines = append(lines, fmt.Sprintf("%s %d/%d", labelStyle.Render(fmt.Sprintf("%-10s", c)), n.Completed, n.Total))
		}
	}

	body := strings.Join(lines, "\n")
	if p.Title != "" {
		body = treeHeaderStyle.Render(p.Title) + "\n" + body
	}
	return statsBoxStyle.Width(boxWidth(p.Width)).Render(body)
}

func row(label string, n int) string {
	return fmt.Sprintf("%s %d", labelStyle.Render(fmt.Sprintf("%-10s", label)), n)
}

func progressBar(rate, width int) string {
	if rate < 0 {
		rate = 0
	}
	if rate > 100 {
		rate = 100
	}
	full := width * rate / 100
	return barFullStyle.Render(strings.Repeat("█", full)) +
		barEmptyStyle.Render(strings.Repeat("░", width-full))
}
