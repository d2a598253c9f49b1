package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logoStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("42")).Bold(true)
	descStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const logo = `
       __                              
.-----|  |.---.-.-----.-----.-----.----.
|  _  |  ||  _  |     |     |  -__|   _|
|   __|__||___._|__|__|__|__|_____|__|  
|__|                                    
`

type menuItem struct {
	command string
	desc    string
}

var menuItems = []menuItem{
	{"browse", "browse and edit tasks interactively"},
	{"list", "print this week's tasks"},
	{"stats", "print completion statistics"},
	{"web", "serve the web interface"},
	{"mcp", "serve tools over MCP stdio"},
	{"export", "write all tasks as CSV to stdout"},
	{"init", "create .planner/ with a default config"},
}

type MenuModel struct {
	choices  []menuItem
	cursor   int
	selected string
	quitting bool
}

func NewMenuModel() MenuModel {
	return MenuModel{choices: menuItems}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}

		case "home", "g":
			m.cursor = 0

		case "end", "G":
			m.cursor = len(m.choices) - 1

		case "enter":
			m.selected = m.choices[m.cursor].command
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(logoStyle.Render(logo))
	s.WriteString("\n\n")

	for i, choice := range m.choices {
		line := fmt.Sprintf("%-8s %s", choice.command, descStyle.Render(choice.desc))
		if m.cursor == i {
			s.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			s.WriteString(itemStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n(use arrow keys or j/k to navigate, enter to select, q to quit)\n")

	return s.String()
}

func (m MenuModel) Selected() string {
	return m.selected
}

// RunMenu shows the command picker and returns the chosen command, or ""
// when the user quit.
func RunMenu() (string, error) {
	p := tea.NewProgram(NewMenuModel())
	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}
	return finalModel.(MenuModel).Selected(), nil
}
