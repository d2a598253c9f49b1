package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nick-dorsch/planner/internal/filter"
	"github.com/nick-dorsch/planner/internal/period"
	"github.com/nick-dorsch/planner/internal/planner"
	"github.com/nick-dorsch/planner/internal/storage"
	"github.com/nick-dorsch/planner/internal/tasks"
	"github.com/nick-dorsch/planner/internal/ui/components"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			Padding(0, 1)

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)
)

const (
	defaultWidth = 80
	logHeight    = 5
	logLimit     = 200
)

type inputMode int

const (
	modeNormal inputMode = iota
	modeAdd
	modeSubtask
	modeSearch
)

var unitCycle = []period.Unit{period.Week, period.Month, period.Year, period.All}

var statusCycle = []filter.Status{filter.StatusAll, filter.StatusPending, filter.StatusCompleted}

// BrowseModel is the interactive task view: a filtered tree, the stats of
// what is visible and a log of recent actions.
type BrowseModel struct {
	ctx   context.Context
	svc   *planner.Service
	clock tasks.Clock

	view  planner.View
	tree  *components.TaskTree
	panel *components.StatsPanel
	log   *components.ActivityLog
	input textinput.Model
	mode  inputMode

	width    int
	quitting bool
}

func NewBrowseModel(ctx context.Context, svc *planner.Service, clock tasks.Clock) *BrowseModel {
	if clock == nil {
		clock = tasks.SystemClock
	}
	input := textinput.New()
	input.CharLimit = 200

	m := &BrowseModel{
		ctx:   ctx,
		svc:   svc,
		clock: clock,
		tree:  components.NewTaskTree(defaultWidth * 2 / 3),
		panel: components.NewStatsPanel(defaultWidth / 3),
		log:   components.NewActivityLog(defaultWidth, logHeight, logLimit),
		input: input,
		width: defaultWidth,
	}
	m.tree.Focused = true
	m.view.Query = filter.Query{Unit: period.Week, Date: period.Today(clock())}
	m.refresh()
	return m
}

// Query returns the filter currently applied.
func (m *BrowseModel) Query() filter.Query {
	return m.view.Query
}

func (m *BrowseModel) refresh() {
	m.view = m.svc.View(m.view.Query)
	m.tree.SetForest(m.view.Tasks)
	m.panel.Stats = m.view.Stats
}

func (m *BrowseModel) report(msg string, err error) {
	now := m.clock()
	var remote *storage.RemoteError
	switch {
	case err == nil:
		m.log.Add(now, msg)
	case errors.As(err, &remote):
		m.log.Add(now, msg)
		m.log.AddError(now, remote)
	default:
		m.log.AddError(now, err)
	}
}

func (m *BrowseModel) Init() tea.Cmd {
	return nil
}

func (m *BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width)
		return m, nil

	case tea.KeyMsg:
		if m.mode != modeNormal {
			return m.updateInput(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m *BrowseModel) resize(width int) {
	m.width = width
	m.tree.Width = width * 2 / 3
	m.panel.Width = width - m.tree.Width
	m.log.SetSize(width, logHeight)
	m.input.Width = width - 4
}

func (m *BrowseModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		m.tree.MoveCursor(-1)

	case "down", "j":
		m.tree.MoveCursor(1)

	case " ", "space", "x":
		if t, ok := m.tree.Selected(); ok {
			updated, err := m.svc.Toggle(m.ctx, t.ID)
			state := "reopened"
			if updated.Completed {
				state = "completed"
			}
			m.report(fmt.Sprintf("%s %q", state, t.Title), err)
			m.refresh()
		}

	case "d", "delete":
		if t, ok := m.tree.Selected(); ok {
			err := m.svc.Delete(m.ctx, t.ID)
			m.report(fmt.Sprintf("deleted %q", t.Title), err)
			m.refresh()
		}

	case "a":
		return m, m.startInput(modeAdd, "New task title", "")

	case "s":
		if _, ok := m.tree.Selected(); ok {
			return m, m.startInput(modeSubtask, "New subtask title", "")
		}

	case "/":
		return m, m.startInput(modeSearch, "Search titles and descriptions", m.view.Query.Search)

	case "f":
		m.view.Query.Status = next(statusCycle, m.view.Query.Status)
		m.refresh()

	case "v":
		m.view.Query.Unit = next(unitCycle, m.view.Query.Unit)
		m.refresh()

	case "left", "h":
		m.view.Query.Date = period.Navigate(m.view.Query.Date, period.Previous, m.view.Query.Unit)
		m.refresh()

	case "right", "l":
		m.view.Query.Date = period.Navigate(m.view.Query.Date, period.Next, m.view.Query.Unit)
		m.refresh()

	case "t":
		m.view.Query.Date = period.Today(m.clock())
		m.refresh()

	default:
		return m, m.log.Update(msg)
	}
	return m, nil
}

func (m *BrowseModel) startInput(mode inputMode, placeholder, value string) tea.Cmd {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *BrowseModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.stopInput()
		return m, nil
	case tea.KeyEnter:
		m.submit(m.input.Value())
		m.stopInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *BrowseModel) stopInput() {
	m.mode = modeNormal
	m.input.Blur()
	m.input.Reset()
}

func (m *BrowseModel) submit(value string) {
	switch m.mode {
	case modeAdd:
		t, err := m.svc.AddTask(m.ctx, tasks.NewTask{Title: value})
		m.report(fmt.Sprintf("added %q", t.Title), err)
		m.refresh()
		m.tree.Focus(t.ID)

	case modeSubtask:
		parent, ok := m.tree.Selected()
		if !ok {
			return
		}
		t, err := m.svc.AddSubtask(m.ctx, parent.ID, tasks.NewTask{Title: value})
		m.report(fmt.Sprintf("added %q under %q", t.Title, parent.Title), err)
		m.refresh()
		m.tree.Focus(t.ID)

	case modeSearch:
		m.view.Query.Search = strings.TrimSpace(value)
		m.refresh()
	}
}

func (m *BrowseModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	header := headerStyle.Render("Planner · " + m.view.Label)
	if !m.view.Current {
		header += " " + currentStyle.Render("(t to jump to today)")
	}
	s.WriteString(header)
	s.WriteString("\n")

	var filters []string
	if m.view.Query.Status != filter.StatusAll {
		filters = append(filters, "status: "+m.view.Query.Status.String())
	}
	if m.view.Query.Search != "" {
		filters = append(filters, fmt.Sprintf("search: %q", m.view.Query.Search))
	}
	if len(filters) > 0 {
		s.WriteString(helpStyle.Render(strings.Join(filters, "  ")))
		s.WriteString("\n")
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.tree.View(), m.panel.View()))
	s.WriteString("\n")
	s.WriteString(m.log.View())
	s.WriteString("\n")

	if m.mode != modeNormal {
		s.WriteString(m.input.View())
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("enter: confirm • esc: cancel"))
	} else {
		s.WriteString(helpStyle.Render("j/k: move • space: toggle • a: add • s: subtask • d: delete • /: search • f: status • v: period • h/l: prev/next • t: today • q: quit"))
	}
	s.WriteString("\n")
	return s.String()
}

func next[T comparable](cycle []T, cur T) T {
	for i, v := range cycle {
		if v == cur {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}

// RunBrowse runs the browser full screen until the user quits.
func RunBrowse(ctx context.Context, svc *planner.Service) error {
	p := tea.NewProgram(NewBrowseModel(ctx, svc, tasks.SystemClock), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
