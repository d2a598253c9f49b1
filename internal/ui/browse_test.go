package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nick-dorsch/planner/internal/filter"
	"github.com/nick-dorsch/planner/internal/period"
	"github.com/nick-dorsch/planner/internal/planner"
	"github.com/nick-dorsch/planner/internal/storage"
)

func newBrowseModel(t *testing.T) (*BrowseModel, *planner.Service, string) {
	t.Helper()
	now := time.Date(2024, 3, 13, 9, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	path := filepath.Join(t.TempDir(), "tasks.csv")
	svc := planner.New(storage.NewFileStore(path), planner.WithClock(clock))
	return NewBrowseModel(context.Background(), svc, clock), svc, path
}

func send(t *testing.T, m *BrowseModel, msgs ...tea.Msg) {
	t.Helper()
	for _, msg := range msgs {
		model, _ := m.Update(msg)
		if model.(*BrowseModel) != m {
			t.Fatalf("expected Update to return the same model")
		}
	}
}

func typeLine(t *testing.T, m *BrowseModel, text string) {
	t.Helper()
	send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)}, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestBrowseAddAndSubtask(t *testing.T) {
	m, svc, path := newBrowseModel(t)

	if !strings.Contains(m.View(), "No tasks in this period") {
		t.Fatalf("expected empty placeholder, got:\n%s", m.View())
	}

	send(t, m, key("a"))
	if m.mode != modeAdd {
		t.Fatalf("expected add mode after 'a'")
	}
	typeLine(t, m, "Groceries")
	if m.mode != modeNormal {
		t.Errorf("expected normal mode after enter")
	}

	forest := svc.Tasks()
	if len(forest) != 1 || forest[0].Title != "Groceries" {
		t.Fatalf("expected one task Groceries, got %+v", forest)
	}

	send(t, m, key("s"))
	typeLine(t, m, "Buy milk")

	forest = svc.Tasks()
	if len(forest[0].Subtasks) != 1 || forest[0].Subtasks[0].Title != "Buy milk" {
		t.Fatalf("expected subtask Buy milk, got %+v", forest[0].Subtasks)
	}
	if sel, _ := m.tree.Selected(); sel.Title != "Buy milk" {
		t.Errorf("expected cursor on new subtask, got %q", sel.Title)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected saved file: %v", err)
	}
	if !strings.Contains(string(data), "Buy milk") {
		t.Errorf("expected saved csv to contain subtask, got %q", data)
	}
	if m.log.Len() != 2 {
		t.Errorf("expected 2 log entries, got %d", m.log.Len())
	}
}

func TestBrowseEscCancelsInput(t *testing.T) {
	m, svc, _ := newBrowseModel(t)
	send(t, m, key("a"), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("never")}, tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeNormal {
		t.Errorf("expected normal mode after esc")
	}
	if len(svc.Tasks()) != 0 {
		t.Errorf("expected no task after esc")
	}
}

func TestBrowseBlankTitleIsLogged(t *testing.T) {
	m, svc, _ := newBrowseModel(t)
	send(t, m, key("a"))
	typeLine(t, m, "   ")
	if len(svc.Tasks()) != 0 {
		t.Errorf("expected blank title rejected")
	}
	if !strings.Contains(m.log.View(), "error:") {
		t.Errorf("expected error in activity log")
	}
}

func TestBrowseToggleAndDelete(t *testing.T) {
	m, svc, _ := newBrowseModel(t)
	send(t, m, key("a"))
	typeLine(t, m, "Taxes")

	send(t, m, key("x"))
	if !svc.Tasks()[0].Completed {
		t.Fatalf("expected task completed after toggle")
	}
	if m.panel.Stats.CompletionRate != 100 {
		t.Errorf("expected 100%% completion, got %d", m.panel.Stats.CompletionRate)
	}

	send(t, m, key("f"))
	if m.Query().Status != filter.StatusPending {
		t.Errorf("expected pending filter, got %s", m.Query().Status)
	}
	if len(m.tree.Lines()) != 0 {
		t.Errorf("expected completed task hidden by pending filter")
	}
	send(t, m, key("f"), key("f"))
	if m.Query().Status != filter.StatusAll {
		t.Errorf("expected status filter to cycle back to all")
	}

	send(t, m, key("d"))
	if len(svc.Tasks()) != 0 {
		t.Errorf("expected task deleted")
	}
}

func TestBrowseNavigation(t *testing.T) {
	m, _, _ := newBrowseModel(t)

	if !strings.Contains(m.View(), "Mar 11 - Mar 17, 2024") {
		t.Errorf("expected week label, got:\n%s", m.View())
	}

	send(t, m, key("v"))
	if m.Query().Unit != period.Month {
		t.Fatalf("expected month unit, got %s", m.Query().Unit)
	}

	send(t, m, key("h"))
	if !strings.Contains(m.View(), "February 2024") {
		t.Errorf("expected previous month label")
	}
	if !strings.Contains(m.View(), "t to jump to today") {
		t.Errorf("expected hint when not on the current period")
	}

	send(t, m, key("t"))
	if !strings.Contains(m.View(), "March 2024") {
		t.Errorf("expected current month after 't'")
	}

	send(t, m, key("v"), key("v"))
	if m.Query().Unit != period.All {
		t.Errorf("expected all unit, got %s", m.Query().Unit)
	}
	if !strings.Contains(m.View(), "All time") {
		t.Errorf("expected All time label")
	}
}

func TestBrowseSearch(t *testing.T) {
	m, _, _ := newBrowseModel(t)
	for _, title := range []string{"Buy milk", "Taxes"} {
		send(t, m, key("a"))
		typeLine(t, m, title)
	}

	send(t, m, key("/"))
	typeLine(t, m, "  MILK ")
	if m.Query().Search != "MILK" {
		t.Errorf("expected trimmed search, got %q", m.Query().Search)
	}
	if len(m.tree.Lines()) != 1 {
		t.Errorf("expected 1 visible task, got %d", len(m.tree.Lines()))
	}
	if !strings.Contains(m.View(), `search: "MILK"`) {
		t.Errorf("expected search shown in header")
	}
}

func TestBrowseQuit(t *testing.T) {
	m, _, _ := newBrowseModel(t)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Error("expected quit command")
	}
	if m.View() != "" {
		t.Error("expected empty view after quitting")
	}
}
