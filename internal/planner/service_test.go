package planner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nick-dorsch/planner/internal/codec"
	"github.com/nick-dorsch/planner/internal/filter"
	"github.com/nick-dorsch/planner/internal/period"
	"github.com/nick-dorsch/planner/internal/storage"
	"github.com/nick-dorsch/planner/internal/tasks"
	"github.com/nick-dorsch/planner/pkg/models"
)

type fakeStore struct {
	mu      sync.Mutex
	text    string
	saves   int
	saveErr error
	gate    chan struct{}
}

func (f *fakeStore) Name() string { return "fake" }

func (f *fakeStore) Load(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, nil
}

func (f *fakeStore) Save(ctx context.Context, text string) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.text = text
	return nil
}

func (f *fakeStore) snapshot() (string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, f.saves
}

func fixedClock() tasks.Clock {
	now := time.Date(2024, time.March, 13, 9, 30, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newTestService(store storage.Store) *Service {
	return New(store, WithClock(fixedClock()))
}

func TestAddTaskSaves(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)
	ctx := context.Background()

	task, err := s.AddTask(ctx, tasks.NewTask{Title: "  Groceries  "})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if task.Title != "Groceries" {
		t.Errorf("Expected trimmed title, got %q", task.Title)
	}

	text, saves := store.snapshot()
	if saves != 1 {
		t.Errorf("Expected 1 save, got %d", saves)
	}
	if !strings.Contains(text, task.ID) {
		t.Errorf("Expected saved text to contain %s, got %q", task.ID, text)
	}
}

func TestAddTaskRejectsBlankTitle(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)

	if _, err := s.AddTask(context.Background(), tasks.NewTask{Title: "   "}); !errors.Is(err, tasks.ErrEmptyTitle) {
		t.Errorf("Expected ErrEmptyTitle, got %v", err)
	}
	if _, saves := store.snapshot(); saves != 0 {
		t.Errorf("Expected no save, got %d", saves)
	}
}

func TestSubtaskToggleAndDelete(t *testing.T) {
	s := newTestService(&fakeStore{})
	ctx := context.Background()

	parent, err := s.AddTask(ctx, tasks.NewTask{Title: "Groceries", Category: models.CategoryWork})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	child, err := s.AddSubtask(ctx, parent.ID, tasks.NewTask{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("AddSubtask failed: %v", err)
	}
	if child.Category != models.CategoryWork {
		t.Errorf("Expected subtask to inherit category work, got %s", child.Category)
	}

	toggled, err := s.Toggle(ctx, parent.ID)
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !toggled.Completed || !toggled.Subtasks[0].Completed {
		t.Error("Expected parent and subtask to be completed")
	}

	if err := s.Delete(ctx, child.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, ok := s.Get(parent.ID)
	if !ok || len(got.Subtasks) != 0 {
		t.Errorf("Expected parent without subtasks, got %+v", got)
	}

	if err := s.Delete(ctx, "missing"); !errors.Is(err, tasks.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEdit(t *testing.T) {
	s := newTestService(&fakeStore{})
	ctx := context.Background()

	task, _ := s.AddTask(ctx, tasks.NewTask{Title: "Draft"})
	title := "Final"
	edited, err := s.Edit(ctx, task.ID, tasks.Patch{Title: &title})
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if edited.Title != "Final" {
		t.Errorf("Expected Final, got %q", edited.Title)
	}
	if !edited.UpdatedAt.After(task.UpdatedAt) {
		t.Error("Expected UpdatedAt to advance")
	}

	blank := " "
	if _, err := s.Edit(ctx, task.ID, tasks.Patch{Title: &blank}); !errors.Is(err, tasks.ErrEmptyTitle) {
		t.Errorf("Expected ErrEmptyTitle, got %v", err)
	}
}

func TestSaveErrorKeepsChange(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	s := newTestService(store)

	task, err := s.AddTask(context.Background(), tasks.NewTask{Title: "Groceries"})
	if err == nil {
		t.Fatal("Expected save error")
	}
	if _, ok := s.Get(task.ID); !ok {
		t.Error("Expected task to stay in memory after a failed save")
	}
	if s.LastSaveError() == nil {
		t.Error("Expected LastSaveError to be set")
	}
}

func TestLoadAndExport(t *testing.T) {
	text := "id,title,description,completed,createdAt,updatedAt,dueDate,parentId,category,priority\n" +
		"p,Groceries,,false,2024-03-13T09:30:00.000Z,2024-03-13T09:30:00.000Z,,,personal,medium\n" +
		"c,Buy milk,,true,2024-03-13T09:31:00.000Z,2024-03-13T09:32:00.000Z,,p,personal,medium\n"
	store := &fakeStore{text: text}
	s := newTestService(store)

	report, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if report.Rows != 2 {
		t.Errorf("Expected 2 rows, got %d", report.Rows)
	}
	if got := s.Export(); got != text {
		t.Errorf("Expected export to match loaded text, got %q", got)
	}
	if st := s.Stats(); st.Total != 2 || st.Completed != 1 {
		t.Errorf("Expected 2 total, 1 completed, got %+v", st)
	}
}

func TestExportSchemaV1(t *testing.T) {
	s := New(&fakeStore{}, WithClock(fixedClock()), WithSchema(codec.SchemaV1))
	if _, err := s.AddTask(context.Background(), tasks.NewTask{Title: "A"}); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	header := strings.SplitN(s.Export(), "\n", 2)[0]
	if header != "id,title,description,completed,createdAt,updatedAt,dueDate,parentId" {
		t.Errorf("Unexpected header %q", header)
	}
}

func TestImportStoresTextAsGiven(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)
	text := "id,title\na,Imported\nb,Child\n"

	report, err := s.Import(context.Background(), text)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Rows != 2 {
		t.Errorf("Expected 2 rows, got %d", report.Rows)
	}
	if got, _ := store.snapshot(); got != text {
		t.Errorf("Expected imported text to be stored verbatim, got %q", got)
	}
	if len(s.Tasks()) != 2 {
		t.Errorf("Expected 2 root tasks, got %d", len(s.Tasks()))
	}
}

func TestImportKeepsGeneratedIDsAcrossLoads(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)

	report, err := s.Import(context.Background(), "id,title\n,Pay rent\n")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if report.Generated != 1 {
		t.Fatalf("Expected 1 generated id, got %d", report.Generated)
	}
	id := s.Tasks()[0].ID

	reloaded := newTestService(store)
	if _, err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := reloaded.Tasks()[0].ID; got != id {
		t.Fatalf("Expected id %s after reload, got %s", id, got)
	}
	toggled, err := reloaded.Toggle(context.Background(), id)
	if err != nil {
		t.Fatalf("Toggle after reload failed: %v", err)
	}
	if !toggled.Completed || toggled.Title != "Pay rent" {
		t.Errorf("Unexpected toggled task %+v", toggled)
	}
}

func TestLoadWritesBackGeneratedIDs(t *testing.T) {
	store := &fakeStore{text: "id,title\n,Water plants\n"}
	s := newTestService(store)

	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	id := s.Tasks()[0].ID

	text, saves := store.snapshot()
	if saves != 1 {
		t.Fatalf("Expected generated ids to be saved once, got %d saves", saves)
	}
	if !strings.Contains(text, id) {
		t.Errorf("Expected stored text to carry id %s, got %q", id, text)
	}
}

func TestView(t *testing.T) {
	s := newTestService(&fakeStore{})
	ctx := context.Background()

	a, _ := s.AddTask(ctx, tasks.NewTask{Title: "Groceries"})
	s.AddSubtask(ctx, a.ID, tasks.NewTask{Title: "Buy milk"})
	s.AddTask(ctx, tasks.NewTask{Title: "Gym"})

	v := s.View(filter.Query{Unit: period.Week, Search: "milk"})
	if !v.Current {
		t.Error("Expected the current week to be flagged current")
	}
	if v.Label != "Mar 11 - Mar 17, 2024" {
		t.Errorf("Unexpected label %q", v.Label)
	}
	if len(v.Tasks) != 1 || len(v.Tasks[0].Subtasks) != 1 {
		t.Errorf("Expected Groceries with one subtask, got %+v", v.Tasks)
	}
	if v.Stats.Total != 2 {
		t.Errorf("Expected stats over 2 visible tasks, got %d", v.Stats.Total)
	}

	past := s.View(filter.Query{Unit: period.Week, Date: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)})
	if past.Current || len(past.Tasks) != 0 {
		t.Errorf("Expected an empty, non-current past week, got %+v", past)
	}

	all := s.View(filter.Query{})
	if !all.Current || all.Label != "All time" || all.Stats.Total != 3 {
		t.Errorf("Unexpected all-time view %+v", all)
	}
}

func TestBackgroundSavesCoalesce(t *testing.T) {
	store := &fakeStore{gate: make(chan struct{})}
	s := newTestService(store)
	ctx := context.Background()
	s.Start(ctx)

	// First save blocks in the store; the rest fold into one queued save.
	for i := 0; i < 5; i++ {
		if _, err := s.AddTask(ctx, tasks.NewTask{Title: "Task"}); err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
	}
	close(store.gate)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	text, saves := store.snapshot()
	if saves < 1 || saves > 2 {
		t.Errorf("Expected 1 or 2 saves, got %d", saves)
	}
	forest, _ := codec.Decode(text)
	if len(forest) != 5 {
		t.Errorf("Expected final save to hold 5 tasks, got %d", len(forest))
	}
}

func TestCloseRestoresSyncSave(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store)
	s.Start(context.Background())
	s.Close()

	if _, err := s.AddTask(context.Background(), tasks.NewTask{Title: "After"}); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if _, saves := store.snapshot(); saves != 1 {
		t.Errorf("Expected a synchronous save after Close, got %d", saves)
	}
}
