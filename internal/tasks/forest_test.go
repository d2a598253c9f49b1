package tasks

import (
	"errors"
	"testing"

	"github.com/nick-dorsch/planner/pkg/models"
)

func sampleForest(t *testing.T) (models.Forest, Clock) {
	t.Helper()
	clock := tick(base)
	var f models.Forest
	f = Add(f, Create(clock, NewTask{Title: "Groceries", Category: models.CategoryWork, Priority: models.PriorityHigh}))
	f = Add(f, Create(clock, NewTask{Title: "Laundry"}))

	var err error
	f, _, err = AddSubtask(clock, f, f[0].ID, NewTask{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("AddSubtask failed: %v", err)
	}
	f, _, err = AddSubtask(clock, f, f[0].ID, NewTask{Title: "Buy eggs"})
	if err != nil {
		t.Fatalf("AddSubtask failed: %v", err)
	}
	return f, clock
}

func TestAddSubtask(t *testing.T) {
	f, _ := sampleForest(t)

	parent := f[0]
	if len(parent.Subtasks) != 2 {
		t.Fatalf("Expected 2 subtasks, got %d", len(parent.Subtasks))
	}
	sub := parent.Subtasks[0]
	if sub.ParentID != parent.ID {
		t.Errorf("Expected ParentID %s, got %s", parent.ID, sub.ParentID)
	}
	if sub.Category != models.CategoryWork || sub.Priority != models.PriorityHigh {
		t.Errorf("Expected inherited work/high, got %s/%s", sub.Category, sub.Priority)
	}
	if parent.Subtasks[1].Title != "Buy eggs" {
		t.Errorf("Expected insertion order kept, got %s", parent.Subtasks[1].Title)
	}
}

func TestAddSubtaskUnknownParent(t *testing.T) {
	f, clock := sampleForest(t)
	_, _, err := AddSubtask(clock, f, "missing", NewTask{Title: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRemoveSubtaskWithoutParentID(t *testing.T) {
	f, _ := sampleForest(t)
	milk := f[0].Subtasks[0]

	out, err := Remove(f, milk.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(out[0].Subtasks) != 1 || out[0].Subtasks[0].Title != "Buy eggs" {
		t.Errorf("Expected only Buy eggs left, got %+v", out[0].Subtasks)
	}
	if len(f[0].Subtasks) != 2 {
		t.Errorf("Expected input forest untouched, got %d subtasks", len(f[0].Subtasks))
	}
}

func TestRemoveRootTakesSubtree(t *testing.T) {
	f, _ := sampleForest(t)
	milk := f[0].Subtasks[0]

	out, err := Remove(f, f[0].ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(out) != 1 || out[0].Title != "Laundry" {
		t.Fatalf("Expected only Laundry left, got %+v", out)
	}
	if _, ok := Find(out, milk.ID); ok {
		t.Error("Expected subtask to go with its parent")
	}
	if out.Len() != 1 {
		t.Errorf("Expected 1 task in total, got %d", out.Len())
	}
}

func TestRemoveUnknown(t *testing.T) {
	f, _ := sampleForest(t)
	out, err := Remove(f, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if out.Len() != f.Len() {
		t.Errorf("Expected forest unchanged")
	}
}

func TestEditNested(t *testing.T) {
	f, clock := sampleForest(t)
	eggs := f[0].Subtasks[1]
	title := "Buy a dozen eggs"

	out, err := Edit(clock, f, eggs.ID, Patch{Title: &title})
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	got, ok := Find(out, eggs.ID)
	if !ok {
		t.Fatal("Edited task not found")
	}
	if got.Title != title {
		t.Errorf("Expected title %q, got %q", title, got.Title)
	}
	if f[0].Subtasks[1].Title != "Buy eggs" {
		t.Error("Expected input forest untouched")
	}
	if out[1].ID != f[1].ID {
		t.Error("Expected sibling roots kept in order")
	}
}

func TestWalkPreOrder(t *testing.T) {
	f, _ := sampleForest(t)
	var titles []string
	var parents []string
	Walk(f, func(task models.Task, parentID string, depth int) bool {
		titles = append(titles, task.Title)
		parents = append(parents, parentID)
		return true
	})

	want := []string{"Groceries", "Buy milk", "Buy eggs", "Laundry"}
	if len(titles) != len(want) {
		t.Fatalf("Expected %d visits, got %d", len(want), len(titles))
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("visit %d: expected %s, got %s", i, want[i], titles[i])
		}
	}
	if parents[1] != f[0].ID || parents[3] != "" {
		t.Errorf("unexpected parent ids: %v", parents)
	}
}

func TestCloneIsDeep(t *testing.T) {
	f, _ := sampleForest(t)
	c := Clone(f)
	c[0].Subtasks[0].Title = "changed"
	if f[0].Subtasks[0].Title != "Buy milk" {
		t.Error("Expected clone to be independent of the original")
	}
}
