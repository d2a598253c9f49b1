package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/nick-dorsch/planner/internal/planner"
	"github.com/nick-dorsch/planner/internal/storage"
	"github.com/nick-dorsch/planner/internal/tasks"
	"github.com/nick-dorsch/planner/pkg/models"
)

func testClock() time.Time {
	return time.Date(2024, time.March, 13, 9, 30, 0, 0, time.UTC)
}

func newTestServer(t *testing.T) (*Server, *planner.Service, *mux.Router) {
	t.Helper()
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "tasks.csv"))
	svc := planner.New(store, planner.WithClock(testClock))
	srv := NewServer(svc, nil)
	srv.now = testClock
	return srv, svc, srv.Router()
}

func do(t *testing.T, h http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_API(t *testing.T) {
	_, svc, router := newTestServer(t)
	ctx := context.Background()

	parent, err := svc.AddTask(ctx, tasks.NewTask{Title: "Groceries"})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	var child models.Task

	t.Run("POST /api/tasks/{id}/subtasks", func(t *testing.T) {
		w := do(t, router, "POST", "/api/tasks/"+parent.ID+"/subtasks", `{"title":"Buy milk","priority":"high"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status Created, got %v: %s", w.Code, w.Body.String())
		}
		if err := json.Unmarshal(w.Body.Bytes(), &child); err != nil {
			t.Fatalf("Failed to unmarshal task: %v", err)
		}
		if child.ParentID != parent.ID || child.Priority != models.PriorityHigh {
			t.Errorf("Unexpected subtask %+v", child)
		}
	})

	t.Run("POST /api/tasks", func(t *testing.T) {
		w := do(t, router, "POST", "/api/tasks", `{"title":"Gym","category":"work","dueDate":"2024-03-10"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status Created, got %v", w.Code)
		}
		var task models.Task
		json.Unmarshal(w.Body.Bytes(), &task)
		if task.Category != models.CategoryWork || task.DueDate != "2024-03-10" {
			t.Errorf("Unexpected task %+v", task)
		}
	})

	t.Run("POST /api/tasks blank title", func(t *testing.T) {
		w := do(t, router, "POST", "/api/tasks", `{"title":"  "}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status BadRequest, got %v", w.Code)
		}
	})

	t.Run("POST /api/tasks bad json", func(t *testing.T) {
		w := do(t, router, "POST", "/api/tasks", `{`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status BadRequest, got %v", w.Code)
		}
	})

	t.Run("GET /api/tasks", func(t *testing.T) {
		w := do(t, router, "GET", "/api/tasks?period=week&search=milk", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}
		var resp viewResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to unmarshal view: %v", err)
		}
		if resp.Label != "Mar 11 - Mar 17, 2024" || !resp.Current {
			t.Errorf("Unexpected window %q current=%v", resp.Label, resp.Current)
		}
		if len(resp.Tasks) != 1 || len(resp.Tasks[0].Subtasks) != 1 {
			t.Errorf("Expected Groceries with one subtask, got %+v", resp.Tasks)
		}
		if resp.Stats.Total != 2 {
			t.Errorf("Expected 2 visible tasks, got %d", resp.Stats.Total)
		}
	})

	t.Run("GET /api/tasks bad status", func(t *testing.T) {
		w := do(t, router, "GET", "/api/tasks?status=later", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status BadRequest, got %v", w.Code)
		}
	})

	t.Run("GET /api/tasks/{id}", func(t *testing.T) {
		w := do(t, router, "GET", "/api/tasks/"+child.ID, "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}
		w = do(t, router, "GET", "/api/tasks/missing", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status NotFound, got %v", w.Code)
		}
	})

	t.Run("PATCH /api/tasks/{id}", func(t *testing.T) {
		w := do(t, router, "PATCH", "/api/tasks/"+child.ID, `{"description":"2 litres"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}
		got, _ := svc.Get(child.ID)
		if got.Description != "2 litres" || got.Title != "Buy milk" {
			t.Errorf("Unexpected task after patch %+v", got)
		}
	})

	t.Run("POST /api/tasks/{id}/toggle", func(t *testing.T) {
		w := do(t, router, "POST", "/api/tasks/"+parent.ID+"/toggle", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}
		got, _ := svc.Get(child.ID)
		if !got.Completed {
			t.Error("Expected subtask completed by cascade")
		}
	})

	t.Run("GET /api/stats", func(t *testing.T) {
		w := do(t, router, "GET", "/api/stats", "")
		var st struct {
			Total          int `json:"total"`
			Completed      int `json:"completed"`
			CompletionRate int `json:"completionRate"`
			Overdue        int `json:"overdue"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
			t.Fatalf("Failed to unmarshal stats: %v", err)
		}
		if st.Total != 3 || st.Completed != 2 || st.CompletionRate != 67 || st.Overdue != 1 {
			t.Errorf("Unexpected stats %+v", st)
		}
	})

	t.Run("DELETE /api/tasks/{id}", func(t *testing.T) {
		w := do(t, router, "DELETE", "/api/tasks/"+parent.ID, "")
		if w.Code != http.StatusNoContent {
			t.Fatalf("Expected status NoContent, got %v", w.Code)
		}
		w = do(t, router, "DELETE", "/api/tasks/"+parent.ID, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status NotFound, got %v", w.Code)
		}
	})
}

func TestServer_Period(t *testing.T) {
	_, _, router := newTestServer(t)

	tests := []struct {
		query   string
		date    string
		label   string
		current bool
	}{
		{"period=week", "2024-03-13", "Mar 11 - Mar 17, 2024", true},
		{"period=week&date=2024-03-13&direction=prev", "2024-03-06", "Mar 04 - Mar 10, 2024", false},
		{"period=month&date=2024-01-31&direction=next", "2024-02-29", "February 2024", false},
		{"period=year&date=2020-06-01&direction=today", "2024-03-13", "2024", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, router, "GET", "/api/period?"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
			}
			var resp periodResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}
			if resp.Date != tt.date || resp.Label != tt.label || resp.Current != tt.current {
				t.Errorf("Expected {%s %s %v}, got %+v", tt.date, tt.label, tt.current, resp)
			}
		})
	}

	w := do(t, router, "GET", "/api/period?period=decade", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status BadRequest, got %v", w.Code)
	}
}

func TestServer_ExportImport(t *testing.T) {
	_, svc, router := newTestServer(t)

	csv := "id,title,description,completed,createdAt,updatedAt,dueDate,parentId,category,priority\n" +
		"p,Groceries,,false,2024-03-13T09:30:00.000Z,2024-03-13T09:30:00.000Z,,,personal,medium\n" +
		"c,Buy milk,,false,2024-03-13T09:31:00.000Z,2024-03-13T09:31:00.000Z,,p,personal,medium\n"

	req := httptest.NewRequest("POST", "/api/import", bytes.NewBufferString(csv))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
	}
	var report importResponse
	json.Unmarshal(w.Body.Bytes(), &report)
	if report.Rows != 2 || report.Skipped != 0 {
		t.Errorf("Unexpected import report %+v", report)
	}
	if len(svc.Tasks()) != 1 {
		t.Errorf("Expected 1 root task, got %d", len(svc.Tasks()))
	}

	w = do(t, router, "GET", "/api/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Expected text/csv, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "tasks.csv") {
		t.Errorf("Expected tasks.csv attachment, got %q", cd)
	}
	if w.Body.String() != csv {
		t.Errorf("Expected export to match import\nwant %q\ngot  %q", csv, w.Body.String())
	}
}

func TestServer_ImportTooLarge(t *testing.T) {
	_, svc, router := newTestServer(t)

	w := do(t, router, "POST", "/api/tasks", `{"title":"Keep me"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status Created, got %v: %s", w.Code, w.Body.String())
	}

	row := "r,Row,,false,2024-03-13T09:30:00.000Z,2024-03-13T09:30:00.000Z,,,personal,medium\n"
	body := "id,title,description,completed,createdAt,updatedAt,dueDate,parentId,category,priority\n" +
		strings.Repeat(row, maxImportSize/len(row)+1)

	req := httptest.NewRequest("POST", "/api/import", strings.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected status 413, got %v", w.Code)
	}

	forest := svc.Tasks()
	if len(forest) != 1 || forest[0].Title != "Keep me" {
		t.Errorf("Expected tasks untouched by rejected import, got %+v", forest)
	}
}
