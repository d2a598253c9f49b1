package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nick-dorsch/planner/embed/web"
	"github.com/nick-dorsch/planner/internal/filter"
	"github.com/nick-dorsch/planner/internal/period"
	"github.com/nick-dorsch/planner/internal/planner"
	"github.com/nick-dorsch/planner/internal/stats"
	"github.com/nick-dorsch/planner/internal/storage"
	"github.com/nick-dorsch/planner/internal/tasks"
	"github.com/nick-dorsch/planner/pkg/models"
)

// maxImportSize bounds the CSV body accepted by /api/import.
const maxImportSize = 10 << 20

type Server struct {
	svc    *planner.Service
	logger *slog.Logger
	now    func() time.Time
	server *http.Server
}

func NewServer(svc *planner.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{svc: svc, logger: logger, now: time.Now}
}

// Router wires the JSON API under /api and the browser UI at the root.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", s.handleCreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}", s.handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.handleUpdateTask).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/tasks/{id}", s.handleDeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id}/toggle", s.handleToggleTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/subtasks", s.handleCreateSubtask).Methods(http.MethodPost)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/period", s.handlePeriod).Methods(http.MethodGet)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)

	r.PathPrefix("/").Handler(http.FileServer(http.FS(web.Assets)))
	return r
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("web server listening", "addr", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type viewResponse struct {
	Period  string        `json:"period"`
	Date    string        `json:"date,omitempty"`
	Label   string        `json:"label"`
	Current bool          `json:"current"`
	Tasks   []models.Task `json:"tasks"`
	Stats   stats.Stats   `json:"stats"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, err := planner.ParseQuery(q.Get("period"), q.Get("date"), q.Get("status"), q.Get("search"), time.Local)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	v := s.svc.View(query)
	resp := viewResponse{
		Period:  v.Query.Unit.String(),
		Label:   v.Label,
		Current: v.Current,
		Tasks:   v.Tasks,
		Stats:   v.Stats,
	}
	if !v.Query.Date.IsZero() {
		resp.Date = v.Query.Date.Format(models.DueDateLayout)
	}
	s.respond(w, http.StatusOK, resp, nil)
}

type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority"`
	Completed   *bool   `json:"completed"`
	ParentID    string  `json:"parentId"`
}

func (req taskRequest) newTask() tasks.NewTask {
	var nt tasks.NewTask
	if req.Title != nil {
		nt.Title = *req.Title
	}
	if req.Description != nil {
		nt.Description = *req.Description
	}
	if req.DueDate != nil {
		nt.DueDate = *req.DueDate
	}
	if req.Category != nil && *req.Category != "" {
		nt.Category = models.ParseCategory(*req.Category)
	}
	if req.Priority != nil && *req.Priority != "" {
		nt.Priority = models.ParsePriority(*req.Priority)
	}
	return nt
}

func (req taskRequest) patch() tasks.Patch {
	p := tasks.Patch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Completed:   req.Completed,
	}
	if req.Category != nil {
		c := models.ParseCategory(*req.Category)
		p.Category = &c
	}
	if req.Priority != nil {
		pr := models.ParsePriority(*req.Priority)
		p.Priority = &pr
	}
	return p
}

func decodeTaskRequest(w http.ResponseWriter, r *http.Request) (taskRequest, bool) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTaskRequest(w, r)
	if !ok {
		return
	}

	var (
		t   models.Task
		err error
	)
	if req.ParentID != "" {
		t, err = s.svc.AddSubtask(r.Context(), req.ParentID, req.newTask())
	} else {
		t, err = s.svc.AddTask(r.Context(), req.newTask())
	}
	s.respond(w, http.StatusCreated, t, err)
}

func (s *Server) handleCreateSubtask(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTaskRequest(w, r)
	if !ok {
		return
	}

	t, err := s.svc.AddSubtask(r.Context(), mux.Vars(r)["id"], req.newTask())
	s.respond(w, http.StatusCreated, t, err)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.svc.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	s.respond(w, http.StatusOK, t, nil)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTaskRequest(w, r)
	if !ok {
		return
	}

	t, err := s.svc.Edit(r.Context(), mux.Vars(r)["id"], req.patch())
	s.respond(w, http.StatusOK, t, err)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Toggle(r.Context(), mux.Vars(r)["id"])
	s.respond(w, http.StatusOK, t, err)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Delete(r.Context(), mux.Vars(r)["id"])
	s.respond(w, http.StatusNoContent, nil, err)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.svc.Stats(), nil)
}

type periodResponse struct {
	Date    string `json:"date"`
	Label   string `json:"label"`
	Current bool   `json:"current"`
}

// handlePeriod moves the anchor date one window back or forward, or to
// today, and describes the resulting window.
func (s *Server) handlePeriod(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := s.now()

	unit, err := period.ParseUnit(q.Get("period"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date := period.Today(now)
	if d := q.Get("date"); d != "" {
		date, err = time.ParseInLocation(models.DueDateLayout, d, now.Location())
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid date %q", d), http.StatusBadRequest)
			return
		}
	}

	switch dir := q.Get("direction"); dir {
	case "":
	case "today":
		date = period.Today(now)
	default:
		d, err := period.ParseDirection(dir)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		date = period.Navigate(date, d, unit)
	}

	resp := periodResponse{
		Date:    date.Format(models.DueDateLayout),
		Label:   "All time",
		Current: period.IsCurrentPeriod(date, unit, now),
	}
	if rng, ok := period.RangeFor(date, unit); ok {
		resp.Label = period.FormatRange(rng, unit)
	}
	s.respond(w, http.StatusOK, resp, nil)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tasks.csv"`)
	if err := s.svc.ExportTo(w); err != nil {
		s.logger.Error("export failed", "error", err)
	}
}

type importResponse struct {
	Rows    int      `json:"rows"`
	Skipped int      `json:"skipped"`
	Orphans []string `json:"orphans"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("import larger than %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	report, err := s.svc.Import(r.Context(), string(body))
	s.respond(w, http.StatusOK, importResponse{
		Rows:    report.Rows,
		Skipped: report.Skipped,
		Orphans: report.Orphans,
	}, err)
}

func (s *Server) respond(w http.ResponseWriter, status int, data any, err error) {
	var remote *storage.RemoteError
	switch {
	case err == nil:
	case errors.As(err, &remote):
		// Saved locally; the remote leg is reported without failing the request.
		w.Header().Set("X-Sync-Error", remote.Error())
	case errors.Is(err, tasks.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, tasks.ErrEmptyTitle), errors.Is(err, filter.ErrUnknownStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	default:
		s.logger.Error("request failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if status == http.StatusNoContent || data == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
