// Package planner owns the in-memory task forest and keeps it persisted.
//
// Every mutation replaces the forest with a new value built by the tasks
// package, then fires the change hook. By default the hook saves
// synchronously and the mutation returns the save error; after Start, saves
// run on a background worker behind a single-slot queue.
package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nick-dorsch/planner/internal/codec"
	"github.com/nick-dorsch/planner/internal/filter"
	"github.com/nick-dorsch/planner/internal/period"
	"github.com/nick-dorsch/planner/internal/stats"
	"github.com/nick-dorsch/planner/internal/storage"
	"github.com/nick-dorsch/planner/internal/tasks"
	"github.com/nick-dorsch/planner/pkg/models"
)

type Service struct {
	mu     sync.RWMutex
	forest models.Forest

	store  storage.Store
	schema codec.Schema
	clock  tasks.Clock
	logger *slog.Logger

	saveMu  sync.Mutex
	lastErr error

	onChangeMu sync.RWMutex
	onChange   func(ctx context.Context) error
	queue      *saveQueue
}

type Option func(*Service)

func WithClock(clock tasks.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithSchema selects the column set used when saving and exporting.
func WithSchema(schema codec.Schema) Option {
	return func(s *Service) { s.schema = schema }
}

func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		forest: models.Forest{},
		store:  store,
		schema: codec.SchemaV2,
		clock:  tasks.SystemClock,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.onChange = s.Save
	return s
}

func (s *Service) SetOnChange(fn func(ctx context.Context) error) {
	s.onChangeMu.Lock()
	defer s.onChangeMu.Unlock()
	s.onChange = fn
}

// triggerChange holds the hook lock while the hook runs so Close cannot
// shut the queue under an in-flight enqueue.
func (s *Service) triggerChange(ctx context.Context) error {
	s.onChangeMu.RLock()
	defer s.onChangeMu.RUnlock()

	fn := s.onChange
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Start moves saving onto a background worker. Mutations then return as
// soon as the forest is updated; save failures are logged and reported by
// LastSaveError. Call Close to flush.
func (s *Service) Start(ctx context.Context) {
	s.onChangeMu.Lock()
	defer s.onChangeMu.Unlock()
	if s.queue != nil {
		return
	}

	q := newSaveQueue()
	s.queue = q
	go q.run(context.WithoutCancel(ctx), s.Save)
	s.onChange = func(context.Context) error {
		if err := q.Enqueue(); errors.Is(err, ErrSavePending) {
			s.logger.Debug("save coalesced")
		}
		return nil
	}
}

// Close waits for a queued save and restores synchronous saving.
func (s *Service) Close() error {
	s.onChangeMu.Lock()
	q := s.queue
	s.queue = nil
	s.onChange = s.Save
	s.onChangeMu.Unlock()

	if q != nil {
		q.close()
	}
	return s.LastSaveError()
}

// Load replaces the forest with whatever the store holds.
func (s *Service) Load(ctx context.Context) (codec.Report, error) {
	text, err := s.store.Load(ctx)
	if err != nil {
		return codec.Report{}, err
	}

	f, report := codec.Decode(text)
	if report.Skipped > 0 || len(report.Orphans) > 0 {
		s.logger.Warn("loaded tasks with problems",
			"skipped", report.Skipped, "orphans", len(report.Orphans))
	}

	s.mu.Lock()
	s.forest = f
	s.mu.Unlock()

	s.logger.Debug("loaded tasks", "backend", s.store.Name(), "count", f.Len())

	// Rows without ids got fresh ones; write them back so they stay put.
	if report.Generated > 0 {
		_ = s.Save(ctx)
	}
	return report, nil
}

// Save writes the current forest to the store. Concurrent saves are
// serialized and each one writes the forest as of when it started.
func (s *Service) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	text := s.Export()
	err := s.store.Save(ctx, text)
	s.lastErr = err

	var remote *storage.RemoteError
	switch {
	case errors.As(err, &remote):
		s.logger.Warn("saved locally, remote sync failed", "error", err)
	case err != nil:
		s.logger.Error("failed to save tasks", "backend", s.store.Name(), "error", err)
	default:
		s.logger.Debug("saved tasks", "backend", s.store.Name(), "bytes", len(text))
	}
	return err
}

func (s *Service) LastSaveError() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.lastErr
}

// Tasks returns a deep copy of the forest.
func (s *Service) Tasks() models.Forest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tasks.Clone(s.forest)
}

func (s *Service) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := tasks.Find(s.forest, id)
	if !ok {
		return models.Task{}, false
	}
	return tasks.Clone(models.Forest{t})[0], true
}

// mutate applies fn to the forest under the lock and fires the change hook
// once the lock is released.
func (s *Service) mutate(ctx context.Context, fn func(models.Forest) (models.Forest, error)) error {
	s.mu.Lock()
	next, err := fn(s.forest)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.forest = next
	s.mu.Unlock()

	return s.triggerChange(ctx)
}

// AddTask creates a root task. The title must not be blank.
func (s *Service) AddTask(ctx context.Context, nt tasks.NewTask) (models.Task, error) {
	title, err := tasks.ValidateTitle(nt.Title)
	if err != nil {
		return models.Task{}, err
	}
	nt.Title = title
	nt.ParentID = ""

	t := tasks.Create(s.clock, nt)
	err = s.mutate(ctx, func(f models.Forest) (models.Forest, error) {
		return tasks.Add(f, t), nil
	})
	s.logger.Debug("added task", "id", t.ID)
	return t, err
}

// AddSubtask creates a task under parentID, at any depth.
func (s *Service) AddSubtask(ctx context.Context, parentID string, nt tasks.NewTask) (models.Task, error) {
	title, err := tasks.ValidateTitle(nt.Title)
	if err != nil {
		return models.Task{}, err
	}
	nt.Title = title

	var created models.Task
	err = s.mutate(ctx, func(f models.Forest) (models.Forest, error) {
		next, t, err := tasks.AddSubtask(s.clock, f, parentID, nt)
		if err != nil {
			return nil, fmt.Errorf("failed to add subtask to %s: %w", parentID, err)
		}
		created = t
		return next, nil
	})
	if created.ID != "" {
		s.logger.Debug("added subtask", "id", created.ID, "parent", parentID)
	}
	return created, err
}

func (s *Service) Edit(ctx context.Context, id string, p tasks.Patch) (models.Task, error) {
	if p.Title != nil {
		title, err := tasks.ValidateTitle(*p.Title)
		if err != nil {
			return models.Task{}, err
		}
		p.Title = &title
	}

	var edited models.Task
	err := s.mutate(ctx, func(f models.Forest) (models.Forest, error) {
		next, err := tasks.Edit(s.clock, f, id, p)
		if err != nil {
			return nil, fmt.Errorf("failed to edit %s: %w", id, err)
		}
		edited, _ = tasks.Find(next, id)
		return next, nil
	})
	return edited, err
}

// Toggle flips completion. Completing a task completes its direct
// subtasks too.
func (s *Service) Toggle(ctx context.Context, id string) (models.Task, error) {
	var toggled models.Task
	err := s.mutate(ctx, func(f models.Forest) (models.Forest, error) {
		next, err := tasks.ToggleByID(s.clock, f, id)
		if err != nil {
			return nil, fmt.Errorf("failed to toggle %s: %w", id, err)
		}
		toggled, _ = tasks.Find(next, id)
		return next, nil
	})
	return toggled, err
}

// Delete removes the task and its whole subtree.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(f models.Forest) (models.Forest, error) {
		next, err := tasks.Remove(f, id)
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s: %w", id, err)
		}
		return next, nil
	})
	if err == nil {
		s.logger.Debug("deleted task", "id", id)
	}
	return err
}

// Export renders the forest in the configured schema.
func (s *Service) Export() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return codec.Encode(s.forest, s.schema)
}

func (s *Service) ExportTo(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return codec.EncodeTo(w, s.forest, s.schema)
}

// Import replaces the forest with the decoded text and stores the text as
// given. When rows had to be given ids, the decoded forest is stored instead
// so those ids survive the next load.
func (s *Service) Import(ctx context.Context, text string) (codec.Report, error) {
	f, report := codec.Decode(text)

	s.mu.Lock()
	s.forest = f
	s.mu.Unlock()

	s.logger.Info("imported tasks", "rows", report.Rows, "skipped", report.Skipped,
		"orphans", len(report.Orphans), "generated_ids", report.Generated)

	if report.Generated > 0 {
		text = codec.Encode(f, s.schema)
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	err := s.store.Save(ctx, text)
	s.lastErr = err
	return report, err
}

// View is a filtered window onto the forest.
type View struct {
	Query   filter.Query
	Tasks   models.Forest
	Stats   stats.Stats
	Label   string
	Current bool
}

// View applies q. A windowed query with no date is anchored on today.
// Stats describe the visible tasks only.
func (s *Service) View(q filter.Query) View {
	now := s.clock()
	if q.Date.IsZero() && q.Unit != period.All {
		q.Date = now
	}

	s.mu.RLock()
	visible := q.Apply(s.forest)
	s.mu.RUnlock()

	v := View{
		Query:   q,
		Tasks:   tasks.Clone(visible),
		Stats:   stats.ComputeAt(visible, now),
		Label:   "All time",
		Current: true,
	}
	if r, ok := q.Range(); ok {
		v.Label = period.FormatRange(r, q.Unit)
		v.Current = period.IsCurrentPeriod(q.Date, q.Unit, now)
	}
	return v
}

// Stats covers the whole forest.
func (s *Service) Stats() stats.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stats.ComputeAt(s.forest, s.clock())
}
