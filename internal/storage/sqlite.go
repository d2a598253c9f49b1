package storage

import (
	"context"

	"github.com/nick-dorsch/planner/internal/db"
)

// TasksKey is the key the forest is stored under.
const TasksKey = "plannerTasks"

// SQLiteStore keeps the forest as a single value in the kv table, with
// earlier values kept as revisions.
type SQLiteStore struct {
	db  *db.DB
	key string
}

// OpenSQLite opens (and initializes) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	d, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := d.Init(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return NewSQLiteStore(d), nil
}

func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d, key: TasksKey}
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	value, _, err := s.db.Get(ctx, s.key)
	if err != nil {
		return "", loadError(s.Name(), err)
	}
	return value, nil
}

func (s *SQLiteStore) Save(ctx context.Context, text string) error {
	if err := s.db.Put(ctx, s.key, text); err != nil {
		return saveError(s.Name(), err)
	}
	return nil
}

// Revisions returns up to limit earlier saves, newest first.
func (s *SQLiteStore) Revisions(ctx context.Context, limit int) ([]db.Revision, error) {
	revs, err := s.db.Revisions(ctx, s.key, limit)
	if err != nil {
		return nil, loadError(s.Name(), err)
	}
	return revs, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
