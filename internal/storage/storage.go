// Package storage persists the serialized task forest.
//
// Every backend moves the same CSV text the codec produces. Backends that
// keep tasks in a native shape (graph nodes, sheet rows) convert through
// codec.Rows and codec.Build at their edge.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrLoad = errors.New("load failed")
	ErrSave = errors.New("save failed")

	// ErrRemotesHeld is reported by SyncStore.Save while remote pushes are
	// suspended after a failed load.
	ErrRemotesHeld = errors.New("remote sync held after failed load")
)

// Store loads and saves the serialized forest. Load returns "" when nothing
// has been saved yet.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, text string) error
	Name() string
}

// Error reports a failed load or save against a named backend. It matches
// ErrLoad or ErrSave with errors.Is depending on Op.
type Error struct {
	Op      string
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	op := ErrSave
	if e.Op == "load" {
		op = ErrLoad
	}
	return []error{op, e.Err}
}

func loadError(backend string, err error) error {
	return &Error{Op: "load", Backend: backend, Err: err}
}

func saveError(backend string, err error) error {
	return &Error{Op: "save", Backend: backend, Err: err}
}
