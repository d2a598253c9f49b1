package planner

import (
	"context"
	"errors"
)

var ErrSavePending = errors.New("save already pending")

// saveQueue holds at most one pending save. A change made while a save is
// already queued is folded into it, since the worker always writes the
// latest snapshot.
type saveQueue struct {
	pending chan struct{}
	done    chan struct{}
}

func newSaveQueue() *saveQueue {
	return &saveQueue{
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (q *saveQueue) Enqueue() error {
	select {
	case q.pending <- struct{}{}:
		return nil
	default:
		return ErrSavePending
	}
}

// run drains the queue until it is closed. ctx is handed to every save.
func (q *saveQueue) run(ctx context.Context, save func(context.Context) error) {
	defer close(q.done)
	for range q.pending {
		_ = save(ctx)
	}
}

// close stops accepting saves and waits for the one in flight.
func (q *saveQueue) close() {
	close(q.pending)
	<-q.done
}
