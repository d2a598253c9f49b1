package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// SyncStore is local first. Save writes the local store and then pushes to
// every remote; Load reads the local store and falls back to the remotes,
// in order, only when it is empty or unreadable.
//
// A Load that fails holds remote pushes until a later Load succeeds, so a
// forest started from nothing never overwrites a remote copy.
type SyncStore struct {
	Local   Store
	Remotes []Store
	Logger  *slog.Logger

	held atomic.Bool
}

func NewSyncStore(local Store, logger *slog.Logger, remotes ...Store) *SyncStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SyncStore{Local: local, Remotes: remotes, Logger: logger}
}

func (s *SyncStore) Name() string { return "sync" }

func (s *SyncStore) Load(ctx context.Context) (string, error) {
	text, err := s.load(ctx)
	if err != nil {
		if !s.held.Swap(true) {
			s.Logger.Warn("load failed, holding remote sync", "error", err)
		}
		return "", err
	}
	s.held.Store(false)
	return text, nil
}

// Held reports whether remote pushes are suspended.
func (s *SyncStore) Held() bool {
	return s.held.Load()
}

func (s *SyncStore) load(ctx context.Context) (string, error) {
	text, err := s.Local.Load(ctx)
	if err == nil && text != "" {
		return text, nil
	}

	errs := []error{err}
	for _, r := range s.Remotes {
		remote, rerr := r.Load(ctx)
		if rerr != nil {
			s.Logger.Warn("remote load failed", "backend", r.Name(), "error", rerr)
			errs = append(errs, rerr)
			continue
		}
		if remote == "" {
			continue
		}
		s.Logger.Info("loaded tasks from remote", "backend", r.Name())
		if serr := s.Local.Save(ctx, remote); serr != nil {
			s.Logger.Warn("failed to cache remote tasks locally", "error", serr)
		}
		return remote, nil
	}

	if joined := errors.Join(errs...); joined != nil {
		return "", joined
	}
	return "", nil
}

// Save fails only when the local write fails. Remote failures are logged
// and returned joined as a *RemoteError so callers can surface them.
func (s *SyncStore) Save(ctx context.Context, text string) error {
	if err := s.Local.Save(ctx, text); err != nil {
		return err
	}
	if s.held.Load() && len(s.Remotes) > 0 {
		return &RemoteError{Err: ErrRemotesHeld}
	}

	var errs []error
	for _, r := range s.Remotes {
		if err := r.Save(ctx, text); err != nil {
			s.Logger.Warn("remote save failed", "backend", r.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &RemoteError{Err: errors.Join(errs...)}
	}
	return nil
}

// RemoteError wraps failures of remote legs after the local save succeeded.
type RemoteError struct {
	Err error
}

func (e *RemoteError) Error() string { return "remote sync: " + e.Err.Error() }

func (e *RemoteError) Unwrap() error { return e.Err }
