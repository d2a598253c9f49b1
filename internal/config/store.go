package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nick-dorsch/planner/internal/codec"
	"github.com/nick-dorsch/planner/internal/storage"
)

// Schema is the column set writes use.
func (c *Config) Schema() codec.Schema {
	return codec.SchemaFor(c.Features.ExtendedFields)
}

// OpenStore builds the local store for dir and, when any remote is
// configured, wraps it in a SyncStore. The returned close func releases
// database handles.
func (c *Config) OpenStore(ctx context.Context, dir string, logger *slog.Logger) (storage.Store, func() error, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	var local storage.Store
	path := c.StoragePath(dir)
	switch c.Storage.Backend {
	case "sqlite":
		s, err := storage.OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		closers = append(closers, s.Close)
		local = s
	default:
		local = storage.NewFileStore(path)
	}

	var remotes []storage.Store
	if c.Sync.Sheet.URL != "" {
		remotes = append(remotes, storage.NewSheetStore(c.Sync.Sheet.URL, c.Schema(), nil))
	}
	if b := c.Sync.Blob; b.Enabled() {
		remotes = append(remotes, storage.NewBlobStore(storage.BlobConfig{
			Account:   b.Account,
			Container: b.Container,
			Blob:      b.Blob,
			SASToken:  b.SASToken,
			Local:     b.Local,
			BaseURL:   b.BaseURL,
		}, nil))
	}
	if n := c.Sync.Neo4j; n.URI != "" {
		s, err := storage.OpenNeo4j(ctx, storage.Neo4jConfig{
			URI:      n.URI,
			Username: n.Username,
			Password: n.Password,
			Database: n.Database,
		}, c.Schema())
		if err != nil {
			logger.Warn("neo4j sync disabled", "error", err)
		} else {
			closers = append(closers, func() error { return s.Close(context.WithoutCancel(ctx)) })
			remotes = append(remotes, s)
		}
	}

	if len(remotes) == 0 {
		return local, closeAll, nil
	}
	return storage.NewSyncStore(local, logger, remotes...), closeAll, nil
}
