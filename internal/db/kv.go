package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Revision struct {
	ID      int64
	Key     string
	Value   string
	SavedAt time.Time
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Get returns the value stored under key. ok is false when the key has
// never been written.
func (db *DB) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	return get(ctx, db, key)
}

func get(ctx context.Context, e executor, key string) (string, bool, error) {
	var value string
	err := e.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key and records a revision in the same
// transaction. Writing the value already stored is a no-op.
func (db *DB) Put(ctx context.Context, key, value string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, ok, err := get(ctx, tx, key)
	if err != nil {
		return err
	}
	if ok && current == value {
		return nil
	}

	now := time.Now().UTC().Format(timeLayout)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("failed to put %q: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO revisions (key, value, saved_at) VALUES (?, ?, ?)`, key, value, now); err != nil {
		return fmt.Errorf("failed to record revision: %w", err)
	}

	if db.KeepRevisions > 0 {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM revisions
			WHERE key = ? AND id NOT IN (
				SELECT id FROM revisions WHERE key = ? ORDER BY id DESC LIMIT ?
			)
		`, key, key, db.KeepRevisions)
		if err != nil {
			return fmt.Errorf("failed to prune revisions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Revisions lists stored revisions of key, newest first.
func (db *DB) Revisions(ctx context.Context, key string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, key, value, saved_at
		FROM revisions
		WHERE key = ?
		ORDER BY id DESC
		LIMIT ?
	`, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var r Revision
		var savedAt string
		if err := rows.Scan(&r.ID, &r.Key, &r.Value, &savedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		r.SavedAt, _ = time.Parse(timeLayout, savedAt)
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return revs, nil
}

// Delete removes key and its revisions.
func (db *DB) Delete(ctx context.Context, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}
