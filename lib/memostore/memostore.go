// Package memostore records the component instances an engine has issued,
// in SQLite.
//
// A Store is an hxwire.IdentityStore: the engine records every fingerprint
// and memo checksum it sends out and verifies incoming requests against
// them. A request for an instance the server never rendered, or one that
// replays an older memo, is rejected. Subscribed to an engine bus, the store
// forgets instances whose state was flushed.
package memostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/pthm/hxwire"
)

const schema = `
CREATE TABLE IF NOT EXISTS wire_memos (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	path       TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS wire_memos_updated ON wire_memos(updated_at);
`

// Store is a SQLite-backed hxwire.IdentityStore.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Subscriber is satisfied by *hxwire.Bus.
type Subscriber interface {
	Subscribe(fn hxwire.EventHandler) (unsubscribe func())
}

// Open opens (and if needed creates) the store at dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("memostore: open: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("memostore: set pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("memostore: create schema: %w", err)
	}

	return &Store{db: db, logger: slog.Default(), now: time.Now}, nil
}

// SetLogger sets the logger used for flush failures.
func (s *Store) SetLogger(l *slog.Logger) {
	s.logger = l
}

// Record stores checksum as the latest issued for fp. An empty prev
// registers a new instance. Otherwise the row is only updated while prev is
// still the latest checksum, so concurrent requests that verified the same
// memo cannot both advance it.
func (s *Store) Record(ctx context.Context, fp hxwire.Fingerprint, prev, checksum string) error {
	now := s.now().UnixMilli()
	if prev == "" {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO wire_memos (id, name, path, checksum, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			fp.ID, fp.Name, fp.Path, checksum, now)
		if err != nil {
			return fmt.Errorf("memostore: record %s: %w", fp.ID, err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE wire_memos SET checksum = ?, updated_at = ?
		WHERE id = ? AND name = ? AND checksum = ?`,
		checksum, now, fp.ID, fp.Name, prev)
	if err != nil {
		return fmt.Errorf("memostore: record %s: %w", fp.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("memostore: record %s: %w", fp.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: memo for %s was superseded", hxwire.ErrChecksumMismatch, fp.ID)
	}
	return nil
}

// Verify accepts fp only if it was recorded for the same component and
// checksum is the latest issued for it.
func (s *Store) Verify(ctx context.Context, fp hxwire.Fingerprint, checksum string) error {
	var name, latest string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, checksum FROM wire_memos WHERE id = ?`, fp.ID).Scan(&name, &latest)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: instance %s was not issued", hxwire.ErrFingerprintMismatch, fp.ID)
	}
	if err != nil {
		return fmt.Errorf("memostore: verify %s: %w", fp.ID, err)
	}
	if name != fp.Name {
		return fmt.Errorf("%w: instance %s belongs to %q", hxwire.ErrFingerprintMismatch, fp.ID, name)
	}
	if checksum != latest {
		return fmt.Errorf("%w: memo for %s is not the latest issued", hxwire.ErrChecksumMismatch, fp.ID)
	}
	return nil
}

// Delete forgets an instance. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM wire_memos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("memostore: delete %s: %w", id, err)
	}
	return nil
}

// Prune forgets instances not seen for longer than maxAge and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM wire_memos WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("memostore: prune: %w", err)
	}
	return res.RowsAffected()
}

// Subscribe deletes instances when a StateFlushed event is published on
// bus. It returns the unsubscribe function.
func (s *Store) Subscribe(bus Subscriber) (unsubscribe func()) {
	return bus.Subscribe(func(ctx context.Context, ev hxwire.Event) {
		flushed, ok := ev.(hxwire.StateFlushed)
		if !ok {
			return
		}
		if err := s.Delete(ctx, flushed.ComponentID); err != nil {
			s.logger.WarnContext(ctx, "flush memo", "id", flushed.ComponentID, "err", err)
		}
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ hxwire.IdentityStore = (*Store)(nil)
