// Package store handles SQLite persistence of typing scores.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tuipesync/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

const metaAnonymousID = "anonymous_id"

const scoreColumns = `id, owner_user_id, owner_anonymous_id, wpm, accuracy, word_count, duration_seconds, date, synced`

// Store wraps SQLite access for score records.
type Store struct {
	db *sql.DB
	// writes are serialized; reads go straight to the pool
	writeMu sync.Mutex
}

// Open opens or creates the SQLite database and applies migrations.
// Any failure is reported as model.ErrStorageUnavailable.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_user_id TEXT,
			owner_anonymous_id TEXT,
			wpm REAL NOT NULL,
			accuracy REAL NOT NULL,
			word_count INTEGER NOT NULL,
			duration_seconds REAL NOT NULL,
			date TEXT NOT NULL,
			synced INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_date ON scores(date);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_wpm ON scores(wpm);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_synced ON scores(synced);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_owner_user_id ON scores(owner_user_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save stores a finalized score and returns its local id.
func (s *Store) Save(ctx context.Context, score model.Score) (int64, error) {
	if err := score.Validate(); err != nil {
		return 0, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (owner_user_id, owner_anonymous_id, wpm, accuracy, word_count, duration_seconds, date, synced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(score.Owner.UserID),
		nullString(score.Owner.AnonymousID),
		score.WPM,
		score.Accuracy,
		score.WordCount,
		score.DurationSeconds,
		score.Date.UTC().Format(time.RFC3339Nano),
		score.Synced,
	)
	if err != nil {
		return 0, fmt.Errorf("save score: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save score: %w", err)
	}
	return id, nil
}

// Get returns a single score by local id.
func (s *Store) Get(ctx context.Context, id int64) (model.Score, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scoreColumns+` FROM scores WHERE id = ?`, id)
	score, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Score{}, fmt.Errorf("score %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Score{}, fmt.Errorf("get score %d: %w", id, err)
	}
	return score, nil
}

// GetAll returns every stored score, newest first.
func (s *Store) GetAll(ctx context.Context) ([]model.Score, error) {
	return s.list(ctx, `SELECT `+scoreColumns+` FROM scores ORDER BY date DESC`)
}

// GetUnsynced returns scores not yet acknowledged by the remote store.
func (s *Store) GetUnsynced(ctx context.Context) ([]model.Score, error) {
	return s.list(ctx, `SELECT `+scoreColumns+` FROM scores WHERE synced = 0 ORDER BY id ASC`)
}

// GetHighest returns the score with the highest wpm, using the wpm index.
// ok is false when the store is empty.
func (s *Store) GetHighest(ctx context.Context) (score model.Score, ok bool, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scoreColumns+` FROM scores ORDER BY wpm DESC LIMIT 1`)
	score, err = scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Score{}, false, nil
	}
	if err != nil {
		return model.Score{}, false, fmt.Errorf("get highest score: %w", err)
	}
	return score, true, nil
}

// MarkSynced flags each id as synced. Every id is attempted; ids that are
// invalid or missing are collected into a *model.AggregateSyncError.
func (s *Store) MarkSynced(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var errs []error
	for _, id := range ids {
		if id <= 0 {
			errs = append(errs, fmt.Errorf("score %d: invalid id", id))
			continue
		}
		res, err := s.db.ExecContext(ctx, `UPDATE scores SET synced = 1 WHERE id = ?`, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("score %d: %w", id, err))
			continue
		}
		n, err := res.RowsAffected()
		if err != nil {
			errs = append(errs, fmt.Errorf("score %d: %w", id, err))
			continue
		}
		if n == 0 {
			errs = append(errs, fmt.Errorf("score %d: %w", id, model.ErrNotFound))
		}
	}
	if len(errs) > 0 {
		return &model.AggregateSyncError{Op: "mark synced", Total: len(ids), Failed: len(errs), Errs: errs}
	}
	return nil
}

// ReassignOwner moves every score without a user owner to userID and
// resets its synced flag so it is pushed again under the new identity.
func (s *Store) ReassignOwner(ctx context.Context, userID string) (int, error) {
	return s.relabel(ctx, "reassign owner", userID,
		`UPDATE scores SET owner_user_id = ?, owner_anonymous_id = NULL, synced = 0
		 WHERE owner_user_id IS NULL OR owner_user_id = ''`)
}

// AdoptOwner moves synced anonymous scores to userID without touching the
// synced flag. It is used once their remote copies have been claimed.
func (s *Store) AdoptOwner(ctx context.Context, userID string) (int, error) {
	return s.relabel(ctx, "adopt owner", userID,
		`UPDATE scores SET owner_user_id = ?, owner_anonymous_id = NULL
		 WHERE (owner_user_id IS NULL OR owner_user_id = '') AND synced = 1`)
}

func (s *Store) relabel(ctx context.Context, op, userID, stmt string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%s: user id is empty", op)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, stmt, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

// AnonymousID returns the per-device anonymous id, creating it on first use.
func (s *Store) AnonymousID(ctx context.Context) (string, error) {
	id, ok, err := s.Meta(ctx, metaAnonymousID)
	if err != nil {
		return "", err
	}
	if ok {
		return id, nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	// INSERT OR IGNORE keeps the first id if another caller won the race.
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)`, metaAnonymousID, uuid.NewString()); err != nil {
		return "", fmt.Errorf("create anonymous id: %w", err)
	}
	id, _, err = s.Meta(ctx, metaAnonymousID)
	return id, err
}

// Meta reads a device-level key.
func (s *Store) Meta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read meta %s: %w", key, err)
	}
	return value, true, nil
}

// SetMeta writes a device-level key.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write meta %s: %w", key, err)
	}
	return nil
}

// DeleteMeta removes a device-level key.
func (s *Store) DeleteMeta(ctx context.Context, key string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM meta WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete meta %s: %w", key, err)
	}
	return nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]model.Score, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var scores []model.Score
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScore(row scanner) (model.Score, error) {
	var (
		score  model.Score
		userID sql.NullString
		anonID sql.NullString
		date   string
	)
	if err := row.Scan(&score.ID, &userID, &anonID, &score.WPM, &score.Accuracy,
		&score.WordCount, &score.DurationSeconds, &date, &score.Synced); err != nil {
		return model.Score{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return model.Score{}, err
	}
	score.Date = parsed
	score.Owner = model.Owner{UserID: userID.String, AnonymousID: anonID.String}
	score.Origin = model.OriginLocal
	return score, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
