// Package remote is the client for the authoritative PostgreSQL score store.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/verte-zerg/tuipesync/internal/model"
)

// Querier is the subset of *pgxpool.Pool the client needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const table = "scores"

var columns = []string{"id", "user_id", "anonymous_id", "wpm", "accuracy", "word_count", "duration_seconds", "date"}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Client talks to the remote scores table.
type Client struct {
	q Querier
}

// New creates a remote client.
func New(q Querier) *Client {
	return &Client{q: q}
}

// Ping checks that the remote store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.q.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// Insert stores score under its owner and returns the server's copy.
func (c *Client) Insert(ctx context.Context, score model.Score) (model.Score, error) {
	if err := score.Validate(); err != nil {
		return model.Score{}, &model.RemoteError{Op: "insert", Kind: model.RemoteValidation, Err: err}
	}
	query, args, err := psql.Insert(table).
		Columns("user_id", "anonymous_id", "wpm", "accuracy", "word_count", "duration_seconds", "date").
		Values(
			nullable(score.Owner.UserID),
			nullable(score.Owner.AnonymousID),
			score.WPM,
			score.Accuracy,
			score.WordCount,
			score.DurationSeconds,
			score.Date,
		).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return model.Score{}, fmt.Errorf("build insert: %w", err)
	}
	saved, err := scanScore(c.q.QueryRow(ctx, query, args...))
	if err != nil {
		return model.Score{}, classify("insert", err)
	}
	return saved, nil
}

// QueryByOwner returns a user's scores, newest first. An empty user id
// yields an empty result.
func (c *Client) QueryByOwner(ctx context.Context, userID string) ([]model.Score, error) {
	if userID == "" {
		return nil, nil
	}
	query, args, err := psql.Select(columns...).
		From(table).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("date DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build owner query: %w", err)
	}
	return c.list(ctx, "query by owner", query, args...)
}

// QueryLeaderboard returns up to limit scores ordered by wpm descending.
func (c *Client) QueryLeaderboard(ctx context.Context, limit int) ([]model.Score, error) {
	if limit <= 0 {
		return nil, nil
	}
	query, args, err := psql.Select(columns...).
		From(table).
		OrderBy("wpm DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build leaderboard query: %w", err)
	}
	return c.list(ctx, "query leaderboard", query, args...)
}

// ClaimAnonymous moves unowned scores recorded under anonymousID to userID.
// Without a user id there is nothing to claim and no error.
func (c *Client) ClaimAnonymous(ctx context.Context, anonymousID, userID string) (int64, error) {
	if userID == "" || anonymousID == "" {
		return 0, nil
	}
	query, args, err := psql.Update(table).
		Set("user_id", userID).
		Where(sq.Eq{"anonymous_id": anonymousID, "user_id": nil}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build claim: %w", err)
	}
	tag, err := c.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, classify("claim anonymous", err)
	}
	return tag.RowsAffected(), nil
}

func (c *Client) list(ctx context.Context, op, query string, args ...any) ([]model.Score, error) {
	rows, err := c.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	var scores []model.Score
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return scores, nil
}

func scanScore(row pgx.Row) (model.Score, error) {
	var (
		s      model.Score
		userID *string
		anonID *string
		date   time.Time
	)
	if err := row.Scan(&s.ID, &userID, &anonID, &s.WPM, &s.Accuracy, &s.WordCount, &s.DurationSeconds, &date); err != nil {
		return model.Score{}, err
	}
	if userID != nil {
		s.Owner.UserID = *userID
	}
	if anonID != nil {
		s.Owner.AnonymousID = *anonID
	}
	s.Date = date
	s.Origin = model.OriginRemote
	s.Synced = true
	return s, nil
}

// classify wraps err in a *model.RemoteError with a coarse kind.
func classify(op string, err error) error {
	kind := model.RemoteNetwork
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501" || strings.HasPrefix(pgErr.Code, "28"):
			kind = model.RemoteAuth
		case strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23"):
			kind = model.RemoteValidation
		}
	}
	return &model.RemoteError{Op: op, Kind: kind, Err: err}
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
