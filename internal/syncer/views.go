package syncer

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/tuipesync/internal/model"
)

// DefaultLimit is the view size used when callers pass a non-positive limit.
const DefaultLimit = 10

// CombinedHighScores returns the global leaderboard merged with this
// device's best local score. The remote leaderboard degrades to empty when
// it cannot be read; a local failure is returned.
//
// A synced local best replaces the remote entry of the same owner only when
// it is strictly faster. An unsynced local best is added under its local key.
func (e *Engine) CombinedHighScores(ctx context.Context, limit int) ([]model.Score, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var (
		board   []model.Score
		best    model.Score
		hasBest bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		board = e.readRemote(gctx, "leaderboard", func(ctx context.Context) ([]model.Score, error) {
			return e.remote.QueryLeaderboard(ctx, limit)
		})
		return nil
	})
	g.Go(func() error {
		var err error
		best, hasBest, err = e.local.GetHighest(gctx)
		if err != nil {
			return fmt.Errorf("local best: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]model.Score, 0, len(board)+1)
	seen := make(map[string]struct{}, len(board)+1)
	for _, s := range board {
		if _, dup := seen[s.Key()]; dup {
			continue
		}
		seen[s.Key()] = struct{}{}
		merged = append(merged, s)
	}

	if hasBest {
		if best.Synced {
			// Remote rows are ordered by wpm, so the first match is the owner's best.
			for i, s := range merged {
				if !s.Owner.Matches(best.Owner) {
					continue
				}
				if best.WPM > s.WPM {
					merged[i] = best
				}
				break
			}
		} else if _, dup := seen[best.Key()]; !dup {
			merged = append(merged, best)
		}
	}

	return rank(merged, limit), nil
}

// PersonalHighScores returns the current identity's scores from both stores.
// Local scores that have not been pushed yet are always included. Synced
// local scores are left out when the remote history was read, since their
// remote copies stand in for them.
func (e *Engine) PersonalHighScores(ctx context.Context, limit int) ([]model.Score, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	id, err := e.ident.Current(ctx)
	if err != nil {
		return nil, err
	}

	var (
		local      []model.Score
		history    []model.Score
		remoteRead bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		local, err = e.local.GetAll(gctx)
		if err != nil {
			return fmt.Errorf("local scores: %w", err)
		}
		return nil
	})
	if id.Authenticated() && e.conn.Online() {
		g.Go(func() error {
			var err error
			history, err = e.remote.QueryByOwner(gctx, id.UserID)
			if err != nil {
				e.logger.Warn("remote history unavailable", "err", err)
				e.metrics.RecordRemoteReadFailure("personal")
				return nil
			}
			remoteRead = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]model.Score, 0, len(local)+len(history))
	seen := make(map[string]struct{}, len(local)+len(history))
	add := func(s model.Score) {
		if _, dup := seen[s.Key()]; dup {
			return
		}
		seen[s.Key()] = struct{}{}
		merged = append(merged, s)
	}
	for _, s := range local {
		switch {
		case !s.Synced:
			add(s)
		case remoteRead && s.Owner.UserID == id.UserID:
		case id.Owns(s):
			add(s)
		}
	}
	for _, s := range history {
		add(s)
	}
	return rank(merged, limit), nil
}

// PersonalBest returns the current identity's fastest score.
func (e *Engine) PersonalBest(ctx context.Context) (model.Score, bool, error) {
	scores, err := e.PersonalHighScores(ctx, 1)
	if err != nil || len(scores) == 0 {
		return model.Score{}, false, err
	}
	return scores[0], true, nil
}

// readRemote runs a remote read when online, logging and swallowing failures.
func (e *Engine) readRemote(ctx context.Context, view string, read func(context.Context) ([]model.Score, error)) []model.Score {
	if !e.conn.Online() {
		return nil
	}
	scores, err := read(ctx)
	if err != nil {
		e.logger.Warn("remote read failed", "view", view, "err", err)
		e.metrics.RecordRemoteReadFailure(view)
		return nil
	}
	return scores
}

// rank sorts by wpm descending, keeping input order for ties, and truncates.
func rank(scores []model.Score, limit int) []model.Score {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].WPM > scores[j].WPM
	})
	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}
