package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuipesync/internal/model"
)

func remoteScore(id int64, wpm float64, owner model.Owner) model.Score {
	s := score(wpm)
	s.ID = id
	s.Origin = model.OriginRemote
	s.Owner = owner
	s.Synced = true
	return s
}

func keys(scores []model.Score) []string {
	out := make([]string, 0, len(scores))
	for _, s := range scores {
		out = append(out, s.Key())
	}
	return out
}

func TestCombinedHighScoresFasterSyncedBestReplacesOwnerEntry(t *testing.T) {
	h := newHarness(t, true)
	user := model.Owner{UserID: "user-1"}
	h.remote.board = []model.Score{
		remoteScore(1, 90, user),
		remoteScore(2, 80, model.Owner{AnonymousID: "other-device"}),
	}
	best := h.saveLocal(t, score(95), user, true)

	got, err := h.engine.CombinedHighScores(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{best.Key(), "remote-2"}, keys(got))

	owned := 0
	for _, s := range got {
		if s.Owner.Matches(user) {
			owned++
		}
	}
	assert.Equal(t, 1, owned)
}

func TestCombinedHighScoresSlowerSyncedBestIsIgnored(t *testing.T) {
	h := newHarness(t, true)
	user := model.Owner{UserID: "user-1"}
	h.remote.board = []model.Score{remoteScore(1, 90, user)}
	h.saveLocal(t, score(85), user, true)

	got, err := h.engine.CombinedHighScores(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"remote-1"}, keys(got))
}

func TestCombinedHighScoresUnsyncedBestIsAdded(t *testing.T) {
	h := newHarness(t, true)
	h.remote.board = []model.Score{
		remoteScore(1, 90, model.Owner{UserID: "user-2"}),
		remoteScore(2, 60, model.Owner{UserID: "user-3"}),
	}
	best := h.saveLocal(t, score(75), model.Owner{AnonymousID: h.anonymousID(t)}, false)

	got, err := h.engine.CombinedHighScores(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"remote-1", best.Key(), "remote-2"}, keys(got))

	got, err = h.engine.CombinedHighScores(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"remote-1", best.Key()}, keys(got))
}

func TestCombinedHighScoresDegradesWhenRemoteFails(t *testing.T) {
	h := newHarness(t, true)
	h.remote.boardErr = &model.RemoteError{Op: "query leaderboard", Kind: model.RemoteNetwork, Err: errors.New("timeout")}
	best := h.saveLocal(t, score(75), model.Owner{AnonymousID: h.anonymousID(t)}, false)

	got, err := h.engine.CombinedHighScores(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{best.Key()}, keys(got))
	assert.Equal(t, []string{"leaderboard"}, h.metrics.reads)
}

func TestCombinedHighScoresOfflineUsesLocalOnly(t *testing.T) {
	h := newHarness(t, false)
	h.remote.board = []model.Score{remoteScore(1, 90, model.Owner{UserID: "user-2"})}

	got, err := h.engine.CombinedHighScores(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPersonalHighScoresMergesOwnedScores(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	require.NoError(t, h.ident.Login(ctx, "user-1"))
	user := model.Owner{UserID: "user-1"}

	h.saveLocal(t, score(70), user, true)
	pending := h.saveLocal(t, score(60), model.Owner{AnonymousID: "elsewhere"}, false)
	h.saveLocal(t, score(99), model.Owner{UserID: "user-2"}, true)
	h.remote.history["user-1"] = []model.Score{remoteScore(7, 70, user), remoteScore(8, 50, user)}

	got, err := h.engine.PersonalHighScores(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"remote-7", pending.Key(), "remote-8"}, keys(got))

	best, ok, err := h.engine.PersonalBest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "remote-7", best.Key())
}

func TestPersonalHighScoresOfflineKeepsSyncedLocal(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	require.NoError(t, h.ident.Login(ctx, "user-1"))

	synced := h.saveLocal(t, score(70), model.Owner{UserID: "user-1"}, true)
	h.saveLocal(t, score(99), model.Owner{UserID: "user-2"}, true)

	got, err := h.engine.PersonalHighScores(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{synced.Key()}, keys(got))
}

func TestPersonalHighScoresAnonymous(t *testing.T) {
	h := newHarness(t, true)
	anon := model.Owner{AnonymousID: h.anonymousID(t)}
	mine := h.saveLocal(t, score(65), anon, true)
	h.saveLocal(t, score(90), model.Owner{AnonymousID: "another-device"}, true)
	h.remote.history[""] = []model.Score{remoteScore(1, 100, model.Owner{AnonymousID: "x"})}

	got, err := h.engine.PersonalHighScores(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{mine.Key()}, keys(got))
}

func TestPersonalBestEmpty(t *testing.T) {
	h := newHarness(t, true)
	_, ok, err := h.engine.PersonalBest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
