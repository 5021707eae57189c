package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuipesync/internal/metrics"
	"github.com/verte-zerg/tuipesync/internal/model"
)

type fakeViews struct {
	scores    []model.Score
	err       error
	syncErr   error
	allSynced bool
	lastLimit int
}

func (f *fakeViews) CombinedHighScores(_ context.Context, limit int) ([]model.Score, error) {
	f.lastLimit = limit
	return f.scores, f.err
}

func (f *fakeViews) PersonalHighScores(_ context.Context, limit int) ([]model.Score, error) {
	f.lastLimit = limit
	return f.scores, f.err
}

func (f *fakeViews) PersonalBest(context.Context) (model.Score, bool, error) {
	if f.err != nil || len(f.scores) == 0 {
		return model.Score{}, false, f.err
	}
	return f.scores[0], true, nil
}

func (f *fakeViews) SyncAll(context.Context) (bool, error) {
	return f.allSynced, f.syncErr
}

func newServer(t *testing.T, views *fakeViews) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	collector.RecordPush(true)
	srv := httptest.NewServer(NewRouter(Deps{
		Views:   views,
		Online:  func() bool { return true },
		Metrics: metrics.Handler(reg),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

var when = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestLeaderboard(t *testing.T) {
	views := &fakeViews{scores: []model.Score{
		{ID: 3, Origin: model.OriginRemote, Owner: model.Owner{UserID: "user-1"}, WPM: 90, Accuracy: 98, WordCount: 25, DurationSeconds: 20, Date: when, Synced: true},
		{ID: 1, Origin: model.OriginLocal, Owner: model.Owner{AnonymousID: "anon"}, WPM: 70, Accuracy: 91, WordCount: 25, DurationSeconds: 25, Date: when},
	}}
	srv := newServer(t, views)

	resp, body := get(t, srv.URL+"/leaderboard?limit=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, 5, views.lastLimit)

	var got []scoreResponse
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "remote-3", got[0].Key)
	assert.Equal(t, "user-1", got[0].UserID)
	assert.Equal(t, "local-1", got[1].Key)
	assert.False(t, got[1].Synced)
}

func TestLimitValidation(t *testing.T) {
	views := &fakeViews{}
	srv := newServer(t, views)

	resp, _ := get(t, srv.URL+"/personal?limit=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/personal?limit=0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/personal?limit=5000")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, maxLimit, views.lastLimit)

	resp, _ = get(t, srv.URL+"/personal")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, views.lastLimit)
}

func TestPersonalBest(t *testing.T) {
	srv := newServer(t, &fakeViews{})
	resp, _ := get(t, srv.URL+"/personal/best")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	srv = newServer(t, &fakeViews{scores: []model.Score{{ID: 9, Origin: model.OriginLocal, WPM: 64, Date: when}}})
	resp, body := get(t, srv.URL+"/personal/best")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got scoreResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "local-9", got.Key)
}

func TestStorageFailureIsUnavailable(t *testing.T) {
	srv := newServer(t, &fakeViews{err: model.ErrStorageUnavailable})
	resp, _ := get(t, srv.URL+"/leaderboard")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSyncReportsPartialFailure(t *testing.T) {
	srv := newServer(t, &fakeViews{syncErr: &model.AggregateSyncError{Op: "sync all", Total: 3, Failed: 1, Errs: []error{errors.New("boom")}}})

	resp, err := http.Post(srv.URL+"/sync", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got syncResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, syncResponse{AllSynced: false, Pending: 3, Failed: 1}, got)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newServer(t, &fakeViews{})

	resp, body := get(t, srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"online":true}`, string(body))

	resp, body = get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "tuipesync_push_total"))
}
