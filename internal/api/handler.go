// Package api serves the score views over HTTP for the syncd daemon.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/verte-zerg/tuipesync/internal/model"
)

const maxLimit = 100

// Views is the read and sync surface exposed over HTTP.
type Views interface {
	CombinedHighScores(ctx context.Context, limit int) ([]model.Score, error)
	PersonalHighScores(ctx context.Context, limit int) ([]model.Score, error)
	PersonalBest(ctx context.Context) (model.Score, bool, error)
	SyncAll(ctx context.Context) (bool, error)
}

// Deps bundles what NewRouter needs.
type Deps struct {
	Views   Views
	Online  func() bool
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter builds the syncd routes:
//
//	GET  /leaderboard?limit=N
//	GET  /personal?limit=N
//	GET  /personal/best
//	POST /sync
//	GET  /healthz
//	GET  /metrics
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handler{views: deps.Views, online: deps.Online, logger: deps.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/leaderboard", h.leaderboard)
	r.Route("/personal", func(r chi.Router) {
		r.Get("/", h.personal)
		r.Get("/best", h.personalBest)
	})
	r.Post("/sync", h.sync)
	r.Get("/healthz", h.health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	return r
}

type handler struct {
	views  Views
	online func() bool
	logger *slog.Logger
}

type scoreResponse struct {
	Key             string    `json:"key"`
	Origin          string    `json:"origin"`
	UserID          string    `json:"user_id,omitempty"`
	AnonymousID     string    `json:"anonymous_id,omitempty"`
	WPM             float64   `json:"wpm"`
	Accuracy        float64   `json:"accuracy"`
	WordCount       int       `json:"word_count"`
	DurationSeconds float64   `json:"duration_seconds"`
	Date            time.Time `json:"date"`
	Synced          bool      `json:"synced"`
}

type syncResponse struct {
	AllSynced bool `json:"all_synced"`
	Pending   int  `json:"pending"`
	Failed    int  `json:"failed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	scores, err := h.views.CombinedHighScores(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponses(scores))
}

func (h *handler) personal(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	scores, err := h.views.PersonalHighScores(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponses(scores))
}

func (h *handler) personalBest(w http.ResponseWriter, r *http.Request) {
	best, ok, err := h.views.PersonalBest(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no scores yet"})
		return
	}
	writeJSON(w, http.StatusOK, toResponse(best))
}

func (h *handler) sync(w http.ResponseWriter, r *http.Request) {
	allSynced, err := h.views.SyncAll(r.Context())
	resp := syncResponse{AllSynced: allSynced}
	var agg *model.AggregateSyncError
	switch {
	case errors.As(err, &agg):
		resp.Pending, resp.Failed = agg.Total, agg.Failed
	case err != nil:
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	online := h.online != nil && h.online()
	writeJSON(w, http.StatusOK, map[string]bool{"online": online})
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, model.ErrStorageUnavailable) {
		status = http.StatusServiceUnavailable
	}
	h.logger.Error("request failed", "path", r.URL.Path, "err", err)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// parseLimit reads ?limit, writing a 400 when it is malformed. A missing
// limit yields 0 so the engine default applies.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		return 0, false
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, true
}

func toResponses(scores []model.Score) []scoreResponse {
	out := make([]scoreResponse, 0, len(scores))
	for _, s := range scores {
		out = append(out, toResponse(s))
	}
	return out
}

func toResponse(s model.Score) scoreResponse {
	return scoreResponse{
		Key:             s.Key(),
		Origin:          string(s.Origin),
		UserID:          s.Owner.UserID,
		AnonymousID:     s.Owner.AnonymousID,
		WPM:             s.WPM,
		Accuracy:        s.Accuracy,
		WordCount:       s.WordCount,
		DurationSeconds: s.DurationSeconds,
		Date:            s.Date,
		Synced:          s.Synced,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Best-effort write; the status line is already out.
		_ = err
	}
}
