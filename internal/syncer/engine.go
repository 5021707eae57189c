// Package syncer pushes local scores to the remote store and merges both
// stores into read views.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/verte-zerg/tuipesync/internal/connectivity"
	"github.com/verte-zerg/tuipesync/internal/metrics"
	"github.com/verte-zerg/tuipesync/internal/model"
)

// LocalStore is the device-resident score store.
type LocalStore interface {
	Save(ctx context.Context, score model.Score) (int64, error)
	Get(ctx context.Context, id int64) (model.Score, error)
	GetAll(ctx context.Context) ([]model.Score, error)
	GetHighest(ctx context.Context) (model.Score, bool, error)
	GetUnsynced(ctx context.Context) ([]model.Score, error)
	MarkSynced(ctx context.Context, ids []int64) error
	ReassignOwner(ctx context.Context, userID string) (int, error)
	AdoptOwner(ctx context.Context, userID string) (int, error)
}

// RemoteStore is the authoritative networked score store.
type RemoteStore interface {
	Insert(ctx context.Context, score model.Score) (model.Score, error)
	QueryByOwner(ctx context.Context, userID string) ([]model.Score, error)
	QueryLeaderboard(ctx context.Context, limit int) ([]model.Score, error)
	ClaimAnonymous(ctx context.Context, anonymousID, userID string) (int64, error)
}

// Identity reports and changes who is using the device.
type Identity interface {
	Current(ctx context.Context) (model.Identity, error)
	Login(ctx context.Context, userID string) error
	Logout(ctx context.Context) error
}

// Engine reconciles the local and remote stores.
type Engine struct {
	local   LocalStore
	remote  RemoteStore
	conn    connectivity.Oracle
	ident   Identity
	metrics metrics.Recorder
	logger  *slog.Logger
	limiter *rate.Limiter

	// pushMu keeps overlapping sync triggers from sending a record twice.
	pushMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithPushLimiter throttles remote inserts.
func WithPushLimiter(l *rate.Limiter) Option {
	return func(e *Engine) {
		e.limiter = l
	}
}

// New constructs an Engine.
func New(local LocalStore, remote RemoteStore, conn connectivity.Oracle, ident Identity, opts ...Option) *Engine {
	e := &Engine{
		local:   local,
		remote:  remote,
		conn:    conn,
		ident:   ident,
		metrics: metrics.Nop{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnSessionCompleted persists a finished score under the current identity
// and pushes it right away when online. A local failure is returned because
// the score would be lost; a push failure is only logged and the score
// waits for the next sync.
func (e *Engine) OnSessionCompleted(ctx context.Context, score model.Score) (model.Score, error) {
	id, err := e.ident.Current(ctx)
	if err != nil {
		return model.Score{}, err
	}
	if score.Owner.IsZero() {
		if id.Authenticated() {
			score.Owner = model.Owner{UserID: id.UserID}
		} else {
			score.Owner = model.Owner{AnonymousID: id.AnonymousID}
		}
	}
	score.Origin = model.OriginLocal
	score.Synced = false
	localID, err := e.local.Save(ctx, score)
	if err != nil {
		return model.Score{}, fmt.Errorf("persist score: %w", err)
	}
	score.ID = localID
	e.logger.Debug("score saved", "id", localID, "wpm", score.WPM, "accuracy", score.Accuracy)

	synced, err := e.SyncOne(ctx, score)
	if err != nil {
		e.logger.Warn("score left for later sync", "id", localID, "err", err)
	}
	score.Synced = synced
	return score, nil
}

// SyncOne pushes a single local score and marks it synced. It does nothing
// when offline and never re-sends a synced score.
func (e *Engine) SyncOne(ctx context.Context, score model.Score) (bool, error) {
	if score.Synced {
		return true, nil
	}
	if !e.conn.Online() {
		e.metrics.RecordSkippedOffline()
		return false, nil
	}
	id, err := e.ident.Current(ctx)
	if err != nil {
		return false, err
	}

	e.pushMu.Lock()
	defer e.pushMu.Unlock()

	// A batch sync may have pushed this record while we waited for the lock.
	stored, err := e.local.Get(ctx, score.ID)
	if err != nil {
		return false, fmt.Errorf("reload score %d: %w", score.ID, err)
	}
	if stored.Synced {
		return true, nil
	}

	if err := e.push(ctx, stored, id); err != nil {
		return false, err
	}
	if err := e.local.MarkSynced(ctx, []int64{score.ID}); err != nil {
		return false, err
	}
	return true, nil
}

// SyncAll pushes every unsynced score. Each score is tried independently and
// only the successful ones are marked synced. It reports whether every
// pending score ended up synced; per-score failures come back as a
// *model.AggregateSyncError.
func (e *Engine) SyncAll(ctx context.Context) (bool, error) {
	if !e.conn.Online() {
		e.metrics.RecordSkippedOffline()
		return false, nil
	}
	id, err := e.ident.Current(ctx)
	if err != nil {
		return false, err
	}

	e.pushMu.Lock()
	defer e.pushMu.Unlock()

	pending, err := e.local.GetUnsynced(ctx)
	if err != nil {
		return false, fmt.Errorf("load unsynced scores: %w", err)
	}
	if len(pending) == 0 {
		e.metrics.RecordSyncRun(0, 0)
		return true, nil
	}

	var (
		syncedIDs []int64
		errs      []error
	)
	for _, score := range pending {
		if err := e.push(ctx, score, id); err != nil {
			errs = append(errs, fmt.Errorf("score %d: %w", score.ID, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		syncedIDs = append(syncedIDs, score.ID)
	}

	failed := len(pending) - len(syncedIDs)
	if err := e.local.MarkSynced(ctx, syncedIDs); err != nil {
		var agg *model.AggregateSyncError
		if errors.As(err, &agg) {
			errs = append(errs, agg.Errs...)
			failed += agg.Failed
		} else {
			errs = append(errs, err)
			failed = len(pending)
		}
	}
	e.metrics.RecordSyncRun(len(pending), failed)
	e.logger.Info("sync finished", "pending", len(pending), "synced", len(pending)-failed, "failed", failed)

	if failed > 0 {
		return false, &model.AggregateSyncError{Op: "sync all", Total: len(pending), Failed: failed, Errs: errs}
	}
	return true, nil
}

// push sends one score under the current identity. Anonymous scores are
// attributed to the logged-in user.
func (e *Engine) push(ctx context.Context, score model.Score, id model.Identity) error {
	if score.Owner.UserID == "" && id.Authenticated() {
		score.Owner = model.Owner{UserID: id.UserID}
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	_, err := e.remote.Insert(ctx, score)
	e.metrics.RecordPush(err == nil)
	return err
}

// LoginResult summarizes HandleLogin.
type LoginResult struct {
	Reassigned int
	Claimed    int64
	AllSynced  bool
}

// HandleLogin switches the device to userID. Local anonymous scores are
// relabelled and pushed again under the user. With claim set the remote
// copies of already-synced anonymous scores are claimed instead, so they are
// relabelled without being sent twice.
func (e *Engine) HandleLogin(ctx context.Context, userID string, claim bool) (LoginResult, error) {
	var res LoginResult
	before, err := e.ident.Current(ctx)
	if err != nil {
		return res, err
	}
	if err := e.ident.Login(ctx, userID); err != nil {
		return res, err
	}

	if claim && e.conn.Online() {
		claimed, err := e.remote.ClaimAnonymous(ctx, before.AnonymousID, userID)
		if err != nil {
			e.logger.Warn("claim of remote anonymous scores failed", "err", err)
		} else {
			res.Claimed = claimed
			adopted, err := e.local.AdoptOwner(ctx, userID)
			if err != nil {
				return res, err
			}
			res.Reassigned += adopted
		}
	}

	n, err := e.local.ReassignOwner(ctx, userID)
	if err != nil {
		return res, err
	}
	res.Reassigned += n
	e.logger.Info("logged in", "user", userID, "reassigned", res.Reassigned, "claimed", res.Claimed)

	res.AllSynced, err = e.SyncAll(ctx)
	if err != nil {
		e.logger.Warn("sync after login incomplete", "err", err)
	}
	return res, nil
}

// HandleLogout forgets the authenticated user.
func (e *Engine) HandleLogout(ctx context.Context) error {
	return e.ident.Logout(ctx)
}

// Run syncs now if online and again on every offline to online transition,
// until ctx is done. The subscription is released on return.
func (e *Engine) Run(ctx context.Context) error {
	events, unsubscribe := e.conn.Subscribe()
	defer unsubscribe()

	if e.conn.Online() {
		e.syncLogged(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Online {
				e.syncLogged(ctx)
			}
		}
	}
}

func (e *Engine) syncLogged(ctx context.Context) {
	if _, err := e.SyncAll(ctx); err != nil {
		e.logger.Warn("background sync incomplete", "err", err)
	}
}
