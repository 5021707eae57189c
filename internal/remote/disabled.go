package remote

import (
	"context"
	"errors"

	"github.com/verte-zerg/tuipesync/internal/model"
)

// ErrNotConfigured is returned by Disabled for every call.
var ErrNotConfigured = errors.New("remote store not configured")

// Disabled stands in for the remote store when no DSN is set. Every call
// fails as a network error, so the device behaves as permanently offline.
type Disabled struct{}

func (Disabled) Ping(context.Context) error {
	return &model.RemoteError{Op: "ping", Kind: model.RemoteNetwork, Err: ErrNotConfigured}
}

func (Disabled) Insert(context.Context, model.Score) (model.Score, error) {
	return model.Score{}, &model.RemoteError{Op: "insert", Kind: model.RemoteNetwork, Err: ErrNotConfigured}
}

func (Disabled) QueryByOwner(context.Context, string) ([]model.Score, error) {
	return nil, &model.RemoteError{Op: "query by owner", Kind: model.RemoteNetwork, Err: ErrNotConfigured}
}

func (Disabled) QueryLeaderboard(context.Context, int) ([]model.Score, error) {
	return nil, &model.RemoteError{Op: "query leaderboard", Kind: model.RemoteNetwork, Err: ErrNotConfigured}
}

func (Disabled) ClaimAnonymous(context.Context, string, string) (int64, error) {
	return 0, &model.RemoteError{Op: "claim anonymous", Kind: model.RemoteNetwork, Err: ErrNotConfigured}
}
