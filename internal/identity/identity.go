// Package identity tracks who is using this device.
package identity

import (
	"context"
	"fmt"

	"github.com/verte-zerg/tuipesync/internal/model"
)

// Provider reports the current identity.
type Provider interface {
	Current(ctx context.Context) (model.Identity, error)
}

// KV is the device-level key/value storage the identity lives in.
type KV interface {
	Meta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
	DeleteMeta(ctx context.Context, key string) error
	AnonymousID(ctx context.Context) (string, error)
}

const userKey = "user_id"

// Stored keeps the authenticated user id next to the local scores.
type Stored struct {
	kv KV
}

// NewStored returns a Provider backed by kv.
func NewStored(kv KV) *Stored {
	return &Stored{kv: kv}
}

// Current returns the device's anonymous id and, when logged in, the user id.
func (s *Stored) Current(ctx context.Context) (model.Identity, error) {
	anon, err := s.kv.AnonymousID(ctx)
	if err != nil {
		return model.Identity{}, fmt.Errorf("anonymous id: %w", err)
	}
	userID, _, err := s.kv.Meta(ctx, userKey)
	if err != nil {
		return model.Identity{}, fmt.Errorf("current user: %w", err)
	}
	return model.Identity{UserID: userID, AnonymousID: anon}, nil
}

// Login records userID as the authenticated identity.
func (s *Stored) Login(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("login: user id is empty")
	}
	return s.kv.SetMeta(ctx, userKey, userID)
}

// Logout forgets the authenticated identity. The anonymous id is kept.
func (s *Stored) Logout(ctx context.Context) error {
	return s.kv.DeleteMeta(ctx, userKey)
}

// Static is a fixed identity.
type Static model.Identity

// Current implements Provider.
func (s Static) Current(context.Context) (model.Identity, error) {
	return model.Identity(s), nil
}
