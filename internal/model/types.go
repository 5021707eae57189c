// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// Origin identifies which store a score was read from.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// Owner references the identity a score belongs to. A score is created with
// exactly one of the two; remote records claimed after login keep the
// anonymous id they were recorded under.
type Owner struct {
	UserID      string
	AnonymousID string
}

// IsZero reports whether the owner has no identity at all.
func (o Owner) IsZero() bool {
	return o.UserID == "" && o.AnonymousID == ""
}

// Key returns a comparable owner key, preferring the user id.
func (o Owner) Key() string {
	switch {
	case o.UserID != "":
		return "user:" + o.UserID
	case o.AnonymousID != "":
		return "anon:" + o.AnonymousID
	default:
		return ""
	}
}

// Matches reports whether two owners refer to the same identity. User ids
// decide when both sides have one.
func (o Owner) Matches(other Owner) bool {
	if o.UserID != "" && other.UserID != "" {
		return o.UserID == other.UserID
	}
	return o.AnonymousID != "" && o.AnonymousID == other.AnonymousID
}

// Score is a finalized typing result.
type Score struct {
	ID              int64
	Origin          Origin
	Owner           Owner
	WPM             float64
	Accuracy        float64
	WordCount       int
	DurationSeconds float64
	Date            time.Time
	Synced          bool
}

// Key returns the origin-qualified deduplication key, e.g. "remote-12".
func (s Score) Key() string {
	origin := s.Origin
	if origin == "" {
		origin = OriginLocal
	}
	return fmt.Sprintf("%s-%d", origin, s.ID)
}

// Validate checks the invariants of a finalized score.
func (s Score) Validate() error {
	if s.WPM < 0 {
		return fmt.Errorf("%w: wpm must be >= 0", ErrInvalidScore)
	}
	if s.Accuracy < 0 || s.Accuracy > 100 {
		return fmt.Errorf("%w: accuracy must be between 0 and 100", ErrInvalidScore)
	}
	if s.WordCount <= 0 {
		return fmt.Errorf("%w: word count must be > 0", ErrInvalidScore)
	}
	if s.DurationSeconds <= 0 {
		return fmt.Errorf("%w: duration must be > 0", ErrInvalidScore)
	}
	if s.Owner.UserID != "" && s.Owner.AnonymousID != "" {
		return fmt.Errorf("%w: owner must be either a user or an anonymous id", ErrInvalidScore)
	}
	return nil
}

// Identity describes who is using this device right now.
type Identity struct {
	UserID      string
	AnonymousID string
}

// Authenticated reports whether a user id is present.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// Owns reports whether a score belongs to this identity.
func (i Identity) Owns(s Score) bool {
	if i.UserID != "" && s.Owner.UserID == i.UserID {
		return true
	}
	return i.AnonymousID != "" && s.Owner.AnonymousID == i.AnonymousID
}

// Config defines practice settings.
type Config struct {
	Lang     string
	Words    int
	WordList string
}
