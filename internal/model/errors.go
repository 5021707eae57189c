package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStorageUnavailable means the local store could not be opened or used.
	ErrStorageUnavailable = errors.New("local storage unavailable")
	// ErrNotFound means a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidScore means a score violates its field invariants.
	ErrInvalidScore = errors.New("invalid score")
)

// RemoteErrorKind classifies a remote failure.
type RemoteErrorKind string

const (
	RemoteNetwork    RemoteErrorKind = "network"
	RemoteAuth       RemoteErrorKind = "auth"
	RemoteValidation RemoteErrorKind = "validation"
)

// RemoteError is a recoverable failure talking to the remote store.
type RemoteError struct {
	Op   string
	Kind RemoteErrorKind
	Err  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// AggregateSyncError reports per-record failures of a batch operation.
type AggregateSyncError struct {
	Op     string
	Total  int
	Failed int
	Errs   []error
}

func (e *AggregateSyncError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s: %d of %d failed: %s", e.Op, e.Failed, e.Total, strings.Join(msgs, "; "))
}

func (e *AggregateSyncError) Unwrap() []error {
	return e.Errs
}
