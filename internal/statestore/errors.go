package statestore

import "errors"

var (
	// ErrAlreadyFinalized is returned by CommitUpdates or AbortUpdates
	// when the handle has already been committed or aborted once.
	// Only one publication point per handle is permitted.
	ErrAlreadyFinalized = errors.New("statestore: handle already committed or aborted")
)
