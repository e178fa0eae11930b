package core

import "github.com/google/uuid"

// NewThreadID mints a fresh session/thread identifier.
func NewThreadID() string { return uuid.NewString() }

// NewRunID mints a fresh identifier for a single run of a thread (a thread
// may be resumed and re-run more than once).
func NewRunID() string { return uuid.NewString() }
