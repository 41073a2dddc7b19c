package focus

import "errors"

// Recoverable domain errors, reported to the originating caller only. None of
// these abort the registry or affect other sessions.
var (
	// ErrNotFound means a room code does not resolve to a live session.
	ErrNotFound = errors.New("session not found")

	// ErrFull means the session already holds max_participants members.
	ErrFull = errors.New("session is full")

	// ErrAlreadyStarted means a join was attempted after the session left
	// the waiting state.
	ErrAlreadyStarted = errors.New("session already in progress")

	// ErrNotCreator means start was requested by someone other than the
	// session creator.
	ErrNotCreator = errors.New("only session creator can start the session")

	// ErrInvalidState means start was requested outside the waiting state.
	ErrInvalidState = errors.New("session cannot be started")

	// ErrNoActiveSession means the connection is not mapped to any session.
	ErrNoActiveSession = errors.New("no active session")
)
