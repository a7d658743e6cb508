package model

import "errors"

// Common errors used across the application
var (
	// Identity errors
	ErrIdentityNotFound = errors.New("identity not found")

	// Queue errors
	ErrAlreadyQueued  = errors.New("session is already queued")
	ErrAlreadyInMatch = errors.New("player is already in an open match")

	// Match errors
	ErrMatchNotFound = errors.New("match not found")
	ErrNotInMatch    = errors.New("player is not in an open match")
	ErrAlreadyMoved  = errors.New("move already submitted")
	ErrInvalidMove   = errors.New("invalid move")

	// Chat errors
	ErrScopeNotJoined = errors.New("caller is not a participant of the scope")
	ErrEmptyMessage   = errors.New("empty chat message")
)
