/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable means the room could not be read or subscribed to.
	// The view cannot be used.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrWriteFailed means a merge-write was rejected or never reached the
	// store. The caller still holds its input and may retry.
	ErrWriteFailed = errors.New("session write failed")

	ErrSubmissionFailed = fmt.Errorf("answer submission failed: %w", ErrWriteFailed)

	ErrMissingPrecondition = errors.New("missing precondition")

	ErrNoRole     = fmt.Errorf("%w: no partner role chosen", ErrMissingPrecondition)
	ErrNoDocument = fmt.Errorf("%w: room not loaded", ErrMissingPrecondition)

	ErrInvalidRole    = errors.New("role must be A or B")
	ErrInvalidRoomKey = errors.New("invalid room code")
)
