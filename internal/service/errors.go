package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by mutations issued while anonymous.
	// Nothing is changed and no remote call is made.
	ErrNotAuthenticated = errors.New("authentication required")
	// ErrRemoteFailed matches every *RemoteError.
	ErrRemoteFailed = errors.New("remote operation failed")
)

// RemoteError reports a failed gateway call. The mirror is left at its
// last-known-good value whenever one is returned.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() []error {
	return []error{ErrRemoteFailed, e.Err}
}
