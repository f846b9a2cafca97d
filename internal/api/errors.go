package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the service has no account for the given email.
	ErrNotFound = errors.New("account not found")

	// ErrTransport indicates the wallet service could not be reached or did
	// not produce a readable response. No local state may change on it.
	ErrTransport = errors.New("wallet service unreachable")
)

// DomainError is an explicit rejection by the wallet service. Reason carries
// the server-supplied message when the response body had one.
type DomainError struct {
	Status int
	Reason string
}

func (e *DomainError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("wallet service rejected request (status %d)", e.Status)
	}
	return e.Reason
}

// ReasonOf extracts the server-supplied rejection reason from err, falling
// back to the provided generic message.
func ReasonOf(err error, fallback string) string {
	var de *DomainError
	if errors.As(err, &de) && de.Reason != "" {
		return de.Reason
	}
	return fallback
}
