// internal/ledger/errors.go
package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrBookUnavailable means no copies were left at request time.
	ErrBookUnavailable = errors.New("no copies available for this book")

	// ErrDuplicateActiveIssue means the member already has an open request
	// or loan for the book.
	ErrDuplicateActiveIssue = errors.New("an active request or loan already exists for this book")

	// ErrReissueLimitReached means the loan has used all permitted reissues.
	ErrReissueLimitReached = errors.New("maximum reissue limit reached")

	// ErrForbidden means the caller's role does not grant the operation.
	ErrForbidden = errors.New("operation not permitted for this role")

	// ErrNotFound means the referenced book, issue or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable means the storage layer failed and the operation was
	// not applied. It is never returned for a domain rule violation.
	ErrUnavailable = errors.New("storage unavailable")
)

// InvalidTransitionError reports a state-machine guard failure. Current is
// the status the issue actually held when the transition was attempted.
type InvalidTransitionError struct {
	Current   Status
	Attempted Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition to %s: issue is %s", e.Attempted, e.Current)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
