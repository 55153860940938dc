// internal/ledger/store.go
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lendex/internal/catalog"
)

// Store is the durable ledger underneath the engine. Every mutating method
// is a single atomic step: the guard it documents and the writes it performs
// either all take effect or none do, even under concurrent callers. The
// engine holds no in-process lock across store calls; linearizability per
// issue row and per book counter is the store's contract.
type Store interface {
	// CreateRequest atomically checks available_copies > 0, decrements it,
	// and inserts a REQUESTED issue. Exactly one caller wins the last copy.
	// Fails with ErrBookUnavailable when no copies are left, with
	// ErrDuplicateActiveIssue when the user already has an active issue for
	// the book, and with ErrNotFound for an unknown book.
	CreateRequest(ctx context.Context, bookID, userID uuid.UUID, requestedAt time.Time) (*Issue, error)

	// MarkIssued moves REQUESTED -> ISSUED, setting issue and due dates.
	// The book counter is untouched: the hold taken at request time simply
	// becomes a loan.
	MarkIssued(ctx context.Context, issueID uuid.UUID, issuedAt, dueDate time.Time) (*Issue, error)

	// MarkRejected moves REQUESTED -> REJECTED and releases the hold by
	// incrementing available_copies, both in one transaction.
	MarkRejected(ctx context.Context, issueID uuid.UUID) (*Issue, error)

	// MarkReturned moves ISSUED -> RETURNED, sets the return date, and
	// increments available_copies, both in one transaction.
	MarkReturned(ctx context.Context, issueID uuid.UUID, returnedAt time.Time) (*Issue, error)

	// ExtendDueDate pushes due_date forward by the loan period and bumps
	// reissue_count, guarded on status == ISSUED and reissue_count < limit
	// in the same atomic step. Fails with ErrReissueLimitReached when the
	// cap is the reason the guard did not hold.
	ExtendDueDate(ctx context.Context, issueID uuid.UUID, by time.Duration, limit int) (*Issue, error)

	GetIssue(ctx context.Context, issueID uuid.UUID) (*Issue, error)

	// ListIssues returns issues matching the filter, newest request first.
	// For ScopeOverdue the cutoff is the caller-supplied now, so "overdue"
	// always reflects query time.
	ListIssues(ctx context.Context, f Filter, now time.Time) ([]*Issue, error)

	GetBook(ctx context.Context, bookID uuid.UUID) (*catalog.Book, error)

	StaffStats(ctx context.Context, now time.Time) (*StaffStats, error)
	MemberStats(ctx context.Context, userID uuid.UUID, now time.Time) (*MemberStats, error)
}
