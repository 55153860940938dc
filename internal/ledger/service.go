// internal/ledger/service.go
package ledger

import (
	"context"

	"github.com/google/uuid"

	"lendex/internal/catalog"
	"lendex/internal/roles"
)

// Service is the book-issue lifecycle engine as consumed by the client.
// Every operation is one short request/response round trip; it either
// completes atomically or fails cleanly with a taxonomy error.
type Service interface {
	RequestIssue(ctx context.Context, actor roles.Actor, bookID uuid.UUID) (*Issue, error)
	ApproveIssue(ctx context.Context, actor roles.Actor, issueID uuid.UUID) (*Issue, error)
	RejectIssue(ctx context.Context, actor roles.Actor, issueID uuid.UUID) (*Issue, error)
	ReturnIssue(ctx context.Context, actor roles.Actor, issueID uuid.UUID) (*Issue, error)
	ReissueIssue(ctx context.Context, actor roles.Actor, issueID uuid.UUID) (*Issue, error)

	GetIssue(ctx context.Context, actor roles.Actor, issueID uuid.UUID) (*Issue, error)
	ListIssues(ctx context.Context, actor roles.Actor, scope ListScope) ([]*Issue, error)

	StaffDashboard(ctx context.Context, actor roles.Actor) (*StaffStats, error)
	MemberDashboard(ctx context.Context, actor roles.Actor) (*MemberStats, error)
}

// Notifier receives lifecycle events for user-facing notification records.
// Delivery is best effort; a failing notifier never fails the transition.
type Notifier interface {
	IssueRequested(ctx context.Context, issue *Issue, book *catalog.Book) error
	IssueApproved(ctx context.Context, issue *Issue, book *catalog.Book) error
	IssueRejected(ctx context.Context, issue *Issue, book *catalog.Book) error
	IssueReturned(ctx context.Context, issue *Issue, book *catalog.Book) error
	IssueReissued(ctx context.Context, issue *Issue, book *catalog.Book) error
}
