// internal/ledger/implementation.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"lendex/internal/catalog"
	"lendex/internal/roles"
)

// service implements the Service interface.
type service struct {
	store       Store
	policy      Policy
	notifier    Notifier
	now         func() time.Time
	transitions metric.Int64Counter
}

// Option customizes the engine.
type Option func(*service)

// WithPolicy overrides the default loan period and reissue cap.
func WithPolicy(p Policy) Option {
	return func(s *service) { s.policy = p }
}

// WithNotifier attaches a lifecycle notifier.
func WithNotifier(n Notifier) Option {
	return func(s *service) { s.notifier = n }
}

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates the lifecycle engine on a store.
func NewService(store Store, opts ...Option) Service {
	meter := otel.Meter("lendex/ledger")
	transitions, err := meter.Int64Counter("ledger.transitions",
		metric.WithDescription("Issue lifecycle transition attempts by operation and outcome"))
	if err != nil {
		log.Printf("failed to create transitions counter: %v", err)
	}

	s := &service{
		store:       store,
		policy:      DefaultPolicy(),
		now:         func() time.Time { return time.Now().UTC() },
		transitions: transitions,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestIssue places an optimistic hold and records the request.
func (s *service) RequestIssue(ctx context.Context, actor roles.Actor, bookID uuid.UUID) (*Issue, error) {
	if !roles.Can(actor.Role, roles.OpRequestIssue) {
		return nil, ErrForbidden
	}

	issue, err := s.store.CreateRequest(ctx, bookID, actor.ID, s.now())
	if err != nil {
		return nil, s.outcome(ctx, "request", s.writeErr(err))
	}
	s.outcome(ctx, "request", nil)

	s.notify(ctx, issue, Notifier.IssueRequested)
	return s.annotate(issue), nil
}

// ApproveIssue turns a pending request into a loan.
func (s *service) ApproveIssue(ctx context.Context, actor roles.Actor, issueID uuid.UUID) (*Issue, error) {
	if !roles.Can(actor.Role, roles.OpApproveIssue) {
		return nil, ErrForbidden
	}

	now := s.now()
	issue, err := s.store.MarkIssued(ctx, issueID, now, s.policy.DueDateFor(now))
	if err != nil {
		return nil, s.outcome(ctx, "approve", s.writeErr(err))
	}
	s.outcome(ctx, "approve", nil)

	s.notify(ctx, issue, Notifier.IssueApproved)
	return s.annotate(issue), nil
}

// RejectIssue refuses a pending request and releases its hold.
func (s *service) RejectIssue(ctx context.Context, actor roles.Actor, issueID uuid.UUID) (*Issue, error) {
	if !roles.Can(actor.Role, roles.OpRejectIssue) {
		return nil, ErrForbidden
	}

	issue, err := s.store.MarkRejected(ctx, issueID)
	if err != nil {
		return nil, s.outcome(ctx, "reject", s.writeErr(err))
	}
	s.outcome(ctx, "reject", nil)

	s.notify(ctx, issue, Notifier.IssueRejected)
	return s.annotate(issue), nil
}

// ReturnIssue closes a loan and releases the copy. Effectively-overdue
// loans are still stored as ISSUED, so they return through the same guard.
func (s *service) ReturnIssue(ctx context.Context, actor roles.Actor, issueID uuid.UUID) (*Issue, error) {
	if !roles.Can(actor.Role, roles.OpReturnIssue) {
		return nil, ErrForbidden
	}

	issue, err := s.store.MarkReturned(ctx, issueID, s.now())
	if err != nil {
		return nil, s.outcome(ctx, "return", s.writeErr(err))
	}
	s.outcome(ctx, "return", nil)

	s.notify(ctx, issue, Notifier.IssueReturned)
	return s.annotate(issue), nil
}

// ReissueIssue extends a loan in place. The loan's owner may extend their
// own loan; staff may extend any.
func (s *service) ReissueIssue(ctx context.Context, actor roles.Actor, issueID uuid.UUID) (*Issue, error) {
	if !roles.Can(actor.Role, roles.OpReissueIssue) {
		return nil, ErrForbidden
	}

	current, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, s.readErr(err)
	}
	if current.UserID != actor.ID && !roles.IsStaff(actor.Role) {
		return nil, ErrForbidden
	}
	if !s.policy.CanReissue(current) {
		if current.Status == StatusIssued {
			return nil, s.outcome(ctx, "reissue", ErrReissueLimitReached)
		}
		return nil, s.outcome(ctx, "reissue", &InvalidTransitionError{Current: current.Status, Attempted: StatusIssued})
	}

	// The store re-checks status and cap atomically; the precheck above
	// only produces a friendlier error without a write attempt.
	issue, err := s.store.ExtendDueDate(ctx, issueID, s.policy.LoanPeriod, s.policy.ReissueLimit)
	if err != nil {
		return nil, s.outcome(ctx, "reissue", s.writeErr(err))
	}
	s.outcome(ctx, "reissue", nil)

	s.notify(ctx, issue, Notifier.IssueReissued)
	return s.annotate(issue), nil
}

// GetIssue returns one issue; members see only their own.
func (s *service) GetIssue(ctx context.Context, actor roles.Actor, issueID uuid.UUID) (*Issue, error) {
	issue, err := s.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, s.readErr(err)
	}
	if issue.UserID != actor.ID && !roles.Can(actor.Role, roles.OpListAllIssues) {
		return nil, ErrForbidden
	}
	return s.annotate(issue), nil
}

// ListIssues lists the ledger. Members asking for "all" are scoped down to
// their own issues; the overdue listing is staff-only.
func (s *service) ListIssues(ctx context.Context, actor roles.Actor, scope ListScope) ([]*Issue, error) {
	f := Filter{Scope: scope, UserID: actor.ID}
	switch scope {
	case ScopeAll:
		if !roles.Can(actor.Role, roles.OpListAllIssues) {
			f.Scope = ScopeMine
		}
	case ScopeOverdue:
		if !roles.Can(actor.Role, roles.OpListOverdue) {
			return nil, ErrForbidden
		}
	case ScopeMine:
	default:
		return nil, fmt.Errorf("unknown list scope %q", scope)
	}

	now := s.now()
	issues, err := s.store.ListIssues(ctx, f, now)
	if err != nil && !domainError(err) {
		// Reads are idempotent: one retry on transient storage failure.
		issues, err = s.store.ListIssues(ctx, f, now)
	}
	if err != nil {
		return nil, s.readErr(err)
	}
	for _, issue := range issues {
		s.annotate(issue)
	}
	return issues, nil
}

// StaffDashboard aggregates the whole ledger for staff and admins.
func (s *service) StaffDashboard(ctx context.Context, actor roles.Actor) (*StaffStats, error) {
	if !roles.IsStaff(actor.Role) {
		return nil, ErrForbidden
	}
	now := s.now()
	stats, err := s.store.StaffStats(ctx, now)
	if err != nil && !domainError(err) {
		stats, err = s.store.StaffStats(ctx, now)
	}
	if err != nil {
		return nil, s.readErr(err)
	}
	return stats, nil
}

// MemberDashboard aggregates the caller's own loans.
func (s *service) MemberDashboard(ctx context.Context, actor roles.Actor) (*MemberStats, error) {
	now := s.now()
	stats, err := s.store.MemberStats(ctx, actor.ID, now)
	if err != nil && !domainError(err) {
		stats, err = s.store.MemberStats(ctx, actor.ID, now)
	}
	if err != nil {
		return nil, s.readErr(err)
	}
	return stats, nil
}

// annotate fills the derived effective status for the caller's view.
func (s *service) annotate(issue *Issue) *Issue {
	issue.EffectiveStatus = EffectiveStatus(issue, s.now())
	return issue
}

// notify fans a lifecycle event out to the notifier, if one is attached.
func (s *service) notify(ctx context.Context, issue *Issue, fn func(Notifier, context.Context, *Issue, *catalog.Book) error) {
	if s.notifier == nil {
		return
	}
	book, err := s.store.GetBook(ctx, issue.BookID)
	if err != nil {
		log.Printf("notification skipped, book lookup failed for issue %s: %v", issue.ID, err)
		return
	}
	if err := fn(s.notifier, ctx, issue, book); err != nil {
		log.Printf("notification failed for issue %s: %v", issue.ID, err)
	}
}

// outcome records the transition metric and passes the error through.
func (s *service) outcome(ctx context.Context, op string, err error) error {
	if s.transitions != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		s.transitions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("outcome", result),
		))
	}
	return err
}

// writeErr maps storage failures on write paths to ErrUnavailable. A failed
// conditional write is never blindly retried; the caller decides.
func (s *service) writeErr(err error) error {
	if domainError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// readErr maps storage failures on read paths to ErrUnavailable.
func (s *service) readErr(err error) error {
	if domainError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// domainError reports whether err is an expected engine outcome rather than
// a transport or storage failure.
func domainError(err error) bool {
	return errors.Is(err, ErrBookUnavailable) ||
		errors.Is(err, ErrDuplicateActiveIssue) ||
		errors.Is(err, ErrReissueLimitReached) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotFound) ||
		IsInvalidTransition(err)
}
