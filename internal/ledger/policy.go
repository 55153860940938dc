// internal/ledger/policy.go
package ledger

import "time"

const (
	// DefaultLoanPeriod is how long an approved loan runs before it is due.
	DefaultLoanPeriod = 14 * 24 * time.Hour

	// DefaultReissueLimit caps how many times one loan can be extended.
	DefaultReissueLimit = 3
)

// Policy holds the temporal rules of the lifecycle. Both values are
// configuration, not business logic scattered across call sites.
type Policy struct {
	LoanPeriod   time.Duration
	ReissueLimit int
}

// DefaultPolicy returns the stock 14-day / 3-reissue policy.
func DefaultPolicy() Policy {
	return Policy{LoanPeriod: DefaultLoanPeriod, ReissueLimit: DefaultReissueLimit}
}

// EffectiveStatus derives the status a reader should see at the given time.
// An ISSUED loan past its due date reads as OVERDUE; nothing is ever stored.
func EffectiveStatus(issue *Issue, now time.Time) Status {
	if issue.Status == StatusIssued && issue.DueDate != nil && issue.DueDate.Before(now) {
		return StatusOverdue
	}
	return issue.Status
}

// Overdue reports whether the issue reads as OVERDUE at the given time.
func Overdue(issue *Issue, now time.Time) bool {
	return EffectiveStatus(issue, now) == StatusOverdue
}

// CanReissue reports whether the loan is eligible for another extension.
// Effectively-overdue loans remain eligible; only the stored state and the
// cap matter.
func (p Policy) CanReissue(issue *Issue) bool {
	return issue.Status == StatusIssued && issue.ReissueCount < p.ReissueLimit
}

// DueDateFor computes the due date of a loan approved at the given time.
func (p Policy) DueDateFor(approvedAt time.Time) time.Time {
	return approvedAt.Add(p.LoanPeriod)
}
