// internal/ledger/domain.go
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Status is the stored lifecycle state of an issue. StatusOverdue never
// appears in storage; it is derived at read time from an ISSUED issue whose
// due date has passed.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusIssued    Status = "ISSUED"
	StatusRejected  Status = "REJECTED"
	StatusReturned  Status = "RETURNED"
	StatusOverdue   Status = "OVERDUE"
)

var validNext = map[Status]map[Status]bool{
	StatusRequested: {StatusIssued: true, StatusRejected: true},
	StatusIssued:    {StatusReturned: true},
	StatusRejected:  {},
	StatusReturned:  {},
}

// CanTransition reports whether the stored state machine permits from -> to.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether no further transitions are possible from s.
func Terminal(s Status) bool {
	return len(validNext[s]) == 0
}

// Issue is one loan record: a member's request for a book and everything
// that happened to it afterwards.
type Issue struct {
	ID              uuid.UUID  `json:"id"`
	BookID          uuid.UUID  `json:"book_id"`
	UserID          uuid.UUID  `json:"user_id"`
	Status          Status     `json:"status"`
	EffectiveStatus Status     `json:"effective_status,omitempty"`
	RequestDate     time.Time  `json:"request_date"`
	IssueDate       *time.Time `json:"issue_date,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	ReturnDate      *time.Time `json:"return_date,omitempty"`
	ReissueCount    int        `json:"reissue_count"`
}

// Active reports whether the issue still holds a copy (or a hold on one).
func (i *Issue) Active() bool {
	return i.Status == StatusRequested || i.Status == StatusIssued
}

// ListScope selects which issues a listing returns.
type ListScope string

const (
	ScopeAll     ListScope = "all"
	ScopeMine    ListScope = "mine"
	ScopeOverdue ListScope = "overdue"
)

// Filter narrows ListIssues. UserID is required for ScopeMine.
type Filter struct {
	Scope  ListScope
	UserID uuid.UUID
}

// StaffStats is the dashboard aggregate shown to staff and admins.
type StaffStats struct {
	TotalBooks      int `json:"total_books"`
	AvailableBooks  int `json:"available_books"`
	TotalUsers      int `json:"total_users"`
	PendingRequests int `json:"pending_requests"`
	IssuedBooks     int `json:"issued_books"`
	OverdueBooks    int `json:"overdue_books"`
}

// MemberStats is the dashboard aggregate shown to a member about their own
// loans.
type MemberStats struct {
	TotalIssued    int `json:"total_issued"`
	TotalRequested int `json:"total_requested"`
	OverdueBooks   int `json:"overdue_books"`
	TotalReturned  int `json:"total_returned"`
}
