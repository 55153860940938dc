// internal/ledger/memory.go
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lendex/internal/catalog"
)

// MemoryStore is a mutex-guarded Store for tests and local runs. It keeps
// the same atomicity contract as the Postgres store: each mutating method
// checks its guard and applies its writes under one lock acquisition.
type MemoryStore struct {
	mu      sync.Mutex
	books   map[uuid.UUID]*catalog.Book
	issues  map[uuid.UUID]*Issue
	members map[uuid.UUID]struct{}
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:   make(map[uuid.UUID]*catalog.Book),
		issues:  make(map[uuid.UUID]*Issue),
		members: make(map[uuid.UUID]struct{}),
	}
}

// AddBook seeds a catalog record.
func (s *MemoryStore) AddBook(book catalog.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := book
	s.books[b.ID] = &b
}

// AddMember seeds a member for stats counting.
func (s *MemoryStore) AddMember(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[userID] = struct{}{}
}

func (s *MemoryStore) CreateRequest(_ context.Context, bookID, userID uuid.UUID, requestedAt time.Time) (*Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return nil, ErrNotFound
	}
	for _, issue := range s.issues {
		if issue.BookID == bookID && issue.UserID == userID && issue.Active() {
			return nil, ErrDuplicateActiveIssue
		}
	}
	if book.AvailableCopies <= 0 {
		return nil, ErrBookUnavailable
	}

	book.AvailableCopies--
	issue := &Issue{
		ID:          uuid.New(),
		BookID:      bookID,
		UserID:      userID,
		Status:      StatusRequested,
		RequestDate: requestedAt,
	}
	s.issues[issue.ID] = issue
	return copyIssue(issue), nil
}

func (s *MemoryStore) MarkIssued(_ context.Context, issueID uuid.UUID, issuedAt, dueDate time.Time) (*Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.guarded(issueID, StatusRequested, StatusIssued)
	if err != nil {
		return nil, err
	}
	issue.Status = StatusIssued
	at, due := issuedAt, dueDate
	issue.IssueDate = &at
	issue.DueDate = &due
	return copyIssue(issue), nil
}

func (s *MemoryStore) MarkRejected(_ context.Context, issueID uuid.UUID) (*Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.guarded(issueID, StatusRequested, StatusRejected)
	if err != nil {
		return nil, err
	}
	issue.Status = StatusRejected
	s.books[issue.BookID].AvailableCopies++
	return copyIssue(issue), nil
}

func (s *MemoryStore) MarkReturned(_ context.Context, issueID uuid.UUID, returnedAt time.Time) (*Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, err := s.guarded(issueID, StatusIssued, StatusReturned)
	if err != nil {
		return nil, err
	}
	issue.Status = StatusReturned
	at := returnedAt
	issue.ReturnDate = &at
	s.books[issue.BookID].AvailableCopies++
	return copyIssue(issue), nil
}

func (s *MemoryStore) ExtendDueDate(_ context.Context, issueID uuid.UUID, by time.Duration, limit int) (*Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[issueID]
	if !ok {
		return nil, ErrNotFound
	}
	if issue.Status != StatusIssued {
		return nil, &InvalidTransitionError{Current: issue.Status, Attempted: StatusIssued}
	}
	if issue.ReissueCount >= limit {
		return nil, ErrReissueLimitReached
	}
	due := issue.DueDate.Add(by)
	issue.DueDate = &due
	issue.ReissueCount++
	return copyIssue(issue), nil
}

func (s *MemoryStore) GetIssue(_ context.Context, issueID uuid.UUID) (*Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[issueID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyIssue(issue), nil
}

func (s *MemoryStore) ListIssues(_ context.Context, f Filter, now time.Time) ([]*Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var issues []*Issue
	for _, issue := range s.issues {
		switch f.Scope {
		case ScopeMine:
			if issue.UserID != f.UserID {
				continue
			}
		case ScopeOverdue:
			if !Overdue(issue, now) {
				continue
			}
		}
		issues = append(issues, copyIssue(issue))
	}
	sort.Slice(issues, func(a, b int) bool {
		return issues[a].RequestDate.After(issues[b].RequestDate)
	})
	return issues, nil
}

func (s *MemoryStore) GetBook(_ context.Context, bookID uuid.UUID) (*catalog.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return nil, ErrNotFound
	}
	b := *book
	return &b, nil
}

func (s *MemoryStore) StaffStats(_ context.Context, now time.Time) (*StaffStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &StaffStats{TotalUsers: len(s.members)}
	for _, book := range s.books {
		stats.TotalBooks++
		if book.AvailableCopies > 0 {
			stats.AvailableBooks++
		}
	}
	for _, issue := range s.issues {
		switch {
		case issue.Status == StatusRequested:
			stats.PendingRequests++
		case Overdue(issue, now):
			stats.OverdueBooks++
		case issue.Status == StatusIssued:
			stats.IssuedBooks++
		}
	}
	return stats, nil
}

func (s *MemoryStore) MemberStats(_ context.Context, userID uuid.UUID, now time.Time) (*MemberStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &MemberStats{}
	for _, issue := range s.issues {
		if issue.UserID != userID {
			continue
		}
		switch {
		case issue.Status == StatusRequested:
			stats.TotalRequested++
		case Overdue(issue, now):
			stats.OverdueBooks++
		case issue.Status == StatusIssued:
			stats.TotalIssued++
		case issue.Status == StatusReturned:
			stats.TotalReturned++
		}
	}
	return stats, nil
}

// guarded looks up the issue and checks the CAS precondition. Caller holds
// the lock.
func (s *MemoryStore) guarded(issueID uuid.UUID, from, to Status) (*Issue, error) {
	issue, ok := s.issues[issueID]
	if !ok {
		return nil, ErrNotFound
	}
	if issue.Status != from {
		return nil, &InvalidTransitionError{Current: issue.Status, Attempted: to}
	}
	return issue, nil
}

func copyIssue(issue *Issue) *Issue {
	out := *issue
	if issue.IssueDate != nil {
		t := *issue.IssueDate
		out.IssueDate = &t
	}
	if issue.DueDate != nil {
		t := *issue.DueDate
		out.DueDate = &t
	}
	if issue.ReturnDate != nil {
		t := *issue.ReturnDate
		out.ReturnDate = &t
	}
	return &out
}
