// internal/notify/implementation.go
package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"lendex/internal/catalog"
	"lendex/internal/ledger"
)

// ErrNotFound means the notification does not exist or belongs to someone
// else.
var ErrNotFound = errors.New("notification not found")

// Service records lifecycle notifications and serves them back per user.
// It satisfies ledger.Notifier.
type Service struct {
	db *sql.DB
}

// NewService creates a notification service on an open database handle.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// IssueRequested fans the new request out to every staff and admin user.
func (s *Service) IssueRequested(ctx context.Context, issue *ledger.Issue, book *catalog.Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, issue_id, kind, message)
		SELECT gen_random_uuid(), id, $1, $2, $3
		FROM users
		WHERE role IN ('STAFF', 'ADMIN')
	`, issue.ID, KindRequested, fmt.Sprintf("A member has requested %q", book.Title))
	if err != nil {
		return fmt.Errorf("insert request notifications: %w", err)
	}
	return nil
}

// IssueApproved tells the requester their loan is ready.
func (s *Service) IssueApproved(ctx context.Context, issue *ledger.Issue, book *catalog.Book) error {
	msg := fmt.Sprintf("Your request for %q has been approved", book.Title)
	if issue.DueDate != nil {
		msg = fmt.Sprintf("Your request for %q has been approved, due %s", book.Title, issue.DueDate.Format("2006-01-02"))
	}
	return s.insert(ctx, issue.UserID, issue.ID, KindApproved, msg)
}

// IssueRejected tells the requester their request was refused.
func (s *Service) IssueRejected(ctx context.Context, issue *ledger.Issue, book *catalog.Book) error {
	return s.insert(ctx, issue.UserID, issue.ID, KindRejected,
		fmt.Sprintf("Your request for %q has been rejected", book.Title))
}

// IssueReturned confirms the return to the borrower.
func (s *Service) IssueReturned(ctx context.Context, issue *ledger.Issue, book *catalog.Book) error {
	return s.insert(ctx, issue.UserID, issue.ID, KindReturned,
		fmt.Sprintf("You have returned %q", book.Title))
}

// IssueReissued tells the borrower the new due date.
func (s *Service) IssueReissued(ctx context.Context, issue *ledger.Issue, book *catalog.Book) error {
	msg := fmt.Sprintf("%q has been reissued", book.Title)
	if issue.DueDate != nil {
		msg = fmt.Sprintf("%q has been reissued, new due date %s", book.Title, issue.DueDate.Format("2006-01-02"))
	}
	return s.insert(ctx, issue.UserID, issue.ID, KindReissued, msg)
}

func (s *Service) insert(ctx context.Context, userID, issueID uuid.UUID, kind Kind, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, issue_id, kind, message)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
	`, userID, issueID, kind, message)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListForUser returns the user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, issue_id, kind, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n := &Notification{}
		var issueID uuid.NullUUID
		if err := rows.Scan(&n.ID, &n.UserID, &issueID, &n.Kind, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if issueID.Valid {
			id := issueID.UUID
			n.IssueID = &id
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE user_id = $1
	`, userID); err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}
