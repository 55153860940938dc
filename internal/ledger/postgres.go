// internal/ledger/postgres.go
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lendex/internal/catalog"
)

const issueColumns = `id, book_id, user_id, status, request_date, issue_date, due_date, return_date, reissue_count`

// PostgresStore implements Store on a relational backend. Transitions are
// conditional updates keyed on the expected current status, so concurrent
// attempts on one issue row resolve to exactly one winner without any
// in-process locking. Holds on available_copies use the same conditional
// update trick on the books row.
type PostgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a ledger store on an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("lendex/ledger"),
	}
}

// CreateRequest takes the optimistic hold and records the request in one
// transaction. The conditional decrement succeeds exactly once per unit of
// availability; the partial unique index on active (book, user) pairs
// backstops the duplicate guard and surfaces as a 23505.
func (s *PostgresStore) CreateRequest(ctx context.Context, bookID, userID uuid.UUID, requestedAt time.Time) (*Issue, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.create_request",
		trace.WithAttributes(
			attribute.String("book.id", bookID.String()),
			attribute.String("user.id", userID.String()),
		),
	)
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1, updated_at = NOW()
		WHERE id = $1 AND available_copies > 0
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("take hold: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("take hold: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check book: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		span.SetAttributes(attribute.Bool("hold.rejected", true))
		return nil, ErrBookUnavailable
	}

	issue := &Issue{}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO book_issues (id, book_id, user_id, status, request_date, reissue_count)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING `+issueColumns+`
	`, uuid.New(), bookID, userID, StatusRequested, requestedAt)
	if err := scanIssue(row, issue); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// Rolling back also restores the hold taken above.
			return nil, ErrDuplicateActiveIssue
		}
		return nil, fmt.Errorf("insert request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	span.SetAttributes(attribute.String("issue.id", issue.ID.String()))
	return issue, nil
}

// MarkIssued turns the hold into a loan. Only the issue row changes.
func (s *PostgresStore) MarkIssued(ctx context.Context, issueID uuid.UUID, issuedAt, dueDate time.Time) (*Issue, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.mark_issued",
		trace.WithAttributes(attribute.String("issue.id", issueID.String())),
	)
	defer span.End()

	issue := &Issue{}
	row := s.db.QueryRowContext(ctx, `
		UPDATE book_issues
		SET status = $2, issue_date = $3, due_date = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
		RETURNING `+issueColumns+`
	`, issueID, StatusIssued, issuedAt, dueDate, StatusRequested)
	if err := scanIssue(row, issue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.transitionConflict(ctx, issueID, StatusIssued)
		}
		return nil, fmt.Errorf("mark issued: %w", err)
	}
	return issue, nil
}

// MarkRejected releases the hold together with the status change; both
// commit or neither does.
func (s *PostgresStore) MarkRejected(ctx context.Context, issueID uuid.UUID) (*Issue, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.mark_rejected",
		trace.WithAttributes(attribute.String("issue.id", issueID.String())),
	)
	defer span.End()

	return s.closeOut(ctx, issueID, StatusRequested, StatusRejected, nil)
}

// MarkReturned releases the copy together with the status change; both
// commit or neither does.
func (s *PostgresStore) MarkReturned(ctx context.Context, issueID uuid.UUID, returnedAt time.Time) (*Issue, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.mark_returned",
		trace.WithAttributes(attribute.String("issue.id", issueID.String())),
	)
	defer span.End()

	return s.closeOut(ctx, issueID, StatusIssued, StatusReturned, &returnedAt)
}

// closeOut performs the two release transitions, which share a shape: CAS
// the issue row, then give the copy back to the book, in one transaction.
// Double release is impossible because the CAS succeeds at most once.
func (s *PostgresStore) closeOut(ctx context.Context, issueID uuid.UUID, from, to Status, returnedAt *time.Time) (*Issue, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	issue := &Issue{}
	var row *sql.Row
	if returnedAt != nil {
		row = tx.QueryRowContext(ctx, `
			UPDATE book_issues
			SET status = $2, return_date = $3, updated_at = NOW()
			WHERE id = $1 AND status = $4
			RETURNING `+issueColumns+`
		`, issueID, to, *returnedAt, from)
	} else {
		row = tx.QueryRowContext(ctx, `
			UPDATE book_issues
			SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status = $3
			RETURNING `+issueColumns+`
		`, issueID, to, from)
	}
	if err := scanIssue(row, issue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.transitionConflict(ctx, issueID, to)
		}
		return nil, fmt.Errorf("transition to %s: %w", to, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies + 1, updated_at = NOW()
		WHERE id = $1
	`, issue.BookID); err != nil {
		return nil, fmt.Errorf("release copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return issue, nil
}

// ExtendDueDate applies the reissue in place. Status, cap and the date
// arithmetic are all inside one conditional update, so two concurrent
// reissues can never extend from the same base date.
func (s *PostgresStore) ExtendDueDate(ctx context.Context, issueID uuid.UUID, by time.Duration, limit int) (*Issue, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.extend_due_date",
		trace.WithAttributes(
			attribute.String("issue.id", issueID.String()),
			attribute.Int("reissue.limit", limit),
		),
	)
	defer span.End()

	issue := &Issue{}
	row := s.db.QueryRowContext(ctx, `
		UPDATE book_issues
		SET due_date = due_date + make_interval(secs => $2), reissue_count = reissue_count + 1, updated_at = NOW()
		WHERE id = $1 AND status = $3 AND reissue_count < $4
		RETURNING `+issueColumns+`
	`, issueID, by.Seconds(), StatusIssued, limit)
	if err := scanIssue(row, issue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.reissueConflict(ctx, issueID, limit)
		}
		return nil, fmt.Errorf("extend due date: %w", err)
	}
	return issue, nil
}

// transitionConflict explains a failed CAS: the issue either does not exist
// or sits in a state the transition does not accept.
func (s *PostgresStore) transitionConflict(ctx context.Context, issueID uuid.UUID, attempted Status) error {
	var current Status
	err := s.db.QueryRowContext(ctx, `SELECT status FROM book_issues WHERE id = $1`, issueID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query current status: %w", err)
	}
	return &InvalidTransitionError{Current: current, Attempted: attempted}
}

// reissueConflict distinguishes a wrong state from an exhausted cap.
func (s *PostgresStore) reissueConflict(ctx context.Context, issueID uuid.UUID, limit int) error {
	var current Status
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT status, reissue_count FROM book_issues WHERE id = $1`, issueID).Scan(&current, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query current status: %w", err)
	}
	if current != StatusIssued {
		return &InvalidTransitionError{Current: current, Attempted: StatusIssued}
	}
	return ErrReissueLimitReached
}

// GetIssue retrieves one issue row.
func (s *PostgresStore) GetIssue(ctx context.Context, issueID uuid.UUID) (*Issue, error) {
	issue := &Issue{}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+issueColumns+` FROM book_issues WHERE id = $1
	`, issueID)
	if err := scanIssue(row, issue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

// ListIssues returns matching issues, newest request first.
func (s *PostgresStore) ListIssues(ctx context.Context, f Filter, now time.Time) ([]*Issue, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.list_issues",
		trace.WithAttributes(attribute.String("filter.scope", string(f.Scope))),
	)
	defer span.End()

	query := `SELECT ` + issueColumns + ` FROM book_issues`
	var args []any
	switch f.Scope {
	case ScopeMine:
		query += ` WHERE user_id = $1`
		args = append(args, f.UserID)
	case ScopeOverdue:
		query += ` WHERE status = $1 AND due_date < $2`
		args = append(args, StatusIssued, now)
	}
	query += ` ORDER BY request_date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	var issues []*Issue
	for rows.Next() {
		issue := &Issue{}
		if err := scanIssue(rows, issue); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}

	span.SetAttributes(attribute.Int("issues.returned", len(issues)))
	return issues, nil
}

// GetBook reads the book row the engine's counters live on.
func (s *PostgresStore) GetBook(ctx context.Context, bookID uuid.UUID) (*catalog.Book, error) {
	book := &catalog.Book{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, author, isbn, genre, description, total_copies, available_copies, created_at, updated_at
		FROM books
		WHERE id = $1
	`, bookID).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.ISBN,
		&book.Genre,
		&book.Description,
		&book.TotalCopies,
		&book.AvailableCopies,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// StaffStats aggregates the whole ledger. Issued and overdue counts are
// disjoint: a loan past due at the query time counts as overdue only.
func (s *PostgresStore) StaffStats(ctx context.Context, now time.Time) (*StaffStats, error) {
	stats := &StaffStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM books),
			(SELECT COUNT(*) FROM books WHERE available_copies > 0),
			(SELECT COUNT(*) FROM users WHERE role = 'MEMBER'),
			(SELECT COUNT(*) FROM book_issues WHERE status = 'REQUESTED'),
			(SELECT COUNT(*) FROM book_issues WHERE status = 'ISSUED' AND due_date >= $1),
			(SELECT COUNT(*) FROM book_issues WHERE status = 'ISSUED' AND due_date < $1)
	`, now).Scan(
		&stats.TotalBooks,
		&stats.AvailableBooks,
		&stats.TotalUsers,
		&stats.PendingRequests,
		&stats.IssuedBooks,
		&stats.OverdueBooks,
	)
	if err != nil {
		return nil, fmt.Errorf("staff stats: %w", err)
	}
	return stats, nil
}

// MemberStats aggregates one member's own loans.
func (s *PostgresStore) MemberStats(ctx context.Context, userID uuid.UUID, now time.Time) (*MemberStats, error) {
	stats := &MemberStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM book_issues WHERE user_id = $1 AND status = 'ISSUED' AND due_date >= $2),
			(SELECT COUNT(*) FROM book_issues WHERE user_id = $1 AND status = 'REQUESTED'),
			(SELECT COUNT(*) FROM book_issues WHERE user_id = $1 AND status = 'ISSUED' AND due_date < $2),
			(SELECT COUNT(*) FROM book_issues WHERE user_id = $1 AND status = 'RETURNED')
	`, userID, now).Scan(
		&stats.TotalIssued,
		&stats.TotalRequested,
		&stats.OverdueBooks,
		&stats.TotalReturned,
	)
	if err != nil {
		return nil, fmt.Errorf("member stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner, issue *Issue) error {
	var issueDate, dueDate, returnDate sql.NullTime
	err := row.Scan(
		&issue.ID,
		&issue.BookID,
		&issue.UserID,
		&issue.Status,
		&issue.RequestDate,
		&issueDate,
		&dueDate,
		&returnDate,
		&issue.ReissueCount,
	)
	if err != nil {
		return err
	}
	if issueDate.Valid {
		issue.IssueDate = &issueDate.Time
	}
	if dueDate.Valid {
		issue.DueDate = &dueDate.Time
	}
	if returnDate.Valid {
		issue.ReturnDate = &returnDate.Time
	}
	return nil
}
