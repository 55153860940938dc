// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"lendex/internal/roles"
)

var (
	// ErrNotFound means the book does not exist.
	ErrNotFound = errors.New("book not found")

	// ErrForbidden means the caller's role does not allow catalog changes.
	ErrForbidden = errors.New("operation not permitted for this role")

	// ErrDuplicateISBN means a book with that ISBN is already cataloged.
	ErrDuplicateISBN = errors.New("a book with this ISBN already exists")

	// ErrCopiesOutstanding means the change would leave more copies on loan
	// than the catalog says exist.
	ErrCopiesOutstanding = errors.New("total copies cannot drop below outstanding loans")
)

const bookColumns = `id, title, author, isbn, genre, description, total_copies, available_copies, created_at, updated_at`

// service implements the Service interface.
type service struct {
	db *sql.DB
}

// NewService creates a new catalog service instance.
func NewService(db *sql.DB) Service {
	return &service{db: db}
}

// AddBook creates a new book with all copies available.
func (s *service) AddBook(ctx context.Context, actor roles.Actor, input BookInput) (*Book, error) {
	if !roles.Can(actor.Role, roles.OpManageBooks) {
		return nil, ErrForbidden
	}
	if input.TotalCopies < 0 {
		return nil, fmt.Errorf("total_copies must not be negative")
	}

	book := &Book{}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO books (id, title, author, isbn, genre, description, total_copies, available_copies)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING `+bookColumns+`
	`, uuid.New(), input.Title, input.Author, input.ISBN, input.Genre, input.Description, input.TotalCopies)
	if err := scanBook(row, book); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateISBN
		}
		return nil, fmt.Errorf("insert book: %w", err)
	}
	return book, nil
}

// UpdateBook edits a book record. A change to total_copies shifts
// available_copies by the same delta, guarded in the same statement so the
// count of outstanding loans is preserved and never exceeds the new total.
func (s *service) UpdateBook(ctx context.Context, actor roles.Actor, id uuid.UUID, input BookInput) (*Book, error) {
	if !roles.Can(actor.Role, roles.OpManageBooks) {
		return nil, ErrForbidden
	}

	book := &Book{}
	row := s.db.QueryRowContext(ctx, `
		UPDATE books
		SET title = $2, author = $3, isbn = $4, genre = $5, description = $6,
		    available_copies = available_copies + ($7 - total_copies),
		    total_copies = $7,
		    updated_at = NOW()
		WHERE id = $1 AND available_copies + ($7 - total_copies) >= 0
		RETURNING `+bookColumns+`
	`, id, input.Title, input.Author, input.ISBN, input.Genre, input.Description, input.TotalCopies)
	if err := scanBook(row, book); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.updateConflict(ctx, id)
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateISBN
		}
		return nil, fmt.Errorf("update book: %w", err)
	}
	return book, nil
}

func (s *service) updateConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check book: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrCopiesOutstanding
}

// RemoveBook deletes a book that has no active requests or loans. Closed
// issue history goes with it.
func (s *service) RemoveBook(ctx context.Context, actor roles.Actor, id uuid.UUID) error {
	if !roles.Can(actor.Role, roles.OpManageBooks) {
		return ErrForbidden
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM books
		WHERE id = $1 AND NOT EXISTS (
			SELECT 1 FROM book_issues
			WHERE book_id = $1 AND status IN ('REQUESTED', 'ISSUED')
		)
	`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if affected == 0 {
		return s.removeConflict(ctx, id)
	}
	return nil
}

func (s *service) removeConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check book: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrCopiesOutstanding
}

// GetBook retrieves a book by its ID.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	book := &Book{}
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	if err := scanBook(row, book); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// ListBooks returns the catalog ordered by title.
func (s *service) ListBooks(ctx context.Context) ([]*Book, error) {
	return s.queryBooks(ctx, `SELECT `+bookColumns+` FROM books ORDER BY title, author`)
}

// Search finds books by title or author full-text match.
func (s *service) Search(ctx context.Context, query string) ([]*Book, error) {
	return s.queryBooks(ctx, `
		SELECT `+bookColumns+`
		FROM books
		WHERE to_tsvector('english', title || ' ' || author) @@ plainto_tsquery('english', $1)
		ORDER BY title
		LIMIT 50
	`, query)
}

func (s *service) queryBooks(ctx context.Context, query string, args ...any) ([]*Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		book := &Book{}
		if err := scanBook(rows, book); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner, book *Book) error {
	return row.Scan(
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
}
