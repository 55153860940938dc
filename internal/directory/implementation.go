// internal/directory/implementation.go
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/time/rate"

	"lendex/internal/roles"
)

var (
	// ErrNotFound means the user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrForbidden means the caller's role does not allow the operation.
	ErrForbidden = errors.New("operation not permitted for this role")

	// ErrDuplicateEmail means the email is already registered.
	ErrDuplicateEmail = errors.New("a user with this email already exists")

	// ErrInvalidCredentials means email or password did not match.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrRateLimited means registration attempts arrived too fast.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrActiveIssues means the user still holds requests or loans.
	ErrActiveIssues = errors.New("user has active requests or loans")
)

const userColumns = `id, email, name, role, created_at, updated_at`

// service implements the Service interface.
type service struct {
	db          *sql.DB
	rateLimiter *rate.Limiter
}

// NewService creates a new directory service instance.
func NewService(db *sql.DB) Service {
	return &service{
		db:          db,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute), 5), // 5 registrations per minute
	}
}

// Register creates a new member account.
func (s *service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}
	if input.Email == "" || input.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	hash, salt, err := hashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, role, password_hash, salt)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns+`
	`, uuid.New(), input.Email, input.Name, roles.Member, hash, salt)
	if err := scanUser(row, user); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// Authenticate verifies credentials and returns the matching user.
func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user := &User{}
	var hash, salt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, created_at, updated_at, password_hash, salt
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt, &user.UpdatedAt, &hash, &salt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	ok, err := verifyPassword(password, salt, hash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Get retrieves one user.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	user := &User{}
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err := scanUser(row, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List returns all users; staff only.
func (s *service) List(ctx context.Context, actor roles.Actor) ([]*User, error) {
	if !roles.Can(actor.Role, roles.OpListUsers) {
		return nil, ErrForbidden
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user := &User{}
		if err := scanUser(rows, user); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateRole changes a user's role; admin only.
func (s *service) UpdateRole(ctx context.Context, actor roles.Actor, id uuid.UUID, role roles.Role) (*User, error) {
	if !roles.Can(actor.Role, roles.OpManageUsers) {
		return nil, ErrForbidden
	}
	if !roles.Valid(role) {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	user := &User{}
	row := s.db.QueryRowContext(ctx, `
		UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1
		RETURNING `+userColumns+`
	`, id, role)
	if err := scanUser(row, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update role: %w", err)
	}
	return user, nil
}

// Delete removes a user with no outstanding requests or loans; admin only.
func (s *service) Delete(ctx context.Context, actor roles.Actor, id uuid.UUID) error {
	if !roles.Can(actor.Role, roles.OpManageUsers) {
		return ErrForbidden
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM users
		WHERE id = $1 AND NOT EXISTS (
			SELECT 1 FROM book_issues
			WHERE user_id = $1 AND status IN ('REQUESTED', 'ISSUED')
		)
	`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrActiveIssues
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, user *User) error {
	return row.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt, &user.UpdatedAt)
}
