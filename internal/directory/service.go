// internal/directory/service.go
package directory

import (
	"context"

	"github.com/google/uuid"

	"lendex/internal/roles"
)

// Service defines the interface for the user directory.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context, actor roles.Actor) ([]*User, error)
	UpdateRole(ctx context.Context, actor roles.Actor, id uuid.UUID, role roles.Role) (*User, error)
	Delete(ctx context.Context, actor roles.Actor, id uuid.UUID) error
}
