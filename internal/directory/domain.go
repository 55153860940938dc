// internal/directory/domain.go
package directory

import (
	"time"

	"github.com/google/uuid"

	"lendex/internal/roles"
)

// User is a directory entry. The engine consults the directory only for
// role-bearing identities; sessions and tokens live elsewhere.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      roles.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RegisterInput is the self-registration payload. New users always start
// as members; role changes are an admin operation.
type RegisterInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}
