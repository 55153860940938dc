// internal/catalog/domain.go
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Book is a catalog record. AvailableCopies is owned by the lifecycle
// engine: it always equals TotalCopies minus the book's outstanding
// REQUESTED and ISSUED loans, and is never written directly by clients.
type Book struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	Genre           string    `json:"genre,omitempty"`
	Description     string    `json:"description,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Available reports whether at least one copy can be requested.
func (b *Book) Available() bool {
	return b.AvailableCopies > 0
}
