// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"

	"lendex/internal/roles"
)

// BookInput is the client-supplied portion of a book record. Available
// copies are derived, never supplied.
type BookInput struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	TotalCopies int    `json:"total_copies"`
}

// Service defines the interface for the catalog service.
type Service interface {
	AddBook(ctx context.Context, actor roles.Actor, input BookInput) (*Book, error)
	UpdateBook(ctx context.Context, actor roles.Actor, id uuid.UUID, input BookInput) (*Book, error)
	RemoveBook(ctx context.Context, actor roles.Actor, id uuid.UUID) error
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	ListBooks(ctx context.Context) ([]*Book, error)
	Search(ctx context.Context, query string) ([]*Book, error)
}
