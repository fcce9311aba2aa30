package repository

import (
	"context"

	"github.com/siddxharth1/intern-assignment/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user. Returns an already-exists error when the
	// email is taken.
	Create(ctx context.Context, u *domain.User) error

	// GetByID retrieves a user by their ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// InvoiceRepository defines the interface for invoice ledger persistence.
// Each owner has at most one invoice document.
type InvoiceRepository interface {
	// Get retrieves the invoice for an owner. Returns a not-found error when
	// the owner has no invoice yet.
	Get(ctx context.Context, ownerID string) (*domain.Invoice, error)

	// Upsert stores the invoice as a single insert-or-update statement keyed
	// by owner ID, so creation and mutation share one write path. The stored
	// invoice id is written back into inv.
	Upsert(ctx context.Context, inv *domain.Invoice) error
}
