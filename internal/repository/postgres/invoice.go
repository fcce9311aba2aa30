package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/siddxharth1/intern-assignment/internal/domain"
	apperrors "github.com/siddxharth1/intern-assignment/pkg/errors"
)

// InvoiceRepository implements repository.InvoiceRepository using PostgreSQL.
// The item sequence is stored as a JSONB document in a single row per owner.
type InvoiceRepository struct {
	db DB
}

// NewInvoiceRepository creates a new PostgreSQL-backed invoice repository.
func NewInvoiceRepository(db DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Get retrieves the invoice for an owner.
func (r *InvoiceRepository) Get(ctx context.Context, ownerID string) (*domain.Invoice, error) {
	query := `
		SELECT owner_id, id, items, total, tax, created_at, updated_at
		FROM invoices
		WHERE owner_id = $1`

	var (
		inv      domain.Invoice
		rawItems []byte
	)
	err := r.db.QueryRow(ctx, query, ownerID).Scan(
		&inv.OwnerID,
		&inv.ID,
		&rawItems,
		&inv.Total,
		&inv.Tax,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("invoice", ownerID)
		}
		return nil, fmt.Errorf("select invoice: %w", err)
	}

	if err := json.Unmarshal(rawItems, &inv.Items); err != nil {
		return nil, fmt.Errorf("unmarshal invoice items: %w", err)
	}

	return &inv, nil
}

// Upsert stores the invoice with a single INSERT ... ON CONFLICT statement.
// A concurrent insert for the same owner cannot produce two rows; the later
// write updates the existing row, which keeps its id and created_at. The
// stored id is read back into inv so a caller that lost the insert race
// still reports the persisted identity.
func (r *InvoiceRepository) Upsert(ctx context.Context, inv *domain.Invoice) error {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("marshal invoice items: %w", err)
	}

	query := `
		INSERT INTO invoices (owner_id, id, items, total, tax, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id) DO UPDATE
		SET items = EXCLUDED.items,
		    total = EXCLUDED.total,
		    tax = EXCLUDED.tax,
		    updated_at = EXCLUDED.updated_at
		RETURNING id`

	err = r.db.QueryRow(ctx, query,
		inv.OwnerID,
		inv.ID,
		items,
		inv.Total,
		inv.Tax,
		inv.CreatedAt,
		inv.UpdatedAt,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("upsert invoice: %w", err)
	}

	return nil
}
