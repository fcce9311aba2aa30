package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/siddxharth1/intern-assignment/internal/domain"
	"github.com/siddxharth1/intern-assignment/internal/pdf"
	"github.com/siddxharth1/intern-assignment/internal/render"
	"github.com/siddxharth1/intern-assignment/internal/repository"
	apperrors "github.com/siddxharth1/intern-assignment/pkg/errors"
	pkglogger "github.com/siddxharth1/intern-assignment/pkg/logger"
)

// AddItemInput holds the parameters for appending a line item to a ledger.
type AddItemInput struct {
	Name      string
	Quantity  int
	UnitPrice float64
}

// InvoiceService implements the business logic for the invoice ledger:
// appending line items, recomputing totals, and materializing PDFs.
type InvoiceService struct {
	invoices  repository.InvoiceRepository
	users     repository.UserRepository
	converter pdf.Converter
	logger    *slog.Logger
	locks     ownerLocks
}

// NewInvoiceService creates a new invoice service.
func NewInvoiceService(
	invoices repository.InvoiceRepository,
	users repository.UserRepository,
	converter pdf.Converter,
	logger *slog.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoices:  invoices,
		users:     users,
		converter: converter,
		logger:    logger,
	}
}

// AddItem appends one validated line item to the owner's ledger, recomputes
// total and tax from the full item sequence, persists the ledger, and returns
// the complete updated state. The ledger is created lazily on the owner's
// first add. Mutations for the same owner are serialized so concurrent adds
// cannot lose an update.
func (s *InvoiceService) AddItem(ctx context.Context, ownerID string, input AddItemInput) (*domain.Invoice, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("owner id is required")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if input.UnitPrice <= 0 {
		return nil, apperrors.InvalidInput("price must be greater than 0")
	}

	mu := s.locks.forOwner(ownerID)
	mu.Lock()
	defer mu.Unlock()

	inv, err := s.getOrCreateInvoice(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	inv.Append(domain.LineItem{
		Name:      name,
		Quantity:  input.Quantity,
		UnitPrice: input.UnitPrice,
	})
	inv.UpdatedAt = time.Now().UTC()

	if err := s.invoices.Upsert(ctx, inv); err != nil {
		return nil, fmt.Errorf("save invoice: %w", err)
	}

	pkglogger.WithContext(ctx, s.logger).InfoContext(ctx, "line item added",
		slog.String("owner_id", ownerID),
		slog.String("invoice_id", inv.ID),
		slog.String("product", name),
		slog.Int("quantity", input.Quantity),
		slog.Float64("total", inv.Total),
	)

	return inv, nil
}

// GetInvoice retrieves the owner's ledger. An owner with no ledger gets the
// explicit empty shape (no items, zero totals) rather than a not-found error,
// so callers cannot distinguish "never created" from "empty".
func (s *InvoiceService) GetInvoice(ctx context.Context, ownerID string) (*domain.Invoice, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("owner id is required")
	}

	inv, err := s.invoices.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return emptyInvoice(ownerID), nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}

	return inv, nil
}

// GeneratePDF renders the owner's ledger to HTML and materializes it as an
// A4 PDF. Unlike GetInvoice, an owner with no ledger is a not-found error:
// there is nothing to download. Conversion failures are not retried.
func (s *InvoiceService) GeneratePDF(ctx context.Context, ownerID string) ([]byte, *domain.Invoice, error) {
	if ownerID == "" {
		return nil, nil, apperrors.InvalidInput("owner id is required")
	}

	inv, err := s.invoices.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NotFound("invoice", ownerID)
		}
		return nil, nil, fmt.Errorf("get invoice: %w", err)
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("get invoice owner: %w", err)
	}

	html, err := render.Invoice(inv, owner)
	if err != nil {
		return nil, nil, fmt.Errorf("render invoice: %w", err)
	}

	bytes, err := s.converter.Convert(ctx, html)
	if err != nil {
		if errors.Is(err, pdf.ErrEngineUnavailable) {
			return nil, nil, apperrors.Unavailable("pdf engine unavailable")
		}
		return nil, nil, fmt.Errorf("convert invoice to pdf: %w", err)
	}

	pkglogger.WithContext(ctx, s.logger).InfoContext(ctx, "invoice pdf generated",
		slog.String("owner_id", ownerID),
		slog.String("invoice_id", inv.ID),
		slog.Int("bytes", len(bytes)),
	)

	return bytes, inv, nil
}

// getOrCreateInvoice retrieves the owner's invoice, creating an empty one if
// it does not exist yet. Callers must hold the owner's lock.
func (s *InvoiceService) getOrCreateInvoice(ctx context.Context, ownerID string) (*domain.Invoice, error) {
	inv, err := s.invoices.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return newInvoice(ownerID), nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func newInvoice(ownerID string) *domain.Invoice {
	now := time.Now().UTC()
	return &domain.Invoice{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Items:     []domain.LineItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// emptyInvoice is the zero-valued ledger shape returned for owners that have
// never added an item. It is not persisted.
func emptyInvoice(ownerID string) *domain.Invoice {
	return &domain.Invoice{
		OwnerID: ownerID,
		Items:   []domain.LineItem{},
	}
}
