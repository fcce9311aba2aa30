package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/siddxharth1/intern-assignment/internal/domain"
	"github.com/siddxharth1/intern-assignment/internal/service"
	"github.com/siddxharth1/intern-assignment/pkg/middleware"
	"github.com/siddxharth1/intern-assignment/pkg/validator"
)

// InvoiceHandler handles HTTP requests for the invoice ledger endpoints.
type InvoiceHandler struct {
	service *service.InvoiceService
	logger  *slog.Logger
}

// NewInvoiceHandler creates a new invoice HTTP handler.
func NewInvoiceHandler(svc *service.InvoiceService, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{service: svc, logger: logger}
}

// AddProductRequest is the JSON request body for appending a line item.
// The wire field is "price"; internally it is the unit price.
type AddProductRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=200"`
	Quantity int     `json:"quantity" validate:"required,gt=0"`
	Price    float64 `json:"price" validate:"required,gt=0"`
}

type productsResponse struct {
	Success  bool            `json:"success"`
	Products *domain.Invoice `json:"products"`
}

// AddProduct handles POST /api/invoices/add-product
func (h *InvoiceHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	var req AddProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		writeValidationError(w, err)
		return
	}

	inv, err := h.service.AddItem(r.Context(), userID, service.AddItemInput{
		Name:      req.Name,
		Quantity:  req.Quantity,
		UnitPrice: req.Price,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, inv)
}

// GetProducts handles GET /api/invoices/products
func (h *InvoiceHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	inv, err := h.service.GetInvoice(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, productsResponse{Success: true, Products: inv})
}

// ConvertPDF handles GET /api/invoices/convert-pdf
func (h *InvoiceHandler) ConvertPDF(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	pdfBytes, inv, err := h.service.GeneratePDF(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice_%s.pdf", inv.ID))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(pdfBytes); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write pdf response",
			slog.String("owner_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
