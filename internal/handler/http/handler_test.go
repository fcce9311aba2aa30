package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/siddxharth1/intern-assignment/internal/auth"
	"github.com/siddxharth1/intern-assignment/internal/domain"
	"github.com/siddxharth1/intern-assignment/internal/service"
	apperrors "github.com/siddxharth1/intern-assignment/pkg/errors"
	"github.com/siddxharth1/intern-assignment/pkg/health"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockInvoiceRepo struct {
	mock.Mock
}

func (m *mockInvoiceRepo) Get(ctx context.Context, ownerID string) (*domain.Invoice, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) Upsert(ctx context.Context, inv *domain.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

type fakeConverter struct {
	out []byte
	err error
}

func (f *fakeConverter) Convert(_ context.Context, _ []byte) ([]byte, error) {
	return f.out, f.err
}

// ============================================================================
// Test setup
// ============================================================================

const testJWTSecret = "test-secret-key"

type testServer struct {
	handler    http.Handler
	jwtManager *auth.JWTManager
	users      *mockUserRepo
	invoices   *mockInvoiceRepo
}

func newTestServer(t *testing.T, conv *fakeConverter) *testServer {
	t.Helper()

	if conv == nil {
		conv = &fakeConverter{out: []byte("%PDF-1.4 fake")}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	users := new(mockUserRepo)
	invoices := new(mockInvoiceRepo)
	jwtManager := auth.NewJWTManager(testJWTSecret, time.Hour)

	authService := service.NewAuthService(users, jwtManager, logger)
	invoiceService := service.NewInvoiceService(invoices, users, conv, logger)
	healthHandler := health.NewHandler()

	handler := NewRouter(authService, invoiceService, jwtManager, healthHandler, logger, CORSConfig{
		Environment: "development",
	})

	return &testServer{
		handler:    handler,
		jwtManager: jwtManager,
		users:      users,
		invoices:   invoices,
	}
}

func (ts *testServer) bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := ts.jwtManager.GenerateToken(userID, "alice@example.com")
	require.NoError(t, err)
	return "Bearer " + token
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// ============================================================================
// Auth endpoints
// ============================================================================

func TestRegisterEndpoint_Success(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	req := jsonRequest(http.MethodPost, "/api/auth/register", map[string]any{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "supersecret",
	})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", user["email"])
	// The password hash must never appear on the wire.
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterEndpoint_ValidationError(t *testing.T) {
	ts := newTestServer(t, nil)

	req := jsonRequest(http.MethodPost, "/api/auth/register", map[string]any{
		"name":     "Alice",
		"email":    "not-an-email",
		"password": "short",
	})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	ts.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterEndpoint_MalformedJSON(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
	ts.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterEndpoint_DuplicateEmail(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).
		Return(apperrors.AlreadyExists("user", "email", "alice@example.com"))

	req := jsonRequest(http.MethodPost, "/api/auth/register", map[string]any{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "supersecret",
	})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ALREADY_EXISTS")
}

func TestRegisterEndpoint_RejectsNonJSONContentType(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("name=Alice"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestLoginEndpoint_Success(t *testing.T) {
	ts := newTestServer(t, nil)

	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)
	ts.users.On("GetByEmail", mock.Anything, "alice@example.com").Return(&domain.User{
		ID:           "user-1",
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
	}, nil)

	req := jsonRequest(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "supersecret",
	})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
}

func TestLoginEndpoint_WrongPassword(t *testing.T) {
	ts := newTestServer(t, nil)

	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)
	ts.users.On("GetByEmail", mock.Anything, "alice@example.com").Return(&domain.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
	}, nil)

	req := jsonRequest(http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestVerifyTokenEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/verify-token", nil)
		req.Header.Set("Authorization", ts.bearerToken(t, "user-1"))
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "user-1", body["user_id"])
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/verify-token", nil)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/verify-token", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// ============================================================================
// Invoice endpoints
// ============================================================================

func TestAddProductEndpoint_Success(t *testing.T) {
	ts := newTestServer(t, nil)

	ts.invoices.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("invoice", "user-1"))
	ts.invoices.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.Invoice")).Return(nil)

	req := jsonRequest(http.MethodPost, "/api/invoices/add-product", map[string]any{
		"name":     "Pen",
		"quantity": 2,
		"price":    10,
	})
	req.Header.Set("Authorization", ts.bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)

	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.InDelta(t, 20, body["total"], 1e-9)
	assert.InDelta(t, 3.6, body["tax"], 1e-9)
}

func TestAddProductEndpoint_Unauthorized(t *testing.T) {
	ts := newTestServer(t, nil)

	req := jsonRequest(http.MethodPost, "/api/invoices/add-product", map[string]any{
		"name":     "Pen",
		"quantity": 2,
		"price":    10,
	})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	ts.invoices.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestAddProductEndpoint_ValidationError(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"quantity": 1, "price": 10}},
		{"zero quantity", map[string]any{"name": "Pen", "quantity": 0, "price": 10}},
		{"negative price", map[string]any{"name": "Pen", "quantity": 1, "price": -10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)

			req := jsonRequest(http.MethodPost, "/api/invoices/add-product", tt.body)
			req.Header.Set("Authorization", ts.bearerToken(t, "user-1"))
			rec := httptest.NewRecorder()
			ts.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			ts.invoices.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func TestGetProductsEndpoint_EmptyLedger(t *testing.T) {
	ts := newTestServer(t, nil)

	ts.invoices.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("invoice", "user-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/products", nil)
	req.Header.Set("Authorization", ts.bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])

	products, ok := body["products"].(map[string]any)
	require.True(t, ok)
	items, ok := products["items"].([]any)
	require.True(t, ok)
	assert.Empty(t, items)
	assert.EqualValues(t, 0, products["total"])
	assert.EqualValues(t, 0, products["tax"])
}

func TestGetProductsEndpoint_ExistingLedger(t *testing.T) {
	ts := newTestServer(t, nil)

	inv := &domain.Invoice{
		ID:      "inv-1",
		OwnerID: "user-1",
		Items:   []domain.LineItem{{Name: "Pen", Quantity: 2, UnitPrice: 10}},
	}
	inv.Recalculate()
	ts.invoices.On("Get", mock.Anything, "user-1").Return(inv, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/products", nil)
	req.Header.Set("Authorization", ts.bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	products := body["products"].(map[string]any)
	assert.InDelta(t, 20, products["total"], 1e-9)
	assert.InDelta(t, 3.6, products["tax"], 1e-9)
}

func TestConvertPDFEndpoint_Success(t *testing.T) {
	ts := newTestServer(t, &fakeConverter{out: []byte("%PDF-1.4 fake")})

	inv := &domain.Invoice{
		ID:      "inv-1",
		OwnerID: "user-1",
		Items:   []domain.LineItem{{Name: "Pen", Quantity: 2, UnitPrice: 10}},
	}
	inv.Recalculate()
	ts.invoices.On("Get", mock.Anything, "user-1").Return(inv, nil)
	ts.users.On("GetByID", mock.Anything, "user-1").Return(&domain.User{
		ID: "user-1", Name: "Alice", Email: "alice@example.com",
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/convert-pdf", nil)
	req.Header.Set("Authorization", ts.bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=invoice_inv-1.pdf", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, []byte("%PDF-1.4 fake"), rec.Body.Bytes())
}

func TestConvertPDFEndpoint_NoLedger(t *testing.T) {
	ts := newTestServer(t, nil)

	ts.invoices.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("invoice", "user-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/convert-pdf", nil)
	req.Header.Set("Authorization", ts.bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

// ============================================================================
// Infrastructure endpoints
// ============================================================================

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
