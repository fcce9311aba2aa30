package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/siddxharth1/intern-assignment/internal/auth"
	"github.com/siddxharth1/intern-assignment/internal/service"
	"github.com/siddxharth1/intern-assignment/pkg/health"
	"github.com/siddxharth1/intern-assignment/pkg/middleware"
)

// NewRouter creates a chi router with all invoice service routes registered.
func NewRouter(
	authService *service.AuthService,
	invoiceService *service.InvoiceService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics())

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to our internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
		}, nil
	}

	// Auth endpoints (public)
	authHandler := NewAuthHandler(authService, logger)
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Get("/verify-token", authHandler.VerifyToken)
		})
	})

	// Invoice ledger endpoints (auth required)
	invoiceHandler := NewInvoiceHandler(invoiceService, logger)
	r.Route("/api/invoices", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Post("/add-product", invoiceHandler.AddProduct)
		r.Get("/products", invoiceHandler.GetProducts)
		r.Get("/convert-pdf", invoiceHandler.ConvertPDF)
	})

	return r
}
