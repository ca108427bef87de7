package httpapi

import (
	"net/http"
	"time"

	"github.com/cwesi-djin/storefront-go/internal/account"
	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/cwesi-djin/storefront-go/internal/checkout"
	"github.com/cwesi-djin/storefront-go/internal/metrics"
	"github.com/cwesi-djin/storefront-go/internal/order"
	"github.com/cwesi-djin/storefront-go/internal/payment"
	"github.com/cwesi-djin/storefront-go/internal/review"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Carts    *cart.Service
	Checkout *checkout.Service
	Orders   *order.Service
	Catalog  *catalog.Service
	Accounts *account.Service
	Payments *payment.Service
	Reviews  *review.Service

	// SessionCookie names the cookie carrying the anonymous session key.
	SessionCookie string
	// AllowedOrigins enables CORS for browser front ends. Empty disables it.
	AllowedOrigins []string
	// RequestTimeout bounds every handler's context. Zero means 5s.
	RequestTimeout time.Duration
}

type Handler struct {
	Deps
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.SessionCookie == "" {
		d.SessionCookie = "sessionid"
	}
	if d.RequestTimeout == 0 {
		d.RequestTimeout = 5 * time.Second
	}
	h := &Handler{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(correlationID)
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors(d.AllowedOrigins))
	}
	r.Use(requestLogger(d.Logger))
	r.Use(observe(d.Metrics))
	r.Use(recoverer(d.Logger))
	r.Use(middleware.Timeout(d.RequestTimeout))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddItem)
			r.Patch("/items/{productId}", h.UpdateItem)
			r.Delete("/items/{productId}", h.RemoveItem)
			r.Post("/merge", h.MergeCart)
			r.Post("/checkout", h.CheckoutCart)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Get("/{orderId}", h.GetOrder)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{productId}", h.GetProduct)
			r.Patch("/{productId}", h.UpdateProduct)
			r.Get("/{productId}/reviews", h.ListReviews)
			r.Post("/{productId}/reviews", h.CreateReview)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.Register)
			r.Get("/{userId}", h.GetAccount)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.RecordPayment)
			r.Patch("/{paymentId}", h.SetPaymentStatus)
		})
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "storefront"})
}
