// Package handler exposes the storefront API over HTTP. Request bodies are
// decoded with encoding/json; responses are written with the jx streaming
// encoder.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/threadline/storefront-api/internal/domain/address"
	"github.com/threadline/storefront-api/internal/domain/auth"
	"github.com/threadline/storefront-api/internal/domain/catalog"
	"github.com/threadline/storefront-api/internal/domain/order"
	"github.com/threadline/storefront-api/internal/domain/store"
)

// Handler holds the HTTP handlers for all API routes, delegating business
// logic to the injected domain dependencies.
type Handler struct {
	verifier  auth.Verifier
	orderSvc  *order.Service
	orders    order.Repository
	catalog   catalog.Repository
	addresses address.Repository
	stores    store.Repository

	ordersCreated metric.Int64Counter
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	verifier auth.Verifier,
	orderSvc *order.Service,
	orders order.Repository,
	catalog catalog.Repository,
	addresses address.Repository,
	stores store.Repository,
	meterProvider metric.MeterProvider,
) (*Handler, error) {
	meter := meterProvider.Meter("storefront-api")
	ordersCreated, err := meter.Int64Counter("storefront.orders.created",
		metric.WithDescription("Number of orders accepted by order intake"),
	)
	if err != nil {
		return nil, err
	}

	return &Handler{
		verifier:      verifier,
		orderSvc:      orderSvc,
		orders:        orders,
		catalog:       catalog,
		addresses:     addresses,
		stores:        stores,
		ordersCreated: ordersCreated,
	}, nil
}

// Routes registers all API routes on the mux. Catalog and store reads are
// public; order and address routes require a bearer token.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/stores", h.listStores)

	mux.HandleFunc("POST /api/orders", h.requireAuth(h.createOrder))
	mux.HandleFunc("GET /api/orders", h.requireAuth(h.listOrders))
	mux.HandleFunc("GET /api/orders/{id}", h.requireAuth(h.getOrder))
	mux.HandleFunc("GET /api/addresses", h.requireAuth(h.listAddresses))
}

// userKey is the context key for the authenticated user.
type userKey struct{}

// userFromContext returns the authenticated user set by requireAuth.
func userFromContext(ctx context.Context) *auth.User {
	u, _ := ctx.Value(userKey{}).(*auth.User)
	return u
}

// requireAuth verifies the bearer credential before the request body is read.
// Missing or invalid credentials produce a uniform 401.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		user, err := h.verifier.Verify(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, user)
		ctx = zctx.With(ctx, zap.String("user_id", user.ID))
		next(w, r.WithContext(ctx))
	}
}

// bearerToken extracts the credential from the Authorization header. The
// "Bearer " prefix is optional to match lenient hosted-backend clients.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return token
	}
	return h
}

// Stable error codes surfaced next to the human-readable message.
const (
	codeUnauthorized      = "unauthorized"
	codeInvalidRequest    = "invalid_request"
	codeInvalidVariant    = "invalid_variant"
	codeInsufficientStock = "insufficient_stock"
	codeInvalidProduct    = "invalid_product"
	codeNotFound          = "not_found"
	codePersistence       = "persistence_failure"
)

// writeJSON writes an encoded jx buffer with the given status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the failure envelope: {"success":false,"error":...,"code":...}.
func writeError(w http.ResponseWriter, status int, code, message string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
		e.Field("error", func(e *jx.Encoder) { e.StrEscape(message) })
		e.Field("code", func(e *jx.Encoder) { e.Str(code) })
	})
	writeJSON(w, status, &e)
}

// writeInternalError logs the cause and responds 500 without leaking it.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codePersistence, "internal error")
}

// countOrder records the orders-created metric.
func (h *Handler) countOrder(ctx context.Context, paymentMethod string) {
	h.ordersCreated.Add(ctx, 1,
		metric.WithAttributes(attribute.String("payment_method", paymentMethod)),
	)
}
