package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/threadline/storefront-api/internal/domain/address"
	"github.com/threadline/storefront-api/internal/domain/auth"
	"github.com/threadline/storefront-api/internal/domain/catalog"
	"github.com/threadline/storefront-api/internal/domain/order"
	"github.com/threadline/storefront-api/internal/domain/store"
	"github.com/threadline/storefront-api/internal/repository"
)

// --- Mock implementations ---

type mockVerifier struct {
	user *auth.User
}

func (m *mockVerifier) Verify(_ context.Context, token string) (*auth.User, error) {
	if m.user == nil || token != "valid-token" {
		return nil, auth.ErrUnauthorized
	}
	return m.user, nil
}

type mockCatalogRepo struct {
	products []catalog.Product
	variants map[string]*catalog.Variant
	titles   map[string]string
	images   map[string]string
	listErr  error
}

func (m *mockCatalogRepo) List(_ context.Context) ([]catalog.Product, error) {
	return m.products, m.listErr
}

func (m *mockCatalogRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (m *mockCatalogRepo) GetActiveVariant(_ context.Context, id string) (*catalog.Variant, error) {
	v, ok := m.variants[id]
	if !ok {
		return nil, catalog.ErrVariantNotFound
	}
	return v, nil
}

func (m *mockCatalogRepo) GetProductTitle(_ context.Context, productID string) (string, error) {
	title, ok := m.titles[productID]
	if !ok {
		return "", catalog.ErrProductNotFound
	}
	return title, nil
}

func (m *mockCatalogRepo) GetPrimaryImageURL(_ context.Context, productID string) (string, error) {
	return m.images[productID], nil
}

type mockOrderRepo struct {
	orders    map[string]*order.Order
	address   *order.Address
	list      []order.Order
	createErr error
	listErr   error
}

func (m *mockOrderRepo) Create(_ context.Context, _ *order.Order) error {
	return m.createErr
}

func (m *mockOrderRepo) GetByID(_ context.Context, userID, orderID string) (*order.Order, *order.Address, error) {
	o, ok := m.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, nil, repository.ErrOrderNotFound
	}
	return o, m.address, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ string) ([]order.Order, error) {
	return m.list, m.listErr
}

type mockAddressRepo struct {
	addresses []address.Address
}

func (m *mockAddressRepo) ListByUser(_ context.Context, _ string) ([]address.Address, error) {
	return m.addresses, nil
}

type mockStoreRepo struct {
	stores []store.Store
}

func (m *mockStoreRepo) ListActive(_ context.Context) ([]store.Store, error) {
	return m.stores, nil
}

// --- Helpers ---

type testEnv struct {
	mux     *http.ServeMux
	catalog *mockCatalogRepo
	orders  *mockOrderRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cat := &mockCatalogRepo{
		variants: map[string]*catalog.Variant{
			"v1": {
				ID:            "v1",
				ProductID:     "p1",
				SKU:           "SKU-1",
				Color:         "Black",
				Size:          "M",
				Price:         decimal.RequireFromString("24.00"),
				StockQuantity: 10,
				Active:        true,
			},
		},
		titles: map[string]string{"p1": "Classic Tee"},
		images: map[string]string{"p1": "https://img.example/p1.jpg"},
	}
	orders := &mockOrderRepo{orders: map[string]*order.Order{}}

	svc := order.NewService(cat, orders, &fixedNumberGen{number: "ORD-20250101-000001"})
	h, err := NewHandler(
		&mockVerifier{user: &auth.User{ID: "u1", Email: "u1@example.com"}},
		svc,
		orders,
		cat,
		&mockAddressRepo{},
		&mockStoreRepo{},
		noop.NewMeterProvider(),
	)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Routes(mux)
	return &testEnv{mux: mux, catalog: cat, orders: orders}
}

type fixedNumberGen struct {
	number string
}

func (g *fixedNumberGen) Next(_ context.Context) (string, error) {
	return g.number, nil
}

func (env *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- Tests ---

func TestRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing token returns 401", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/orders", "", `{"items":[]}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "unauthorized", body["code"])
	})

	t.Run("invalid token returns 401", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/orders", "bogus", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token without Bearer prefix is accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set("Authorization", "valid-token")
		rec := httptest.NewRecorder()
		env.mux.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCreateOrder(t *testing.T) {
	t.Run("valid order returns 201", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/orders", "valid-token",
			`{"items":[{"productId":"p1","variantId":"v1","quantity":2,"color":"Black","size":"M"}],"paymentMethod":"card"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.NotEmpty(t, body["orderId"])
		assert.Equal(t, "ORD-20250101-000001", body["orderNumber"])
		assert.InDelta(t, 48.00, body["totalAmount"], 0.001)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/orders", "valid-token", `{"items":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_request", decodeBody(t, rec)["code"])
	})

	t.Run("malformed shipping address id returns 400", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/orders", "valid-token",
			`{"items":[{"productId":"p1","variantId":"v1","quantity":1}],"shippingAddressId":"not-a-uuid"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_request", decodeBody(t, rec)["code"])
	})

	t.Run("empty items returns 400", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/orders", "valid-token", `{"items":[]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_request", decodeBody(t, rec)["code"])
	})

	t.Run("zero quantity returns 400", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/orders", "valid-token",
			`{"items":[{"productId":"p1","variantId":"v1","quantity":0}]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_request", decodeBody(t, rec)["code"])
	})

	t.Run("unknown variant returns 422", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/orders", "valid-token",
			`{"items":[{"productId":"p1","variantId":"missing","quantity":1}]}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "invalid_variant", decodeBody(t, rec)["code"])
	})

	t.Run("insufficient stock returns 422", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/api/orders", "valid-token",
			`{"items":[{"productId":"p1","variantId":"v1","quantity":999}]}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "insufficient_stock", decodeBody(t, rec)["code"])
	})

	t.Run("stock race lost during persist returns 422", func(t *testing.T) {
		env := newTestEnv(t)
		env.orders.createErr = &order.InsufficientStockError{VariantID: "v1"}
		rec := env.do(t, http.MethodPost, "/api/orders", "valid-token",
			`{"items":[{"productId":"p1","variantId":"v1","quantity":1}]}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "insufficient_stock", decodeBody(t, rec)["code"])
	})

	t.Run("persistence error returns 500", func(t *testing.T) {
		env := newTestEnv(t)
		env.orders.createErr = errors.New("db write failed")
		rec := env.do(t, http.MethodPost, "/api/orders", "valid-token",
			`{"items":[{"productId":"p1","variantId":"v1","quantity":1}]}`)
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "persistence_failure", body["code"])
		assert.NotContains(t, body["error"], "db write failed")
	})
}

func TestListOrders(t *testing.T) {
	env := newTestEnv(t)
	env.orders.list = []order.Order{
		{
			ID:            "o1",
			OrderNumber:   "ORD-20250101-000002",
			UserID:        "u1",
			TotalAmount:   decimal.RequireFromString("48.00"),
			PaymentMethod: "card",
			PaymentStatus: "pending",
			Status:        "pending",
			CreatedAt:     time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	rec := env.do(t, http.MethodGet, "/api/orders", "valid-token", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "o1", body[0]["id"])
	assert.Equal(t, "ORD-20250101-000002", body[0]["orderNumber"])
	assert.Equal(t, "2025-01-01T12:00:00Z", body[0]["createdAt"])
	assert.NotContains(t, body[0], "items")
}

func TestGetOrder(t *testing.T) {
	env := newTestEnv(t)
	env.orders.orders["o1"] = &order.Order{
		ID:            "o1",
		OrderNumber:   "ORD-20250101-000002",
		UserID:        "u1",
		TotalAmount:   decimal.RequireFromString("48.00"),
		PaymentStatus: "pending",
		Status:        "pending",
		Items: []order.Item{
			{
				ID:          "i1",
				ProductName: "Classic Tee",
				Quantity:    2,
				UnitPrice:   decimal.RequireFromString("24.00"),
				TotalPrice:  decimal.RequireFromString("48.00"),
			},
		},
	}
	env.orders.address = &order.Address{
		FullName:     "Test User",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		State:        "CA",
		PostalCode:   "90000",
		Country:      "US",
	}

	t.Run("found", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/orders/o1", "valid-token", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "o1", body["id"])

		items, ok := body["items"].([]any)
		require.True(t, ok)
		require.Len(t, items, 1)

		addr, ok := body["shippingAddress"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Test User", addr["fullName"])
	})

	t.Run("unknown order returns 404", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/orders/missing", "valid-token", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeBody(t, rec)["code"])
	})

	t.Run("other user's order is invisible", func(t *testing.T) {
		env.orders.orders["o2"] = &order.Order{ID: "o2", UserID: "someone-else"}
		rec := env.do(t, http.MethodGet, "/api/orders/o2", "valid-token", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.products = []catalog.Product{
		{
			ID:       "p1",
			Title:    "Classic Tee",
			Category: "tops",
			Variants: []catalog.Variant{
				{ID: "v1", SKU: "SKU-1", Color: "Black", Size: "M", Price: decimal.RequireFromString("24.00"), StockQuantity: 10},
			},
			Images: []catalog.Image{{URL: "https://img.example/p1.jpg", Primary: true}},
		},
	}

	rec := env.do(t, http.MethodGet, "/api/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "Classic Tee", body[0]["title"])

	variants, ok := body[0]["variants"].([]any)
	require.True(t, ok)
	require.Len(t, variants, 1)
	v := variants[0].(map[string]any)
	assert.InDelta(t, 24.00, v["price"], 0.001)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/products/missing", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody(t, rec)["code"])
}

func TestListStores_Public(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/stores", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListAddresses_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/addresses", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/addresses", "valid-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
