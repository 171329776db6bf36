package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/threadline/storefront-api/internal/domain/order"
	"github.com/threadline/storefront-api/internal/repository"
)

// orderRequest is the order intake request body.
type orderRequest struct {
	Items             []cartItemRequest `json:"items"`
	ShippingAddressID string            `json:"shippingAddressId"`
	PaymentMethod     string            `json:"paymentMethod"`
	Notes             string            `json:"notes"`
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

// createOrder handles POST /api/orders: the order intake workflow.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "malformed request body")
		return
	}

	// The id feeds a uuid cast in the insert; reject garbage as client error.
	if req.ShippingAddressID != "" {
		if _, err := uuid.Parse(req.ShippingAddressID); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid shipping address id")
			return
		}
	}

	user := userFromContext(r.Context())

	items := make([]order.CartItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.CartItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Color:     it.Color,
			Size:      it.Size,
		}
	}

	result, err := h.orderSvc.Create(r.Context(), order.CreateRequest{
		UserID:            user.ID,
		Items:             items,
		ShippingAddressID: req.ShippingAddressID,
		PaymentMethod:     req.PaymentMethod,
		Notes:             req.Notes,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	h.countOrder(r.Context(), req.PaymentMethod)

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
		e.Field("orderId", func(e *jx.Encoder) { e.Str(result.OrderID) })
		e.Field("orderNumber", func(e *jx.Encoder) { e.Str(result.OrderNumber) })
		e.Field("totalAmount", func(e *jx.Encoder) { e.Num(jx.Num(result.TotalAmount.StringFixed(2))) })
	})
	writeJSON(w, http.StatusCreated, &e)
}

// writeOrderError maps order intake errors onto the failure envelope. Every
// failure aborts the whole order; the mapping only picks status and code.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		quantityErr *order.InvalidQuantityError
		variantErr  *order.VariantNotFoundError
		stockErr    *order.InsufficientStockError
		productErr  *order.ProductNotFoundError
	)
	switch {
	case errors.Is(err, order.ErrNoItems):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.As(err, &quantityErr):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, quantityErr.Error())
	case errors.As(err, &variantErr):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidVariant, variantErr.Error())
	case errors.As(err, &stockErr):
		writeError(w, http.StatusUnprocessableEntity, codeInsufficientStock, stockErr.Error())
	case errors.As(err, &productErr):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidProduct, productErr.Error())
	default:
		writeInternalError(w, r, err)
	}
}

// listOrders handles GET /api/orders: the caller's orders, newest first.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	orders, err := h.orders.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for i := range orders {
			encodeOrder(e, &orders[i], nil)
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

// getOrder handles GET /api/orders/{id}: one order with items and address.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	o, addr, err := h.orders.GetByID(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "order not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o, addr)
	writeJSON(w, http.StatusOK, &e)
}

// encodeOrder writes one order object. Items are included only when present;
// address only on the detail view.
func encodeOrder(e *jx.Encoder, o *order.Order, addr *order.Address) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("orderNumber", func(e *jx.Encoder) { e.Str(o.OrderNumber) })
		e.Field("status", func(e *jx.Encoder) { e.Str(o.Status) })
		e.Field("paymentMethod", func(e *jx.Encoder) { e.Str(o.PaymentMethod) })
		e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(o.PaymentStatus) })
		e.Field("totalAmount", func(e *jx.Encoder) { e.Num(jx.Num(o.TotalAmount.StringFixed(2))) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")) })
		if o.TrackingNumber != "" {
			e.Field("trackingNumber", func(e *jx.Encoder) { e.Str(o.TrackingNumber) })
		}
		if o.Notes != "" {
			e.Field("notes", func(e *jx.Encoder) { e.StrEscape(o.Notes) })
		}
		if len(o.Items) > 0 {
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range o.Items {
						encodeOrderItem(e, &o.Items[i])
					}
				})
			})
		}
		if addr != nil {
			e.Field("shippingAddress", func(e *jx.Encoder) { encodeAddress(e, addr) })
		}
	})
}

func encodeOrderItem(e *jx.Encoder, it *order.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
		e.Field("productName", func(e *jx.Encoder) { e.StrEscape(it.ProductName) })
		if it.ProductImage != "" {
			e.Field("productImage", func(e *jx.Encoder) { e.Str(it.ProductImage) })
		}
		if it.VariantColor != "" {
			e.Field("variantColor", func(e *jx.Encoder) { e.StrEscape(it.VariantColor) })
		}
		if it.VariantSize != "" {
			e.Field("variantSize", func(e *jx.Encoder) { e.StrEscape(it.VariantSize) })
		}
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
		e.Field("unitPrice", func(e *jx.Encoder) { e.Num(jx.Num(it.UnitPrice.StringFixed(2))) })
		e.Field("totalPrice", func(e *jx.Encoder) { e.Num(jx.Num(it.TotalPrice.StringFixed(2))) })
	})
}

func encodeAddress(e *jx.Encoder, a *order.Address) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("fullName", func(e *jx.Encoder) { e.StrEscape(a.FullName) })
		e.Field("phone", func(e *jx.Encoder) { e.Str(a.Phone) })
		e.Field("addressLine1", func(e *jx.Encoder) { e.StrEscape(a.AddressLine1) })
		if a.AddressLine2 != "" {
			e.Field("addressLine2", func(e *jx.Encoder) { e.StrEscape(a.AddressLine2) })
		}
		e.Field("city", func(e *jx.Encoder) { e.StrEscape(a.City) })
		e.Field("state", func(e *jx.Encoder) { e.StrEscape(a.State) })
		e.Field("postalCode", func(e *jx.Encoder) { e.Str(a.PostalCode) })
		e.Field("country", func(e *jx.Encoder) { e.StrEscape(a.Country) })
	})
}
