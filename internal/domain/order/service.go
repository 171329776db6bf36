package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/threadline/storefront-api/internal/domain/catalog"
)

// CartItem is one client-supplied cart line. Prices are never taken from the
// client; color and size are display hints only, the stored item carries the
// variant's own labels.
type CartItem struct {
	ProductID string
	VariantID string
	Quantity  int
	Color     string
	Size      string
}

// CreateRequest holds the input for creating an order. UserID comes from the
// authenticated caller, never from the request body.
type CreateRequest struct {
	UserID            string
	Items             []CartItem
	ShippingAddressID string
	PaymentMethod     string
	Notes             string
}

// CreateResult holds the output of a successfully created order.
type CreateResult struct {
	OrderID     string
	OrderNumber string
	TotalAmount decimal.Decimal
}

// Service encapsulates the order intake workflow.
type Service struct {
	catalog catalog.Repository
	orders  Repository
	numbers NumberGenerator
}

// NewService creates an order Service with the required dependencies.
func NewService(catalog catalog.Repository, orders Repository, numbers NumberGenerator) *Service {
	return &Service{
		catalog: catalog,
		orders:  orders,
		numbers: numbers,
	}
}

// Create validates every cart item against authoritative catalog records,
// computes the total from server-side prices, and persists the order, its
// items, and the stock decrements in one transaction.
//
// Any validation failure aborts the whole order before a single write; there
// is no partial order for a partially valid cart.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}

	total := decimal.Zero
	items := make([]Item, 0, len(req.Items))

	for _, ci := range req.Items {
		if ci.Quantity <= 0 {
			return nil, &InvalidQuantityError{VariantID: ci.VariantID}
		}

		// Authoritative variant lookup; unknown and inactive look the same.
		variant, err := s.catalog.GetActiveVariant(ctx, ci.VariantID)
		if err != nil {
			if errors.Is(err, catalog.ErrVariantNotFound) {
				return nil, &VariantNotFoundError{VariantID: ci.VariantID}
			}
			return nil, errors.Wrapf(err, "get variant %s", ci.VariantID)
		}

		if ci.Quantity > variant.StockQuantity {
			return nil, &InsufficientStockError{VariantID: ci.VariantID}
		}

		title, err := s.catalog.GetProductTitle(ctx, variant.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, &ProductNotFoundError{ProductID: variant.ProductID}
			}
			return nil, errors.Wrapf(err, "get product %s", variant.ProductID)
		}

		// Missing primary image is not an error; the field stays empty.
		imageURL, err := s.catalog.GetPrimaryImageURL(ctx, variant.ProductID)
		if err != nil {
			return nil, errors.Wrapf(err, "get primary image for product %s", variant.ProductID)
		}

		lineTotal := variant.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
		total = total.Add(lineTotal)

		items = append(items, Item{
			ID:           uuid.New().String(),
			ProductName:  title,
			ProductImage: imageURL,
			VariantColor: variant.Color,
			VariantSize:  variant.Size,
			Quantity:     ci.Quantity,
			UnitPrice:    variant.Price,
			TotalPrice:   lineTotal,
			VariantID:    variant.ID,
		})
	}

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "generate order number")
	}

	o := &Order{
		ID:                uuid.New().String(),
		OrderNumber:       number,
		UserID:            req.UserID,
		TotalAmount:       total.Round(2),
		ShippingAddressID: req.ShippingAddressID,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     "pending",
		Status:            "pending",
		Notes:             req.Notes,
		Items:             items,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			// Lost the race for remaining stock; nothing was written.
			return nil, stockErr
		}
		return nil, errors.Wrap(err, "create order")
	}

	zctx.From(ctx).Info("Order created",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.TotalAmount.String()),
	)

	return &CreateResult{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		TotalAmount: o.TotalAmount,
	}, nil
}
