package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ID            int    `json:"id"`
	CustomerPhone string `json:"-"`
	ProductID     int    `json:"product_id"`
	Quantity      int    `json:"quantity"`
}

// CartLine is a cart row joined with the product's current name and price.
type CartLine struct {
	CartItemID    int             `json:"cart_item_id"`
	ProductID     int             `json:"product_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ImageURL      string          `json:"image_url,omitempty"`
	StockQuantity int             `json:"-"`
	Status        ProductStatus   `json:"-"`
}

type CartView struct {
	Items       []CartLine      `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"itemCount"`
}

// DeliveryPricing is a flat fee waived once the subtotal reaches FreeAbove.
// A zero FreeAbove never waives the fee.
type DeliveryPricing struct {
	FlatFee   decimal.Decimal
	FreeAbove decimal.Decimal
}

func (p DeliveryPricing) FeeFor(subtotal decimal.Decimal) decimal.Decimal {
	if p.FreeAbove.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeAbove) {
		return decimal.Zero
	}
	return p.FlatFee
}

// PriceCart computes line subtotals and totals. Checkout and view both go
// through here so the two can never disagree.
func PriceCart(lines []CartLine, pricing DeliveryPricing) CartView {
	view := CartView{
		Items:       make([]CartLine, 0, len(lines)),
		Subtotal:    decimal.Zero,
		DeliveryFee: decimal.Zero,
		Total:       decimal.Zero,
	}
	for _, line := range lines {
		line.Subtotal = line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		view.Subtotal = view.Subtotal.Add(line.Subtotal)
		view.ItemCount += line.Quantity
		view.Items = append(view.Items, line)
	}
	if len(view.Items) > 0 {
		view.DeliveryFee = pricing.FeeFor(view.Subtotal)
	}
	view.Total = view.Subtotal.Add(view.DeliveryFee)
	return view
}

type CheckoutInfo struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	City          string `json:"city"`
	PaymentMethod string `json:"payment_method"`
}

// CheckoutRequest is everything the storage transaction needs to turn a cart
// into an order.
type CheckoutRequest struct {
	CustomerPhone string
	OrderNumber   string
	Info          CheckoutInfo
	Pricing       DeliveryPricing
}

type CartRepository interface {
	Upsert(ctx context.Context, customerPhone string, productID, quantity int) (*CartItem, error)
	Lines(ctx context.Context, customerPhone string) ([]CartLine, error)
	Remove(ctx context.Context, customerPhone string, cartItemID int) (bool, error)
	Clear(ctx context.Context, customerPhone string) (int64, error)
}

type CartUseCase interface {
	Add(ctx context.Context, customerPhone string, productID, quantity int) (*CartItem, error)
	View(ctx context.Context, customerPhone string) (*CartView, error)
	Remove(ctx context.Context, customerPhone string, cartItemID int) (bool, error)
	Clear(ctx context.Context, customerPhone string) (int64, error)
	Checkout(ctx context.Context, customerPhone string, info CheckoutInfo) (*Order, error)
	Track(ctx context.Context, customerPhone, orderNumber string) (*Order, error)
	CustomerOrders(ctx context.Context, customerPhone string, limit int) ([]Order, error)
	Tracking(ctx context.Context, customerPhone, orderNumber string) (*TrackingInfo, error)
}
