package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

const DefaultPaymentMethod = "Cash on Delivery"

type Order struct {
	ID              int             `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	CustomerPhone   string          `json:"customerPhone"`
	CustomerName    string          `json:"customerName"`
	DeliveryAddress string          `json:"deliveryAddress"`
	City            string          `json:"city"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	PaymentMethod   string          `json:"paymentMethod"`
	TrackingID      string          `json:"trackingId,omitempty"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Subtotal is the goods value, without delivery.
func (o *Order) Subtotal() decimal.Decimal {
	return o.TotalAmount.Sub(o.DeliveryFee)
}

type OrderItem struct {
	ID          int             `json:"id"`
	ProductID   int             `json:"productId,omitempty"` // 0 once the product is deleted
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type TrackingInfo struct {
	OrderNumber     string      `json:"orderNumber"`
	Status          OrderStatus `json:"status"`
	TrackingID      string      `json:"trackingId,omitempty"`
	DeliveryAddress string      `json:"deliveryAddress"`
	City            string      `json:"city"`
	Message         string      `json:"message"`
}

type NewOrderEvent struct {
	OrderID         int             `json:"orderId"`
	OrderNumber     string          `json:"orderNumber"`
	CustomerAddress string          `json:"customerAddress"`
	CustomerName    string          `json:"customerName"`
	Total           decimal.Decimal `json:"total"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee"`
	Status          OrderStatus     `json:"status"`
	PaymentMethod   string          `json:"paymentMethod"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func NewOrderEventFrom(o *Order) NewOrderEvent {
	return NewOrderEvent{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerAddress: o.CustomerPhone,
		CustomerName:    o.CustomerName,
		Total:           o.TotalAmount,
		DeliveryFee:     o.DeliveryFee,
		Status:          o.Status,
		PaymentMethod:   o.PaymentMethod,
		CreatedAt:       o.CreatedAt,
	}
}

type OrderRepository interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*Order, error)
	GetByID(ctx context.Context, id int) (*Order, error)
	GetByNumber(ctx context.Context, customerPhone, orderNumber string) (*Order, error)
	Latest(ctx context.Context, customerPhone string) (*Order, error)
	ListByCustomer(ctx context.Context, customerPhone string, limit int) ([]Order, error)
	UpdateStatus(ctx context.Context, id int, status OrderStatus) (*Order, error)
	UpdateTracking(ctx context.Context, id int, trackingID string) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, id int, status PaymentStatus) (*Order, error)
}

type OrderEventPublisher interface {
	PublishNewOrder(ctx context.Context, event NewOrderEvent)
}

type OrderNotifier interface {
	NotifyStatusChange(ctx context.Context, order *Order) error
	SendTracking(ctx context.Context, order *Order) error
	SendInvoice(ctx context.Context, order *Order) error
}

// OrderUseCase is the write contract offered to the dashboard collaborator.
type OrderUseCase interface {
	GetOrder(ctx context.Context, id int) (*Order, error)
	UpdateStatus(ctx context.Context, id int, status OrderStatus) (*Order, error)
	UpdateTracking(ctx context.Context, id int, trackingID string, notify bool) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, id int, status PaymentStatus) (*Order, error)
	SendTracking(ctx context.Context, id int) error
	SendInvoice(ctx context.Context, id int) error
}

func IsValidStatus(status OrderStatus) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

func IsValidPaymentStatus(status PaymentStatus) bool {
	switch status {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	default:
		return false
	}
}

var statusRank = map[OrderStatus]int{
	StatusPending:    0,
	StatusConfirmed:  1,
	StatusProcessing: 2,
	StatusShipped:    3,
	StatusDelivered:  4,
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// CanTransition enforces the forward progression. Cancellation is reachable
// from any state before delivery, refund from any non-terminal state.
func CanTransition(from, to OrderStatus) bool {
	if !IsValidStatus(to) || from.IsTerminal() || from == to {
		return false
	}
	switch to {
	case StatusCancelled:
		return from != StatusDelivered
	case StatusRefunded:
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	return statusRank[to] > fromRank
}
