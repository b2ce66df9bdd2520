package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	nanoid "github.com/jaevor/go-nanoid"
	"github.com/sirupsen/logrus"
)

const (
	orderTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderTokenLength   = 6
	maxOrderListLimit  = 10
)

var _ domain.CartUseCase = (*cartUseCase)(nil)

type cartUseCase struct {
	cartRepo     domain.CartRepository
	productRepo  domain.ProductRepository
	orderRepo    domain.OrderRepository
	settingsRepo domain.SettingsRepository
	publisher    domain.OrderEventPublisher
	orderToken   func() string
	now          func() time.Time
	log          *logrus.Logger
}

func NewCartUseCase(
	cartRepo domain.CartRepository,
	productRepo domain.ProductRepository,
	orderRepo domain.OrderRepository,
	settingsRepo domain.SettingsRepository,
	publisher domain.OrderEventPublisher,
	logger *logrus.Logger,
) (domain.CartUseCase, error) {
	token, err := nanoid.CustomASCII(orderTokenAlphabet, orderTokenLength)
	if err != nil {
		return nil, fmt.Errorf("could not create order token generator: %w", err)
	}
	return &cartUseCase{
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		orderRepo:    orderRepo,
		settingsRepo: settingsRepo,
		publisher:    publisher,
		orderToken:   token,
		now:          time.Now,
		log:          logger,
	}, nil
}

func (uc *cartUseCase) Add(ctx context.Context, customerPhone string, productID, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}
	if productID <= 0 {
		return nil, fmt.Errorf("%w: invalid product ID", domain.ErrValidation)
	}

	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, fmt.Errorf("%w: product '%s' is not available", domain.ErrNotFound, product.Name)
	}
	if product.StockQuantity < quantity {
		uc.log.Warnf("Use Case: Insufficient stock for product %d (requested %d, available %d)", productID, quantity, product.StockQuantity)
		return nil, fmt.Errorf("%w: only %d of '%s' available", domain.ErrInsufficientStock, product.StockQuantity, product.Name)
	}

	item, err := uc.cartRepo.Upsert(ctx, customerPhone, productID, quantity)
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Added %d x product %d to cart of %s", quantity, productID, customerPhone)
	return item, nil
}

func (uc *cartUseCase) View(ctx context.Context, customerPhone string) (*domain.CartView, error) {
	lines, err := uc.cartRepo.Lines(ctx, customerPhone)
	if err != nil {
		return nil, err
	}
	settings, err := uc.settingsRepo.Load(ctx)
	if err != nil {
		return nil, err
	}
	view := domain.PriceCart(lines, settings.Pricing())
	return &view, nil
}

// Remove reports removed=false when the row is missing or belongs to
// another customer.
func (uc *cartUseCase) Remove(ctx context.Context, customerPhone string, cartItemID int) (bool, error) {
	if cartItemID <= 0 {
		return false, fmt.Errorf("%w: invalid cart item ID", domain.ErrValidation)
	}
	return uc.cartRepo.Remove(ctx, customerPhone, cartItemID)
}

func (uc *cartUseCase) Clear(ctx context.Context, customerPhone string) (int64, error) {
	return uc.cartRepo.Clear(ctx, customerPhone)
}

func (uc *cartUseCase) Checkout(ctx context.Context, customerPhone string, info domain.CheckoutInfo) (*domain.Order, error) {
	info.Name = strings.TrimSpace(info.Name)
	info.Address = strings.TrimSpace(info.Address)
	info.City = strings.TrimSpace(info.City)
	info.PaymentMethod = strings.TrimSpace(info.PaymentMethod)

	var missing []string
	if info.Name == "" {
		missing = append(missing, "name")
	}
	if info.Address == "" {
		missing = append(missing, "address")
	}
	if info.City == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required checkout details: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	if info.PaymentMethod == "" {
		info.PaymentMethod = domain.DefaultPaymentMethod
	}

	settings, err := uc.settingsRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	req := domain.CheckoutRequest{
		CustomerPhone: customerPhone,
		OrderNumber:   uc.nextOrderNumber(),
		Info:          info,
		Pricing:       settings.Pricing(),
	}
	order, err := uc.orderRepo.Checkout(ctx, req)
	if err != nil {
		if domain.Expected(err) {
			uc.log.Warnf("Use Case: Checkout rejected for %s: %v", customerPhone, err)
		} else {
			uc.log.Errorf("Use Case: Checkout failed for %s: %v", customerPhone, err)
		}
		return nil, err
	}

	uc.log.Infof("Use Case: Order %s placed by %s, total %s", order.OrderNumber, customerPhone, order.TotalAmount.StringFixed(2))
	if uc.publisher != nil {
		uc.publisher.PublishNewOrder(ctx, domain.NewOrderEventFrom(order))
	}
	return order, nil
}

func (uc *cartUseCase) nextOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%s", uc.now().UnixMilli(), uc.orderToken())
}

func (uc *cartUseCase) Track(ctx context.Context, customerPhone, orderNumber string) (*domain.Order, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	if orderNumber == "" {
		return nil, fmt.Errorf("%w: order number is required", domain.ErrValidation)
	}
	return uc.orderRepo.GetByNumber(ctx, customerPhone, orderNumber)
}

func (uc *cartUseCase) CustomerOrders(ctx context.Context, customerPhone string, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > maxOrderListLimit {
		limit = maxOrderListLimit
	}
	return uc.orderRepo.ListByCustomer(ctx, customerPhone, limit)
}

// Tracking falls back to the caller's latest order when no number is given.
func (uc *cartUseCase) Tracking(ctx context.Context, customerPhone, orderNumber string) (*domain.TrackingInfo, error) {
	var (
		order *domain.Order
		err   error
	)
	if strings.TrimSpace(orderNumber) != "" {
		order, err = uc.Track(ctx, customerPhone, orderNumber)
	} else {
		order, err = uc.orderRepo.Latest(ctx, customerPhone)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: you have no orders yet", domain.ErrNotFound)
		}
	}
	if err != nil {
		return nil, err
	}

	return &domain.TrackingInfo{
		OrderNumber:     order.OrderNumber,
		Status:          order.Status,
		TrackingID:      order.TrackingID,
		DeliveryAddress: order.DeliveryAddress,
		City:            order.City,
		Message:         trackingMessage(order),
	}, nil
}

func trackingMessage(o *domain.Order) string {
	switch {
	case o.TrackingID != "":
		return fmt.Sprintf("Your order is %s. Tracking ID: %s", o.Status, o.TrackingID)
	case o.Status == domain.StatusDelivered:
		return "Your order has been delivered."
	case o.Status == domain.StatusCancelled:
		return "This order was cancelled."
	default:
		return fmt.Sprintf("Your order is %s. A tracking ID will be shared once it ships.", o.Status)
	}
}
