package usecase

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customer = "94771234567"

type cartFixture struct {
	store     *store
	orders    *fakeOrderRepo
	publisher *recordingPublisher
	uc        domain.CartUseCase
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	s := newStore()
	s.addProduct(domain.Product{ID: 1, Name: "Tea Pot", Price: decimal.NewFromInt(1000), StockQuantity: 5})
	s.addProduct(domain.Product{ID: 2, Name: "Cup", Price: decimal.NewFromInt(500), StockQuantity: 3})
	s.addProduct(domain.Product{ID: 3, Name: "Old Mug", Price: decimal.NewFromInt(200), StockQuantity: 9, Status: domain.ProductInactive})

	orders := &fakeOrderRepo{s: s}
	pub := &recordingPublisher{}
	uc, err := NewCartUseCase(&fakeCartRepo{s: s}, &fakeProductRepo{s: s}, orders,
		&fakeSettingsRepo{settings: defaultSettings()}, pub, quietLogger())
	require.NoError(t, err)
	return &cartFixture{store: s, orders: orders, publisher: pub, uc: uc}
}

func TestAddValidatesProductAndStock(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		productID int
		qty       int
		kind      domain.Kind
	}{
		{"zero quantity", 1, 0, domain.KindValidation},
		{"unknown product", 99, 1, domain.KindNotFound},
		{"inactive product", 3, 1, domain.KindNotFound},
		{"more than stock", 2, 4, domain.KindInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Add(ctx, customer, tt.productID, tt.qty)
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}

	view, err := f.uc.View(ctx, customer)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestAddTwiceGrowsOneLine(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	_, err := f.uc.Add(ctx, customer, 1, 1)
	require.NoError(t, err)
	item, err := f.uc.Add(ctx, customer, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	view, err := f.uc.View(ctx, customer)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.ItemCount)
}

func TestCheckoutConvertsCartIntoOrder(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	_, err := f.uc.Add(ctx, customer, 1, 2)
	require.NoError(t, err)
	_, err = f.uc.Add(ctx, customer, 2, 1)
	require.NoError(t, err)

	view, err := f.uc.View(ctx, customer)
	require.NoError(t, err)
	assert.True(t, view.Subtotal.Equal(decimal.NewFromInt(2500)))
	assert.True(t, view.DeliveryFee.Equal(decimal.NewFromInt(500)))
	assert.True(t, view.Total.Equal(decimal.NewFromInt(3000)))

	order, err := f.uc.Checkout(ctx, customer, domain.CheckoutInfo{Name: "Nimal", Address: "12 Lake Rd", City: "Kandy"})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^ORD-\d+-[A-Z0-9]{6}$`), order.OrderNumber)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(3000)))
	assert.True(t, order.DeliveryFee.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, domain.DefaultPaymentMethod, order.PaymentMethod)
	require.Len(t, order.Items, 2)

	assert.Equal(t, 3, f.store.products[1].StockQuantity)
	assert.Equal(t, 2, f.store.products[2].StockQuantity)

	view, err = f.uc.View(ctx, customer)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, order.OrderNumber, f.publisher.events[0].OrderNumber)
	assert.Equal(t, customer, f.publisher.events[0].CustomerAddress)
}

func TestCheckoutEmptyCartCreatesNoOrder(t *testing.T) {
	f := newCartFixture(t)

	_, err := f.uc.Checkout(context.Background(), customer, domain.CheckoutInfo{Name: "A", Address: "B", City: "C"})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Empty(t, f.store.orders)
	assert.Empty(t, f.publisher.events)
}

func TestCheckoutRequiresDeliveryDetails(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	_, err := f.uc.Add(ctx, customer, 1, 1)
	require.NoError(t, err)

	_, err = f.uc.Checkout(ctx, customer, domain.CheckoutInfo{Name: "Nimal", City: "  "})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Contains(t, err.Error(), "address, city")
	assert.Empty(t, f.store.orders)

	view, err := f.uc.View(ctx, customer)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestCheckoutInsufficientStockLeavesCart(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	_, err := f.uc.Add(ctx, customer, 2, 3)
	require.NoError(t, err)
	// Stock drops between add and checkout.
	f.store.products[2].StockQuantity = 1

	_, err = f.uc.Checkout(ctx, customer, domain.CheckoutInfo{Name: "A", Address: "B", City: "C"})
	require.Error(t, err)
	assert.Equal(t, domain.KindInsufficientStock, domain.KindOf(err))
	assert.Equal(t, 1, f.store.products[2].StockQuantity)
	assert.Empty(t, f.publisher.events)

	view, err := f.uc.View(ctx, customer)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestRemoveForeignItemIsNoop(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	item, err := f.uc.Add(ctx, "94770000000", 1, 1)
	require.NoError(t, err)

	removed, err := f.uc.Remove(ctx, customer, item.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = f.uc.Remove(ctx, "94770000000", item.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestTrackingIsScopedToCaller(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	f.uc.(*cartUseCase).now = func() time.Time { return time.UnixMilli(1700000000000) }

	_, err := f.uc.Tracking(ctx, customer, "")
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = f.uc.Add(ctx, customer, 1, 1)
	require.NoError(t, err)
	order, err := f.uc.Checkout(ctx, customer, domain.CheckoutInfo{Name: "A", Address: "B", City: "C"})
	require.NoError(t, err)
	assert.Contains(t, order.OrderNumber, "ORD-1700000000000-")

	info, err := f.uc.Tracking(ctx, customer, "")
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, info.OrderNumber)
	assert.Contains(t, info.Message, "pending")

	_, err = f.uc.Track(ctx, "94770000000", order.OrderNumber)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	orders, err := f.uc.CustomerOrders(ctx, customer, 0)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
