package functions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminPhone    = "94770000001"
	customerPhone = "94771234567"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeCatalog counts writes so tests can prove a denied call touched nothing.
type fakeCatalog struct {
	domain.CatalogUseCase
	categories []domain.Category
	writes     int
	err        error
}

func (c *fakeCatalog) BrowseCategories(ctx context.Context) ([]domain.Category, error) {
	return c.categories, c.err
}

func (c *fakeCatalog) ListAllCategories(ctx context.Context) ([]domain.Category, error) {
	return c.categories, c.err
}

func (c *fakeCatalog) CreateCategory(ctx context.Context, cat *domain.Category) (*domain.Category, error) {
	c.writes++
	cat.ID = 5
	return cat, nil
}

func (c *fakeCatalog) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	c.writes++
	p.ID = 12
	return p, nil
}

func (c *fakeCatalog) UpdateProductImage(ctx context.Context, id int, url string) (*domain.Product, error) {
	c.writes++
	return &domain.Product{ID: id, ImageURL: url}, nil
}

type fakeCart struct {
	domain.CartUseCase
	lastPhone string
	lastInfo  domain.CheckoutInfo
	addErr    error
}

func (c *fakeCart) Add(ctx context.Context, phone string, productID, qty int) (*domain.CartItem, error) {
	c.lastPhone = phone
	if c.addErr != nil {
		return nil, c.addErr
	}
	return &domain.CartItem{ID: 1, ProductID: productID, Quantity: qty}, nil
}

func (c *fakeCart) View(ctx context.Context, phone string) (*domain.CartView, error) {
	c.lastPhone = phone
	return &domain.CartView{Items: []domain.CartLine{}}, nil
}

func (c *fakeCart) Checkout(ctx context.Context, phone string, info domain.CheckoutInfo) (*domain.Order, error) {
	c.lastPhone = phone
	c.lastInfo = info
	return &domain.Order{OrderNumber: "ORD-1-AAAAAA", TotalAmount: decimal.NewFromInt(3000), DeliveryFee: decimal.NewFromInt(500), PaymentMethod: domain.DefaultPaymentMethod}, nil
}

type staticAuth struct{ admin string }

func (a staticAuth) IsAdmin(ctx context.Context, caller domain.Caller) bool {
	return SamePhone(caller.Phone, a.admin, "94")
}

func newTestRegistry(t *testing.T) (*Registry, *fakeCatalog, *fakeCart) {
	t.Helper()
	catalog := &fakeCatalog{categories: []domain.Category{{ID: 1, Name: "Kitchen", IsActive: true}}}
	cart := &fakeCart{}
	reg := NewRegistry(staticAuth{admin: adminPhone}, quietLogger())
	require.NoError(t, reg.Register(CustomerFunctions(catalog, cart)...))
	require.NoError(t, reg.Register(AdminFunctions(catalog)...))
	return reg, catalog, cart
}

func run(reg *Registry, text, phone string) []domain.FunctionResult {
	var out []domain.FunctionResult
	for _, inv := range Parse(text) {
		out = append(out, reg.Execute(context.Background(), inv, domain.Caller{Phone: phone}))
	}
	return out
}

func TestUnknownFunction(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	results := run(reg, "[FUNCTION:browse_categories] [FUNCTION:x_unknown]", customerPhone)
	require.Len(t, results, 2)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, domain.KindNotFound, results[1].Kind)
	assert.Equal(t, "Unknown function: x_unknown", results[1].Error)
}

func TestAliasesResolve(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	for _, alias := range []string{"browse_categories", "list_categories", "SHOW_CATEGORIES"} {
		fn, ok := reg.Lookup(alias)
		require.True(t, ok, alias)
		assert.Equal(t, "browse_categories", fn.Name)
	}
}

func TestAdminFunctionDeniedForCustomer(t *testing.T) {
	reg, catalog, _ := newTestRegistry(t)

	results := run(reg, "[FUNCTION:add_product:name=X:category_id=1:price=100]", customerPhone)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, domain.KindAuthorization, results[0].Kind)
	assert.Equal(t, adminRequiredMessage, results[0].Error)
	assert.Zero(t, catalog.writes)
}

func TestAdminFunctionAllowedForAdmin(t *testing.T) {
	reg, catalog, _ := newTestRegistry(t)

	results := run(reg, "[FUNCTION:add_product:name=Blue Sapphire:category_id=5:price=15000:stock=3]", "0770000001@c.us")
	require.Len(t, results, 1)
	require.True(t, results[0].Success, results[0].Error)
	assert.Equal(t, 1, catalog.writes)
	product := results[0].Data.(*domain.Product)
	assert.Equal(t, 3, product.StockQuantity)
	assert.True(t, product.Price.Equal(decimal.NewFromInt(15000)))

	results = run(reg, "[FUNCTION:add_product:name=Ring:category_id=5:price=100]", adminPhone)
	require.True(t, results[0].Success)
	assert.Equal(t, defaultNewProductStock, results[0].Data.(*domain.Product).StockQuantity)

	results = run(reg, "[FUNCTION:add_product:name=Ring]", adminPhone)
	assert.Equal(t, domain.KindValidation, results[0].Kind)
}

func TestSamePhoneIsExact(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"94770000001", "94770000001", true},
		{"0770000001", "94770000001", true},
		{"94770000001@c.us", "+94 77 000 0001", true},
		{"194770000001", "94770000001", false},
		{"4770000001", "94770000001", false},
		{"", "", false},
		{"94770000001", "", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_vs_%s", tt.a, tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, SamePhone(tt.a, tt.b, "94"))
		})
	}
}

func TestHandlersUseCallerIdentity(t *testing.T) {
	reg, _, cart := newTestRegistry(t)

	results := run(reg, "[FUNCTION:add_to_cart:7:2]", customerPhone)
	require.True(t, results[0].Success)
	assert.Equal(t, customerPhone, cart.lastPhone)
	assert.Equal(t, 2, results[0].Data.(*domain.CartItem).Quantity)

	results = run(reg, "[FUNCTION:add_to_cart:product_id=7]", customerPhone)
	assert.Equal(t, 1, results[0].Data.(*domain.CartItem).Quantity)
}

func TestCheckoutMissingDetailsIsCorrective(t *testing.T) {
	reg, _, cart := newTestRegistry(t)

	results := run(reg, "[FUNCTION:checkout:name=Nimal:city=Kandy]", customerPhone)
	require.Len(t, results, 1)
	assert.Equal(t, domain.KindValidation, results[0].Kind)
	assert.Equal(t, "Missing required checkout details: address. Ask the customer for them before calling checkout.", results[0].Error)
	assert.Empty(t, cart.lastPhone)

	results = run(reg, "[FUNCTION:checkout:name=Nimal:address=12 Lake Rd:city=Kandy:payment=Card]", customerPhone)
	require.True(t, results[0].Success)
	assert.Equal(t, "Card", cart.lastInfo.PaymentMethod)
	assert.Contains(t, results[0].Message, "ORD-1-AAAAAA")
}

func TestErrorFolding(t *testing.T) {
	reg, catalog, cart := newTestRegistry(t)

	cart.addErr = fmt.Errorf("%w: only 2 of 'Cup' available", domain.ErrInsufficientStock)
	results := run(reg, "[FUNCTION:add_to_cart:product_id=2:quantity=5]", customerPhone)
	assert.Equal(t, domain.KindInsufficientStock, results[0].Kind)
	assert.Equal(t, "Only 2 of 'Cup' available", results[0].Error)

	catalog.err = errors.New("pq: connection refused")
	results = run(reg, "[FUNCTION:browse_categories]", customerPhone)
	assert.Equal(t, domain.KindInternal, results[0].Kind)
	assert.Equal(t, internalFailureText, results[0].Error)
	assert.NotContains(t, results[0].Error, "pq")
}

func TestCatalogHidesAdminSection(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	customer := reg.Catalog(false)
	assert.Contains(t, customer, "[FUNCTION:browse_categories]")
	assert.NotContains(t, customer, "add_product")

	admin := reg.Catalog(true)
	assert.Contains(t, admin, "ADMIN-ONLY FUNCTIONS")
	assert.Contains(t, admin, "[FUNCTION:add_product:")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry(nil, quietLogger())
	h := func(ctx context.Context, c domain.Caller, a Args) (domain.FunctionResult, error) {
		return domain.Succeeded(nil, ""), nil
	}
	require.NoError(t, reg.Register(Function{Name: "a", Aliases: []string{"b"}, Handler: h}))
	assert.Error(t, reg.Register(Function{Name: "b", Handler: h}))
	assert.False(t, reg.IsAdmin(context.Background(), domain.Caller{Phone: "1"}))
}
