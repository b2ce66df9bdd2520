package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// store backs every fake repository so checkout can touch carts, stock and
// orders the way the SQL transaction does.
type store struct {
	mu         sync.Mutex
	categories map[int]*domain.Category
	products   map[int]*domain.Product
	carts      map[string][]domain.CartItem
	orders     []*domain.Order
	nextID     int
}

func newStore() *store {
	return &store{
		categories: map[int]*domain.Category{},
		products:   map[int]*domain.Product{},
		carts:      map[string][]domain.CartItem{},
		nextID:     100,
	}
}

func (s *store) id() int {
	s.nextID++
	return s.nextID
}

func (s *store) addProduct(p domain.Product) {
	if p.Status == "" {
		p.Status = domain.ProductActive
	}
	s.products[p.ID] = &p
}

type fakeCategoryRepo struct {
	s         *store
	listCalls int
}

func (r *fakeCategoryRepo) ListActive(ctx context.Context) ([]domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.listCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []domain.Category{}
	for _, c := range r.s.categories {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCategoryRepo) ListAll(ctx context.Context) ([]domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Category{}
	for _, c := range r.s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCategoryRepo) GetByID(ctx context.Context, id int) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, fmt.Errorf("%w: category with id %d not found", domain.ErrNotFound, id)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCategoryRepo) Create(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id()
	c.IsActive = true
	cp := *c
	r.s.categories[c.ID] = &cp
	return c, nil
}

func (r *fakeCategoryRepo) Deactivate(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return fmt.Errorf("%w: category with id %d not found", domain.ErrNotFound, id)
	}
	c.IsActive = false
	return nil
}

func (r *fakeCategoryRepo) Delete(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if p.CategoryID == id {
			return fmt.Errorf("%w: category %d still has products", domain.ErrValidation, id)
		}
	}
	delete(r.s.categories, id)
	return nil
}

type fakeProductRepo struct{ s *store }

func (r *fakeProductRepo) GetByID(ctx context.Context, id int) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product with id %d not found", domain.ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) Search(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Product{}
	for _, p := range r.s.products {
		if p.IsActive() && strings.Contains(strings.ToLower(p.Name), strings.ToLower(term)) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) ListByCategory(ctx context.Context, categoryID int, limit int) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Product{}
	for _, p := range r.s.products {
		if p.CategoryID == categoryID && p.IsActive() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id()
	cp := *p
	r.s.products[p.ID] = &cp
	return p, nil
}

func (r *fakeProductRepo) UpdateImage(ctx context.Context, id int, url string) (*domain.Product, error) {
	r.s.mu.Lock()
	p, ok := r.s.products[id]
	if !ok {
		r.s.mu.Unlock()
		return nil, fmt.Errorf("%w: product with id %d not found", domain.ErrNotFound, id)
	}
	p.ImageURL = url
	r.s.mu.Unlock()
	return r.GetByID(ctx, id)
}

type fakeCartRepo struct{ s *store }

func (r *fakeCartRepo) Upsert(ctx context.Context, phone string, productID, qty int) (*domain.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := r.s.carts[phone]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += qty
			cp := items[i]
			return &cp, nil
		}
	}
	item := domain.CartItem{ID: r.s.id(), CustomerPhone: phone, ProductID: productID, Quantity: qty}
	r.s.carts[phone] = append(items, item)
	return &item, nil
}

func (r *fakeCartRepo) Lines(ctx context.Context, phone string) ([]domain.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.linesLocked(phone), nil
}

func (s *store) linesLocked(phone string) []domain.CartLine {
	lines := []domain.CartLine{}
	for _, it := range s.carts[phone] {
		p := s.products[it.ProductID]
		lines = append(lines, domain.CartLine{
			CartItemID:    it.ID,
			ProductID:     p.ID,
			Name:          p.Name,
			Price:         p.Price,
			Quantity:      it.Quantity,
			StockQuantity: p.StockQuantity,
			Status:        p.Status,
		})
	}
	return lines
}

func (r *fakeCartRepo) Remove(ctx context.Context, phone string, id int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := r.s.carts[phone]
	for i := range items {
		if items[i].ID == id {
			r.s.carts[phone] = append(items[:i], items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCartRepo) Clear(ctx context.Context, phone string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.carts[phone]))
	delete(r.s.carts, phone)
	return n, nil
}

type fakeOrderRepo struct {
	s           *store
	checkoutErr error
}

// Checkout mirrors the transaction: all-or-nothing over stock, order and cart.
func (r *fakeOrderRepo) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	if r.checkoutErr != nil {
		return nil, r.checkoutErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := r.s.linesLocked(req.CustomerPhone)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	}
	for _, l := range lines {
		if l.StockQuantity < l.Quantity {
			return nil, fmt.Errorf("%w: only %d of '%s' left", domain.ErrInsufficientStock, l.StockQuantity, l.Name)
		}
	}
	view := domain.PriceCart(lines, req.Pricing)
	order := &domain.Order{
		ID:              r.s.id(),
		OrderNumber:     req.OrderNumber,
		CustomerPhone:   req.CustomerPhone,
		CustomerName:    req.Info.Name,
		DeliveryAddress: req.Info.Address,
		City:            req.Info.City,
		TotalAmount:     view.Total,
		DeliveryFee:     view.DeliveryFee,
		Status:          domain.StatusPending,
		PaymentStatus:   domain.PaymentPending,
		PaymentMethod:   req.Info.PaymentMethod,
		CreatedAt:       time.Now(),
	}
	for _, l := range view.Items {
		r.s.products[l.ProductID].StockQuantity -= l.Quantity
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: l.ProductID, ProductName: l.Name, Quantity: l.Quantity, Price: l.Price, Subtotal: l.Subtotal,
		})
	}
	delete(r.s.carts, req.CustomerPhone)
	r.s.orders = append(r.s.orders, order)
	cp := *order
	return &cp, nil
}

func (r *fakeOrderRepo) find(match func(*domain.Order) bool, what string) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.orders) - 1; i >= 0; i-- {
		if match(r.s.orders[i]) {
			cp := *r.s.orders[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s not found", domain.ErrNotFound, what)
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id int) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.ID == id }, "order")
}

func (r *fakeOrderRepo) GetByNumber(ctx context.Context, phone, number string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.OrderNumber == number && o.CustomerPhone == phone }, "order "+number)
}

func (r *fakeOrderRepo) Latest(ctx context.Context, phone string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.CustomerPhone == phone }, "recent order")
}

func (r *fakeOrderRepo) ListByCustomer(ctx context.Context, phone string, limit int) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Order{}
	for i := len(r.s.orders) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.orders[i].CustomerPhone == phone {
			out = append(out, *r.s.orders[i])
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) mutate(id int, fn func(*domain.Order)) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.ID == id {
			fn(o)
			cp := *o
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: order with id %d not found", domain.ErrNotFound, id)
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, id int, st domain.OrderStatus) (*domain.Order, error) {
	return r.mutate(id, func(o *domain.Order) { o.Status = st })
}

func (r *fakeOrderRepo) UpdateTracking(ctx context.Context, id int, tracking string) (*domain.Order, error) {
	return r.mutate(id, func(o *domain.Order) { o.TrackingID = tracking })
}

func (r *fakeOrderRepo) UpdatePaymentStatus(ctx context.Context, id int, st domain.PaymentStatus) (*domain.Order, error) {
	return r.mutate(id, func(o *domain.Order) { o.PaymentStatus = st })
}

type fakeSettingsRepo struct {
	settings domain.Settings
	modes    map[string]domain.Mode
}

func defaultSettings() domain.Settings {
	return domain.Settings{
		AutoReplyEnabled:  true,
		AIModeEnabled:     true,
		AIFallbackEnabled: true,
		HistoryLimit:      10,
		DeliveryFee:       decimal.NewFromInt(500),
		FreeDeliveryAbove: decimal.NewFromInt(3000),
		StoreName:         "Test Store",
	}
}

func (r *fakeSettingsRepo) Load(ctx context.Context) (*domain.Settings, error) {
	s := r.settings
	return &s, nil
}

func (r *fakeSettingsRepo) ConversationMode(ctx context.Context, phone string) (domain.Mode, bool, error) {
	m, ok := r.modes[phone]
	return m, ok, nil
}

func (r *fakeSettingsRepo) SetConversationMode(ctx context.Context, phone string, mode domain.Mode) error {
	if r.modes == nil {
		r.modes = map[string]domain.Mode{}
	}
	r.modes[phone] = mode
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.NewOrderEvent
}

func (p *recordingPublisher) PublishNewOrder(ctx context.Context, e domain.NewOrderEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

type recordingNotifier struct {
	statuses []domain.OrderStatus
	tracking []string
	invoices []string
	err      error
}

func (n *recordingNotifier) NotifyStatusChange(ctx context.Context, o *domain.Order) error {
	n.statuses = append(n.statuses, o.Status)
	return n.err
}

func (n *recordingNotifier) SendTracking(ctx context.Context, o *domain.Order) error {
	if o.TrackingID == "" {
		return fmt.Errorf("%w: order has no tracking id", domain.ErrValidation)
	}
	n.tracking = append(n.tracking, o.TrackingID)
	return n.err
}

func (n *recordingNotifier) SendInvoice(ctx context.Context, o *domain.Order) error {
	n.invoices = append(n.invoices, o.OrderNumber)
	return n.err
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]domain.Category
	deletes int
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]domain.Category{}} }

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*[]domain.Category)) = v
	return true, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value.([]domain.Category)
	return nil
}

func (c *mapCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	c.entries = map[string][]domain.Category{}
	return nil
}
