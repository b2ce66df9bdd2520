package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type postgresOrderRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresOrderRepository(db *sql.DB, logger *logrus.Logger) domain.OrderRepository {
	return &postgresOrderRepository{
		db:  db,
		log: logger,
	}
}

const orderColumns = `id, order_number, customer_phone, customer_name, delivery_address, city,
               total_amount, delivery_fee, status, payment_status, payment_method,
               COALESCE(tracking_id, ''), created_at, updated_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerPhone, &o.CustomerName, &o.DeliveryAddress, &o.City,
		&o.TotalAmount, &o.DeliveryFee, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.TrackingID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Checkout runs the whole cart-to-order conversion in one transaction. The
// cart's product rows are locked, and every stock decrement is conditional,
// so stock can never go negative even if the lock is bypassed.
func (r *postgresOrderRepository) Checkout(ctx context.Context, req domain.CheckoutRequest) (order *domain.Order, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.log.Errorf("Repository: Failed to begin checkout transaction: %v", err)
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Repository: Recovered from panic, rolling back checkout")
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			r.log.Warnf("Repository: Rolling back checkout for %s: %v", req.CustomerPhone, err)
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Errorf("Repository: Failed to rollback checkout: %v", rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				r.log.Errorf("Repository: Failed to commit checkout: %v", cErr)
				err = fmt.Errorf("failed to commit checkout: %w", cErr)
				order = nil
			}
		}
	}()

	rows, err := tx.QueryContext(ctx, cartLinesQuery+` FOR UPDATE OF ci, p`, req.CustomerPhone)
	if err != nil {
		return nil, fmt.Errorf("could not lock cart: %w", err)
	}
	lines, err := scanCartLines(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		err = fmt.Errorf("%w: cart is empty", domain.ErrValidation)
		return nil, err
	}
	for _, line := range lines {
		if line.Status != domain.ProductActive {
			err = fmt.Errorf("%w: product '%s' is no longer available", domain.ErrNotFound, line.Name)
			return nil, err
		}
	}

	view := domain.PriceCart(lines, req.Pricing)

	order = &domain.Order{
		OrderNumber:     req.OrderNumber,
		CustomerPhone:   req.CustomerPhone,
		CustomerName:    req.Info.Name,
		DeliveryAddress: req.Info.Address,
		City:            req.Info.City,
		TotalAmount:     view.Total,
		DeliveryFee:     view.DeliveryFee,
		PaymentMethod:   req.Info.PaymentMethod,
	}
	orderQuery := `
        INSERT INTO orders (order_number, customer_phone, customer_name, delivery_address, city,
                            total_amount, delivery_fee, status, payment_status, payment_method)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', 'pending', $8)
        RETURNING id, status, payment_status, created_at, updated_at`
	err = tx.QueryRowContext(ctx, orderQuery, order.OrderNumber, order.CustomerPhone, order.CustomerName,
		order.DeliveryAddress, order.City, order.TotalAmount, order.DeliveryFee, order.PaymentMethod).
		Scan(&order.ID, &order.Status, &order.PaymentStatus, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		r.log.Errorf("Repository: Failed to insert order %s: %v", order.OrderNumber, err)
		return nil, fmt.Errorf("could not create order entry: %w", err)
	}
	r.log.Infof("Repository: Order entry %s created with ID %d", order.OrderNumber, order.ID)

	itemQuery := `
        INSERT INTO order_items (order_id, product_id, product_name, quantity, price, subtotal)
        VALUES ($1, $2, $3, $4, $5, $6)`
	for _, line := range view.Items {
		if _, err = tx.ExecContext(ctx, itemQuery, order.ID, line.ProductID, line.Name, line.Quantity, line.Price, line.Subtotal); err != nil {
			r.log.Errorf("Repository: Failed to insert order item (product %d) for order %d: %v", line.ProductID, order.ID, err)
			return nil, fmt.Errorf("could not create order item (product_id: %d): %w", line.ProductID, err)
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			Price:       line.Price,
			Subtotal:    line.Subtotal,
		})
	}

	decrement := `UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = NOW() WHERE id = $2 AND stock_quantity >= $1`
	for _, line := range view.Items {
		var result sql.Result
		result, err = tx.ExecContext(ctx, decrement, line.Quantity, line.ProductID)
		if err != nil {
			r.log.Errorf("Repository: Failed to decrement stock for product %d: %v", line.ProductID, err)
			return nil, fmt.Errorf("could not update stock for product %d: %w", line.ProductID, err)
		}
		var n int64
		if n, err = result.RowsAffected(); err != nil {
			return nil, fmt.Errorf("could not confirm stock update for product %d: %w", line.ProductID, err)
		}
		if n == 0 {
			r.log.Warnf("Repository: Insufficient stock for product %d (wanted %d, have %d)", line.ProductID, line.Quantity, line.StockQuantity)
			err = fmt.Errorf("%w: only %d of '%s' left", domain.ErrInsufficientStock, line.StockQuantity, line.Name)
			return nil, err
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE customer_phone = $1`, req.CustomerPhone); err != nil {
		r.log.Errorf("Repository: Failed to clear cart after order %s: %v", order.OrderNumber, err)
		return nil, fmt.Errorf("could not clear cart: %w", err)
	}

	if err = r.upsertCustomerTx(ctx, tx, domain.Customer{
		Phone:      req.CustomerPhone,
		Name:       req.Info.Name,
		Address:    req.Info.Address,
		City:       req.Info.City,
		TotalSpent: order.TotalAmount,
	}); err != nil {
		return nil, err
	}

	r.log.Infof("Repository: Order %s prepared with %d items, total %s", order.OrderNumber, len(order.Items), order.TotalAmount)
	return order, nil
}

func (r *postgresOrderRepository) upsertCustomerTx(ctx context.Context, tx *sql.Tx, c domain.Customer) error {
	query := `
        INSERT INTO customers (phone, name, address, city, total_orders, total_spent, last_order_at)
        VALUES ($1, $2, $3, $4, 1, $5, NOW())
        ON CONFLICT (phone) DO UPDATE SET
            name          = COALESCE(NULLIF(EXCLUDED.name, ''), customers.name),
            address       = COALESCE(NULLIF(EXCLUDED.address, ''), customers.address),
            city          = COALESCE(NULLIF(EXCLUDED.city, ''), customers.city),
            total_orders  = customers.total_orders + 1,
            total_spent   = customers.total_spent + EXCLUDED.total_spent,
            last_order_at = NOW()`
	if _, err := tx.ExecContext(ctx, query, c.Phone, c.Name, c.Address, c.City, c.TotalSpent); err != nil {
		r.log.Errorf("Repository: Failed to upsert customer %s: %v", c.Phone, err)
		return fmt.Errorf("could not update customer record: %w", err)
	}
	return nil
}

func (r *postgresOrderRepository) GetByID(ctx context.Context, id int) (*domain.Order, error) {
	return r.getOne(ctx, fmt.Sprintf("order with id %d", id), `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByNumber only finds orders that belong to customerPhone.
func (r *postgresOrderRepository) GetByNumber(ctx context.Context, customerPhone, orderNumber string) (*domain.Order, error) {
	return r.getOne(ctx, fmt.Sprintf("order %s", orderNumber),
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1 AND customer_phone = $2`, orderNumber, customerPhone)
}

func (r *postgresOrderRepository) Latest(ctx context.Context, customerPhone string) (*domain.Order, error) {
	return r.getOne(ctx, "recent order",
		`SELECT `+orderColumns+` FROM orders WHERE customer_phone = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, customerPhone)
}

func (r *postgresOrderRepository) getOne(ctx context.Context, what, query string, args ...interface{}) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: %s not found", what)
			return nil, fmt.Errorf("%w: %s not found", domain.ErrNotFound, what)
		}
		r.log.Errorf("Repository: Failed to get %s: %v", what, err)
		return nil, fmt.Errorf("could not retrieve order: %w", err)
	}
	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *postgresOrderRepository) ListByCustomer(ctx context.Context, customerPhone string, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_phone = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		customerPhone, limit)
	if err != nil {
		r.log.Errorf("Repository: Failed to list orders for customer %s: %v", customerPhone, err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.log.Errorf("Repository: Failed to scan order row for customer %s: %v", customerPhone, err)
			return nil, fmt.Errorf("error scanning order data: %w", err)
		}
		orders = append(orders, *o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ptrs := make([]*domain.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := r.attachItems(ctx, ptrs); err != nil {
		return nil, err
	}
	r.log.Infof("Repository: Retrieved %d orders for customer %s", len(orders), customerPhone)
	return orders, nil
}

// attachItems loads items for all given orders in a single query.
func (r *postgresOrderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	ids := make([]int64, 0, len(orders))
	byID := make(map[int]*domain.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, int64(o.ID))
		byID[o.ID] = o
		o.Items = []domain.OrderItem{}
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT order_id, id, COALESCE(product_id, 0), product_name, quantity, price, subtotal
        FROM order_items
        WHERE order_id = ANY($1)
        ORDER BY order_id, id`, pq.Array(ids))
	if err != nil {
		r.log.Errorf("Repository: Failed to query items for orders %v: %v", ids, err)
		return fmt.Errorf("could not retrieve order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price, &item.Subtotal); err != nil {
			return fmt.Errorf("error scanning order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}
	return nil
}

func (r *postgresOrderRepository) UpdateStatus(ctx context.Context, id int, status domain.OrderStatus) (*domain.Order, error) {
	return r.updateOne(ctx, id, "status", `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING `+orderColumns, status, id)
}

func (r *postgresOrderRepository) UpdateTracking(ctx context.Context, id int, trackingID string) (*domain.Order, error) {
	var tracking sql.NullString
	if trackingID != "" {
		tracking = sql.NullString{String: trackingID, Valid: true}
	}
	return r.updateOne(ctx, id, "tracking", `UPDATE orders SET tracking_id = $1, updated_at = NOW() WHERE id = $2 RETURNING `+orderColumns, tracking, id)
}

func (r *postgresOrderRepository) UpdatePaymentStatus(ctx context.Context, id int, status domain.PaymentStatus) (*domain.Order, error) {
	return r.updateOne(ctx, id, "payment status", `UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2 RETURNING `+orderColumns, status, id)
}

func (r *postgresOrderRepository) updateOne(ctx context.Context, id int, field, query string, args ...interface{}) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Order with ID %d not found for %s update", id, field)
			return nil, fmt.Errorf("%w: order with id %d not found", domain.ErrNotFound, id)
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23514" {
			return nil, fmt.Errorf("%w: invalid %s for order %d", domain.ErrValidation, field, id)
		}
		r.log.Errorf("Repository: Failed to update %s for order ID %d: %v", field, id, err)
		return nil, fmt.Errorf("could not update order %s: %w", field, err)
	}
	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	r.log.Infof("Repository: Order %d %s updated", id, field)
	return order, nil
}
