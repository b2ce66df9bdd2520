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

type postgresCartRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresCartRepository(db *sql.DB, logger *logrus.Logger) domain.CartRepository {
	return &postgresCartRepository{
		db:  db,
		log: logger,
	}
}

// Upsert keeps exactly one row per (customer, product); a repeat add grows
// the quantity.
func (r *postgresCartRepository) Upsert(ctx context.Context, customerPhone string, productID, quantity int) (*domain.CartItem, error) {
	query := `
        INSERT INTO cart_items (customer_phone, product_id, quantity)
        VALUES ($1, $2, $3)
        ON CONFLICT (customer_phone, product_id)
        DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
        RETURNING id, quantity`
	item := &domain.CartItem{CustomerPhone: customerPhone, ProductID: productID}
	err := r.db.QueryRowContext(ctx, query, customerPhone, productID, quantity).Scan(&item.ID, &item.Quantity)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return nil, fmt.Errorf("%w: product with id %d not found", domain.ErrNotFound, productID)
		}
		r.log.Errorf("Repository: Failed to upsert cart item (customer %s, product %d): %v", customerPhone, productID, err)
		return nil, fmt.Errorf("could not add to cart: %w", err)
	}
	r.log.Infof("Repository: Cart item %d for customer %s now has quantity %d", item.ID, customerPhone, item.Quantity)
	return item, nil
}

const cartLinesQuery = `
        SELECT ci.id, ci.product_id, p.name, p.price, ci.quantity, p.image_url, p.stock_quantity, p.status
        FROM cart_items ci
        JOIN products p ON p.id = ci.product_id
        WHERE ci.customer_phone = $1
        ORDER BY ci.added_at ASC, ci.id ASC`

func (r *postgresCartRepository) Lines(ctx context.Context, customerPhone string) ([]domain.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, cartLinesQuery, customerPhone)
	if err != nil {
		r.log.Errorf("Repository: Failed to load cart for customer %s: %v", customerPhone, err)
		return nil, fmt.Errorf("could not load cart: %w", err)
	}
	defer rows.Close()
	return scanCartLines(rows)
}

func scanCartLines(rows *sql.Rows) ([]domain.CartLine, error) {
	lines := []domain.CartLine{}
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.CartItemID, &l.ProductID, &l.Name, &l.Price, &l.Quantity, &l.ImageURL, &l.StockQuantity, &l.Status); err != nil {
			return nil, fmt.Errorf("error scanning cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}
	return lines, nil
}

func (r *postgresCartRepository) Remove(ctx context.Context, customerPhone string, cartItemID int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1 AND customer_phone = $2`, cartItemID, customerPhone)
	if err != nil {
		r.log.Errorf("Repository: Failed to remove cart item %d for customer %s: %v", cartItemID, customerPhone, err)
		return false, fmt.Errorf("could not remove cart item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not confirm cart item removal: %w", err)
	}
	return n > 0, nil
}

func (r *postgresCartRepository) Clear(ctx context.Context, customerPhone string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE customer_phone = $1`, customerPhone)
	if err != nil {
		r.log.Errorf("Repository: Failed to clear cart for customer %s: %v", customerPhone, err)
		return 0, fmt.Errorf("could not clear cart: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not confirm cart clear: %w", err)
	}
	r.log.Infof("Repository: Cleared %d cart items for customer %s", n, customerPhone)
	return n, nil
}
