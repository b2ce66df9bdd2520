package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const maxProductRows = 50

type postgresProductRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresProductRepository(db *sql.DB, logger *logrus.Logger) domain.ProductRepository {
	return &postgresProductRepository{
		db:  db,
		log: logger,
	}
}

const productSelect = `
        SELECT p.id, p.category_id, COALESCE(c.name, ''), p.name, p.description, p.price,
               p.stock_quantity, p.image_url, p.status, p.created_at, p.updated_at
        FROM products p
        LEFT JOIN categories c ON c.id = p.category_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var categoryID sql.NullInt64
	if err := row.Scan(&p.ID, &categoryID, &p.CategoryName, &p.Name, &p.Description, &p.Price,
		&p.StockQuantity, &p.ImageURL, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if categoryID.Valid {
		p.CategoryID = int(categoryID.Int64)
	}
	return p, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxProductRows {
		return maxProductRows
	}
	return limit
}

func (r *postgresProductRepository) GetByID(ctx context.Context, id int) (*domain.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Product with ID %d not found", id)
			return nil, fmt.Errorf("%w: product with id %d not found", domain.ErrNotFound, id)
		}
		r.log.Errorf("Repository: Failed to get product by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get product by id: %w", err)
	}
	return product, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches term literally anywhere in a column.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
}

func (r *postgresProductRepository) Search(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	pattern := likePattern(term)
	query := productSelect + `
        WHERE p.status = 'active'
          AND (p.name ILIKE $1 ESCAPE '\' OR p.description ILIKE $1 ESCAPE '\' OR c.name ILIKE $1 ESCAPE '\')
        ORDER BY p.name ASC
        LIMIT $2`
	return r.list(ctx, "search '"+term+"'", query, pattern, clampLimit(limit))
}

func (r *postgresProductRepository) ListByCategory(ctx context.Context, categoryID int, limit int) ([]domain.Product, error) {
	query := productSelect + `
        WHERE p.category_id = $1 AND p.status = 'active'
        ORDER BY p.name ASC
        LIMIT $2`
	return r.list(ctx, fmt.Sprintf("category %d", categoryID), query, categoryID, clampLimit(limit))
}

func (r *postgresProductRepository) list(ctx context.Context, what, query string, args ...interface{}) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Errorf("Repository: Failed to list products for %s: %v", what, err)
		return nil, fmt.Errorf("could not list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.log.Errorf("Repository: Failed to scan product row for %s: %v", what, err)
			return nil, fmt.Errorf("error scanning product data: %w", err)
		}
		products = append(products, *p)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error during products iteration for %s: %v", what, err)
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	r.log.Debugf("Repository: Retrieved %d products for %s", len(products), what)
	return products, nil
}

func (r *postgresProductRepository) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
        INSERT INTO products (category_id, name, description, price, stock_quantity, image_url, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`
	var categoryID sql.NullInt64
	if product.CategoryID != 0 {
		categoryID = sql.NullInt64{Int64: int64(product.CategoryID), Valid: true}
	}
	if product.Status == "" {
		product.Status = domain.ProductActive
	}

	err := r.db.QueryRowContext(ctx, query, categoryID, product.Name, product.Description, product.Price,
		product.StockQuantity, product.ImageURL, product.Status).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23503":
				r.log.Warnf("Repository: Attempted to create product with non-existent category ID: %d", product.CategoryID)
				return nil, fmt.Errorf("%w: category with id %d does not exist", domain.ErrValidation, product.CategoryID)
			case "23514":
				r.log.Warnf("Repository: Check constraint violation for product '%s': %s", product.Name, pqErr.Message)
				return nil, fmt.Errorf("%w: product data constraint violation: %s", domain.ErrValidation, pqErr.Message)
			}
		}
		r.log.Errorf("Repository: Failed to create product '%s': %v", product.Name, err)
		return nil, fmt.Errorf("could not create product: %w", err)
	}
	r.log.Infof("Repository: Product created with ID: %d, Name: %s", product.ID, product.Name)
	return product, nil
}

func (r *postgresProductRepository) UpdateImage(ctx context.Context, id int, imageURL string) (*domain.Product, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE products SET image_url = $1, updated_at = NOW() WHERE id = $2`, imageURL, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to update image for product ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update product image: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Errorf("Repository: Failed to get rows affected after image update for ID %d: %v", id, err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Repository: Product with ID %d not found for image update", id)
		return nil, fmt.Errorf("%w: product with id %d not found", domain.ErrNotFound, id)
	}
	r.log.Infof("Repository: Image for product %d set to %s", id, imageURL)
	return r.GetByID(ctx, id)
}
