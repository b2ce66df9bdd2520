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

type postgresCategoryRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresCategoryRepository(db *sql.DB, logger *logrus.Logger) domain.CategoryRepository {
	return &postgresCategoryRepository{
		db:  db,
		log: logger,
	}
}

const categorySelect = `
        SELECT c.id, c.name, c.description, c.icon, c.sort_order, c.is_active, c.created_at,
               COUNT(p.id) FILTER (WHERE p.status = 'active') AS product_count
        FROM categories c
        LEFT JOIN products p ON p.category_id = c.id`

func (r *postgresCategoryRepository) ListActive(ctx context.Context) ([]domain.Category, error) {
	query := categorySelect + `
        WHERE c.is_active = TRUE
        GROUP BY c.id
        ORDER BY c.sort_order ASC, c.name ASC`
	return r.list(ctx, query)
}

func (r *postgresCategoryRepository) ListAll(ctx context.Context) ([]domain.Category, error) {
	query := categorySelect + `
        GROUP BY c.id
        ORDER BY c.sort_order ASC, c.name ASC`
	return r.list(ctx, query)
}

func (r *postgresCategoryRepository) list(ctx context.Context, query string) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.log.Errorf("Repository: Failed to list categories: %v", err)
		return nil, fmt.Errorf("could not list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.ProductCount); err != nil {
			r.log.Errorf("Repository: Failed to scan category row: %v", err)
			return nil, fmt.Errorf("error scanning category data: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error during categories iteration: %v", err)
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	r.log.Debugf("Repository: Retrieved %d categories", len(categories))
	return categories, nil
}

func (r *postgresCategoryRepository) GetByID(ctx context.Context, id int) (*domain.Category, error) {
	query := categorySelect + `
        WHERE c.id = $1
        GROUP BY c.id`
	c := &domain.Category{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Description, &c.Icon, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.ProductCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Category with ID %d not found", id)
			return nil, fmt.Errorf("%w: category with id %d not found", domain.ErrNotFound, id)
		}
		r.log.Errorf("Repository: Failed to get category by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get category by id: %w", err)
	}
	return c, nil
}

func (r *postgresCategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
        INSERT INTO categories (name, description, icon, sort_order, is_active)
        VALUES ($1, $2, $3, $4, TRUE)
        RETURNING id, is_active, created_at`
	err := r.db.QueryRowContext(ctx, query, category.Name, category.Description, category.Icon, category.SortOrder).
		Scan(&category.ID, &category.IsActive, &category.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			r.log.Warnf("Repository: Category name '%s' already exists", category.Name)
			return nil, fmt.Errorf("%w: category '%s' already exists", domain.ErrValidation, category.Name)
		}
		r.log.Errorf("Repository: Failed to create category '%s': %v", category.Name, err)
		return nil, fmt.Errorf("could not create category: %w", err)
	}
	r.log.Infof("Repository: Category created with ID: %d, Name: %s", category.ID, category.Name)
	return category, nil
}

func (r *postgresCategoryRepository) Deactivate(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE categories SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to deactivate category ID %d: %v", id, err)
		return fmt.Errorf("could not deactivate category: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: category with id %d not found", domain.ErrNotFound, id)
	}
	r.log.Infof("Repository: Category %d deactivated", id)
	return nil
}

// Delete removes a category only while no product references it. The FK is
// RESTRICT as well, so a product inserted between the check and the delete
// still blocks it.
func (r *postgresCategoryRepository) Delete(ctx context.Context, id int) error {
	var productCount int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id).Scan(&productCount); err != nil {
		r.log.Errorf("Repository: Failed to count products for category %d: %v", id, err)
		return fmt.Errorf("could not check category products: %w", err)
	}
	if productCount > 0 {
		r.log.Warnf("Repository: Refusing to delete category %d with %d products", id, productCount)
		return fmt.Errorf("%w: category %d still has %d products; deactivate it instead", domain.ErrValidation, id, productCount)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return fmt.Errorf("%w: category %d is referenced by products", domain.ErrValidation, id)
		}
		r.log.Errorf("Repository: Failed to delete category ID %d: %v", id, err)
		return fmt.Errorf("could not delete category: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		r.log.Warnf("Repository: Attempted to delete non-existent category ID %d", id)
		return fmt.Errorf("%w: category with id %d not found for deletion", domain.ErrNotFound, id)
	}
	r.log.Infof("Repository: Category deleted with ID: %d", id)
	return nil
}
