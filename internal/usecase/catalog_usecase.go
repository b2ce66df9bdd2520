package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	activeCategoriesKey = "categories:active"
	categoriesPattern   = "categories:*"
	searchLimit         = 20
	categoryListLimit   = 50

	// sharedQueryTimeout bounds a lookup that several callers may be waiting on.
	sharedQueryTimeout = 10 * time.Second
)

var _ domain.CatalogUseCase = (*catalogUseCase)(nil)

type catalogUseCase struct {
	categoryRepo domain.CategoryRepository
	productRepo  domain.ProductRepository
	cache        domain.CatalogCache
	sf           singleflight.Group
	log          *logrus.Logger
}

func NewCatalogUseCase(categoryRepo domain.CategoryRepository, productRepo domain.ProductRepository, cache domain.CatalogCache, logger *logrus.Logger) domain.CatalogUseCase {
	return &catalogUseCase{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cache:        cache,
		log:          logger,
	}
}

// BrowseCategories is cache-aside; concurrent misses share one query.
func (uc *catalogUseCase) BrowseCategories(ctx context.Context) ([]domain.Category, error) {
	var cached []domain.Category
	found, err := uc.cache.Get(ctx, activeCategoriesKey, &cached)
	if err != nil {
		uc.log.Warnf("Use Case: Category cache read failed, falling back to database: %v", err)
	}
	if found {
		uc.log.Debug("Use Case: Category cache hit")
		return cached, nil
	}

	val, err, _ := uc.sf.Do(activeCategoriesKey, func() (interface{}, error) {
		// Joined callers must not inherit the first caller's deadline.
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedQueryTimeout)
		defer cancel()
		return uc.categoryRepo.ListActive(qctx)
	})
	if err != nil {
		uc.log.Errorf("Use Case: Failed to list active categories: %v", err)
		return nil, err
	}
	categories := val.([]domain.Category)

	if err := uc.cache.Set(ctx, activeCategoriesKey, categories); err != nil {
		uc.log.Warnf("Use Case: Failed to cache categories: %v", err)
	}
	uc.log.Infof("Use Case: Listed %d active categories", len(categories))
	return categories, nil
}

func (uc *catalogUseCase) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query cannot be empty", domain.ErrValidation)
	}
	products, err := uc.productRepo.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Search '%s' returned %d products", query, len(products))
	return products, nil
}

func (uc *catalogUseCase) ProductsByCategory(ctx context.Context, categoryID int) ([]domain.Product, error) {
	if categoryID <= 0 {
		return nil, fmt.Errorf("%w: invalid category ID", domain.ErrValidation)
	}
	category, err := uc.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !category.IsActive {
		return nil, fmt.Errorf("%w: category %d is not available", domain.ErrNotFound, categoryID)
	}
	return uc.productRepo.ListByCategory(ctx, categoryID, categoryListLimit)
}

func (uc *catalogUseCase) ProductDetails(ctx context.Context, id int) (*domain.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid product ID", domain.ErrValidation)
	}
	product, err := uc.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, fmt.Errorf("%w: product %d is not available", domain.ErrNotFound, id)
	}
	return product, nil
}

func (uc *catalogUseCase) ListAllCategories(ctx context.Context) ([]domain.Category, error) {
	return uc.categoryRepo.ListAll(ctx)
}

func (uc *catalogUseCase) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return nil, fmt.Errorf("%w: category name cannot be empty", domain.ErrValidation)
	}
	created, err := uc.categoryRepo.Create(ctx, category)
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx)
	uc.log.Infof("Use Case: Category '%s' created with ID %d", created.Name, created.ID)
	return created, nil
}

func (uc *catalogUseCase) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	switch {
	case product.Name == "":
		return nil, fmt.Errorf("%w: product name cannot be empty", domain.ErrValidation)
	case product.CategoryID <= 0:
		return nil, fmt.Errorf("%w: invalid category ID", domain.ErrValidation)
	case product.Price.IsNegative():
		return nil, fmt.Errorf("%w: price cannot be negative", domain.ErrValidation)
	case product.StockQuantity < 0:
		return nil, fmt.Errorf("%w: stock cannot be negative", domain.ErrValidation)
	}

	if _, err := uc.categoryRepo.GetByID(ctx, product.CategoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: category with id %d does not exist", domain.ErrValidation, product.CategoryID)
		}
		return nil, err
	}

	product.Status = domain.ProductActive
	created, err := uc.productRepo.Create(ctx, product)
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx)
	uc.log.Infof("Use Case: Product '%s' created with ID %d in category %d", created.Name, created.ID, created.CategoryID)
	return created, nil
}

func (uc *catalogUseCase) UpdateProductImage(ctx context.Context, productID int, imageURL string) (*domain.Product, error) {
	imageURL = strings.TrimSpace(imageURL)
	if productID <= 0 {
		return nil, fmt.Errorf("%w: invalid product ID", domain.ErrValidation)
	}
	if imageURL == "" {
		return nil, fmt.Errorf("%w: image URL cannot be empty", domain.ErrValidation)
	}
	return uc.productRepo.UpdateImage(ctx, productID, imageURL)
}

func (uc *catalogUseCase) DeactivateCategory(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid category ID", domain.ErrValidation)
	}
	if err := uc.categoryRepo.Deactivate(ctx, id); err != nil {
		return err
	}
	uc.invalidate(ctx)
	return nil
}

func (uc *catalogUseCase) DeleteCategory(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid category ID", domain.ErrValidation)
	}
	if err := uc.categoryRepo.Delete(ctx, id); err != nil {
		return err
	}
	uc.invalidate(ctx)
	return nil
}

func (uc *catalogUseCase) invalidate(ctx context.Context) {
	if err := uc.cache.DeletePattern(ctx, categoriesPattern); err != nil {
		uc.log.Warnf("Use Case: Failed to invalidate category cache: %v", err)
	}
}
