package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
)

type Category struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	SortOrder    int       `json:"sort_order"`
	IsActive     bool      `json:"is_active"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID            int             `json:"id"`
	CategoryID    int             `json:"category_id,omitempty"` // 0 means uncategorised
	CategoryName  string          `json:"category_name,omitempty"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      string          `json:"image_url,omitempty"`
	Status        ProductStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (p *Product) IsActive() bool {
	return p.Status == ProductActive
}

type CategoryRepository interface {
	ListActive(ctx context.Context) ([]Category, error)
	ListAll(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id int) (*Category, error)
	Create(ctx context.Context, category *Category) (*Category, error)
	Deactivate(ctx context.Context, id int) error
	Delete(ctx context.Context, id int) error
}

type ProductRepository interface {
	GetByID(ctx context.Context, id int) (*Product, error)
	Search(ctx context.Context, term string, limit int) ([]Product, error)
	ListByCategory(ctx context.Context, categoryID int, limit int) ([]Product, error)
	Create(ctx context.Context, product *Product) (*Product, error)
	UpdateImage(ctx context.Context, id int, imageURL string) (*Product, error)
}

// CatalogCache is the cache-aside store in front of category listings.
type CatalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	DeletePattern(ctx context.Context, pattern string) error
}

type CatalogUseCase interface {
	BrowseCategories(ctx context.Context) ([]Category, error)
	SearchProducts(ctx context.Context, query string) ([]Product, error)
	ProductsByCategory(ctx context.Context, categoryID int) ([]Product, error)
	ProductDetails(ctx context.Context, id int) (*Product, error)

	ListAllCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, category *Category) (*Category, error)
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	UpdateProductImage(ctx context.Context, productID int, imageURL string) (*Product, error)
	DeactivateCategory(ctx context.Context, id int) error
	DeleteCategory(ctx context.Context, id int) error
}
