package functions

import (
	"context"
	"fmt"
	"strings"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"
)

const defaultNewProductStock = 10

type adminHandlers struct {
	catalog domain.CatalogUseCase
}

// AdminFunctions returns the admin tier. The registry checks authorization
// before any of these handlers run.
func AdminFunctions(catalog domain.CatalogUseCase) []Function {
	h := &adminHandlers{catalog: catalog}
	return []Function{
		{
			Name: "create_category", Aliases: []string{"add_category", "new_category"}, Tier: TierAdmin,
			Usage:       "[FUNCTION:create_category:name=Category Name]",
			Description: "Create a new product category",
			Handler:     h.createCategory,
		},
		{
			Name: "add_product", Aliases: []string{"create_product", "new_product"}, Tier: TierAdmin,
			Usage:       "[FUNCTION:add_product:name=Product Name:category_id=ID:price=PRICE:description=DESC:stock=QTY]",
			Description: "Add a new product. category_id must exist, call list_all_categories first",
			Handler:     h.addProduct,
		},
		{
			Name: "list_all_categories", Aliases: []string{"get_all_categories", "admin_categories"}, Tier: TierAdmin,
			Usage:       "[FUNCTION:list_all_categories]",
			Description: "Get all categories including inactive ones",
			Handler:     h.listAllCategories,
		},
		{
			Name: "update_product_image", Aliases: []string{"set_product_image"}, Tier: TierAdmin,
			Usage:       "[FUNCTION:update_product_image:product_id=ID:image_url=/uploads/products/xyz.jpg]",
			Description: "Set a product image. The image must be uploaded first as a chat photo",
			Handler:     h.updateProductImage,
		},
	}
}

func (h *adminHandlers) createCategory(ctx context.Context, _ domain.Caller, args Args) (domain.FunctionResult, error) {
	name := args.String("name", "category_name")
	if name == "" {
		name = strings.TrimSpace(args.Joined())
	}
	if name == "" {
		return domain.Failed(domain.KindValidation, "Category name required. Usage: [FUNCTION:create_category:name=Category Name]"), nil
	}
	category, err := h.catalog.CreateCategory(ctx, &domain.Category{
		Name:        name,
		Description: args.String("description", "desc"),
		Icon:        args.String("icon"),
	})
	if err != nil {
		return domain.FunctionResult{}, err
	}
	return domain.Succeeded(category, fmt.Sprintf("Category '%s' created with ID %d.", category.Name, category.ID)), nil
}

func (h *adminHandlers) addProduct(ctx context.Context, _ domain.Caller, args Args) (domain.FunctionResult, error) {
	const usage = "Required: name, category_id, and price. Usage: [FUNCTION:add_product:name=Product Name:category_id=1:price=1500:description=Product description:stock=10]"

	name := args.String("name", "product_name")
	categoryID, hasCategory, catErr := args.Int("category_id", "category")
	price, hasPrice, priceErr := args.Decimal("price")
	if name == "" || !hasCategory || !hasPrice {
		return domain.Failed(domain.KindValidation, usage), nil
	}
	if catErr != nil {
		return domain.Failed(domain.KindValidation, "Category ID must be a number: "+catErr.Error()), nil
	}
	if priceErr != nil {
		return domain.Failed(domain.KindValidation, "Price must be a number: "+priceErr.Error()), nil
	}
	stock, hasStock, stockErr := args.Int("stock", "quantity")
	if !hasStock {
		stock = defaultNewProductStock
	} else if stockErr != nil {
		return domain.Failed(domain.KindValidation, "Stock must be a number: "+stockErr.Error()), nil
	}

	product, err := h.catalog.CreateProduct(ctx, &domain.Product{
		Name:          name,
		CategoryID:    categoryID,
		Price:         price,
		Description:   args.String("description", "desc"),
		StockQuantity: stock,
		ImageURL:      args.String("image_url"),
	})
	if err != nil {
		return domain.FunctionResult{}, err
	}
	return domain.Succeeded(product, fmt.Sprintf("Product '%s' created with ID %d.", product.Name, product.ID)), nil
}

func (h *adminHandlers) listAllCategories(ctx context.Context, _ domain.Caller, _ Args) (domain.FunctionResult, error) {
	categories, err := h.catalog.ListAllCategories(ctx)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	return domain.Succeeded(categories, fmt.Sprintf("Found %d categories in total.", len(categories))), nil
}

func (h *adminHandlers) updateProductImage(ctx context.Context, _ domain.Caller, args Args) (domain.FunctionResult, error) {
	id, hasID, idErr := args.Int("product_id", "id", "arg0")
	url := args.String("image_url", "url")
	if !hasID || url == "" {
		return domain.Failed(domain.KindValidation, "Required: product_id and image_url. Usage: [FUNCTION:update_product_image:product_id=1:image_url=/uploads/products/xyz.jpg]"), nil
	}
	if idErr != nil {
		return domain.Failed(domain.KindValidation, "Product ID must be a number: "+idErr.Error()), nil
	}
	product, err := h.catalog.UpdateProductImage(ctx, id, url)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	return domain.Succeeded(product, fmt.Sprintf("Image for product %d updated.", product.ID)), nil
}
