package functions

import (
	"context"
	"fmt"
	"strings"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"
)

type customerHandlers struct {
	catalog domain.CatalogUseCase
	cart    domain.CartUseCase
}

// CustomerFunctions returns the customer tier. Every handler acts on the
// caller's own identity.
func CustomerFunctions(catalog domain.CatalogUseCase, cart domain.CartUseCase) []Function {
	h := &customerHandlers{catalog: catalog, cart: cart}
	return []Function{
		{
			Name: "browse_categories", Aliases: []string{"list_categories", "show_categories"},
			Usage:       "[FUNCTION:browse_categories]",
			Description: "Show all active product categories",
			Handler:     h.browseCategories,
		},
		{
			Name: "search_products", Aliases: []string{"find_products", "product_search"},
			Usage:       "[FUNCTION:search_products:query=TERM]",
			Description: "Search products by keyword",
			Handler:     h.searchProducts,
		},
		{
			Name: "products_by_category", Aliases: []string{"list_category_products", "category_products"},
			Usage:       "[FUNCTION:products_by_category:CATEGORY_ID]",
			Description: `List products inside a category. Use the "id" field from the category JSON, not the display order`,
			Handler:     h.productsByCategory,
		},
		{
			Name: "product_details", Aliases: []string{"get_product", "product_info"},
			Usage:       "[FUNCTION:product_details:PRODUCT_ID]",
			Description: `Detailed info for a product. Use the "id" field from the product JSON`,
			Handler:     h.productDetails,
		},
		{
			Name: "add_to_cart", Aliases: []string{"cart_add", "addcart"},
			Usage:       "[FUNCTION:add_to_cart:product_id=ID:quantity=QTY]",
			Description: "Add item(s) to the cart",
			Handler:     h.addToCart,
		},
		{
			Name: "view_cart", Aliases: []string{"show_cart", "cart"},
			Usage:       "[FUNCTION:view_cart]",
			Description: "Show current cart items and totals",
			Handler:     h.viewCart,
		},
		{
			Name: "remove_from_cart", Aliases: []string{"cart_remove", "delete_cart_item"},
			Usage:       "[FUNCTION:remove_from_cart:cart_item_id=ID]",
			Description: `Remove one item from the cart. Use the cart line's "cart_item_id", not the product id`,
			Handler:     h.removeFromCart,
		},
		{
			Name: "clear_cart", Aliases: []string{"empty_cart"},
			Usage:       "[FUNCTION:clear_cart]",
			Description: "Empty the cart",
			Handler:     h.clearCart,
		},
		{
			Name: "checkout", Aliases: []string{"place_order", "confirm_order"},
			Usage:       "[FUNCTION:checkout:name=FULL NAME:address=ADDRESS:city=CITY:payment=METHOD]",
			Description: "Place the order. Collect name, address and city first",
			Handler:     h.checkout,
		},
		{
			Name: "track_order", Aliases: []string{"order_status"},
			Usage:       "[FUNCTION:track_order:order_number=ORD-123]",
			Description: "Get the current status of one of this customer's orders",
			Handler:     h.trackOrder,
		},
		{
			Name: "get_customer_orders", Aliases: []string{"my_orders", "list_orders"},
			Usage:       "[FUNCTION:get_customer_orders]",
			Description: "Show recent orders for this customer",
			Handler:     h.customerOrders,
		},
		{
			Name: "get_tracking", Aliases: []string{"track_shipment", "tracking_info", "where_is_my_order"},
			Usage:       "[FUNCTION:get_tracking:order_number=ORD-123] or [FUNCTION:get_tracking]",
			Description: "Get tracking ID and shipment status. Without an order number the most recent order is used",
			Handler:     h.tracking,
		},
	}
}

func (h *customerHandlers) browseCategories(ctx context.Context, _ domain.Caller, _ Args) (domain.FunctionResult, error) {
	categories, err := h.catalog.BrowseCategories(ctx)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	if len(categories) == 0 {
		return domain.Succeeded(categories, "No categories available right now."), nil
	}
	return domain.Succeeded(categories, fmt.Sprintf("Found %d active categories.", len(categories))), nil
}

func (h *customerHandlers) searchProducts(ctx context.Context, _ domain.Caller, args Args) (domain.FunctionResult, error) {
	term := args.String("query", "term")
	if term == "" {
		term = strings.TrimSpace(args.Joined())
	}
	if term == "" {
		return domain.Failed(domain.KindValidation, "Search term required. Ask the customer what they are looking for."), nil
	}
	products, err := h.catalog.SearchProducts(ctx, term)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	if len(products) == 0 {
		return domain.Succeeded(products, fmt.Sprintf("No products found for %q.", term)), nil
	}
	return domain.Succeeded(products, fmt.Sprintf("Found %d product(s) matching %q.", len(products), term)), nil
}

func (h *customerHandlers) productsByCategory(ctx context.Context, _ domain.Caller, args Args) (domain.FunctionResult, error) {
	id, ok, err := args.Int("category_id", "id", "arg0")
	if !ok {
		return domain.Failed(domain.KindValidation, "Category ID required. Call browse_categories to find it."), nil
	}
	if err != nil {
		return domain.Failed(domain.KindValidation, "Category ID must be a number: "+err.Error()), nil
	}
	products, err := h.catalog.ProductsByCategory(ctx, id)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	if len(products) == 0 {
		return domain.Succeeded(products, "No products available in this category."), nil
	}
	return domain.Succeeded(products, fmt.Sprintf("Found %d product(s) in category %d.", len(products), id)), nil
}

func (h *customerHandlers) productDetails(ctx context.Context, _ domain.Caller, args Args) (domain.FunctionResult, error) {
	id, ok, err := args.Int("product_id", "id", "arg0")
	if !ok {
		return domain.Failed(domain.KindValidation, "Product ID required."), nil
	}
	if err != nil {
		return domain.Failed(domain.KindValidation, "Product ID must be a number: "+err.Error()), nil
	}
	product, err := h.catalog.ProductDetails(ctx, id)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	return domain.Succeeded(product, "Retrieved product details for "+product.Name+"."), nil
}

func (h *customerHandlers) addToCart(ctx context.Context, caller domain.Caller, args Args) (domain.FunctionResult, error) {
	productID, ok, err := args.Int("product_id", "id", "arg0")
	if !ok {
		return domain.Failed(domain.KindValidation, "Product ID required."), nil
	}
	if err != nil {
		return domain.Failed(domain.KindValidation, "Product ID must be a number: "+err.Error()), nil
	}
	qty, ok, err := args.Int("quantity", "qty", "arg1")
	if !ok {
		qty = 1
	} else if err != nil {
		return domain.Failed(domain.KindValidation, "Quantity must be a number: "+err.Error()), nil
	}

	item, err := h.cart.Add(ctx, caller.Phone, productID, qty)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	return domain.Succeeded(item, fmt.Sprintf("Added %d item(s) to the cart. The cart now holds %d of this product.", qty, item.Quantity)), nil
}

func (h *customerHandlers) viewCart(ctx context.Context, caller domain.Caller, _ Args) (domain.FunctionResult, error) {
	view, err := h.cart.View(ctx, caller.Phone)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	if view.ItemCount == 0 {
		return domain.Succeeded(view, "Your cart is currently empty."), nil
	}
	return domain.Succeeded(view, fmt.Sprintf("Cart has %d item(s).", view.ItemCount)), nil
}

func (h *customerHandlers) removeFromCart(ctx context.Context, caller domain.Caller, args Args) (domain.FunctionResult, error) {
	id, ok, err := args.Int("cart_item_id", "id", "arg0")
	if !ok {
		return domain.Failed(domain.KindValidation, "Cart item ID required. Call view_cart to find it."), nil
	}
	if err != nil {
		return domain.Failed(domain.KindValidation, "Cart item ID must be a number: "+err.Error()), nil
	}
	removed, err := h.cart.Remove(ctx, caller.Phone, id)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	data := map[string]interface{}{"removed": removed, "cart_item_id": id}
	if !removed {
		return domain.Succeeded(data, "That item was not in the cart."), nil
	}
	return domain.Succeeded(data, "Item removed from the cart."), nil
}

func (h *customerHandlers) clearCart(ctx context.Context, caller domain.Caller, _ Args) (domain.FunctionResult, error) {
	n, err := h.cart.Clear(ctx, caller.Phone)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	return domain.Succeeded(map[string]int64{"removed_items": n}, "Cart cleared."), nil
}

func (h *customerHandlers) checkout(ctx context.Context, caller domain.Caller, args Args) (domain.FunctionResult, error) {
	info := domain.CheckoutInfo{
		Name:          args.String("name", "customer_name"),
		Address:       args.String("address", "delivery_address"),
		City:          args.String("city"),
		PaymentMethod: args.String("payment", "payment_method", "method"),
	}
	var missing []string
	if info.Name == "" {
		missing = append(missing, "name")
	}
	if info.Address == "" {
		missing = append(missing, "address")
	}
	if info.City == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return domain.Failed(domain.KindValidation, fmt.Sprintf(
			"Missing required checkout details: %s. Ask the customer for them before calling checkout.",
			strings.Join(missing, ", "))), nil
	}

	order, err := h.cart.Checkout(ctx, caller.Phone, info)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	return domain.Succeeded(order, fmt.Sprintf(
		"Order %s placed. Total Rs. %s including delivery Rs. %s, payment by %s.",
		order.OrderNumber, order.TotalAmount.StringFixed(2), order.DeliveryFee.StringFixed(2), order.PaymentMethod)), nil
}

func (h *customerHandlers) trackOrder(ctx context.Context, caller domain.Caller, args Args) (domain.FunctionResult, error) {
	number := args.String("order_number", "arg0")
	if number == "" {
		return domain.Failed(domain.KindValidation, "Order number required. Ask the customer for it or call get_customer_orders."), nil
	}
	order, err := h.cart.Track(ctx, caller.Phone, number)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	return domain.Succeeded(order, "Retrieved status for order "+order.OrderNumber+"."), nil
}

func (h *customerHandlers) customerOrders(ctx context.Context, caller domain.Caller, _ Args) (domain.FunctionResult, error) {
	orders, err := h.cart.CustomerOrders(ctx, caller.Phone, 10)
	if err != nil {
		return domain.FunctionResult{}, err
	}
	if len(orders) == 0 {
		return domain.Succeeded(orders, "No recent orders found."), nil
	}
	return domain.Succeeded(orders, fmt.Sprintf("Found %d order(s) for this customer.", len(orders))), nil
}

func (h *customerHandlers) tracking(ctx context.Context, caller domain.Caller, args Args) (domain.FunctionResult, error) {
	info, err := h.cart.Tracking(ctx, caller.Phone, args.String("order_number", "order_id", "arg0"))
	if err != nil {
		return domain.FunctionResult{}, err
	}
	if info.TrackingID != "" {
		return domain.Succeeded(info, "Tracking info retrieved for order "+info.OrderNumber+"."), nil
	}
	return domain.Succeeded(info, fmt.Sprintf("Order %s is %s. Tracking ID will be provided once shipped.", info.OrderNumber, info.Status)), nil
}
