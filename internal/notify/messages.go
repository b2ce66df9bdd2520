package notify

import (
	"fmt"
	"strings"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/shopspring/decimal"
)

const divider = "━━━━━━━━━━━━━━━━━"

func customerName(o *domain.Order) string {
	if strings.TrimSpace(o.CustomerName) == "" {
		return "Customer"
	}
	return o.CustomerName
}

func rupees(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// StatusMessage renders the customer notification for the order's current status.
func StatusMessage(o *domain.Order, storeName string) string {
	name := customerName(o)
	num := o.OrderNumber
	total := rupees(o.TotalAmount)

	switch o.Status {
	case domain.StatusConfirmed:
		return fmt.Sprintf("✅ *Order Confirmed!*\n\nHello %s,\n\nYour order %s has been confirmed and is being prepared.\n\n*Order Total:* Rs. %s\n\nWe'll notify you once it's ready for delivery.\n\nThank you for shopping with %s! 🛍️",
			name, num, total, storeName)
	case domain.StatusProcessing:
		return fmt.Sprintf("📦 *Order Processing*\n\nHello %s,\n\nYour order %s is now being processed.\n\nWe're carefully preparing your items for delivery.\n\n*Order Total:* Rs. %s\n\nTrack your order anytime by asking about order %s.\n\n%s",
			name, num, total, num, storeName)
	case domain.StatusShipped:
		return fmt.Sprintf("🚚 *Order Shipped!*\n\nHello %s,\n\nGreat news! Your order %s is on its way!\n\n*Order Total:* Rs. %s\n\nExpected delivery: 1-2 business days\n\nFor delivery inquiries, please contact us.\n\n%s",
			name, num, total, storeName)
	case domain.StatusDelivered:
		return fmt.Sprintf("✅ *Order Delivered!*\n\nHello %s,\n\nYour order %s has been delivered successfully!\n\n*Order Total:* Rs. %s\n\nWe hope you enjoy your purchase! 😊\n\nIf you have any issues, please let us know.\n\nThank you for choosing %s! 🎉",
			name, num, total, storeName)
	case domain.StatusCancelled:
		return fmt.Sprintf("❌ *Order Cancelled*\n\nHello %s,\n\nYour order %s has been cancelled.\n\n*Order Total:* Rs. %s\n\nIf this was a mistake or you have questions, please contact us.\n\nWe hope to serve you again soon.\n\n%s",
			name, num, total, storeName)
	case domain.StatusRefunded:
		return fmt.Sprintf("💰 *Refund Processed*\n\nHello %s,\n\nYour refund for order %s has been processed.\n\n*Refund Amount:* Rs. %s\n\nPlease allow 3-5 business days for the refund to reflect in your account.\n\n%s",
			name, num, total, storeName)
	default:
		return fmt.Sprintf("📋 *Order Status Update*\n\nHello %s,\n\nYour order %s status has been updated to: *%s*\n\n*Order Total:* Rs. %s\n\nFor more details, please ask about your order.\n\n%s",
			name, num, o.Status, total, storeName)
	}
}

func TrackingMessage(o *domain.Order) string {
	var address string
	if o.DeliveryAddress != "" {
		address = "*Delivery Address:*\n" + o.DeliveryAddress
	}
	return fmt.Sprintf("📦 *TRACKING INFORMATION*\n\nHello %s,\n\nYour order *%s* is on the way! 🚚\n\n*Tracking ID:* %s\n\n%s\n\nYou can track your package using the tracking ID provided above.\n\nThank you for shopping with us! 🙏",
		customerName(o), o.OrderNumber, o.TrackingID, address)
}

func InvoiceMessage(o *domain.Order) string {
	var items strings.Builder
	for i, it := range o.Items {
		fmt.Fprintf(&items, "%d. %s\n   Qty: %d × Rs %s = Rs %s\n\n", i+1, it.ProductName, it.Quantity, rupees(it.Price), rupees(it.Subtotal))
	}

	payment := o.PaymentMethod
	if payment == "" {
		payment = "COD"
	}
	paymentStatus := string(o.PaymentStatus)
	if paymentStatus == "" {
		paymentStatus = "Pending"
	}

	var address string
	if o.DeliveryAddress != "" {
		address = "*Delivery Address:*\n" + o.DeliveryAddress
		if o.City != "" {
			address += ", " + o.City
		}
	}

	return fmt.Sprintf("🧾 *INVOICE*\n\nHello %s,\n\nThank you for your order!\n\n*Order #:* %s\n*Date:* %s\n*Payment:* %s\n*Status:* %s\n\n%s\n*ORDER ITEMS:*\n\n%s%s\n\n*Subtotal:* Rs %s\n*Delivery:* Rs %s\n*TOTAL:* Rs %s\n\n%s\n\nThank you for shopping with us! 🙏\n\nFor any queries, feel free to contact us.",
		customerName(o), o.OrderNumber, o.CreatedAt.Format("Jan 2, 2006"), payment, paymentStatus,
		divider, items.String(), divider,
		rupees(o.Subtotal()), rupees(o.DeliveryFee), rupees(o.TotalAmount),
		address)
}
