package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Customer is the running aggregate upserted on every checkout.
type Customer struct {
	Phone       string          `json:"phone"`
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	TotalOrders int             `json:"total_orders"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	LastOrderAt time.Time       `json:"last_order_at"`
}

// NormalizePhone reduces a channel address such as "077-123 4567" or
// "94771234567@c.us" to bare international digits. A leading trunk zero is
// replaced with countryCode when one is given.
func NormalizePhone(raw, countryCode string) string {
	if at := strings.IndexByte(raw, '@'); at >= 0 {
		raw = raw[:at]
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if countryCode != "" && strings.HasPrefix(digits, "0") {
		digits = countryCode + strings.TrimPrefix(digits, "0")
	}
	return digits
}
