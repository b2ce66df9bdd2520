package composer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"
)

const contextHeader = "\n\n--- Retrieved Data FROM DATABASE ---\n⚠️ CRITICAL: YOU MUST USE ONLY THE DATA BELOW. DO NOT INVENT ANY PRODUCTS OR DETAILS.\n\n"

const contextRules = `
⚠️ ONLY show products/data from the JSON above. DO NOT add any products that are not listed.
If the data is empty [], tell the user no products are available. DO NOT make up products.

🚨 IMPORTANT FORMATTING RULES:
- DO NOT include "Retrieved Data FROM DATABASE" in your response
- DO NOT show raw JSON to the user
- DO NOT include debug markers like "BROWSE_CATEGORIES:", "SEARCH_PRODUCTS:", etc.
- Present the data in a natural, user-friendly format
- Use bullet points, emojis, and clear formatting for readability

🚨 CRITICAL - ORDER NUMBERS:
- ALWAYS use the EXACT "orderNumber" value from the JSON data
- DO NOT reformat, change, or make up order numbers
- The order number in your response MUST match the JSON exactly
`

// Executed pairs a function name with what it returned.
type Executed struct {
	Name   string                `json:"name"`
	Result domain.FunctionResult `json:"result"`
}

// FunctionContext renders the retrieved-data block handed to round two.
func FunctionContext(results []Executed) string {
	var b strings.Builder
	b.WriteString(contextHeader)
	for _, r := range results {
		name := strings.ToUpper(r.Name)
		if !r.Result.Success {
			reason := r.Result.Error
			if reason == "" {
				reason = "request failed"
			}
			fmt.Fprintf(&b, "\n%s: Error - %s\n", name, reason)
			continue
		}
		payload := r.Result.Data
		if payload == nil {
			payload = map[string]string{"message": r.Result.Message}
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			fmt.Fprintf(&b, "\n%s: Error - result could not be encoded\n", name)
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s\n", name, data)
		if r.Result.Message != "" && r.Result.Data != nil {
			fmt.Fprintf(&b, "(%s)\n", r.Result.Message)
		}
	}
	b.WriteString(contextRules)
	return b.String()
}

// ContextMessage is the round-two user turn.
func ContextMessage(results []Executed, userMessage string) string {
	return fmt.Sprintf("%s\n\n⚠️ IMPORTANT: The function has ALREADY been executed. DO NOT repeat the [FUNCTION:...] tag in your response.\nInstead, use the data above to answer the user's question naturally.\n\nUser's question: \"%s\"\n\nProvide a helpful response using ONLY the data shown above:",
		FunctionContext(results), userMessage)
}

const functionRules = `
--- SPECIAL CAPABILITIES ---
You can fetch live store data and act on the customer's cart with function tags.
Write a tag exactly as [FUNCTION:function_name:key=value:key=value]. Only text inside [FUNCTION:...] brackets runs anything.

CRITICAL RULES:
1. ALWAYS call a function to get REAL data before describing products, carts or orders
2. Never invent product names, prices, stock or order numbers
3. Collect name, address, city and payment method before calling checkout
4. Show the cart with view_cart before checkout
5. When showing a product that has an image_url, add a line "image_url: <path>" so the image is sent
6. The cart_item_id in the cart JSON is not the product_id

Available Functions:
`

// SystemPrompt joins the base prompt with the caller's function catalog.
func SystemPrompt(base, catalog string) string {
	return strings.TrimSpace(base) + "\n" + functionRules + catalog
}
