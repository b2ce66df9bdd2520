package composer

import (
	"regexp"
	"strings"
)

const EmptyReplyFallback = "I'm processing your request. Please try rephrasing your question."

var leakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[FUNCTION:[^\]]*\]`),
	regexp.MustCompile(`(?i)---\s*Retrieved Data FROM DATABASE\s*---`),
	regexp.MustCompile(`(?i)⚠️\s*CRITICAL:.*?DO NOT INVENT ANY PRODUCTS OR DETAILS\.`),
	regexp.MustCompile(`(?i)⚠️\s*ONLY show products.*?DO NOT make up products\.`),
	regexp.MustCompile(`(?i)If the data is empty.*?DO NOT make up products\.`),
	regexp.MustCompile(`(?i)BROWSE_CATEGORIES:|SEARCH_PRODUCTS:|VIEW_CART:|ADD_TO_CART:|PRODUCTS_BY_CATEGORY:`),
}

var (
	absoluteUploadPattern = regexp.MustCompile(`(?i)image_url:\s*(/uploads/products/[^\s"']+)`)
	bareUploadPattern     = regexp.MustCompile(`(?i)image_url:\s*(uploads/products/[^\s"']+)`)
)

// Sanitize strips function tags and context markers from a reply and makes
// upload paths absolute.
func Sanitize(text, baseURL string) string {
	for _, re := range leakPatterns {
		text = re.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return EmptyReplyFallback
	}

	base := strings.TrimRight(baseURL, "/")
	text = absoluteUploadPattern.ReplaceAllString(text, "image_url: "+escapeRepl(base)+"${1}")
	text = bareUploadPattern.ReplaceAllString(text, "image_url: "+escapeRepl(base)+"/${1}")
	return text
}

func escapeRepl(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
