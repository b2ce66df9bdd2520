// Package media pulls product images out of generated replies and stores
// images uploaded by the administrator.
package media

import (
	"regexp"
	"strings"
)

const (
	MaxImages       = 5
	captionLookback = 10
	FallbackCaption = "🛍️ Product Image"
)

var (
	imageURLPattern = regexp.MustCompile(`(?i)image_url["']?\s*[:=]\s*["']?(https?://[^\s"']+|/uploads/[^\s"']+)`)
	namePattern     = regexp.MustCompile(`\*\*([^*]+)\*\*(?:\s*-\s*Rs\.?\s*([\d,]+))?`)
	pricePattern    = regexp.MustCompile(`Rs\.?\s*([\d,]+)`)
	stockPattern    = regexp.MustCompile(`(?i)\*\*Stock(?:\s+Available)?\*\*[:\s]*(\d+)`)
	descPattern     = regexp.MustCompile(`(?i)Description:\s*(.+)`)
)

type Image struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// Extractor finds image_url references in text and builds a caption for
// each from the lines just above it.
type Extractor struct {
	baseURL string
}

func NewExtractor(baseURL string) *Extractor {
	return &Extractor{baseURL: strings.TrimRight(baseURL, "/")}
}

// Extract returns at most MaxImages distinct images in the order they
// appear. Relative /uploads paths are resolved against the base URL.
func (e *Extractor) Extract(text string) []Image {
	images := []Image{}
	seen := map[string]bool{}
	for _, loc := range imageURLPattern.FindAllStringSubmatchIndex(text, -1) {
		raw := strings.TrimRight(text[loc[2]:loc[3]], ".,;)")
		if len(raw) < 5 || strings.HasPrefix(raw, "http://example") {
			continue
		}
		url := e.Resolve(raw)
		if seen[url] {
			continue
		}
		seen[url] = true
		images = append(images, Image{URL: url, Caption: Caption(text[:loc[0]])})
		if len(images) == MaxImages {
			break
		}
	}
	return images
}

// Resolve makes a path absolute against the base URL.
func (e *Extractor) Resolve(path string) string {
	switch {
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	case strings.HasPrefix(path, "/"):
		return e.baseURL + path
	default:
		return e.baseURL + "/" + path
	}
}

// Caption scans up to ten lines preceding an image reference, nearest first.
func Caption(before string) string {
	lines := strings.Split(before, "\n")
	var name, price, desc, stock string

	for i, scanned := len(lines)-1, 0; i >= 0 && scanned < captionLookback; i, scanned = i-1, scanned+1 {
		line := strings.TrimSpace(lines[i])
		if name == "" {
			if m := namePattern.FindStringSubmatch(line); m != nil && !stockPattern.MatchString(line) {
				name = strings.TrimSpace(m[1])
				if m[2] != "" {
					price = "Rs. " + m[2]
				}
			}
		}
		if price == "" {
			if m := pricePattern.FindStringSubmatch(line); m != nil {
				price = "Rs. " + m[1]
			}
		}
		if stock == "" {
			if m := stockPattern.FindStringSubmatch(line); m != nil {
				stock = "Stock: " + m[1] + " available"
			}
		}
		if desc == "" {
			if m := descPattern.FindStringSubmatch(line); m != nil {
				desc = strings.TrimSpace(m[1])
			}
		}
		if name != "" && price != "" && (desc != "" || stock != "") {
			break
		}
	}

	if name == "" {
		return FallbackCaption
	}
	var b strings.Builder
	b.WriteString("🛍️ *" + name + "*")
	if price != "" {
		b.WriteString("\n💰 " + price)
	}
	if desc != "" {
		b.WriteString("\n📝 " + desc)
	}
	if stock != "" {
		b.WriteString("\n📦 " + stock)
	}
	return b.String()
}
