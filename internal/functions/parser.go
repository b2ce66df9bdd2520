// Package functions turns [FUNCTION:...] tags in generated text into calls
// against the store.
package functions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var tagPattern = regexp.MustCompile(`\[FUNCTION:(.*?)\]`)

// Invocation is one parsed tag.
type Invocation struct {
	Raw  string
	Name string
	Args Args
}

// Args holds key=value tokens by lowercased key. Every other token is kept
// in Positional and under arg<i>, i being its index after the name.
type Args struct {
	Named      map[string]string
	Positional []string
}

// Parse returns the invocations in textual order. Unterminated tags never
// match and tags with an empty name are dropped.
func Parse(text string) []Invocation {
	matches := tagPattern.FindAllStringSubmatch(text, -1)
	invocations := make([]Invocation, 0, len(matches))
	for _, m := range matches {
		tokens := strings.Split(m[1], ":")
		name := strings.ToLower(strings.TrimSpace(tokens[0]))
		if name == "" {
			continue
		}
		invocations = append(invocations, Invocation{
			Raw:  m[0],
			Name: name,
			Args: parseArgs(tokens[1:]),
		})
	}
	return invocations
}

func parseArgs(tokens []string) Args {
	args := Args{Named: map[string]string{}}
	for i, token := range tokens {
		if key, value, ok := strings.Cut(token, "="); ok && strings.TrimSpace(key) != "" {
			args.Named[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
			continue
		}
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		args.Named[fmt.Sprintf("arg%d", i)] = token
		args.Positional = append(args.Positional, token)
	}
	return args
}

// String returns the first non-empty value among keys.
func (a Args) String(keys ...string) string {
	for _, k := range keys {
		if v, ok := a.Named[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

func (a Args) Int(keys ...string) (int, bool, error) {
	v := a.String(keys...)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(v, "#"))
	if err != nil {
		return 0, true, fmt.Errorf("'%s' is not a whole number", v)
	}
	return n, true, nil
}

// Decimal accepts thousands separators and an optional Rs. prefix.
func (a Args) Decimal(keys ...string) (decimal.Decimal, bool, error) {
	v := a.String(keys...)
	if v == "" {
		return decimal.Zero, false, nil
	}
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(v)
	cleaned = strings.TrimPrefix(strings.TrimPrefix(strings.TrimPrefix(cleaned, "Rs."), "Rs"), "rs.")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, true, fmt.Errorf("'%s' is not a valid amount", v)
	}
	return d, true, nil
}

// Joined rebuilds free text that was split on colons.
func (a Args) Joined() string {
	return strings.Join(a.Positional, ":")
}
