package normalize

import (
	"math/big"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts an upstream amount string to an integer.
// Thousands separators are stripped; anything else non-numeric yields nil.
func ParseAmount(raw string) *big.Int {
	s := cleanNumber(raw)
	if s == "" {
		return nil
	}

	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return n
}

// ParseDecimal converts an upstream per-share figure (may carry a fraction)
func ParseDecimal(raw string) decimal.NullDecimal {
	s := cleanNumber(raw)
	if s == "" {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func cleanNumber(raw string) string {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "-" {
		return ""
	}
	return s
}

// stripSpace removes every whitespace rune
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// scopePrefixes are dropped from labels before alias comparison
var scopePrefixes = []string{
	"연결", "별도", "분기", "계속영업",
	"Consolidated", "Separate", "Quarterly", "ContinuingOperations",
}

// stripScopePrefix removes one leading consolidation-scope prefix
func stripScopePrefix(s string) string {
	for _, p := range scopePrefixes {
		if rest, ok := strings.CutPrefix(s, p); ok {
			return rest
		}
	}
	return s
}
