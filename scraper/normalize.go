package scraper

import (
	"regexp"
	"strings"
)

var (
	nonPriceChars = regexp.MustCompile(`[^0-9,.]`)
	ratingPattern = regexp.MustCompile(`(\d)[.,](\d)`)
	digitRun      = regexp.MustCompile(`\d+`)
)

// NormalizePrice keeps only digits and the two decimal separator
// candidates, so "1 234,50 ₽" becomes "1234,50".
func NormalizePrice(s string) string {
	return nonPriceChars.ReplaceAllString(s, "")
}

// NormalizeRating returns the first "d.d" or "d,d" in s with the separator
// as ".". It is idempotent on its own output.
func NormalizeRating(s string) (string, bool) {
	m := ratingPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1] + "." + m[2], true
}

// NormalizeReviewCount returns the first run of digits in s.
func NormalizeReviewCount(s string) (string, bool) {
	m := digitRun.FindString(s)
	return m, m != ""
}

// PriceTexts keeps the texts that carry the currency marker, in order.
func PriceTexts(texts []string, currency string) []string {
	var out []string
	for _, t := range texts {
		if strings.Contains(t, currency) {
			out = append(out, strings.TrimSpace(t))
		}
	}
	return out
}

// InterpretPrices applies the positional convention: one text is the
// current price; with two or more, the first is the pre-discount price and
// the second the current one. Later texts are ignored. Empty results mean
// absent.
//
// The convention follows DOM order, not value, so a page that reorders its
// price nodes will swap the two fields.
func InterpretPrices(texts []string) (current, prior string) {
	switch {
	case len(texts) >= 2:
		return texts[1], texts[0]
	case len(texts) == 1:
		return texts[0], ""
	default:
		return "", ""
	}
}
