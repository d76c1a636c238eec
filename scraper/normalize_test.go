package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1 234 ₽", "1234"},
		{"999 ₽", "999"},
		{"89,90 ₽", "89,90"},
		{"1 299.50 ₽/кг", "1299.50"},
		{"₽", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePrice(tt.in))
		})
	}
}

func TestNormalizeRating(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"4,5 out of 5", "4.5", true},
		{"4.8", "4.8", true},
		{"Rating: 3,0 (12)", "3.0", true},
		{"5", "", false},
		{"no rating", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeRating(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeRatingIdempotent(t *testing.T) {
	for _, in := range []string{"4,5 out of 5", "4.5", "0,1", "text 9.9 more"} {
		once, ok := NormalizeRating(in)
		if !assert.True(t, ok, in) {
			continue
		}
		twice, ok := NormalizeRating(once)
		assert.True(t, ok)
		assert.Equal(t, once, twice, in)
	}
}

func TestNormalizeReviewCount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12 reviews", "12", true},
		{"Reviews: 1204 (new 3)", "1204", true},
		{"no reviews yet", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeReviewCount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterpretPricesByCount(t *testing.T) {
	tests := []struct {
		name        string
		texts       []string
		wantCurrent string
		wantPrior   string
	}{
		{"none", nil, "", ""},
		{"one", []string{"999 ₽"}, "999 ₽", ""},
		{"two", []string{"1 234 ₽", "999 ₽"}, "999 ₽", "1 234 ₽"},
		{"three ignores the rest", []string{"1 ₽", "2 ₽", "3 ₽"}, "2 ₽", "1 ₽"},
		{"positional, not by value", []string{"10 ₽", "20 ₽"}, "20 ₽", "10 ₽"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, prior := InterpretPrices(tt.texts)
			assert.Equal(t, tt.wantCurrent, current)
			assert.Equal(t, tt.wantPrior, prior)
		})
	}
}

func TestPriceTextsFiltersByCurrency(t *testing.T) {
	got := PriceTexts([]string{" 1 234 ₽ ", "per kg", "999 ₽"}, "₽")
	assert.Equal(t, []string{"1 234 ₽", "999 ₽"}, got)
	assert.Empty(t, PriceTexts([]string{"free"}, "₽"))
}
