package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettle(t *testing.T) {
	tests := []struct {
		name        string
		heights     []int
		want        ScrollState
		wantScrolls []int
	}{
		{
			name:        "constant height",
			heights:     []int{3000},
			want:        ScrollState{Height: 3000, Iterations: 1, Stable: true},
			wantScrolls: []int{3000, 0},
		},
		{
			name:        "grows once then settles",
			heights:     []int{3000, 4500, 4500, 4500},
			want:        ScrollState{Height: 4500, Iterations: 2, Stable: true},
			wantScrolls: []int{3000, 4500, 0},
		},
		{
			name:        "shrinking counts as settled",
			heights:     []int{3000, 2800},
			want:        ScrollState{Height: 2800, Iterations: 1, Stable: true},
			wantScrolls: []int{3000, 0},
		},
		{
			name:        "keeps growing until the cap",
			heights:     []int{1000, 2000, 3000, 4000, 5000, 6000, 7000, 8000, 9000, 10000, 11000},
			want:        ScrollState{Height: 10000, Iterations: 5, Capped: true},
			wantScrolls: []int{1000, 3000, 5000, 7000, 9000, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &fakePage{heights: tt.heights}
			x := newTestExtractor(t, testConfig())

			got := x.Settle(context.Background(), page)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantScrolls, page.scrolls)
		})
	}
}

func TestSettleStopsWhenHeightUnreadable(t *testing.T) {
	page := &fakePage{}
	x := newTestExtractor(t, testConfig())

	got := x.Settle(context.Background(), page)

	assert.Equal(t, ScrollState{}, got)
	assert.Equal(t, []int{0}, page.scrolls)
}
