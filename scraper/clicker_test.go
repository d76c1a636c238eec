package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfprobe/browser"
	"github.com/use-agent/shelfprobe/models"
	"github.com/ysmood/gson"
)

func TestClick(t *testing.T) {
	spec := models.ParseSelector("close", `[class*="Tooltip_closeIcon"]`)

	tests := []struct {
		name      string
		clickErr  error
		evalFn    func(string, ...any) (gson.JSON, error)
		want      bool
		wantEvals int
	}{
		{
			name:      "element click succeeds",
			want:      true,
			wantEvals: 0,
		},
		{
			name:     "falls back to dom click",
			clickErr: errors.New("element is covered"),
			evalFn: func(string, ...any) (gson.JSON, error) {
				return gson.New(true), nil
			},
			want:      true,
			wantEvals: 1,
		},
		{
			name:     "dom click finds nothing",
			clickErr: errors.New("element is covered"),
			evalFn: func(string, ...any) (gson.JSON, error) {
				return gson.New(false), nil
			},
			want:      false,
			wantEvals: 1,
		},
		{
			name:      "both mechanisms fail",
			clickErr:  errors.New("element is covered"),
			want:      false,
			wantEvals: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log []string
			el := &fakeElement{name: "close", clickErr: tt.clickErr, log: &log}
			page := &fakePage{evalFn: tt.evalFn}
			x := newTestExtractor(t, testConfig())

			got := x.Click(context.Background(), page, Target{Element: el, Spec: spec}, "close")

			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{"click:close"}, log)
			require.Len(t, page.evals, tt.wantEvals)
			if tt.wantEvals > 0 {
				assert.Equal(t, []any{spec.Value, false}, page.evals[0])
			}
		})
	}
}

func TestClickWithoutElementUsesSpec(t *testing.T) {
	spec := models.ParseSelector("accept", `//button[text()="OK"]`)
	page := &fakePage{evalFn: func(string, ...any) (gson.JSON, error) {
		return gson.New(true), nil
	}}
	x := newTestExtractor(t, testConfig())

	assert.True(t, x.Click(context.Background(), page, Target{Spec: spec}, "accept"))
	require.Len(t, page.evals, 1)
	assert.Equal(t, []any{spec.Value, true}, page.evals[0])
}

func TestClickEmptyTarget(t *testing.T) {
	page := &fakePage{}
	x := newTestExtractor(t, testConfig())

	assert.False(t, x.Click(context.Background(), page, Target{}, "nothing"))
	assert.Empty(t, page.evals)
}

func TestLocate(t *testing.T) {
	spec := models.ParseSelector("banner", ".banner")
	el := &fakeElement{name: "banner"}
	page := &fakePage{elements: map[string][]browser.Element{".banner": {el}}}

	got, ok := Locate(context.Background(), page, spec, testConfig().Scraper.SelectorTimeout)
	assert.True(t, ok)
	assert.Same(t, el, got)

	_, ok = Locate(context.Background(), page, models.ParseSelector("missing", ".missing"), testConfig().Scraper.SelectorTimeout)
	assert.False(t, ok)

	_, ok = Locate(context.Background(), page, models.SelectorSpec{}, testConfig().Scraper.SelectorTimeout)
	assert.False(t, ok)
}

func TestLocateAll(t *testing.T) {
	a, b := &fakeElement{name: "a"}, &fakeElement{name: "b"}
	page := &fakePage{elements: map[string][]browser.Element{".price": {a, b}}}

	got := LocateAll(context.Background(), page, models.ParseSelector("price", ".price"), testConfig().Scraper.SelectorTimeout)
	assert.Equal(t, []browser.Element{a, b}, got)

	assert.Empty(t, LocateAll(context.Background(), page, models.ParseSelector("none", ".none"), testConfig().Scraper.SelectorTimeout))
}
