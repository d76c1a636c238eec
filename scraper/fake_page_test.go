package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfprobe/browser"
	"github.com/use-agent/shelfprobe/config"
	"github.com/use-agent/shelfprobe/models"
	"github.com/ysmood/gson"
)

// fakeElement is a scripted element.
type fakeElement struct {
	name     string
	text     string
	clickErr error
	children map[string][]browser.Element
	log      *[]string
}

func (e *fakeElement) Click(context.Context) error {
	if e.log != nil {
		*e.log = append(*e.log, "click:"+e.name)
	}
	return e.clickErr
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, nil }

func (e *fakeElement) QueryAll(_ context.Context, spec models.SelectorSpec) ([]browser.Element, error) {
	return e.children[spec.Value], nil
}

// fakePage is a scripted page. Elements are keyed by selector value;
// WaitFor on a missing selector blocks until the context ends.
type fakePage struct {
	mu       sync.Mutex
	elements map[string][]browser.Element
	heights  []int
	heightAt int
	scrolls  []int
	evalFn   func(js string, args ...any) (gson.JSON, error)
	evals    [][]any
	// hang makes Screenshot and HTML block until the context ends.
	hang bool
}

func (p *fakePage) Navigate(context.Context, string) error { return nil }
func (p *fakePage) SetCookie(context.Context, browser.Cookie) error { return nil }
func (p *fakePage) SetUserAgent(context.Context, string) error { return nil }
func (p *fakePage) SetViewport(context.Context, int, int) error { return nil }
func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if p.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []byte{0xff, 0xd8}, nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	if p.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "<html></html>", nil
}
func (p *fakePage) Close() error { return nil }

func (p *fakePage) WaitFor(ctx context.Context, spec models.SelectorSpec) (browser.Element, error) {
	if els := p.elements[spec.Value]; len(els) > 0 {
		return els[0], nil
	}
	<-ctx.Done()
	return nil, browser.ErrNotFound
}

func (p *fakePage) QueryAll(_ context.Context, spec models.SelectorSpec) ([]browser.Element, error) {
	return p.elements[spec.Value], nil
}

func (p *fakePage) Eval(_ context.Context, js string, args ...any) (gson.JSON, error) {
	p.mu.Lock()
	p.evals = append(p.evals, args)
	p.mu.Unlock()
	if p.evalFn == nil {
		return gson.JSON{}, errors.New("eval not scripted")
	}
	return p.evalFn(js, args...)
}

func (p *fakePage) ScrollTo(_ context.Context, _, y int) error {
	p.scrolls = append(p.scrolls, y)
	return nil
}

// ScrollHeight returns the scripted heights in turn, repeating the last.
func (p *fakePage) ScrollHeight(context.Context) (int, error) {
	if len(p.heights) == 0 {
		return 0, errors.New("no height scripted")
	}
	h := p.heights[min(p.heightAt, len(p.heights)-1)]
	p.heightAt++
	return h, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Scraper: config.ScraperConfig{
			SelectorTimeout:     20 * time.Millisecond,
			ActionTimeout:       20 * time.Millisecond,
			PayloadTimeout:      20 * time.Millisecond,
			NavigationTimeout:   50 * time.Millisecond,
			ScrollSettle:        0,
			ScrollMaxIterations: 5,
			CurrencyMarker:      "₽",
		},
		Selectors: config.DefaultSelectors(),
		Overlays:  config.DefaultOverlays(),
		Site:      config.SiteConfig{Origin: "https://www.vprok.ru"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExtractor(t *testing.T, cfg *config.Config) *Extractor {
	t.Helper()
	x, err := NewExtractor(cfg, discardLogger(), nil)
	require.NoError(t, err)
	return x
}
