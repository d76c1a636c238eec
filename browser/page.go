// Package browser defines the page capability the extraction engine drives,
// with a live Chromium implementation (RodPage) and an HTML snapshot
// implementation (StaticPage).
package browser

import (
	"context"
	"errors"

	"github.com/use-agent/shelfprobe/models"
	"github.com/ysmood/gson"
)

var (
	// ErrNotFound is returned by WaitFor when nothing matches before the
	// context ends.
	ErrNotFound = errors.New("browser: no element matches")

	// ErrNoScripting is returned by pages that cannot run scripts or
	// render, such as StaticPage.
	ErrNoScripting = errors.New("browser: page cannot run scripts")
)

// Cookie is a cookie installed before navigation.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// Page is one page or document owned by a single invocation.
// Every method honours ctx for cancellation and deadlines.
type Page interface {
	Navigate(ctx context.Context, url string) error
	SetCookie(ctx context.Context, c Cookie) error
	SetUserAgent(ctx context.Context, ua string) error
	SetViewport(ctx context.Context, width, height int) error

	// WaitFor blocks until spec matches or ctx ends and returns the first
	// match in document order.
	WaitFor(ctx context.Context, spec models.SelectorSpec) (Element, error)

	// QueryAll returns every current match without waiting.
	QueryAll(ctx context.Context, spec models.SelectorSpec) ([]Element, error)

	// Eval runs a JS function expression with args in the page.
	Eval(ctx context.Context, js string, args ...any) (gson.JSON, error)

	ScrollTo(ctx context.Context, x, y int) error
	ScrollHeight(ctx context.Context) (int, error)

	// Screenshot captures the full page as JPEG.
	Screenshot(ctx context.Context) ([]byte, error)
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Element is a live handle to one matched node.
type Element interface {
	Click(ctx context.Context) error
	Text(ctx context.Context) (string, error)

	// QueryAll returns matches among the element's descendants.
	QueryAll(ctx context.Context, spec models.SelectorSpec) ([]Element, error)
}
