package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/use-agent/shelfprobe/models"
	"github.com/ysmood/gson"
	"golang.org/x/net/html"
)

// StaticPage is a Page over an already-fetched HTML document. It has no
// layout and no script engine: lookups resolve immediately, clicks and
// script evaluation fail with ErrNoScripting, and the document height is
// constant.
type StaticPage struct {
	doc *goquery.Document
	url string
}

// NewStaticPage parses an HTML document.
func NewStaticPage(document string) (*StaticPage, error) {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &StaticPage{doc: goquery.NewDocumentFromNode(root)}, nil
}

// URL is the last address passed to Navigate.
func (p *StaticPage) URL() string { return p.url }

// Navigate records url; the document itself never changes.
func (p *StaticPage) Navigate(_ context.Context, url string) error {
	p.url = url
	return nil
}

func (p *StaticPage) SetCookie(context.Context, Cookie) error { return nil }
func (p *StaticPage) SetUserAgent(context.Context, string) error { return nil }
func (p *StaticPage) SetViewport(context.Context, int, int) error { return nil }
func (p *StaticPage) ScrollTo(context.Context, int, int) error { return nil }
func (p *StaticPage) ScrollHeight(context.Context) (int, error) { return 0, nil }
func (p *StaticPage) Screenshot(context.Context) ([]byte, error) { return nil, ErrNoScripting }
func (p *StaticPage) Close() error { return nil }

func (p *StaticPage) Eval(context.Context, string, ...any) (gson.JSON, error) {
	return gson.JSON{}, ErrNoScripting
}

// WaitFor returns the first match or ErrNotFound at once; a static
// document never gains nodes.
func (p *StaticPage) WaitFor(ctx context.Context, spec models.SelectorSpec) (Element, error) {
	els, err := p.QueryAll(ctx, spec)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, spec)
	}
	return els[0], nil
}

func (p *StaticPage) QueryAll(_ context.Context, spec models.SelectorSpec) ([]Element, error) {
	nodes, err := queryNodes(p.doc.Get(0), spec, false)
	if err != nil {
		return nil, err
	}
	return wrapNodes(nodes), nil
}

func (p *StaticPage) HTML(context.Context) (string, error) {
	return p.doc.Html()
}

type staticElement struct {
	node *html.Node
}

func (e *staticElement) Click(context.Context) error { return ErrNoScripting }

func (e *staticElement) Text(context.Context) (string, error) {
	return goquery.NewDocumentFromNode(e.node).Text(), nil
}

func (e *staticElement) QueryAll(_ context.Context, spec models.SelectorSpec) ([]Element, error) {
	nodes, err := queryNodes(e.node, spec, true)
	if err != nil {
		return nil, err
	}
	return wrapNodes(nodes), nil
}

// queryNodes resolves spec against root in document order. With scoped
// set, absolute path-queries are rewritten relative to root.
func queryNodes(root *html.Node, spec models.SelectorSpec, scoped bool) ([]*html.Node, error) {
	if spec.Mode == models.ModePathQuery {
		expr := spec.Value
		if scoped && strings.HasPrefix(expr, "/") {
			expr = "." + expr
		}
		nodes, err := htmlquery.QueryAll(root, expr)
		if err != nil {
			return nil, fmt.Errorf("invalid path-query %s: %w", spec, err)
		}
		return nodes, nil
	}
	sel, err := cascadia.ParseGroup(spec.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %s: %w", spec, err)
	}
	return cascadia.QueryAll(root, sel), nil
}

func wrapNodes(nodes []*html.Node) []Element {
	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = &staticElement{node: n}
	}
	return out
}
