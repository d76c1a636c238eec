package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/shelfprobe/models"
	"github.com/ysmood/gson"
)

const scrollHeightJS = `() => Math.max(
	document.body ? document.body.scrollHeight : 0,
	document.documentElement ? document.documentElement.scrollHeight : 0
)`

// RodPage adapts a live rod page to Page.
type RodPage struct {
	page    *rod.Page
	release func(*rod.Page)
	logger  *slog.Logger
}

// NewRodPage wraps page. release is called once by Close; a nil release
// closes the underlying tab.
func NewRodPage(page *rod.Page, release func(*rod.Page), logger *slog.Logger) *RodPage {
	if logger == nil {
		logger = slog.Default()
	}
	return &RodPage{page: page, release: release, logger: logger}
}

// Rod exposes the underlying page for callers that need raw CDP access.
func (p *RodPage) Rod() *rod.Page { return p.page }

func (p *RodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	// Approximates "network almost idle"; pages that never settle proceed
	// with the current DOM.
	if err := pg.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		p.logger.Debug("DOM did not settle, proceeding with current DOM", "error", err)
	}
	return nil
}

func (p *RodPage) SetCookie(ctx context.Context, c Cookie) error {
	path := c.Path
	if path == "" {
		path = "/"
	}
	_, err := proto.NetworkSetCookie{
		Name:   c.Name,
		Value:  c.Value,
		Domain: c.Domain,
		Path:   path,
	}.Call(p.page.Context(ctx))
	return err
}

func (p *RodPage) SetUserAgent(ctx context.Context, ua string) error {
	return p.page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua})
}

func (p *RodPage) SetViewport(ctx context.Context, width, height int) error {
	return p.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

func (p *RodPage) WaitFor(ctx context.Context, spec models.SelectorSpec) (Element, error) {
	pg := p.page.Context(ctx)
	var (
		el  *rod.Element
		err error
	)
	if spec.Mode == models.ModePathQuery {
		el, err = pg.ElementX(spec.Value)
	} else {
		el, err = pg.Element(spec.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, spec, err)
	}
	return &rodElement{el: el}, nil
}

func (p *RodPage) QueryAll(ctx context.Context, spec models.SelectorSpec) ([]Element, error) {
	pg := p.page.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	if spec.Mode == models.ModePathQuery {
		els, err = pg.ElementsX(spec.Value)
	} else {
		els, err = pg.Elements(spec.Value)
	}
	if err != nil {
		return nil, err
	}
	return wrapElements(els), nil
}

func (p *RodPage) Eval(ctx context.Context, js string, args ...any) (gson.JSON, error) {
	res, err := p.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return gson.JSON{}, err
	}
	return res.Value, nil
}

func (p *RodPage) ScrollTo(ctx context.Context, x, y int) error {
	_, err := p.Eval(ctx, `(x, y) => window.scrollTo(x, y)`, x, y)
	return err
}

func (p *RodPage) ScrollHeight(ctx context.Context) (int, error) {
	v, err := p.Eval(ctx, scrollHeightJS)
	if err != nil {
		return 0, err
	}
	return v.Int(), nil
}

func (p *RodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(90),
	})
}

func (p *RodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// Close hands the page back to its owner. It must be called exactly once.
func (p *RodPage) Close() error {
	if p.release != nil {
		p.release(p.page)
		return nil
	}
	return p.page.Close()
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

// Text returns textContent, which includes text hidden by CSS.
func (e *rodElement) Text(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(`() => this.textContent`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *rodElement) QueryAll(ctx context.Context, spec models.SelectorSpec) ([]Element, error) {
	el := e.el.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	if spec.Mode == models.ModePathQuery {
		els, err = el.ElementsX(spec.Value)
	} else {
		els, err = el.Elements(spec.Value)
	}
	if err != nil {
		return nil, err
	}
	return wrapElements(els), nil
}

func wrapElements(els rod.Elements) []Element {
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out
}
