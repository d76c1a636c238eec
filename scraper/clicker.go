package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/use-agent/shelfprobe/browser"
	"github.com/use-agent/shelfprobe/models"
)

// Target is what the clicker acts on: a located element, the spec that
// re-resolves it, or both.
type Target struct {
	Element browser.Element
	Spec    models.SelectorSpec
}

// clickStrategy is one way of activating a target.
type clickStrategy struct {
	name  string
	click func(ctx context.Context, page browser.Page, t Target) error
}

// clickStrategies are tried in order until one succeeds.
var clickStrategies = []clickStrategy{
	{name: "element", click: elementClick},
	{name: "dom", click: domClick},
}

var errNoTarget = errors.New("no element or selector to click")

func elementClick(ctx context.Context, _ browser.Page, t Target) error {
	if t.Element == nil {
		return errNoTarget
	}
	return t.Element.Click(ctx)
}

const domClickJS = `(sel, isPath) => {
	const el = isPath
		? document.evaluate(sel, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue
		: document.querySelector(sel);
	if (!el) return false;
	el.click();
	return true;
}`

// domClick dispatches el.click() inside the page, re-resolving the target
// by its spec.
func domClick(ctx context.Context, page browser.Page, t Target) error {
	if t.Spec.IsZero() {
		return errNoTarget
	}
	v, err := page.Eval(ctx, domClickJS, t.Spec.Value, t.Spec.Mode == models.ModePathQuery)
	if err != nil {
		return err
	}
	if !v.Bool() {
		return fmt.Errorf("%s no longer matches", t.Spec)
	}
	return nil
}

// Click activates target, falling back from an element-level click to a
// DOM-dispatched click. Failure is logged and reported as false; it never
// aborts the caller.
func (x *Extractor) Click(ctx context.Context, page browser.Page, target Target, name string) bool {
	var errs []error
	for _, s := range clickStrategies {
		actx, cancel := x.action(ctx)
		err := s.click(actx, page, target)
		cancel()

		x.metrics.IncClick(s.name, err == nil)
		if err == nil {
			x.logger.Info("clicked", "target", name, "mechanism", s.name)
			return true
		}
		x.logger.Debug("click mechanism failed", "target", name, "mechanism", s.name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	x.logger.Info("could not click", "target", name, "error", errors.Join(errs...))
	return false
}
