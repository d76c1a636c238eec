package scraper

import (
	"context"
	"time"

	"github.com/use-agent/shelfprobe/browser"
	"github.com/use-agent/shelfprobe/models"
)

// Overlay is one optional blocking element, such as a login banner.
type Overlay struct {
	Name    string
	Spec    models.SelectorSpec
	Timeout time.Duration

	// Consent overlays are containers; the click goes to their first
	// interactive child by candidate priority.
	Consent bool
}

// DismissOutcome reports what happened to one overlay.
type DismissOutcome struct {
	Name    string `json:"name"`
	Found   bool   `json:"found"`
	Clicked bool   `json:"clicked"`
}

func (o DismissOutcome) label() string {
	switch {
	case o.Clicked:
		return "dismissed"
	case o.Found:
		return "click_failed"
	default:
		return "not_found"
	}
}

// Dismiss runs each overlay strictly in order. An overlay that is missing
// or refuses the click never stops the ones after it.
func (x *Extractor) Dismiss(ctx context.Context, page browser.Page, overlays []Overlay) []DismissOutcome {
	outcomes := make([]DismissOutcome, 0, len(overlays))
	for _, o := range overlays {
		x.logger.Info("looking for overlay", "overlay", o.Name)

		var (
			target Target
			found  bool
		)
		if o.Consent {
			target, found = x.consentTarget(ctx, page, o)
		} else {
			var el browser.Element
			el, found = Locate(ctx, page, o.Spec, o.Timeout)
			target = Target{Element: el, Spec: o.Spec}
		}

		out := DismissOutcome{Name: o.Name, Found: found}
		if found {
			x.logger.Info("overlay found, clicking", "overlay", o.Name)
			out.Clicked = x.Click(ctx, page, target, o.Name)
		} else {
			x.logger.Info("overlay not found, continuing", "overlay", o.Name)
		}
		x.metrics.IncDismiss(o.Name, out.label())
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// consentTarget locates the consent container, then its first interactive
// child. Candidates are tried in priority order, not document order. A
// container without a usable child is found but yields an empty target.
func (x *Extractor) consentTarget(ctx context.Context, page browser.Page, o Overlay) (Target, bool) {
	container, ok := Locate(ctx, page, o.Spec, o.Timeout)
	if !ok {
		return Target{}, false
	}
	for _, cand := range x.sel.consent {
		actx, cancel := x.action(ctx)
		children, err := container.QueryAll(actx, cand)
		cancel()
		if err != nil || len(children) == 0 {
			continue
		}
		t := Target{Element: children[0]}
		if spec, err := o.Spec.Descendant(cand); err == nil {
			t.Spec = spec
		}
		x.logger.Debug("consent control chosen", "overlay", o.Name, "candidate", cand.Value)
		return t, true
	}
	x.logger.Info("consent container has no interactive child", "overlay", o.Name)
	return Target{}, true
}
