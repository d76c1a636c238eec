package scraper

import (
	"context"
	"time"

	"github.com/use-agent/shelfprobe/browser"
	"github.com/use-agent/shelfprobe/models"
)

// Locate waits up to maxWait for spec to match and returns the first
// match. Not finding anything is a normal outcome, reported as false.
func Locate(ctx context.Context, page browser.Page, spec models.SelectorSpec, maxWait time.Duration) (browser.Element, bool) {
	if spec.IsZero() {
		return nil, false
	}
	wctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	el, err := page.WaitFor(wctx, spec)
	if err != nil || el == nil {
		return nil, false
	}
	return el, true
}

// LocateAll waits up to maxWait for the first match of spec, then returns
// every match in document order. The result is empty when nothing appears.
func LocateAll(ctx context.Context, page browser.Page, spec models.SelectorSpec, maxWait time.Duration) []browser.Element {
	if _, ok := Locate(ctx, page, spec, maxWait); !ok {
		return nil
	}
	qctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	els, err := page.QueryAll(qctx, spec)
	if err != nil {
		return nil
	}
	return els
}
