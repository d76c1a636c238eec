package scraper

import (
	"context"

	"github.com/use-agent/shelfprobe/browser"
)

// ScrollState is the progress of one scroll-stability loop.
type ScrollState struct {
	Height     int  `json:"height"`
	Iterations int  `json:"iterations"`
	Stable     bool `json:"stable"`
	Capped     bool `json:"capped"`
}

// Settle scrolls to the bottom until the document stops growing, then
// scrolls back to the top. The loop ends when the height is unchanged, on
// the iteration cap, or when a page call fails; none of these is an error.
func (x *Extractor) Settle(ctx context.Context, page browser.Page) ScrollState {
	var state ScrollState
	for state.Iterations < x.timing.ScrollMaxIterations {
		h0, err := x.scrollHeight(ctx, page)
		if err != nil {
			x.logger.Info("could not read page height, stopping scroll", "error", err)
			break
		}
		state.Iterations++

		if err := x.scrollTo(ctx, page, h0); err != nil {
			x.logger.Info("scroll failed, stopping scroll", "error", err)
			break
		}
		if err := sleepCtx(ctx, x.timing.ScrollSettle); err != nil {
			break
		}

		h1, err := x.scrollHeight(ctx, page)
		if err != nil {
			x.logger.Info("could not read page height, stopping scroll", "error", err)
			break
		}
		state.Height = h1
		// A shrinking page is treated as settled.
		if h1 <= h0 {
			state.Stable = true
			break
		}
		x.logger.Debug("page grew", "from", h0, "to", h1, "iteration", state.Iterations)
	}
	if !state.Stable && state.Iterations >= x.timing.ScrollMaxIterations {
		state.Capped = true
		x.logger.Info("scroll iteration cap reached", "iterations", state.Iterations)
	}

	if err := x.scrollTo(ctx, page, 0); err != nil {
		x.logger.Info("could not scroll back to top", "error", err)
	}
	x.metrics.ObserveScroll(state.Iterations)
	x.logger.Info("scrolling complete", "height", state.Height, "iterations", state.Iterations, "stable", state.Stable)
	return state
}

func (x *Extractor) scrollHeight(ctx context.Context, page browser.Page) (int, error) {
	actx, cancel := x.action(ctx)
	defer cancel()
	return page.ScrollHeight(actx)
}

func (x *Extractor) scrollTo(ctx context.Context, page browser.Page, y int) error {
	actx, cancel := x.action(ctx)
	defer cancel()
	return page.ScrollTo(actx, 0, y)
}
