package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/shelfprobe/browser"
	"github.com/use-agent/shelfprobe/models"
	"github.com/use-agent/shelfprobe/output"
)

// RunOptions selects the optional artefacts of a product run.
type RunOptions struct {
	Screenshot bool
	HTML       bool
}

// ProductResult is everything a DOM-mode run produced.
type ProductResult struct {
	RunID      string
	Record     models.PartialRecord
	Text       string
	Dismissed  []DismissOutcome
	Scroll     ScrollState
	Screenshot []byte
	HTML       string
	Timing     models.TimingInfo
}

const hideJS = `(sel, isPath) => {
	const el = isPath
		? document.evaluate(sel, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue
		: document.querySelector(sel);
	if (!el) return false;
	el.style.display = 'none';
	return true;
}`

// Run drives an already-loaded page through the extraction pipeline. It
// never fails: every step degrades to an absent or skipped result.
//
// Lifecycle:
//
//  1. Dismiss overlays     – sequential, each one optional
//  2. Hide sticky header   – keeps it out of the full-page capture
//  3. Scroll until stable  – materialises lazy sections, ends at the top
//  4. Extract fields       – price, priceOld, rating, reviewCount
//  5. Capture              – screenshot and HTML when requested
func (x *Extractor) Run(ctx context.Context, page browser.Page, opts RunOptions) *ProductResult {
	res := &ProductResult{}

	// ── 1. Dismiss overlays ───────────────────────────────────────────
	res.Dismissed = x.Dismiss(ctx, page, x.overlays)

	// ── 2. Hide sticky header ─────────────────────────────────────────
	x.hideSticky(ctx, page)

	// ── 3. Scroll until stable ────────────────────────────────────────
	x.logger.Info("scrolling to the bottom of the page")
	res.Scroll = x.Settle(ctx, page)

	// ── 4. Extract fields ─────────────────────────────────────────────
	res.Record = x.ExtractFields(ctx, page)
	res.Text = output.FormatRecord(res.Record)

	// ── 5. Capture ────────────────────────────────────────────────────
	if opts.Screenshot {
		cctx, cancel := context.WithTimeout(ctx, x.timing.Capture)
		shot, err := page.Screenshot(cctx)
		cancel()
		switch {
		case errors.Is(err, browser.ErrNoScripting):
			x.logger.Debug("page cannot render, skipping screenshot")
		case err != nil:
			x.logger.Warn("screenshot failed", "error", err)
		default:
			res.Screenshot = shot
		}
	}
	if opts.HTML {
		cctx, cancel := context.WithTimeout(ctx, x.timing.Capture)
		html, err := page.HTML(cctx)
		cancel()
		if err != nil {
			x.logger.Warn("could not read page HTML", "error", err)
		} else {
			res.HTML = html
		}
	}
	return res
}

func (x *Extractor) hideSticky(ctx context.Context, page browser.Page) {
	if x.sel.stickyHeader.IsZero() {
		return
	}
	x.logger.Info("hiding sticky header")
	actx, cancel := x.action(ctx)
	defer cancel()
	v, err := page.Eval(actx, hideJS, x.sel.stickyHeader.Value, x.sel.stickyHeader.Mode == models.ModePathQuery)
	switch {
	case err != nil:
		x.logger.Info("could not hide sticky header", "error", err)
	case !v.Bool():
		x.logger.Info("sticky header not present")
	}
}

// ScrapeProduct loads req.URL in a pooled browser page with the requested
// region and viewport and runs the extraction pipeline on it. Only invalid
// input, browser failure and navigation failure are returned as errors.
func (s *Scraper) ScrapeProduct(ctx context.Context, req *models.ProductRequest, opts RunOptions) (res *ProductResult, err error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID, "mode", "product")
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		s.metrics.ObserveRun("product", outcome, time.Since(start))
	}()

	// ── 1. Resolve session parameters ─────────────────────────────────
	region := req.Region
	if region == "" {
		region = s.cfg.Regions.Default
	}
	regionID, ok := s.cfg.RegionID(region)
	if !ok {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("unknown region %q", region), nil)
	}
	width, height := req.Width, req.Height
	if width <= 0 || height <= 0 {
		width, height = s.cfg.Browser.ViewportWidth, s.cfg.Browser.ViewportHeight
	}
	logger.Info("starting product run", "url", req.URL, "region", region, "region_id", regionID,
		"viewport", fmt.Sprintf("%dx%d", width, height))

	// ── 2. Acquire page ───────────────────────────────────────────────
	page, err := s.acquire(logger)
	if err != nil {
		return nil, err
	}
	// ── 3. DEFER: score and return the page, even on failure ──────────
	defer func() {
		s.health.record(page.Rod(), err == nil)
		_ = page.Close()
	}()

	// ── 4. Session setup ──────────────────────────────────────────────
	sess := Session{
		UserAgent: s.UserAgent(),
		Width:     width,
		Height:    height,
		Cookies:   []browser.Cookie{s.regionCookie(regionID)},
	}
	if err := sess.Apply(ctx, page, logger); err != nil {
		return nil, err
	}

	// ── 5. Navigate ───────────────────────────────────────────────────
	navStart := time.Now()
	if err := s.navigate(ctx, page, req.URL); err != nil {
		return nil, err
	}
	navMs := time.Since(navStart).Milliseconds()
	logger.Info("page loaded", "navigation_ms", navMs)

	// ── 6. Extract ────────────────────────────────────────────────────
	res = s.extractor.WithLogger(logger).Run(ctx, page, opts)
	res.RunID = runID
	res.Timing = models.TimingInfo{
		TotalMs:      time.Since(start).Milliseconds(),
		NavigationMs: navMs,
	}
	logger.Info("product run complete", "fields", res.Record.Len(), "total_ms", res.Timing.TotalMs)
	return res, nil
}
