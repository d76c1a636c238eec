package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/shelfprobe/browser"
	"github.com/use-agent/shelfprobe/catalog"
	"github.com/use-agent/shelfprobe/engine"
	"github.com/use-agent/shelfprobe/models"
	"github.com/use-agent/shelfprobe/output"
)

// CatalogResult is everything an API-mode run produced.
type CatalogResult struct {
	RunID      string
	Entries    []models.CatalogEntry
	Text       string
	EngineUsed string
	Timing     models.TimingInfo
}

// fetchModes maps request fetch modes to engine names.
var fetchModes = map[string]string{
	"auto":    "",
	"":        "",
	"http":    "http",
	"browser": "rod",
}

// ExtractCatalog reads the embedded payload from page and parses it. Any
// failure is fatal and returns no entries.
func (x *Extractor) ExtractCatalog(ctx context.Context, page browser.Page) ([]models.CatalogEntry, error) {
	x.logger.Info("waiting for catalog payload", "selector", x.sel.catalogPayload.Value)
	el, ok := Locate(ctx, page, x.sel.catalogPayload, x.timing.Payload)
	if !ok {
		return nil, payloadError("catalog payload not found on page", nil)
	}
	actx, cancel := x.action(ctx)
	defer cancel()
	text, err := el.Text(actx)
	if err != nil {
		return nil, payloadError("could not read catalog payload", err)
	}
	entries, err := catalog.Parse(text, x.origin)
	if err != nil {
		return nil, payloadError("failed to extract product data from payload; the structure may have changed", err)
	}
	x.metrics.AddCatalogEntries(len(entries))
	return entries, nil
}

// ScrapeCatalog fetches the category page with the configured engines and
// parses its embedded product list. Fetch and payload failures are fatal.
func (s *Scraper) ScrapeCatalog(ctx context.Context, req *models.CatalogRequest) (res *CatalogResult, err error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID, "mode", "catalog")
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		s.metrics.ObserveRun("catalog", outcome, time.Since(start))
	}()

	mode := req.FetchMode
	if mode == "" {
		mode = s.cfg.Engine.Mode
	}
	only, ok := fetchModes[mode]
	if !ok {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("unknown fetch mode %q", mode), nil)
	}
	logger.Info("starting catalog run", "url", req.URL, "fetch_mode", mode)

	// ── 1. Fetch the document ─────────────────────────────────────────
	fetchReq := &engine.FetchRequest{
		URL:     req.URL,
		Timeout: s.cfg.Engine.HTTPTimeout,
		Only:    only,
	}
	if spec := s.extractor.sel.catalogPayload; spec.Mode == models.ModeStructural {
		fetchReq.Require = spec.Value
	}
	fetched, err := s.dispatcher.Dispatch(ctx, fetchReq)
	if err != nil {
		if errors.Is(err, engine.ErrRequirementMissing) {
			return nil, payloadError("catalog payload not found on page", err)
		}
		return nil, categorizeError(err, fmt.Sprintf("failed to load %s", req.URL))
	}
	navMs := time.Since(start).Milliseconds()
	logger.Info("page loaded", "engine", fetched.EngineName, "navigation_ms", navMs)

	// ── 2. Parse the payload ──────────────────────────────────────────
	doc, err := browser.NewStaticPage(fetched.HTML)
	if err != nil {
		return nil, payloadError("page document is not HTML", err)
	}
	entries, err := s.extractor.WithLogger(logger).ExtractCatalog(ctx, doc)
	if err != nil {
		return nil, err
	}

	res = &CatalogResult{
		RunID:      runID,
		Entries:    entries,
		Text:       output.FormatCatalog(entries),
		EngineUsed: fetched.EngineName,
		Timing: models.TimingInfo{
			TotalMs:      time.Since(start).Milliseconds(),
			NavigationMs: navMs,
		},
	}
	logger.Info("catalog run complete", "products", len(entries), "total_ms", res.Timing.TotalMs)
	return res, nil
}

// fetchRod is the browser engine callback: it loads the page in a pooled
// tab with heavy resources blocked, waits for the required node, and
// returns the rendered HTML.
//
// Lifecycle:
//
//  1. Acquire page      – borrow a tab from the pool
//  2. DEFER: cleanup    – score the tab and return it to the pool
//  3. Hijack mount      – block images/CSS/fonts/media (before navigation!)
//  4. Session           – headless marker stripped from the user agent
//  5. Navigate          – load and settle
//  6. Wait              – required node, bounded by the payload timeout
//  7. Extract           – page.HTML()
func (s *Scraper) fetchRod(ctx context.Context, req *engine.FetchRequest) (res *engine.FetchResult, err error) {
	logger := s.logger.With("engine", "rod")

	// ── 1. Acquire page ───────────────────────────────────────────────
	page, err := s.acquire(logger)
	if err != nil {
		return nil, err
	}

	// ── 2. DEFER: score and return the page ───────────────────────────
	defer func() {
		s.health.record(page.Rod(), err == nil)
		_ = page.Close()
	}()

	// ── 3. Mount hijack router ────────────────────────────────────────
	if router := setupHijack(page.Rod(), s.cfg.Scraper.CatalogBlockedResources, true); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 4. Session ────────────────────────────────────────────────────
	if err := (Session{UserAgent: s.UserAgent()}).Apply(ctx, page, logger); err != nil {
		return nil, err
	}

	// ── 5. Navigate ───────────────────────────────────────────────────
	if err := s.navigate(ctx, page, req.URL); err != nil {
		return nil, err
	}

	// ── 6. Wait for the required node ─────────────────────────────────
	if req.Require != "" {
		spec := models.ParseSelector("required node", req.Require)
		if _, ok := Locate(ctx, page, spec, s.cfg.Scraper.PayloadTimeout); !ok {
			logger.Info("required node did not appear", "selector", req.Require)
		}
	}

	// ── 7. Extract rendered HTML ──────────────────────────────────────
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}
	return &engine.FetchResult{
		HTML:     html,
		FinalURL: req.URL,
	}, nil
}
