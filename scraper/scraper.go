package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/shelfprobe/browser"
	"github.com/use-agent/shelfprobe/config"
	"github.com/use-agent/shelfprobe/engine"
	"github.com/use-agent/shelfprobe/models"
)

// Scraper owns the browser process, the page pool and the catalog engines.
// The browser is launched on first use, so runs that never need a page
// (snapshot replay, plain HTTP catalog fetches) never start Chromium.
// It is safe for concurrent use.
type Scraper struct {
	cfg        *config.Config
	extractor  *Extractor
	dispatcher *engine.Dispatcher
	metrics    *Metrics
	logger     *slog.Logger

	launchMu  sync.Mutex
	browser   *rod.Browser
	launcher  *launcher.Launcher
	pagePool  rod.Pool[rod.Page]
	health    *pageHealth
	userAgent string

	activePages atomic.Int32
	startTime   time.Time
}

// NewScraper wires the extractor and the catalog engines. It does not
// launch the browser.
func NewScraper(cfg *config.Config, metrics *Metrics, logger *slog.Logger) (*Scraper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	x, err := NewExtractor(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	s := &Scraper{
		cfg:       cfg,
		extractor: x,
		metrics:   metrics,
		logger:    logger,
		pagePool:  rod.NewPagePool(cfg.Browser.MaxPages),
		health:    newPageHealth(),
		startTime: time.Now(),
	}
	s.dispatcher = engine.NewDispatcher(
		[]engine.Engine{
			engine.NewHTTPEngine(""),
			engine.NewRodEngine(s.fetchRod),
		},
		[]time.Duration{0, cfg.Engine.HTTPTimeout},
		engine.NewDomainMemory(1024, cfg.Engine.MemoryTTL),
		logger,
	)
	return s, nil
}

// Extractor returns the extraction engine used by this scraper.
func (s *Scraper) Extractor() *Extractor { return s.extractor }

// Metrics returns the collectors, or nil when metrics are disabled.
func (s *Scraper) Metrics() *Metrics { return s.metrics }

// launch starts and connects the browser once.
func (s *Scraper) launch() (*rod.Browser, error) {
	s.launchMu.Lock()
	defer s.launchMu.Unlock()
	if s.browser != nil {
		return s.browser, nil
	}

	bc := s.cfg.Browser
	l := launcher.New().
		Headless(bc.Headless).
		NoSandbox(bc.NoSandbox)

	if bc.BrowserBin != "" {
		l = l.Bin(bc.BrowserBin)
	}
	if bc.DefaultProxy != "" {
		l = l.Proxy(bc.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-setuid-sandbox"))
	l.Set(flags.Flag("disable-features"), "Translate,TranslateUI")
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	s.logger.Info("browser launched", "controlURL", controlURL, "headless", bc.Headless)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	// Headless Chromium announces itself in the UA; sites treat that as a bot.
	if v, err := (proto.BrowserGetVersion{}).Call(b); err == nil {
		s.userAgent = strings.ReplaceAll(v.UserAgent, "HeadlessChrome", "Chrome")
	} else {
		s.logger.Warn("could not read browser user agent", "error", err)
	}

	s.browser = b
	s.launcher = l
	return b, nil
}

// UserAgent is the browser's user agent with the headless marker removed.
// It is empty until the browser has been launched.
func (s *Scraper) UserAgent() string {
	s.launchMu.Lock()
	defer s.launchMu.Unlock()
	return s.userAgent
}

// acquire borrows a page from the pool. Close on the returned page hands
// it back (or retires it when unhealthy) and must always be called.
func (s *Scraper) acquire(logger *slog.Logger) (*browser.RodPage, error) {
	b, err := s.launch()
	if err != nil {
		return nil, err
	}

	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		if s.cfg.Browser.Stealth {
			return stealth.Page(b)
		}
		return b.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		// Get consumed a pool slot; give it back.
		s.pagePool.Put(nil)
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			err,
		)
	}
	s.activePages.Add(1)

	release := func(p *rod.Page) {
		defer s.activePages.Add(-1)
		if s.health.retire(p) {
			logger.Debug("retiring page")
			_ = p.Close()
			s.pagePool.Put(nil)
			return
		}
		// Clear the DOM so the next borrower starts clean.
		if err := p.Navigate("about:blank"); err != nil {
			logger.Warn("cleanup: failed to navigate to about:blank", "error", err)
		}
		s.pagePool.Put(p)
	}
	return browser.NewRodPage(page, release, logger), nil
}

// Stats returns a snapshot of the pool's current state.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.cfg.Browser.MaxPages,
		ActivePages: int(s.activePages.Load()),
	}
}

// Uptime is the time since the scraper was created.
func (s *Scraper) Uptime() time.Duration { return time.Since(s.startTime) }

// Close drains the page pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *Scraper) Close() {
	s.launchMu.Lock()
	defer s.launchMu.Unlock()
	if s.browser == nil {
		return
	}
	s.logger.Info("scraper shutting down: draining page pool")
	s.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	s.logger.Info("scraper shutting down: closing browser")
	if err := s.browser.Close(); err != nil {
		s.logger.Warn("browser close failed", "error", err)
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
	s.browser = nil
	s.logger.Info("scraper shutdown complete")
}

// navigate loads url under the navigation timeout. Failure is fatal.
func (s *Scraper) navigate(ctx context.Context, page browser.Page, url string) error {
	nctx, cancel := context.WithTimeout(ctx, s.cfg.Scraper.NavigationTimeout)
	defer cancel()
	if err := page.Navigate(nctx, url); err != nil {
		return categorizeError(err, fmt.Sprintf("navigation to %s failed", url))
	}
	return nil
}
