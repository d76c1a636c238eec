package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/shelfprobe/config"
	"github.com/use-agent/shelfprobe/models"
)

// Timing holds the wait bounds of the extraction steps.
type Timing struct {
	Selector            time.Duration
	Action              time.Duration
	Payload             time.Duration
	Capture             time.Duration
	ScrollSettle        time.Duration
	ScrollMaxIterations int
}

// selectorSet is the compiled selector table.
type selectorSet struct {
	priceContainer   models.SelectorSpec
	priceInContainer models.SelectorSpec
	rating           models.SelectorSpec
	reviews          models.SelectorSpec
	stickyHeader     models.SelectorSpec
	catalogPayload   models.SelectorSpec
	consent          []models.SelectorSpec
}

// Extractor runs the dismiss, scroll and field steps against one page at a
// time. It holds only immutable configuration and is safe to share.
type Extractor struct {
	sel      selectorSet
	overlays []Overlay
	timing   Timing
	currency string
	origin   string
	logger   *slog.Logger
	metrics  *Metrics
}

// NewExtractor compiles the selector table and overlays from cfg.
func NewExtractor(cfg *config.Config, logger *slog.Logger, metrics *Metrics) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := cfg.Selectors
	sel := selectorSet{
		priceContainer: models.ParseSelector("price container", s.PriceContainer),
		rating:         models.ParseSelector("rating", s.Rating),
		reviews:        models.ParseSelector("reviews", s.Reviews),
		stickyHeader:   models.ParseSelector("sticky header", s.StickyHeader),
		catalogPayload: models.ParseSelector("catalog payload", s.CatalogPayload),
	}
	var err error
	sel.priceInContainer, err = sel.priceContainer.Descendant(models.ParseSelector("price", s.Price))
	if err != nil {
		return nil, fmt.Errorf("price selector: %w", err)
	}
	for _, c := range s.ConsentCandidates {
		sel.consent = append(sel.consent, models.ParseSelector("consent control", c))
	}

	overlays := make([]Overlay, 0, len(cfg.Overlays))
	for _, o := range cfg.Overlays {
		overlays = append(overlays, Overlay{
			Name:    o.Name,
			Spec:    models.ParseSelector(o.Name, o.Selector),
			Timeout: cfg.OverlayTimeout(o),
			Consent: o.Kind == config.OverlayConsent,
		})
	}

	return &Extractor{
		sel:      sel,
		overlays: overlays,
		timing: Timing{
			Selector:            cfg.Scraper.SelectorTimeout,
			Action:              cfg.Scraper.ActionTimeout,
			Payload:             cfg.Scraper.PayloadTimeout,
			Capture:             cfg.Scraper.NavigationTimeout,
			ScrollSettle:        cfg.Scraper.ScrollSettle,
			ScrollMaxIterations: cfg.Scraper.ScrollMaxIterations,
		},
		currency: cfg.Scraper.CurrencyMarker,
		origin:   cfg.Site.Origin,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Overlays returns the configured overlays in dismissal order.
func (x *Extractor) Overlays() []Overlay {
	return append([]Overlay(nil), x.overlays...)
}

// WithLogger returns a copy of x that logs to logger.
func (x *Extractor) WithLogger(logger *slog.Logger) *Extractor {
	c := *x
	c.logger = logger
	return &c
}

// action bounds a single page interaction.
func (x *Extractor) action(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, x.timing.Action)
}

// sleepCtx waits for d or until ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
