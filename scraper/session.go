package scraper

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/use-agent/shelfprobe/browser"
	"github.com/use-agent/shelfprobe/models"
)

// Session is the browser identity applied to a page before navigation.
type Session struct {
	UserAgent string
	Width     int
	Height    int
	Cookies   []browser.Cookie
}

// Apply installs the session on page. An empty UserAgent keeps the
// page's default; a zero viewport is left untouched.
func (s Session) Apply(ctx context.Context, page browser.Page, logger *slog.Logger) error {
	if s.UserAgent != "" {
		if err := page.SetUserAgent(ctx, s.UserAgent); err != nil {
			return models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to set user agent", err)
		}
		logger.Info("using user agent", "user_agent", s.UserAgent)
	}
	if s.Width > 0 && s.Height > 0 {
		if err := page.SetViewport(ctx, s.Width, s.Height); err != nil {
			return models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to set viewport", err)
		}
	}
	for _, c := range s.Cookies {
		if err := page.SetCookie(ctx, c); err != nil {
			return models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to set cookie "+c.Name, err)
		}
	}
	return nil
}

// regionCookie selects the delivery region on the target site.
func (s *Scraper) regionCookie(regionID int) browser.Cookie {
	return browser.Cookie{
		Name:   s.cfg.Site.RegionCookie,
		Value:  strconv.Itoa(regionID),
		Domain: s.cfg.Site.CookieDomain,
		Path:   "/",
	}
}
