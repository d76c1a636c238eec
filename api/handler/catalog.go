package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/shelfprobe/cache"
	"github.com/use-agent/shelfprobe/models"
	"github.com/use-agent/shelfprobe/scraper"
	"github.com/use-agent/shelfprobe/webhook"
)

// CatalogScraper runs API-mode extractions.
type CatalogScraper interface {
	ScrapeCatalog(ctx context.Context, req *models.CatalogRequest) (*scraper.CatalogResult, error)
}

// Catalog returns a handler for POST /api/v1/catalog.
//
// A missing or malformed payload is fatal: the response carries no entries
// and a PAYLOAD_MALFORMED error, and a catalog.failed event is sent.
func Catalog(sc CatalogScraper, cc *cache.Cache[*models.CatalogResponse], notifier Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.CatalogRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.Defaults()

		cacheKey := cache.Key("catalog", req.URL)
		if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
			resp := *cached
			resp.CacheStatus = "hit"
			resp.Timing = models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
			c.JSON(http.StatusOK, &resp)
			return
		}

		result, err := sc.ScrapeCatalog(c.Request.Context(), &req)
		if err != nil {
			se := asScrapeError(err)
			if req.WebhookURL != "" && notifier != nil {
				notifier.DeliverAsync(req.WebhookURL,
					webhook.NewEvent(webhook.EventCatalogFailed, "", req.URL, se.ToDetail()))
			}
			c.JSON(mapErrorToStatus(se), models.CatalogResponse{
				Success: false,
				Entries: []models.CatalogEntry{},
				Error:   se.ToDetail(),
				Timing:  models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()},
			})
			return
		}

		entries := result.Entries
		if entries == nil {
			entries = []models.CatalogEntry{}
		}
		resp := &models.CatalogResponse{
			Success:    true,
			RunID:      result.RunID,
			Entries:    entries,
			Text:       result.Text,
			EngineUsed: result.EngineUsed,
			Timing:     result.Timing,
		}

		if req.MaxAge > 0 {
			stored := *resp
			cc.Set(cacheKey, &stored)
			resp.CacheStatus = "miss"
		}
		if req.WebhookURL != "" && notifier != nil {
			notifier.DeliverAsync(req.WebhookURL,
				webhook.NewEvent(webhook.EventCatalogExtracted, result.RunID, req.URL, resp.Entries))
		}

		c.JSON(http.StatusOK, resp)
	}
}
