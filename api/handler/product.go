package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/shelfprobe/cache"
	"github.com/use-agent/shelfprobe/models"
	"github.com/use-agent/shelfprobe/scraper"
	"github.com/use-agent/shelfprobe/webhook"
)

// ProductScraper runs DOM-mode extractions.
type ProductScraper interface {
	ScrapeProduct(ctx context.Context, req *models.ProductRequest, opts scraper.RunOptions) (*scraper.ProductResult, error)
}

// Notifier delivers webhook events in the background.
type Notifier interface {
	DeliverAsync(url string, event *webhook.Event)
}

// Product returns a handler for POST /api/v1/product.
//
// Orchestration flow:
//  1. Parse & validate request.
//  2. Cache lookup when max_age is set.
//  3. Scraper.ScrapeProduct → record, text and optional screenshot.
//  4. Cache store, webhook, respond 200.
//
// Absent fields are not errors; only navigation, browser and input
// failures produce a non-200 status.
func Product(sc ProductScraper, cc *cache.Cache[*models.ProductResponse], notifier Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		// ── 2. Cache lookup ─────────────────────────────────────────
		cacheKey := productKey(&req)
		if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
			resp := *cached
			resp.CacheStatus = "hit"
			resp.Timing = models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
			c.JSON(http.StatusOK, &resp)
			return
		}

		// ── 3. Scrape ───────────────────────────────────────────────
		result, err := sc.ScrapeProduct(c.Request.Context(), &req, scraper.RunOptions{Screenshot: req.Screenshot})
		if err != nil {
			se := asScrapeError(err)
			c.JSON(mapErrorToStatus(se), models.ProductResponse{
				Success: false,
				Error:   se.ToDetail(),
				Timing:  models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()},
			})
			return
		}

		resp := &models.ProductResponse{
			Success:    true,
			RunID:      result.RunID,
			Record:     result.Record,
			Text:       result.Text,
			Screenshot: result.Screenshot,
			Timing:     result.Timing,
		}

		// ── 4. Cache store and notify ───────────────────────────────
		if req.MaxAge > 0 {
			stored := *resp
			cc.Set(cacheKey, &stored)
			resp.CacheStatus = "miss"
		}
		if req.WebhookURL != "" && notifier != nil {
			notifier.DeliverAsync(req.WebhookURL,
				webhook.NewEvent(webhook.EventProductExtracted, result.RunID, req.URL, resp.Record))
		}

		c.JSON(http.StatusOK, resp)
	}
}

// productKey covers every request field that changes what the page shows.
func productKey(req *models.ProductRequest) string {
	return cache.Key("product", req.URL, req.Region,
		fmt.Sprintf("%dx%d", req.Width, req.Height), strconv.FormatBool(req.Screenshot))
}
