package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfprobe/cache"
	"github.com/use-agent/shelfprobe/models"
	"github.com/use-agent/shelfprobe/scraper"
)

type stubScraper struct{}

func (stubScraper) ScrapeProduct(context.Context, *models.ProductRequest, scraper.RunOptions) (*scraper.ProductResult, error) {
	rec := models.NewPartialRecord()
	rec.Set(models.FieldPrice, "999")
	return &scraper.ProductResult{RunID: "run-1", Record: rec, Text: "price=999"}, nil
}

func (stubScraper) ScrapeCatalog(context.Context, *models.CatalogRequest) (*scraper.CatalogResult, error) {
	return &scraper.CatalogResult{RunID: "run-2", Text: "", EngineUsed: "http"}, nil
}

func post(t *testing.T, h gin.HandlerFunc, body string) map[string]any {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	h(c)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestProductCacheStoresDetachedCopy(t *testing.T) {
	cc := cache.New[*models.ProductResponse](16, time.Minute)
	h := Product(stubScraper{}, cc, nil)
	body := `{"url":"https://www.vprok.ru/product/x","max_age":60000}`

	got := post(t, h, body)
	assert.Equal(t, "miss", got["cache_status"])

	var req models.ProductRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	stored, ok := cc.Get(productKey(&req), 60000)
	require.True(t, ok)
	assert.Empty(t, stored.CacheStatus, "the served response must not alias the cached one")

	got = post(t, h, body)
	assert.Equal(t, "hit", got["cache_status"])
	assert.Empty(t, stored.CacheStatus)
}

func TestCatalogCacheStoresDetachedCopy(t *testing.T) {
	cc := cache.New[*models.CatalogResponse](16, time.Minute)
	h := Catalog(stubScraper{}, cc, nil)

	got := post(t, h, `{"url":"https://www.vprok.ru/catalog/veg","max_age":60000}`)
	assert.Equal(t, "miss", got["cache_status"])

	stored, ok := cc.Get(cache.Key("catalog", "https://www.vprok.ru/catalog/veg"), 60000)
	require.True(t, ok)
	assert.Empty(t, stored.CacheStatus)
}
