package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfprobe/cache"
	"github.com/use-agent/shelfprobe/config"
	"github.com/use-agent/shelfprobe/models"
	"github.com/use-agent/shelfprobe/scraper"
	"github.com/use-agent/shelfprobe/webhook"
)

type fakeService struct {
	mu           sync.Mutex
	productCalls int
	productErr   error
	catalogErr   error
	entries      []models.CatalogEntry
	stats        models.PoolStats
}

func (f *fakeService) ScrapeProduct(_ context.Context, req *models.ProductRequest, _ scraper.RunOptions) (*scraper.ProductResult, error) {
	f.mu.Lock()
	f.productCalls++
	f.mu.Unlock()
	if f.productErr != nil {
		return nil, f.productErr
	}
	rec := models.NewPartialRecord()
	rec.Set(models.FieldPrice, "999")
	return &scraper.ProductResult{RunID: "run-p", Record: rec, Text: "price=999"}, nil
}

func (f *fakeService) ScrapeCatalog(_ context.Context, req *models.CatalogRequest) (*scraper.CatalogResult, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return &scraper.CatalogResult{RunID: "run-c", Entries: f.entries, EngineUsed: "http"}, nil
}

func (f *fakeService) Stats() models.PoolStats { return f.stats }
func (f *fakeService) Uptime() time.Duration   { return time.Minute }

type recordingNotifier struct {
	mu     sync.Mutex
	events []*webhook.Event
}

func (n *recordingNotifier) DeliverAsync(_ string, ev *webhook.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func testRouterConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		Auth:      config.AuthConfig{Enabled: true, APIKeys: []string{"k1"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "k1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestProductEndpoint(t *testing.T) {
	svc := &fakeService{}
	n := &recordingNotifier{}
	r := NewRouter(svc, testRouterConfig(), Deps{Notifier: n})

	w := do(t, r, http.MethodPost, "/api/v1/product",
		`{"url":"https://www.vprok.ru/product/x","webhook_url":"https://hooks.example.com/a"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "price=999", resp.Text)
	v, ok := resp.Record.Get(models.FieldPrice)
	assert.True(t, ok)
	assert.Equal(t, "999", v)

	require.Len(t, n.events, 1)
	assert.Equal(t, webhook.EventProductExtracted, n.events[0].Type)
}

func TestProductEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing url", `{}`, nil, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"navigation", `{"url":"https://www.vprok.ru/p"}`,
			models.NewScrapeError(models.ErrCodeNavigation, "failed", nil), http.StatusBadGateway, models.ErrCodeNavigation},
		{"browser crash", `{"url":"https://www.vprok.ru/p"}`,
			models.NewScrapeError(models.ErrCodeBrowserCrash, "failed", nil), http.StatusServiceUnavailable, models.ErrCodeBrowserCrash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(&fakeService{productErr: tt.err}, testRouterConfig(), Deps{})
			w := do(t, r, http.MethodPost, "/api/v1/product", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp models.ProductResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestProductEndpointCache(t *testing.T) {
	svc := &fakeService{}
	r := NewRouter(svc, testRouterConfig(), Deps{ProductCache: cache.New[*models.ProductResponse](10, time.Hour)})
	body := `{"url":"https://www.vprok.ru/product/x","max_age":60000}`

	first := do(t, r, http.MethodPost, "/api/v1/product", body)
	second := do(t, r, http.MethodPost, "/api/v1/product", body)

	assert.Equal(t, 1, svc.productCalls)
	assert.Contains(t, first.Body.String(), `"cache_status":"miss"`)
	assert.Contains(t, second.Body.String(), `"cache_status":"hit"`)
}

func TestCatalogEndpoint(t *testing.T) {
	svc := &fakeService{entries: []models.CatalogEntry{{Name: "Tomatoes", URL: "https://www.vprok.ru/product/t", Price: 89.9}}}
	r := NewRouter(svc, testRouterConfig(), Deps{})

	w := do(t, r, http.MethodPost, "/api/v1/catalog", `{"url":"https://www.vprok.ru/catalog/1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CatalogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "http", resp.EngineUsed)
}

func TestCatalogEndpointMalformedPayload(t *testing.T) {
	svc := &fakeService{catalogErr: models.NewScrapeError(models.ErrCodePayload, "payload changed", nil)}
	n := &recordingNotifier{}
	r := NewRouter(svc, testRouterConfig(), Deps{Notifier: n})

	w := do(t, r, http.MethodPost, "/api/v1/catalog",
		`{"url":"https://www.vprok.ru/catalog/1","webhook_url":"https://hooks.example.com/a"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `[]`, mustField(t, w.Body.Bytes(), "entries"))

	require.Len(t, n.events, 1)
	assert.Equal(t, webhook.EventCatalogFailed, n.events[0].Type)
}

func TestCatalogEndpointRejectsFetchMode(t *testing.T) {
	r := NewRouter(&fakeService{}, testRouterConfig(), Deps{})
	w := do(t, r, http.MethodPost, "/api/v1/catalog", `{"url":"https://www.vprok.ru/catalog/1","fetch_mode":"ftp"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuth(t *testing.T) {
	r := NewRouter(&fakeService{}, testRouterConfig(), Deps{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/product", strings.NewReader(`{"url":"https://x.ru"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/product", strings.NewReader(`{"url":"https://x.ru"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/product", strings.NewReader(`{"url":"https://x.ru"}`))
	req.Header.Set("Authorization", "Bearer k1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testRouterConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	r := NewRouter(&fakeService{}, cfg, Deps{})

	body := `{"url":"https://www.vprok.ru/p"}`
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/v1/product", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, r, http.MethodPost, "/api/v1/product", body).Code)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		stats models.PoolStats
		want  string
	}{
		{models.PoolStats{MaxPages: 4, ActivePages: 1}, "healthy"},
		{models.PoolStats{MaxPages: 4, ActivePages: 4}, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			r := NewRouter(&fakeService{stats: tt.stats}, testRouterConfig(), Deps{})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var resp models.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, "1m0s", resp.Uptime)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := scraper.NewMetrics()
	m.ObserveRun("product", "ok", time.Second)
	r := NewRouter(&fakeService{}, testRouterConfig(), Deps{Registry: m.Registry})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shelfprobe_runs_total")
}

func mustField(t *testing.T, body []byte, name string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	return string(m[name])
}
