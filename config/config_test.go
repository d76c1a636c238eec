package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHELFPROBE_CONFIG", "")
	t.Setenv("SHELFPROBE_VIEWPORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1920, cfg.Browser.ViewportWidth)
	assert.Equal(t, 1080, cfg.Browser.ViewportHeight)
	assert.Equal(t, "₽", cfg.Scraper.CurrencyMarker)
	assert.Equal(t, 50, cfg.Scraper.ScrollMaxIterations)
	assert.Equal(t, "Moscow and Moscow Oblast", cfg.Regions.Default)
	assert.Equal(t, "product.txt", cfg.Output.ProductFile)
	assert.Len(t, cfg.Overlays, 2)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SHELFPROBE_CONFIG", "")
	t.Setenv("SHELFPROBE_VIEWPORT", "1280x720")
	t.Setenv("SHELFPROBE_SELECTOR_TIMEOUT", "2s")
	t.Setenv("SHELFPROBE_MAX_PAGES", "8")
	t.Setenv("SHELFPROBE_API_KEYS", "a, b,,c")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 720, cfg.Browser.ViewportHeight)
	assert.Equal(t, 2*time.Second, cfg.Scraper.SelectorTimeout)
	assert.Equal(t, 8, cfg.Browser.MaxPages)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Auth.APIKeys)
}

func TestLoadRejectsBadViewport(t *testing.T) {
	t.Setenv("SHELFPROBE_CONFIG", "")
	t.Setenv("SHELFPROBE_VIEWPORT", "wide")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAppliesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelfprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scraper:
  selector_timeout: 3s
  scroll_max_iterations: 10
selectors:
  rating: ".Stars"
overlays:
  - name: promo popup
    selector: ".Promo_close"
    kind: click
    timeout: 500ms
regions:
  default: Tula Oblast
`), 0o644))
	t.Setenv("SHELFPROBE_VIEWPORT", "")
	t.Setenv("SHELFPROBE_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3*time.Second, cfg.Scraper.SelectorTimeout)
	assert.Equal(t, 10, cfg.Scraper.ScrollMaxIterations)
	assert.Equal(t, ".Stars", cfg.Selectors.Rating)
	assert.Equal(t, DefaultSelectors().Price, cfg.Selectors.Price, "unset keys keep defaults")
	require.Len(t, cfg.Overlays, 1)
	assert.Equal(t, 500*time.Millisecond, cfg.OverlayTimeout(cfg.Overlays[0]))
	assert.Equal(t, "Tula Oblast", cfg.Regions.Default)
	id, ok := cfg.RegionID("Tula Oblast")
	assert.True(t, ok)
	assert.Equal(t, 34, id)
}

func TestApplyFileMissing(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.ApplyFile(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestParseViewport(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"1920x1080", 1920, 1080, false},
		{" 800X600 ", 800, 600, false},
		{"1920", 0, 0, true},
		{"0x100", 0, 0, true},
		{"-5x100", 0, 0, true},
		{"axb", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, h, err := ParseViewport(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pages", func(c *Config) { c.Browser.MaxPages = 0 }},
		{"zero iterations", func(c *Config) { c.Scraper.ScrollMaxIterations = 0 }},
		{"no currency", func(c *Config) { c.Scraper.CurrencyMarker = "" }},
		{"unknown region", func(c *Config) { c.Regions.Default = "Atlantis" }},
		{"relative origin", func(c *Config) { c.Site.Origin = "/catalog" }},
		{"bad fetch mode", func(c *Config) { c.Engine.Mode = "ftp" }},
		{"bad overlay kind", func(c *Config) { c.Overlays[0].Kind = "hover" }},
		{"missing rating selector", func(c *Config) { c.Selectors.Rating = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SHELFPROBE_CONFIG", "")
			t.Setenv("SHELFPROBE_VIEWPORT", "")
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRegionNamesSorted(t *testing.T) {
	cfg := &Config{Regions: RegionConfig{IDs: map[string]int{"b": 2, "a": 1, "c": 3}}}
	assert.Equal(t, []string{"a", "b", "c"}, cfg.RegionNames())
}
