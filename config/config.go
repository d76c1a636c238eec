package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is built once at startup
// and treated as read-only afterwards.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Selectors SelectorConfig  `yaml:"selectors"`
	Overlays  []OverlayConfig `yaml:"overlays"`
	Regions   RegionConfig    `yaml:"regions"`
	Site      SiteConfig      `yaml:"site"`
	Output    OutputConfig    `yaml:"output"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
	Engine    EngineConfig    `yaml:"engine"`
	Webhook   WebhookConfig   `yaml:"webhook"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// MaxPages is the page pool capacity (max concurrent invocations).
	MaxPages int `yaml:"max_pages"` // default: 4

	// DefaultProxy is the proxy URL for all browser traffic.
	DefaultProxy string `yaml:"proxy"`

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"no_sandbox"` // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"bin"`

	// Stealth masks automation fingerprints on every new page.
	Stealth bool `yaml:"stealth"` // default: true

	// ViewportWidth and ViewportHeight are the default viewport size.
	ViewportWidth  int `yaml:"viewport_width"`  // default: 1920
	ViewportHeight int `yaml:"viewport_height"` // default: 1080
}

// ScraperConfig holds every wait bound used by the extraction engine.
type ScraperConfig struct {
	// NavigationTimeout bounds page.Navigate plus the load wait.
	NavigationTimeout time.Duration `yaml:"navigation_timeout"` // default: 60s

	// SelectorTimeout is the default per-element wait for locators.
	SelectorTimeout time.Duration `yaml:"selector_timeout"` // default: 5s

	// ActionTimeout bounds a single click or script evaluation.
	ActionTimeout time.Duration `yaml:"action_timeout"` // default: 1s

	// PayloadTimeout bounds the wait for the embedded catalog payload.
	PayloadTimeout time.Duration `yaml:"payload_timeout"` // default: 15s

	// ScrollSettle is the pause after each scroll-to-bottom.
	ScrollSettle time.Duration `yaml:"scroll_settle"` // default: 500ms

	// ScrollMaxIterations caps the scroll-stability loop.
	ScrollMaxIterations int `yaml:"scroll_max_iterations"` // default: 50

	// CurrencyMarker filters price nodes; nodes without it are ignored.
	CurrencyMarker string `yaml:"currency_marker"` // default: "₽"

	// CatalogBlockedResources lists resource types blocked while the
	// browser engine loads a catalog page.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	CatalogBlockedResources []string `yaml:"catalog_blocked_resources"`
}

// SelectorConfig is the static selector table. Values starting with "//"
// or "xpath:" are path-queries; everything else is CSS.
type SelectorConfig struct {
	PriceContainer string `yaml:"price_container"`
	Price          string `yaml:"price"`
	Rating         string `yaml:"rating"`
	Reviews        string `yaml:"reviews"`
	StickyHeader   string `yaml:"sticky_header"`
	CatalogPayload string `yaml:"catalog_payload"`

	// ConsentCandidates are tried in order inside a consent container;
	// the first candidate with a match is clicked.
	ConsentCandidates []string `yaml:"consent_candidates"`
}

// Overlay kinds.
const (
	// OverlayClick clicks the matched element directly.
	OverlayClick = "click"
	// OverlayConsent locates a container, then its first interactive child.
	OverlayConsent = "consent"
)

// OverlayConfig describes one optional blocking element to dismiss.
type OverlayConfig struct {
	Name     string        `yaml:"name"`
	Selector string        `yaml:"selector"`
	Timeout  time.Duration `yaml:"timeout"`
	Kind     string        `yaml:"kind"`
}

// RegionConfig maps delivery region names to site region IDs.
type RegionConfig struct {
	Default string         `yaml:"default"`
	IDs     map[string]int `yaml:"ids"`
}

// SiteConfig describes the target site.
type SiteConfig struct {
	// Origin is prefixed to relative catalog URLs.
	Origin string `yaml:"origin"`

	// CookieDomain is the domain of the region cookie.
	CookieDomain string `yaml:"cookie_domain"`

	// RegionCookie is the name of the region cookie.
	RegionCookie string `yaml:"region_cookie"`
}

// OutputConfig fixes output file names.
type OutputConfig struct {
	Dir            string `yaml:"dir"`
	HTMLFile       string `yaml:"html_file"`
	ScreenshotFile string `yaml:"screenshot_file"`
	ProductFile    string `yaml:"product_file"`
	CatalogFile    string `yaml:"catalog_file"`
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool `yaml:"enabled"` // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 `yaml:"rps"` // default: 2

	// Burst is the maximum burst size per API key.
	Burst int `yaml:"burst"` // default: 4
}

// CacheConfig controls the result cache used by the HTTP service.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached results.
	MaxEntries int `yaml:"max_entries"` // default: 500

	// TTL is the hard expiry of a cached result.
	TTL time.Duration `yaml:"ttl"` // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "text"
}

// EngineConfig controls how catalog documents are fetched.
type EngineConfig struct {
	// Mode is "auto", "http" or "browser".
	Mode string `yaml:"mode"` // default: "auto"

	// HTTPTimeout is the deadline for the plain HTTP engine.
	HTTPTimeout time.Duration `yaml:"http_timeout"` // default: 10s

	// MemoryTTL is how long a domain remembers its winning engine.
	MemoryTTL time.Duration `yaml:"memory_ttl"` // default: 24h
}

// WebhookConfig controls outbound webhook delivery.
type WebhookConfig struct {
	// Secret signs webhook bodies with HMAC-SHA256 when non-empty.
	Secret string `yaml:"secret"`
}

// Load reads configuration from environment variables with sane defaults.
// If SHELFPROBE_CONFIG names a YAML file, it is applied on top.
func Load() (*Config, error) {
	width, height, err := ParseViewport(envOr("SHELFPROBE_VIEWPORT", "1920x1080"))
	if err != nil {
		return nil, fmt.Errorf("config: SHELFPROBE_VIEWPORT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: envOr("SHELFPROBE_HOST", "0.0.0.0"),
			Port: envIntOr("SHELFPROBE_PORT", 8080),
			Mode: envOr("SHELFPROBE_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("SHELFPROBE_HEADLESS", true),
			MaxPages:       envIntOr("SHELFPROBE_MAX_PAGES", 4),
			DefaultProxy:   os.Getenv("SHELFPROBE_PROXY"),
			NoSandbox:      envBoolOr("SHELFPROBE_NO_SANDBOX", true),
			BrowserBin:     os.Getenv("SHELFPROBE_BROWSER_BIN"),
			Stealth:        envBoolOr("SHELFPROBE_STEALTH", true),
			ViewportWidth:  width,
			ViewportHeight: height,
		},
		Scraper: ScraperConfig{
			NavigationTimeout:   envDurationOr("SHELFPROBE_NAV_TIMEOUT", 60*time.Second),
			SelectorTimeout:     envDurationOr("SHELFPROBE_SELECTOR_TIMEOUT", 5*time.Second),
			ActionTimeout:       envDurationOr("SHELFPROBE_ACTION_TIMEOUT", 1*time.Second),
			PayloadTimeout:      envDurationOr("SHELFPROBE_PAYLOAD_TIMEOUT", 15*time.Second),
			ScrollSettle:        envDurationOr("SHELFPROBE_SCROLL_SETTLE", 500*time.Millisecond),
			ScrollMaxIterations: envIntOr("SHELFPROBE_SCROLL_MAX_ITERATIONS", 50),
			CurrencyMarker:      envOr("SHELFPROBE_CURRENCY_MARKER", "₽"),
			CatalogBlockedResources: envSliceOr("SHELFPROBE_CATALOG_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Selectors: DefaultSelectors(),
		Overlays:  DefaultOverlays(),
		Regions: RegionConfig{
			Default: envOr("SHELFPROBE_DEFAULT_REGION", "Moscow and Moscow Oblast"),
			IDs:     DefaultRegions(),
		},
		Site: SiteConfig{
			Origin:       envOr("SHELFPROBE_SITE_ORIGIN", "https://www.vprok.ru"),
			CookieDomain: envOr("SHELFPROBE_COOKIE_DOMAIN", ".vprok.ru"),
			RegionCookie: "region",
		},
		Output: OutputConfig{
			Dir:            envOr("SHELFPROBE_OUTPUT_DIR", "."),
			HTMLFile:       "page.html",
			ScreenshotFile: "screenshot.jpg",
			ProductFile:    "product.txt",
			CatalogFile:    "products-api.txt",
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SHELFPROBE_AUTH_ENABLED", true),
			APIKeys: envSliceOr("SHELFPROBE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SHELFPROBE_RATE_RPS", 2.0),
			Burst:             envIntOr("SHELFPROBE_RATE_BURST", 4),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("SHELFPROBE_CACHE_MAX_ENTRIES", 500),
			TTL:        envDurationOr("SHELFPROBE_CACHE_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("SHELFPROBE_LOG_LEVEL", "info"),
			Format: envOr("SHELFPROBE_LOG_FORMAT", "text"),
		},
		Engine: EngineConfig{
			Mode:        envOr("SHELFPROBE_FETCH_MODE", "auto"),
			HTTPTimeout: envDurationOr("SHELFPROBE_HTTP_TIMEOUT", 10*time.Second),
			MemoryTTL:   envDurationOr("SHELFPROBE_ENGINE_MEMORY_TTL", 24*time.Hour),
		},
		Webhook: WebhookConfig{
			Secret: os.Getenv("SHELFPROBE_WEBHOOK_SECRET"),
		},
	}

	if path := os.Getenv("SHELFPROBE_CONFIG"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// DefaultSelectors returns the built-in selector table.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		PriceContainer: `[class*="ProductPage_desktopBuy"]`,
		Price:          `span[class*="Price_price"]`,
		Rating:         `.ActionsRow_stars__EKt42`,
		Reviews:        `.ActionsRow_reviews__AfSj_`,
		StickyHeader:   `[class*="StickyPortal_root"]`,
		CatalogPayload: `script#__NEXT_DATA__`,
		ConsentCandidates: []string{
			`[role="button"]`,
			`button`,
			`input[type="submit"][value], input[type="button"][value]`,
			`a`,
		},
	}
}

// DefaultOverlays returns the built-in overlays in dismissal order.
func DefaultOverlays() []OverlayConfig {
	return []OverlayConfig{
		{Name: "X5ID login banner", Selector: `[class*="Tooltip_closeIcon"]`, Kind: OverlayClick},
		{Name: "cookie banner", Selector: `[class^="CookiesAlert"]`, Kind: OverlayConsent},
	}
}

// DefaultRegions returns the built-in region table.
func DefaultRegions() map[string]int {
	return map[string]int{
		"Moscow and Moscow Oblast":              1,
		"Saint Petersburg and Leningrad Oblast": 2,
		"Vladimir Oblast":                       8,
		"Kaluga Oblast":                         12,
		"Ryazan Oblast":                         26,
		"Tver Oblast":                           33,
		"Tula Oblast":                           34,
	}
}

// ApplyFile overlays the YAML file at path onto cfg. Keys missing from the
// file keep their current values; lists in the file replace the defaults.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// RegionID returns the site ID of a region name.
func (c *Config) RegionID(name string) (int, bool) {
	id, ok := c.Regions.IDs[name]
	return id, ok
}

// RegionNames returns the known region names in sorted order.
func (c *Config) RegionNames() []string {
	names := make([]string, 0, len(c.Regions.IDs))
	for name := range c.Regions.IDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OverlayTimeout is the wait bound for an overlay, falling back to the
// selector timeout.
func (c *Config) OverlayTimeout(o OverlayConfig) time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return c.Scraper.SelectorTimeout
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Browser.MaxPages <= 0 {
		return fmt.Errorf("browser max pages must be positive")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if c.Scraper.SelectorTimeout <= 0 || c.Scraper.ActionTimeout <= 0 || c.Scraper.PayloadTimeout <= 0 {
		return fmt.Errorf("selector, action and payload timeouts must be positive")
	}
	if c.Scraper.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.Scraper.ScrollSettle < 0 {
		return fmt.Errorf("scroll settle cannot be negative")
	}
	if c.Scraper.ScrollMaxIterations <= 0 {
		return fmt.Errorf("scroll max iterations must be positive")
	}
	if c.Scraper.CurrencyMarker == "" {
		return fmt.Errorf("currency marker cannot be empty")
	}
	if c.Selectors.PriceContainer == "" || c.Selectors.Price == "" ||
		c.Selectors.Rating == "" || c.Selectors.Reviews == "" || c.Selectors.CatalogPayload == "" {
		return fmt.Errorf("selector table is incomplete")
	}
	for i, o := range c.Overlays {
		if o.Name == "" || o.Selector == "" {
			return fmt.Errorf("overlay %d needs a name and a selector", i)
		}
		if o.Kind != OverlayClick && o.Kind != OverlayConsent {
			return fmt.Errorf("overlay %q has unknown kind %q", o.Name, o.Kind)
		}
		if o.Kind == OverlayConsent && len(c.Selectors.ConsentCandidates) == 0 {
			return fmt.Errorf("overlay %q needs consent candidates", o.Name)
		}
	}
	if len(c.Regions.IDs) == 0 {
		return fmt.Errorf("region table cannot be empty")
	}
	if _, ok := c.Regions.IDs[c.Regions.Default]; !ok {
		return fmt.Errorf("default region %q is not in the region table", c.Regions.Default)
	}
	origin, err := url.Parse(c.Site.Origin)
	if err != nil {
		return fmt.Errorf("invalid site origin: %w", err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return fmt.Errorf("site origin must be absolute, got %q", c.Site.Origin)
	}
	switch c.Engine.Mode {
	case "auto", "http", "browser":
	default:
		return fmt.Errorf("fetch mode must be auto, http or browser")
	}
	if c.Output.ProductFile == "" || c.Output.CatalogFile == "" {
		return fmt.Errorf("output file names cannot be empty")
	}
	return nil
}

// ParseViewport parses "WIDTHxHEIGHT" into positive dimensions.
func ParseViewport(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q: use WIDTHxHEIGHT, e.g. 1920x1080", s)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: use WIDTHxHEIGHT, e.g. 1920x1080", s)
	}
	return width, height, nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
