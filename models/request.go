package models

// ProductRequest is the payload for POST /api/v1/product and the input of a
// DOM-mode run.
type ProductRequest struct {
	// URL is the product page to extract. Required.
	URL string `json:"url" binding:"required,url"`

	// Region is the delivery region name; it selects the region cookie.
	// Default: the configured default region.
	Region string `json:"region,omitempty"`

	// Width and Height are the browser viewport size in CSS pixels.
	// Default: the configured viewport.
	Width  int `json:"width,omitempty" binding:"omitempty,min=1"`
	Height int `json:"height,omitempty" binding:"omitempty,min=1"`

	// Screenshot requests a full-page JPEG capture after scrolling settles.
	Screenshot bool `json:"screenshot,omitempty"`

	// MaxAge enables the result cache: a cached result younger than MaxAge
	// milliseconds is returned instead of driving the browser. 0 disables it.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`

	// WebhookURL receives a product.extracted event when set.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// CatalogRequest is the payload for POST /api/v1/catalog and the input of an
// API-mode run.
type CatalogRequest struct {
	// URL is the category page whose embedded payload is parsed. Required.
	URL string `json:"url" binding:"required,url"`

	// FetchMode selects how the page document is obtained.
	// "auto" (default): plain HTTP first, then the browser.
	// "http": plain HTTP only.
	// "browser": headless browser only.
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto http browser"`

	// MaxAge enables the result cache, in milliseconds. 0 disables it.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`

	// WebhookURL receives catalog.extracted / catalog.failed events when set.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// Defaults applies default values to unset fields.
func (r *CatalogRequest) Defaults() {
	if r.FetchMode == "" {
		r.FetchMode = "auto"
	}
}
