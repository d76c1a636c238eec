package models

// ProductResponse is the response for POST /api/v1/product.
type ProductResponse struct {
	Success bool `json:"success"`

	// RunID identifies the invocation in logs and webhook events.
	RunID string `json:"run_id,omitempty"`

	// Record holds the recovered fields; absent fields are omitted.
	Record PartialRecord `json:"record"`

	// Text is the key=value rendering written to product.txt.
	Text string `json:"text"`

	// Screenshot is the base64 JPEG capture when requested.
	Screenshot []byte `json:"screenshot,omitempty"`

	Timing      TimingInfo   `json:"timing"`
	CacheStatus string       `json:"cache_status,omitempty"`
	Error       *ErrorDetail `json:"error,omitempty"`
}

// CatalogResponse is the response for POST /api/v1/catalog.
type CatalogResponse struct {
	Success bool           `json:"success"`
	RunID   string         `json:"run_id,omitempty"`
	Entries []CatalogEntry `json:"entries"`

	// Text is the block rendering written to products-api.txt.
	Text string `json:"text"`

	// EngineUsed is the fetch engine that produced the document.
	EngineUsed  string       `json:"engine_used,omitempty"`
	Timing      TimingInfo   `json:"timing"`
	CacheStatus string       `json:"cache_status,omitempty"`
	Error       *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo provides duration breakdowns for an invocation.
type TimingInfo struct {
	TotalMs      int64 `json:"total_ms"`
	NavigationMs int64 `json:"navigation_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports page pool utilisation.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}

// ErrorResponse is the body of requests rejected before reaching a handler.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
