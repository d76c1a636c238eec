package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiError mirrors the shelfprobe API error detail.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// productResponse mirrors the shelfprobe product response.
type productResponse struct {
	Success bool      `json:"success"`
	Text    string    `json:"text"`
	Error   *apiError `json:"error"`
}

// catalogResponse mirrors the shelfprobe catalog response.
type catalogResponse struct {
	Success    bool            `json:"success"`
	Entries    json.RawMessage `json:"entries"`
	Text       string          `json:"text"`
	EngineUsed string          `json:"engine_used"`
	Error      *apiError       `json:"error"`
}

func main() {
	apiURL := os.Getenv("SHELFPROBE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("SHELFPROBE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "SHELFPROBE_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"shelfprobe",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	productTool := mcp.NewTool("scrape_product",
		mcp.WithDescription("Open a product page in a headless browser and return its price, pre-discount price, rating and review count as key=value lines. Missing fields are omitted."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the product page"),
		),
		mcp.WithString("region",
			mcp.Description("Delivery region name, e.g. 'Moscow and Moscow Oblast' (default: server default)"),
		),
		mcp.WithNumber("width",
			mcp.Description("Viewport width in pixels (default: server default)"),
		),
		mcp.WithNumber("height",
			mcp.Description("Viewport height in pixels (default: server default)"),
		),
	)
	s.AddTool(productTool, handleScrapeProduct(apiURL, apiKey))

	catalogTool := mcp.NewTool("scrape_catalog",
		mcp.WithDescription("Read the embedded product list of a category page and return one block per product with name, URL, rating, reviews, price and discount."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the category page"),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("How to fetch the page: 'auto' (default, plain HTTP then browser), 'http', or 'browser'"),
			mcp.Enum("auto", "http", "browser"),
		),
	)
	s.AddTool(catalogTool, handleScrapeCatalog(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the shelfprobe API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(apiURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func errorText(e *apiError, fallback string) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func handleScrapeProduct(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]any{"url": url}
		if region := request.GetString("region", ""); region != "" {
			payload["region"] = region
		}
		if w := request.GetInt("width", 0); w > 0 {
			payload["width"] = w
		}
		if h := request.GetInt("height", 0); h > 0 {
			payload["height"] = h
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/product", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp productResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText(resp.Error, "product extraction failed")), nil
		}
		if resp.Text == "" {
			return mcp.NewToolResultText("No fields could be extracted from the page."), nil
		}
		return mcp.NewToolResultText(resp.Text), nil
	}
}

func handleScrapeCatalog(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]any{"url": url}
		if mode := request.GetString("fetch_mode", ""); mode != "" {
			payload["fetch_mode"] = mode
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/catalog", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp catalogResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText(resp.Error, "catalog extraction failed")), nil
		}
		if resp.Text == "" {
			return mcp.NewToolResultText("The category page lists no products."), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Fetched with: %s\n\n%s", resp.EngineUsed, resp.Text)), nil
	}
}
