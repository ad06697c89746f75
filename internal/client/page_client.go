package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PageFetcher defines the interface for fetching web pages
type PageFetcher interface {
	// Fetch returns the page HTML and the final URL after redirects.
	Fetch(ctx context.Context, url string) (html string, finalURL string, err error)
}

const pageUserAgent = "Mozilla/5.0 (compatible; RecipeClip/1.0; +https://recipeclip.app/bot)"

// Pages are read fully into memory; bail out on anything absurd.
const maxPageBytes = 5 << 20

// PageClient implements PageFetcher with a plain HTTP client
type PageClient struct {
	httpClient *http.Client
}

// NewPageClient creates a new page fetcher
func NewPageClient() *PageClient {
	return &PageClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch downloads the page at url
func (c *PageClient) Fetch(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", pageUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", "", fmt.Errorf("failed to read page: %w", err)
	}

	return string(body), resp.Request.URL.String(), nil
}
