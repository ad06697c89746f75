package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/recipeclip/api/internal/config"
	"github.com/recipeclip/api/internal/model"
)

// RecipeStore defines the persistence handoff to the core CRUD service.
// SaveDraftRecipe is atomic from this service's point of view; the core
// service exposes DeleteRecipe as the compensating operation.
type RecipeStore interface {
	SaveDraftRecipe(ctx context.Context, req *SaveRecipeRequest) (string, error)
	DeleteRecipe(ctx context.Context, recipeID string) error
	ListCategories(ctx context.Context) ([]string, error)
}

// SaveRecipeRequest hands a normalized recipe to the core service
type SaveRecipeRequest struct {
	UserID         string                  `json:"user_id"`
	Recipe         *model.NormalizedRecipe `json:"recipe"`
	ImageURL       string                  `json:"image_url,omitempty"`
	SourceType     model.SourceType        `json:"source_type"`
	SourceMetadata map[string]string       `json:"source_metadata,omitempty"`
}

// CoreClient implements RecipeStore against the core service
type CoreClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewCoreClient creates a new core service client
func NewCoreClient(cfg *config.CoreConfig) *CoreClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout == 0 {
		timeout = 30 * time.Second
	}
	return &CoreClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.ServiceURL,
	}
}

// SaveDraftRecipe persists the recipe and returns the new recipe id
func (c *CoreClient) SaveDraftRecipe(ctx context.Context, req *SaveRecipeRequest) (string, error) {
	var result struct {
		RecipeID string `json:"recipe_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/recipes/draft", req, &result); err != nil {
		return "", err
	}
	if result.RecipeID == "" {
		return "", fmt.Errorf("core service returned empty recipe id")
	}
	return result.RecipeID, nil
}

// DeleteRecipe removes a recipe; used as compensation when finalization
// fails after a partial save.
func (c *CoreClient) DeleteRecipe(ctx context.Context, recipeID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/recipes/"+recipeID, nil, nil)
}

// ListCategories returns the allowed category slugs
func (c *CoreClient) ListCategories(ctx context.Context) ([]string, error) {
	var result struct {
		Slugs []string `json:"slugs"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/categories", nil, &result); err != nil {
		return nil, err
	}
	return result.Slugs, nil
}

func (c *CoreClient) do(ctx context.Context, method, endpoint string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("core service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *CoreClient) IsConfigured() bool {
	return c.baseURL != ""
}
