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
)

// OCRReader defines the interface for optical text recognition
type OCRReader interface {
	// Preprocess normalizes orientation and size; returns the key of the
	// processed image.
	Preprocess(ctx context.Context, imageKey string) (string, error)
	ReadText(ctx context.Context, imageKey string) (string, error)
}

// OCRClient implements OCRReader against the OCR microservice
type OCRClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewOCRClient creates a new OCR service client
func NewOCRClient(cfg *config.OCRConfig) *OCRClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout == 0 {
		timeout = 60 * time.Second
	}
	return &OCRClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.ServiceURL,
	}
}

// Preprocess normalizes an image (orientation, resize) for OCR
func (c *OCRClient) Preprocess(ctx context.Context, imageKey string) (string, error) {
	req := map[string]string{"image_key": imageKey}
	var result struct {
		ImageKey string `json:"image_key"`
	}
	if err := c.post(ctx, "/v1/ocr/preprocess", req, &result); err != nil {
		return "", err
	}
	return result.ImageKey, nil
}

// ReadText runs OCR on a stored image and returns the recognized text
func (c *OCRClient) ReadText(ctx context.Context, imageKey string) (string, error) {
	req := map[string]string{"image_key": imageKey}
	var result struct {
		Text string `json:"text"`
	}
	if err := c.post(ctx, "/v1/ocr/read", req, &result); err != nil {
		return "", err
	}
	return result.Text, nil
}

func (c *OCRClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ocr service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *OCRClient) IsConfigured() bool {
	return c.baseURL != ""
}
