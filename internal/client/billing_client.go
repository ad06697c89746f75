package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/recipeclip/api/internal/config"
)

// ErrInsufficientBalance is returned when the user has no extraction
// credits left.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Biller defines the interface for usage accounting
type Biller interface {
	// CheckBalance verifies the user can afford one extraction before any
	// heavy work starts.
	CheckBalance(ctx context.Context, userID string) error
	// IsUnmetered reports whether the user's plan skips per-use deduction.
	IsUnmetered(ctx context.Context, userID string) (bool, error)
	// ChargeOneUnit deducts one extraction credit.
	ChargeOneUnit(ctx context.Context, userID string) error
}

// BillingClient implements Biller against the billing service
type BillingClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewBillingClient creates a new billing service client
func NewBillingClient(cfg *config.BillingConfig) *BillingClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout == 0 {
		timeout = 15 * time.Second
	}
	return &BillingClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.ServiceURL,
	}
}

// CheckBalance verifies the user has at least one credit
func (c *BillingClient) CheckBalance(ctx context.Context, userID string) error {
	var result struct {
		Sufficient bool `json:"sufficient"`
	}
	if err := c.post(ctx, "/v1/billing/check", map[string]string{"user_id": userID}, &result); err != nil {
		return err
	}
	if !result.Sufficient {
		return ErrInsufficientBalance
	}
	return nil
}

// IsUnmetered reports whether the user is on an unmetered plan
func (c *BillingClient) IsUnmetered(ctx context.Context, userID string) (bool, error) {
	var result struct {
		Unmetered bool `json:"unmetered"`
	}
	if err := c.post(ctx, "/v1/billing/plan", map[string]string{"user_id": userID}, &result); err != nil {
		return false, err
	}
	return result.Unmetered, nil
}

// ChargeOneUnit deducts one extraction credit
func (c *BillingClient) ChargeOneUnit(ctx context.Context, userID string) error {
	var result struct {
		Charged    bool `json:"charged"`
		Sufficient bool `json:"sufficient"`
	}
	if err := c.post(ctx, "/v1/billing/charge", map[string]string{"user_id": userID}, &result); err != nil {
		return err
	}
	if !result.Charged && !result.Sufficient {
		return ErrInsufficientBalance
	}
	return nil
}

func (c *BillingClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
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

	if resp.StatusCode == http.StatusPaymentRequired {
		return ErrInsufficientBalance
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("billing service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *BillingClient) IsConfigured() bool {
	return c.baseURL != ""
}
