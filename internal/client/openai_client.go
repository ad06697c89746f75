package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/recipeclip/api/internal/config"
)

// OpenAIClient is the primary normalization provider. It also serves image
// generation for sources that have no reusable image of their own.
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	imageModel string
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imagePartURL `json:"image_url,omitempty"`
}

type imagePartURL struct {
	URL string `json:"url"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type imageGenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageGenerationResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// NewOpenAIClient creates a new OpenAI API client
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
	}
}

// Name identifies the provider in logs and retry bookkeeping
func (c *OpenAIClient) Name() string { return "openai" }

// CompleteJSON sends a JSON-mode chat completion request. An explicit
// refusal (policy block) is reported as ErrProviderRefused so the caller
// can route to the fallback provider instead of retrying.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, req *CompletionRequest) (string, error) {
	userContent := interface{}(req.User)
	if len(req.ImageURLs) > 0 {
		parts := []contentPart{{Type: "text", Text: req.User}}
		for _, u := range req.ImageURLs {
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imagePartURL{URL: u}})
		}
		userContent = parts
	}

	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: userContent},
		},
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var chatResp chatCompletionResponse
	if err := c.post(ctx, "/chat/completions", reqBody, &chatResp); err != nil {
		return "", err
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	choice := chatResp.Choices[0]
	if choice.Message.Refusal != "" || choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%w: %s", ErrProviderRefused, choice.Message.Refusal)
	}

	return choice.Message.Content, nil
}

// GenerateImage generates a representative recipe image and returns its URL
func (c *OpenAIClient) GenerateImage(ctx context.Context, title, description string) (string, error) {
	prompt := fmt.Sprintf(
		"A professional food photograph of %s. %s Natural light, shallow depth of field, no text.",
		title, strings.TrimSpace(description),
	)

	reqBody := imageGenerationRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		N:      1,
		Size:   "1024x1024",
	}

	var imgResp imageGenerationResponse
	if err := c.post(ctx, "/images/generations", reqBody, &imgResp); err != nil {
		return "", err
	}

	if len(imgResp.Data) == 0 {
		return "", fmt.Errorf("no image in response")
	}
	return imgResp.Data[0].URL, nil
}

func (c *OpenAIClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		return fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}
