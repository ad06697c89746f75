package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/recipeclip/api/internal/config"
)

// Transcriber defines the interface for speech-to-text
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL, filename string) (string, error)
}

// GroqClient is the fallback normalization provider and the Whisper
// transcription backend.
type GroqClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	model        string
	whisperModel string
}

type groqChatRequest struct {
	Model          string            `json:"model"`
	Messages       []groqChatMessage `json:"messages"`
	Temperature    float64           `json:"temperature,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat   `json:"response_format,omitempty"`
}

type groqChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type groqTranscriptionResponse struct {
	Text string `json:"text"`
}

// NewGroqClient creates a new Groq API client
func NewGroqClient(cfg *config.GroqConfig) *GroqClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.TimeoutSeconds == 0 {
		timeout = 120 * time.Second
	}
	return &GroqClient{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		whisperModel: cfg.WhisperModel,
	}
}

// Name identifies the provider in logs and retry bookkeeping
func (c *GroqClient) Name() string { return "groq" }

// CompleteJSON sends a JSON-mode chat completion request. Groq has no
// vision input; image URLs are listed in the prompt as references only.
func (c *GroqClient) CompleteJSON(ctx context.Context, req *CompletionRequest) (string, error) {
	user := req.User
	for _, u := range req.ImageURLs {
		user += "\n[image] " + u
	}

	reqBody := groqChatRequest{
		Model: c.model,
		Messages: []groqChatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: user},
		},
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp groqChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	choice := chatResp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", ErrProviderRefused
	}

	return choice.Message.Content, nil
}

// Transcribe downloads the audio from audioURL and runs it through the
// Whisper transcription endpoint.
func (c *GroqClient) Transcribe(ctx context.Context, audioURL, filename string) (string, error) {
	audioReq, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create audio request: %w", err)
	}

	audioResp, err := c.httpClient.Do(audioReq)
	if err != nil {
		return "", fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer audioResp.Body.Close()

	if audioResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("audio fetch returned status %d", audioResp.StatusCode)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, audioResp.Body); err != nil {
		return "", fmt.Errorf("failed to copy audio: %w", err)
	}
	if err := writer.WriteField("model", c.whisperModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var transcription groqTranscriptionResponse
	if err := json.Unmarshal(respBody, &transcription); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return transcription.Text, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *GroqClient) IsConfigured() bool {
	return c.apiKey != ""
}
