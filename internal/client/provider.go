package client

import (
	"context"
	"errors"
)

// ErrProviderRefused is returned when an AI provider explicitly refuses the
// content (policy block) rather than failing. Callers route this to the
// fallback provider instead of retrying.
var ErrProviderRefused = errors.New("provider refused content")

// CompletionRequest is a provider-agnostic structured-output request.
// ImageURLs are attached as vision inputs when the provider supports them.
type CompletionRequest struct {
	System      string
	User        string
	ImageURLs   []string
	MaxTokens   int
	Temperature float64
}

// ChatProvider defines the interface for AI chat completion providers that
// can answer with a single JSON object.
type ChatProvider interface {
	Name() string
	CompleteJSON(ctx context.Context, req *CompletionRequest) (string, error)
}

// ImageGenerator defines the interface for recipe image generation
type ImageGenerator interface {
	GenerateImage(ctx context.Context, title, description string) (string, error)
}
