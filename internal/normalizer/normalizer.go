// Package normalizer turns extracted raw content into a structured recipe
// via an AI provider, with a fallback provider for policy refusals.
package normalizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/recipeclip/api/internal/client"
	"github.com/recipeclip/api/internal/model"
)

const systemPromptTemplate = `You are a recipe extraction assistant. The user gives you raw content
captured from a cooking video, photo, voice memo, web page or pasted text.
Return a single JSON object describing the recipe.

Rules:
- If the content is not about preparing food or drink, return {"isRecipe": false}.
- Otherwise set "isRecipe" to true and fill in every field you can.
- "categorySlug" must be one of: %s.
- Keep ingredient and instruction order exactly as in the source.
- "instructions" entries need "stepNumber" (1-based) and "description".
- Respond with the JSON object only, matching this shape:
%s`

// Normalizer drives the primary provider with bounded retries and routes
// policy refusals to the fallback provider exactly once.
type Normalizer struct {
	primary        client.ChatProvider
	fallback       client.ChatProvider
	maxAttempts    int
	attemptTimeout time.Duration
	backoffBase    time.Duration
}

// New creates a Normalizer. Each attempt gets a fresh timeout so worst-case
// latency is bounded by maxAttempts * attemptTimeout.
func New(primary, fallback client.ChatProvider, maxAttempts, attemptTimeoutSec int) *Normalizer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Normalizer{
		primary:        primary,
		fallback:       fallback,
		maxAttempts:    maxAttempts,
		attemptTimeout: time.Duration(attemptTimeoutSec) * time.Second,
		backoffBase:    time.Second,
	}
}

// Normalize converts raw content into a NormalizedRecipe. A well-formed
// response with isRecipe=false is a success, not an error.
func (n *Normalizer) Normalize(ctx context.Context, raw *model.RawContent, categories []string) (*model.NormalizedRecipe, error) {
	if len(categories) == 0 {
		categories = model.DefaultCategorySlugs
	}
	req := buildRequest(raw, categories)

	var lastErr error
	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := n.backoffBase * time.Duration(1<<(attempt-2))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		recipe, err := n.complete(ctx, n.primary, req)
		if err == nil {
			return recipe, nil
		}

		if errors.Is(err, client.ErrProviderRefused) {
			// Policy block is not retried against the primary; the
			// fallback provider gets exactly one shot.
			log.Printf("Primary provider %s refused content, trying fallback %s", n.primary.Name(), n.fallback.Name())
			recipe, ferr := n.complete(ctx, n.fallback, req)
			if ferr != nil {
				return nil, fmt.Errorf("fallback provider failed after refusal: %w", ferr)
			}
			return recipe, nil
		}

		log.Printf("Normalization attempt %d/%d via %s failed: %v", attempt, n.maxAttempts, n.primary.Name(), err)
		lastErr = err
	}

	return nil, fmt.Errorf("normalization failed after %d attempts: %w", n.maxAttempts, lastErr)
}

// complete runs one provider call under its own timeout and parses the
// response. A response that fails schema validation is a provider failure
// (retryable), never a "not a recipe".
func (n *Normalizer) complete(ctx context.Context, provider client.ChatProvider, req *client.CompletionRequest) (*model.NormalizedRecipe, error) {
	cctx, cancel := context.WithTimeout(ctx, n.attemptTimeout)
	defer cancel()

	rawJSON, err := provider.CompleteJSON(cctx, req)
	if err != nil {
		return nil, err
	}

	if err := validateResponse([]byte(rawJSON)); err != nil {
		return nil, fmt.Errorf("provider %s returned malformed response: %w", provider.Name(), err)
	}

	var recipe model.NormalizedRecipe
	if err := json.Unmarshal([]byte(rawJSON), &recipe); err != nil {
		return nil, fmt.Errorf("provider %s response did not decode: %w", provider.Name(), err)
	}

	return &recipe, nil
}

func buildRequest(raw *model.RawContent, categories []string) *client.CompletionRequest {
	user := raw.Text
	if user == "" && len(raw.ImageRefs) > 0 {
		user = "No machine-readable text was recognized; read the recipe from the attached images."
	}

	return &client.CompletionRequest{
		System:      fmt.Sprintf(systemPromptTemplate, strings.Join(categories, ", "), responseShape),
		User:        user,
		ImageURLs:   raw.ImageRefs,
		MaxTokens:   4096,
		Temperature: 0.2,
	}
}
