// Package dedupe decides, before any heavy work, whether a submitted
// source already maps to an existing recipe. Only videos and links have a
// stable identity; photos, voice memos and pasted text never match.
package dedupe

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/recipeclip/api/internal/model"
)

// Checker looks up and records source identities in Redis.
type Checker struct {
	redis *redis.Client
}

// NewChecker creates a new duplicate checker
func NewChecker(redisClient *redis.Client) *Checker {
	return &Checker{redis: redisClient}
}

// Check returns the existing recipe id for the source, if any. It never
// downloads anything; identity comes from the URL alone.
func (c *Checker) Check(ctx context.Context, sourceType model.SourceType, ref model.SourceRef) (string, bool, error) {
	key, ok := sourceKey(sourceType, ref)
	if !ok {
		return "", false, nil
	}

	recipeID, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("duplicate lookup failed: %w", err)
	}
	return recipeID, true, nil
}

// Record stores the source→recipe mapping. Called only when a job reaches
// completed with a saved recipe.
func (c *Checker) Record(ctx context.Context, sourceType model.SourceType, ref model.SourceRef, recipeID string) error {
	key, ok := sourceKey(sourceType, ref)
	if !ok {
		return nil
	}
	return c.redis.Set(ctx, key, recipeID, 0).Err()
}

func sourceKey(sourceType model.SourceType, ref model.SourceRef) (string, bool) {
	switch sourceType {
	case model.SourceVideo:
		platform, videoID, ok := ParseVideoURL(ref.URL)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("source:video:%s:%s", platform, videoID), true
	case model.SourceLink:
		canonical, err := CanonicalizeURL(ref.URL)
		if err != nil {
			return "", false
		}
		return "source:link:" + canonical, true
	default:
		return "", false
	}
}
