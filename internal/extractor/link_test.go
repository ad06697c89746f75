package extractor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeclip/api/internal/model"
)

type fakePageFetcher struct {
	html     string
	finalURL string
	err      error
}

func (f *fakePageFetcher) Fetch(_ context.Context, url string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	finalURL := f.finalURL
	if finalURL == "" {
		finalURL = url
	}
	return f.html, finalURL, nil
}

func TestLinkExtractor_StructuredRecipe(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@type": "Recipe",
		"name": "Spaghetti Carbonara",
		"description": "A Roman classic.",
		"image": "https://example.com/carbonara.jpg",
		"recipeIngredient": ["400g spaghetti", "4 egg yolks", "150g guanciale"],
		"recipeInstructions": [
			{"@type": "HowToStep", "text": "Boil the pasta."},
			{"@type": "HowToStep", "text": "Fry the guanciale."}
		]
	}
	</script>
	</head><body><p>Some unrelated chatter.</p></body></html>`

	l := NewLinkExtractor(&fakePageFetcher{html: html}, nil)

	raw, err := l.Extract(context.Background(), model.SourceRef{URL: "https://example.com/carbonara"}, nil)
	require.NoError(t, err)

	assert.Contains(t, raw.Text, "Title: Spaghetti Carbonara")
	assert.Contains(t, raw.Text, "- 400g spaghetti")
	assert.Contains(t, raw.Text, "1. Boil the pasta.")
	assert.Contains(t, raw.Text, "2. Fry the guanciale.")
	assert.Equal(t, "https://example.com/carbonara.jpg", raw.SourceMetadata[model.MetaImageURL])
	assert.Equal(t, "Spaghetti Carbonara", raw.SourceMetadata[model.MetaTitle])
}

func TestLinkExtractor_StructuredRecipeInGraph(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@graph": [
			{"@type": "WebPage", "name": "Some page"},
			{
				"@type": ["Recipe", "NewsArticle"],
				"name": "Graph Recipe",
				"recipeIngredient": ["1 cup flour"],
				"recipeInstructions": "Mix everything."
			}
		]
	}
	</script>
	</head><body></body></html>`

	l := NewLinkExtractor(&fakePageFetcher{html: html}, nil)

	raw, err := l.Extract(context.Background(), model.SourceRef{URL: "https://example.com/graph"}, nil)
	require.NoError(t, err)

	assert.Contains(t, raw.Text, "Graph Recipe")
	assert.Contains(t, raw.Text, "1 cup flour")
	assert.Contains(t, raw.Text, "Mix everything.")
}

func TestLinkExtractor_HowToSections(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	{
		"@type": "Recipe",
		"name": "Layer Cake",
		"recipeIngredient": ["flour", "sugar"],
		"recipeInstructions": [
			{
				"@type": "HowToSection",
				"name": "Cake",
				"itemListElement": [
					{"@type": "HowToStep", "text": "Bake the layers."}
				]
			},
			{
				"@type": "HowToSection",
				"name": "Frosting",
				"itemListElement": [
					{"@type": "HowToStep", "text": "Whip the frosting."}
				]
			}
		]
	}
	</script>
	</head></html>`

	l := NewLinkExtractor(&fakePageFetcher{html: html}, nil)

	raw, err := l.Extract(context.Background(), model.SourceRef{URL: "https://example.com/cake"}, nil)
	require.NoError(t, err)

	assert.Contains(t, raw.Text, "1. Bake the layers.")
	assert.Contains(t, raw.Text, "2. Whip the frosting.")
}

func TestLinkExtractor_ReadabilityFallback(t *testing.T) {
	html := `<html><head>
	<title>Grandma's Stew</title>
	<meta property="og:image" content="https://example.com/stew.jpg">
	</head><body>
	<article>
		<h1>Grandma's Stew</h1>
		<p>This stew has been in the family for three generations. Brown the beef
		in batches, then soften the onions in the same pot. Add the stock and
		simmer for two hours until the meat falls apart. Season generously and
		serve with crusty bread on a cold evening.</p>
	</article>
	</body></html>`

	l := NewLinkExtractor(&fakePageFetcher{html: html}, nil)

	raw, err := l.Extract(context.Background(), model.SourceRef{URL: "https://example.com/stew"}, nil)
	require.NoError(t, err)

	assert.Contains(t, raw.Text, "Brown the beef")
	assert.Equal(t, "https://example.com/stew.jpg", raw.SourceMetadata[model.MetaImageURL])
}

func TestLinkExtractor_FetchError(t *testing.T) {
	l := NewLinkExtractor(&fakePageFetcher{err: fmt.Errorf("connection refused")}, nil)

	_, err := l.Extract(context.Background(), model.SourceRef{URL: "https://example.com/down"}, nil)

	var srcErr *SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, "fetch", srcErr.Step)
}

func TestLinkExtractor_CarriesCanonicalURL(t *testing.T) {
	l := NewLinkExtractor(&fakePageFetcher{
		html: `<html><head><script type="application/ld+json">
		{"@type": "Recipe", "name": "R", "recipeIngredient": ["x"]}
		</script></head></html>`,
		finalURL: "https://example.com/final",
	}, nil)

	raw, err := l.Extract(context.Background(), model.SourceRef{URL: "https://example.com/short"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/short", raw.SourceMetadata[model.MetaOriginalURL])
	assert.Equal(t, "https://example.com/final", raw.SourceMetadata[model.MetaCanonicalURL])
}
