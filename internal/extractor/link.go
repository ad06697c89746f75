package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/recipeclip/api/internal/client"
	"github.com/recipeclip/api/internal/dedupe"
	"github.com/recipeclip/api/internal/model"
)

// LinkExtractor fetches a web page and pulls recipe content out of it,
// preferring schema.org Recipe markup over scraped visible text. A link
// that resolves to a video platform is delegated to the video pipeline.
type LinkExtractor struct {
	pages client.PageFetcher
	video *VideoExtractor
}

// NewLinkExtractor creates a new link extractor
func NewLinkExtractor(pages client.PageFetcher, video *VideoExtractor) *LinkExtractor {
	return &LinkExtractor{
		pages: pages,
		video: video,
	}
}

func (l *LinkExtractor) SourceType() model.SourceType { return model.SourceLink }

// Extract fetches and parses the linked page.
func (l *LinkExtractor) Extract(ctx context.Context, ref model.SourceRef, sink ProgressSink) (*model.RawContent, error) {
	sink = safeSink(sink)

	if dedupe.IsVideoPlatformURL(ref.URL) {
		return l.video.Extract(ctx, ref, sink)
	}

	sink(5, "Fetching page...")
	html, finalURL, err := l.pages.Fetch(ctx, ref.URL)
	if err != nil {
		return nil, sourceErr("fetch", err)
	}

	// The short link may only reveal itself as a video after redirects.
	if finalURL != ref.URL && dedupe.IsVideoPlatformURL(finalURL) {
		return l.video.Extract(ctx, model.SourceRef{URL: finalURL}, sink)
	}
	sink(30, "Page fetched")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, sourceErr("parse", err)
	}

	meta := map[string]string{
		model.MetaOriginalURL:  ref.URL,
		model.MetaCanonicalURL: finalURL,
	}

	sink(40, "Looking for recipe markup...")
	if structured := parseStructuredRecipe(doc); structured != nil {
		if structured.Image != "" {
			meta[model.MetaImageURL] = structured.Image
		}
		if structured.Name != "" {
			meta[model.MetaTitle] = structured.Name
		}
		sink(100, "Recipe markup found")
		return &model.RawContent{
			Text:           structured.AsText(),
			SourceMetadata: meta,
		}, nil
	}

	sink(60, "Extracting page text...")
	pageURL, _ := url.Parse(finalURL)
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return nil, sourceErr("readability", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, sourceErr("readability", fmt.Errorf("page has no readable text"))
	}

	if article.Title != "" {
		meta[model.MetaTitle] = article.Title
	}
	if img := resolvePageImage(doc, article.Image); img != "" {
		meta[model.MetaImageURL] = img
	}

	sink(100, "Page text extracted")
	return &model.RawContent{
		Text:           text,
		SourceMetadata: meta,
	}, nil
}

// structuredRecipe is the subset of schema.org/Recipe we care about
type structuredRecipe struct {
	Name         string
	Description  string
	Image        string
	Ingredients  []string
	Instructions []string
}

// AsText renders the structured recipe as prompt-ready text
func (r *structuredRecipe) AsText() string {
	var b strings.Builder
	if r.Name != "" {
		b.WriteString("Title: " + r.Name + "\n\n")
	}
	if r.Description != "" {
		b.WriteString(r.Description + "\n\n")
	}
	if len(r.Ingredients) > 0 {
		b.WriteString("Ingredients:\n")
		for _, ing := range r.Ingredients {
			b.WriteString("- " + ing + "\n")
		}
		b.WriteString("\n")
	}
	if len(r.Instructions) > 0 {
		b.WriteString("Instructions:\n")
		for i, step := range r.Instructions {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
		}
	}
	return strings.TrimSpace(b.String())
}

// parseStructuredRecipe scans ld+json blocks for a schema.org Recipe.
func parseStructuredRecipe(doc *goquery.Document) *structuredRecipe {
	var found *structuredRecipe

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload interface{}
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}
		if r := findRecipeNode(payload); r != nil {
			found = r
			return false
		}
		return true
	})

	return found
}

// findRecipeNode walks a decoded ld+json value, which may be a single
// object, an array, or a @graph wrapper.
func findRecipeNode(v interface{}) *structuredRecipe {
	switch node := v.(type) {
	case []interface{}:
		for _, item := range node {
			if r := findRecipeNode(item); r != nil {
				return r
			}
		}
	case map[string]interface{}:
		if isRecipeType(node["@type"]) {
			return decodeRecipeNode(node)
		}
		if graph, ok := node["@graph"]; ok {
			return findRecipeNode(graph)
		}
	}
	return nil
}

func isRecipeType(t interface{}) bool {
	switch typ := t.(type) {
	case string:
		return typ == "Recipe"
	case []interface{}:
		for _, item := range typ {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

func decodeRecipeNode(node map[string]interface{}) *structuredRecipe {
	r := &structuredRecipe{
		Name:        jsonString(node["name"]),
		Description: jsonString(node["description"]),
		Image:       jsonImage(node["image"]),
	}

	if ings, ok := node["recipeIngredient"].([]interface{}); ok {
		for _, ing := range ings {
			if s := jsonString(ing); s != "" {
				r.Ingredients = append(r.Ingredients, s)
			}
		}
	}

	r.Instructions = decodeInstructions(node["recipeInstructions"])

	if len(r.Ingredients) == 0 && len(r.Instructions) == 0 {
		return nil
	}
	return r
}

// decodeInstructions handles the three shapes sites use: plain strings,
// HowToStep objects, and HowToSection groups.
func decodeInstructions(v interface{}) []string {
	var steps []string
	switch node := v.(type) {
	case string:
		if s := strings.TrimSpace(node); s != "" {
			steps = append(steps, s)
		}
	case []interface{}:
		for _, item := range node {
			steps = append(steps, decodeInstructions(item)...)
		}
	case map[string]interface{}:
		if isType(node["@type"], "HowToSection") {
			steps = append(steps, decodeInstructions(node["itemListElement"])...)
		} else if s := jsonString(node["text"]); s != "" {
			steps = append(steps, s)
		}
	}
	return steps
}

func isType(t interface{}, want string) bool {
	s, ok := t.(string)
	return ok && s == want
}

func jsonString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// jsonImage handles image as a URL string, an array, or an ImageObject
func jsonImage(v interface{}) string {
	switch node := v.(type) {
	case string:
		return node
	case []interface{}:
		if len(node) > 0 {
			return jsonImage(node[0])
		}
	case map[string]interface{}:
		return jsonString(node["url"])
	}
	return ""
}

// resolvePageImage prefers the readability-extracted image, falling back to
// the page's og:image.
func resolvePageImage(doc *goquery.Document, articleImage string) string {
	if articleImage != "" {
		return articleImage
	}
	if og, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		return strings.TrimSpace(og)
	}
	return ""
}
