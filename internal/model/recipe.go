package model

// RawContent is the output of an extractor: free text plus any media
// references the normalizer may need. It lives only for the duration of
// the job and is never persisted.
type RawContent struct {
	Text string `json:"text"`
	// MediaRefs are object-storage keys or URLs, in order: thumbnail,
	// frames, audio track.
	MediaRefs []string `json:"mediaRefs,omitempty"`
	// ImageRefs are images the normalizer should look at directly when OCR
	// alone did not yield usable text (photo vision fallback).
	ImageRefs      []string          `json:"imageRefs,omitempty"`
	SourceMetadata map[string]string `json:"sourceMetadata,omitempty"`
}

// Well-known SourceMetadata keys.
const (
	MetaPlatform     = "platform"
	MetaVideoID      = "videoId"
	MetaOriginalURL  = "originalUrl"
	MetaTitle        = "title"
	MetaDescription  = "description"
	MetaThumbnailURL = "thumbnailUrl"
	MetaImageURL     = "imageUrl"
	MetaCanonicalURL = "canonicalUrl"
)

// NormalizedRecipe is the normalizer's structured output. IsRecipe=false is
// a normal outcome signalling the source was not food content.
type NormalizedRecipe struct {
	IsRecipe     bool          `json:"isRecipe"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Language     Language      `json:"language,omitempty"`
	Ingredients  []Ingredient  `json:"ingredients"`
	Instructions []Instruction `json:"instructions"`
	Servings     int           `json:"servings,omitempty"`
	Difficulty   Difficulty    `json:"difficulty,omitempty"`
	CategorySlug string        `json:"categorySlug,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	PrepMinutes  int           `json:"prepMinutes,omitempty"`
	CookMinutes  int           `json:"cookMinutes,omitempty"`
	RestMinutes  int           `json:"restMinutes,omitempty"`
}

// Ingredient is a single recipe ingredient.
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Note     string `json:"note,omitempty"`
	Group    string `json:"group,omitempty"`
}

// Instruction is a single ordered cooking step.
type Instruction struct {
	StepNumber   int    `json:"stepNumber"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description"`
	TimerMinutes int    `json:"timerMinutes,omitempty"`
	Group        string `json:"group,omitempty"`
}
