package extractor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/recipeclip/api/internal/client"
	"github.com/recipeclip/api/internal/model"
)

// PhotoExtractor OCRs submitted photos. When the recognized text is too
// thin to stand on its own, the raw image references are passed along so
// the normalizer can look at the images directly.
type PhotoExtractor struct {
	ocr      client.OCRReader
	storage  client.StorageClient
	minChars int
	minLines int
}

// NewPhotoExtractor creates a new photo extractor
func NewPhotoExtractor(ocr client.OCRReader, storage client.StorageClient, minChars, minLines int) *PhotoExtractor {
	return &PhotoExtractor{
		ocr:      ocr,
		storage:  storage,
		minChars: minChars,
		minLines: minLines,
	}
}

func (p *PhotoExtractor) SourceType() model.SourceType { return model.SourcePhoto }

// Extract OCRs each image in submission order.
func (p *PhotoExtractor) Extract(ctx context.Context, ref model.SourceRef, sink ProgressSink) (*model.RawContent, error) {
	sink = safeSink(sink)

	if len(ref.MediaKeys) == 0 {
		return nil, sourceErr("input", fmt.Errorf("no images submitted"))
	}

	var texts []string
	total := len(ref.MediaKeys)
	for i, key := range ref.MediaKeys {
		sink(i*90/total, fmt.Sprintf("Reading photo %d of %d...", i+1, total))

		processed, err := p.ocr.Preprocess(ctx, key)
		if err != nil {
			// OCR can usually cope with the original; preprocessing is an
			// optimization, not a requirement.
			log.Printf("Photo preprocess failed for %s: %v", key, err)
			processed = key
		}

		text, err := p.ocr.ReadText(ctx, processed)
		if err != nil {
			return nil, sourceErr("ocr", err)
		}
		if t := strings.TrimSpace(text); t != "" {
			texts = append(texts, t)
		}
	}

	combined := strings.TrimSpace(strings.Join(texts, "\n\n"))
	raw := &model.RawContent{
		Text: combined,
		SourceMetadata: map[string]string{
			model.MetaImageURL: p.storage.GetPublicURL(ref.MediaKeys[0]),
		},
	}

	if !p.looksLikeRecipeProse(combined) {
		// Vision fallback: hand the normalizer signed image URLs next to
		// whatever OCR text exists.
		for _, key := range ref.MediaKeys {
			url, err := p.storage.GetSignedURL(ctx, key, 15*time.Minute)
			if err != nil {
				return nil, sourceErr("sign-image", err)
			}
			raw.ImageRefs = append(raw.ImageRefs, url)
		}
	}

	sink(100, "Photos read")
	return raw, nil
}

// looksLikeRecipeProse is a cheap heuristic for "the OCR text alone is
// enough": long enough and with the multi-line shape of an ingredient list.
func (p *PhotoExtractor) looksLikeRecipeProse(text string) bool {
	if len(text) < p.minChars {
		return false
	}
	lines := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	return lines >= p.minLines
}
