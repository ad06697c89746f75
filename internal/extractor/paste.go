package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/recipeclip/api/internal/model"
)

// PasteExtractor passes submitted text through with whitespace normalized.
// No network, no risk: this is the baseline path for everything downstream.
type PasteExtractor struct{}

// NewPasteExtractor creates a new paste extractor
func NewPasteExtractor() *PasteExtractor { return &PasteExtractor{} }

func (p *PasteExtractor) SourceType() model.SourceType { return model.SourcePaste }

// Extract trims and normalizes the pasted text.
func (p *PasteExtractor) Extract(_ context.Context, ref model.SourceRef, sink ProgressSink) (*model.RawContent, error) {
	sink = safeSink(sink)

	text := normalizeWhitespace(ref.Text)
	if text == "" {
		return nil, sourceErr("input", fmt.Errorf("submitted text is empty"))
	}

	sink(100, "Text ready")
	return &model.RawContent{Text: text}, nil
}

// normalizeWhitespace trims each line, normalizes line endings and
// collapses runs of blank lines.
func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var out []string
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
