package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeclip/api/internal/model"
)

func TestPasteExtractor_NormalizesWhitespace(t *testing.T) {
	p := NewPasteExtractor()

	raw, err := p.Extract(context.Background(), model.SourceRef{
		Text: "Carbonara\r\n\r\n\r\n\r\nIngredients:   \n- eggs\t\n- guanciale\n",
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Carbonara\n\nIngredients:\n- eggs\n- guanciale", raw.Text)
}

func TestPasteExtractor_EmptyText(t *testing.T) {
	p := NewPasteExtractor()

	_, err := p.Extract(context.Background(), model.SourceRef{Text: "   \n\n\t  "}, nil)

	var srcErr *SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, "input", srcErr.Step)
}

func TestPasteExtractor_ReportsProgress(t *testing.T) {
	p := NewPasteExtractor()

	var got []int
	sink := func(percent int, _ string) { got = append(got, percent) }

	_, err := p.Extract(context.Background(), model.SourceRef{Text: "some recipe"}, sink)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 100, got[len(got)-1])
}
