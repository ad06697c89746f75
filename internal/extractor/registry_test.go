package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeclip/api/internal/model"
)

type stubExtractor struct {
	sourceType model.SourceType
}

func (s *stubExtractor) SourceType() model.SourceType { return s.sourceType }

func (s *stubExtractor) Extract(context.Context, model.SourceRef, ProgressSink) (*model.RawContent, error) {
	return &model.RawContent{Text: string(s.sourceType)}, nil
}

func allStubs() []Extractor {
	out := make([]Extractor, 0, len(model.ValidSourceTypes))
	for _, st := range model.ValidSourceTypes {
		out = append(out, &stubExtractor{sourceType: st})
	}
	return out
}

func TestNewRegistry_AllSourceTypes(t *testing.T) {
	registry, err := NewRegistry(allStubs()...)
	require.NoError(t, err)

	for _, st := range model.ValidSourceTypes {
		e, err := registry.ForSource(st)
		require.NoError(t, err)
		assert.Equal(t, st, e.SourceType())
	}
}

func TestNewRegistry_MissingSourceType(t *testing.T) {
	_, err := NewRegistry(
		&stubExtractor{sourceType: model.SourceVideo},
		&stubExtractor{sourceType: model.SourcePaste},
	)
	assert.Error(t, err)
}

func TestNewRegistry_DuplicateSourceType(t *testing.T) {
	stubs := append(allStubs(), &stubExtractor{sourceType: model.SourcePaste})
	_, err := NewRegistry(stubs...)
	assert.Error(t, err)
}

func TestRegistry_UnknownSourceType(t *testing.T) {
	registry, err := NewRegistry(allStubs()...)
	require.NoError(t, err)

	_, err = registry.ForSource(model.SourceType("carrier-pigeon"))
	assert.Error(t, err)
}
