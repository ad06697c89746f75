package extractor

import (
	"context"
	"fmt"

	"github.com/recipeclip/api/internal/model"
)

// ProgressSink receives progress local to one extractor: percent is 0-100
// over the extractor's own sub-steps, not the job's global percentage.
type ProgressSink func(percent int, step string)

// Extractor turns a source reference into raw text/media content.
type Extractor interface {
	SourceType() model.SourceType
	Extract(ctx context.Context, ref model.SourceRef, sink ProgressSink) (*model.RawContent, error)
}

// Registry holds one extractor per source type, built once at startup.
type Registry struct {
	extractors map[model.SourceType]Extractor
}

// NewRegistry builds the dispatch table. It fails fast when a source type
// has no extractor so a partial wiring never reaches production.
func NewRegistry(extractors ...Extractor) (*Registry, error) {
	m := make(map[model.SourceType]Extractor, len(extractors))
	for _, e := range extractors {
		if _, dup := m[e.SourceType()]; dup {
			return nil, fmt.Errorf("duplicate extractor for source type %q", e.SourceType())
		}
		m[e.SourceType()] = e
	}
	for _, st := range model.ValidSourceTypes {
		if _, ok := m[st]; !ok {
			return nil, fmt.Errorf("no extractor registered for source type %q", st)
		}
	}
	return &Registry{extractors: m}, nil
}

// ForSource returns the extractor for the given source type.
func (r *Registry) ForSource(st model.SourceType) (Extractor, error) {
	e, ok := r.extractors[st]
	if !ok {
		return nil, fmt.Errorf("unsupported source type %q", st)
	}
	return e, nil
}

func nopSink(int, string) {}

// safeSink guards against a nil sink so extractors can always report.
func safeSink(sink ProgressSink) ProgressSink {
	if sink == nil {
		return nopSink
	}
	return sink
}
