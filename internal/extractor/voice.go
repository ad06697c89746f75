package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/recipeclip/api/internal/client"
	"github.com/recipeclip/api/internal/model"
)

// VoiceExtractor validates and transcribes a dictated recipe.
type VoiceExtractor struct {
	media       client.MediaFetcher
	transcriber client.Transcriber
	storage     client.StorageClient
	maxDuration time.Duration
}

// NewVoiceExtractor creates a new voice extractor
func NewVoiceExtractor(media client.MediaFetcher, transcriber client.Transcriber, storage client.StorageClient, maxDurationSec int) *VoiceExtractor {
	return &VoiceExtractor{
		media:       media,
		transcriber: transcriber,
		storage:     storage,
		maxDuration: time.Duration(maxDurationSec) * time.Second,
	}
}

func (v *VoiceExtractor) SourceType() model.SourceType { return model.SourceVoice }

// Extract probes the uploaded audio, then transcribes it.
func (v *VoiceExtractor) Extract(ctx context.Context, ref model.SourceRef, sink ProgressSink) (*model.RawContent, error) {
	sink = safeSink(sink)

	if len(ref.MediaKeys) != 1 {
		return nil, sourceErr("input", fmt.Errorf("expected exactly one audio upload, got %d", len(ref.MediaKeys)))
	}
	audioKey := ref.MediaKeys[0]

	sink(5, "Checking audio...")
	probe, err := v.media.Probe(ctx, audioKey)
	if err != nil {
		return nil, sourceErr("probe", err)
	}
	if probe.Duration <= 0 {
		return nil, sourceErr("probe", fmt.Errorf("audio is empty or unreadable"))
	}
	if v.maxDuration > 0 && time.Duration(probe.Duration*float64(time.Second)) > v.maxDuration {
		return nil, sourceErr("probe", fmt.Errorf("audio exceeds maximum duration of %s", v.maxDuration))
	}

	sink(20, "Transcribing voice memo...")
	audioURL, err := v.storage.GetSignedURL(ctx, audioKey, 15*time.Minute)
	if err != nil {
		return nil, sourceErr("sign-audio", err)
	}

	transcript, err := v.transcriber.Transcribe(ctx, audioURL, "memo."+probe.Format)
	if err != nil {
		return nil, sourceErr("transcribe", err)
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, sourceErr("transcribe", fmt.Errorf("no speech recognized"))
	}

	sink(100, "Voice memo transcribed")
	return &model.RawContent{
		Text: strings.TrimSpace(transcript),
		SourceMetadata: map[string]string{
			"durationSec": fmt.Sprintf("%.0f", probe.Duration),
			"format":      probe.Format,
		},
	}, nil
}
