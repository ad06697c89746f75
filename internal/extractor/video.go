package extractor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/recipeclip/api/internal/client"
	"github.com/recipeclip/api/internal/model"
)

// Frame sampling interval for on-screen text OCR.
const defaultFrameIntervalSec = 5

// VideoExtractor downloads a video, splits it into audio and frames, and
// merges transcript, on-screen text and platform description.
type VideoExtractor struct {
	media         client.MediaFetcher
	transcriber   client.Transcriber
	ocr           client.OCRReader
	storage       client.StorageClient
	frameInterval int
}

// NewVideoExtractor creates a new video extractor
func NewVideoExtractor(media client.MediaFetcher, transcriber client.Transcriber, ocr client.OCRReader, storage client.StorageClient) *VideoExtractor {
	return &VideoExtractor{
		media:         media,
		transcriber:   transcriber,
		ocr:           ocr,
		storage:       storage,
		frameInterval: defaultFrameIntervalSec,
	}
}

func (v *VideoExtractor) SourceType() model.SourceType { return model.SourceVideo }

// Extract runs the full video pipeline. When the platform blocks
// server-side fetching it returns ClientDownloadRequired instead of
// failing; the job then suspends until the client uploads the media.
func (v *VideoExtractor) Extract(ctx context.Context, ref model.SourceRef, sink ProgressSink) (*model.RawContent, error) {
	sink = safeSink(sink)
	sink(2, "Fetching video...")

	dl, err := v.media.Download(ctx, ref.URL)
	if err != nil {
		var blocked *client.PlatformBlockedError
		if errors.As(err, &blocked) {
			return nil, &ClientDownloadRequired{DirectMediaURL: blocked.DirectMediaURL}
		}
		return nil, sourceErr("download", err)
	}
	sink(30, "Video downloaded")

	meta := map[string]string{
		model.MetaOriginalURL: ref.URL,
		model.MetaPlatform:    string(dl.Platform),
		model.MetaVideoID:     dl.VideoID,
		model.MetaTitle:       dl.Title,
		model.MetaDescription: dl.Description,
	}
	if dl.ThumbnailURL != "" {
		meta[model.MetaThumbnailURL] = dl.ThumbnailURL
	}

	return v.ProcessMedia(ctx, dl.MediaKey, meta, sink)
}

// ProcessMedia runs the pipeline from the extract-audio step onwards. The
// resume path after a client download re-enters here with the uploaded
// media key.
func (v *VideoExtractor) ProcessMedia(ctx context.Context, mediaKey string, meta map[string]string, sink ProgressSink) (*model.RawContent, error) {
	sink = safeSink(sink)
	artifacts := []string{mediaKey}

	sink(32, "Extracting audio...")
	audioKey, err := v.media.ExtractAudio(ctx, mediaKey)
	if err != nil {
		return nil, sourceErr("extract-audio", err)
	}
	artifacts = append(artifacts, audioKey)
	sink(40, "Audio extracted")

	sink(42, "Extracting frames...")
	frameKeys, err := v.media.ExtractFrames(ctx, mediaKey, v.frameInterval)
	if err != nil {
		return nil, sourceErr("extract-frames", err)
	}
	artifacts = append(artifacts, frameKeys...)
	sink(50, "Frames extracted")

	sink(52, "Transcribing audio...")
	audioURL, err := v.storage.GetSignedURL(ctx, audioKey, 15*time.Minute)
	if err != nil {
		return nil, sourceErr("sign-audio", err)
	}
	transcript, err := v.transcriber.Transcribe(ctx, audioURL, "audio.m4a")
	if err != nil {
		return nil, sourceErr("transcribe", err)
	}
	sink(75, "Audio transcribed")

	// On-screen text is supplementary; a single unreadable frame does not
	// sink the job.
	var frameTexts []string
	for i, fk := range frameKeys {
		text, err := v.ocr.ReadText(ctx, fk)
		if err != nil {
			log.Printf("Frame OCR failed for %s: %v", fk, err)
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			frameTexts = append(frameTexts, t)
		}
		if len(frameKeys) > 0 {
			sink(75+(i+1)*20/len(frameKeys), "Reading on-screen text...")
		}
	}
	sink(95, "On-screen text read")

	text := mergeVideoText(meta, transcript, frameTexts)
	if strings.TrimSpace(text) == "" {
		return nil, sourceErr("merge", fmt.Errorf("no usable content in video"))
	}

	sink(100, "Video content extracted")
	return &model.RawContent{
		Text:           text,
		MediaRefs:      artifacts,
		SourceMetadata: meta,
	}, nil
}

// mergeVideoText joins the platform description, the transcript and the
// deduplicated on-screen text into a single prompt-ready block.
func mergeVideoText(meta map[string]string, transcript string, frameTexts []string) string {
	var b strings.Builder

	if title := meta[model.MetaTitle]; title != "" {
		b.WriteString("Title: " + title + "\n\n")
	}
	if desc := meta[model.MetaDescription]; desc != "" {
		b.WriteString("Description:\n" + desc + "\n\n")
	}
	if t := strings.TrimSpace(transcript); t != "" {
		b.WriteString("Transcript:\n" + t + "\n\n")
	}

	if len(frameTexts) > 0 {
		seen := make(map[string]bool)
		var unique []string
		for _, t := range frameTexts {
			if !seen[t] {
				seen[t] = true
				unique = append(unique, t)
			}
		}
		b.WriteString("On-screen text:\n" + strings.Join(unique, "\n"))
	}

	return strings.TrimSpace(b.String())
}
