package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/recipeclip/api/internal/config"
	"github.com/recipeclip/api/internal/model"
)

// MediaFetcher defines the interface for the media sidecar (yt-dlp/ffmpeg
// based) that downloads videos and slices them into audio and frames.
type MediaFetcher interface {
	Download(ctx context.Context, url string) (*DownloadResult, error)
	ExtractAudio(ctx context.Context, mediaKey string) (string, error)
	ExtractFrames(ctx context.Context, mediaKey string, intervalSec int) ([]string, error)
	Probe(ctx context.Context, mediaKey string) (*ProbeResult, error)
}

// PlatformBlockedError is returned by Download when the source platform
// refuses server-side fetching. DirectMediaURL is a time-limited URL the
// end-user's device can fetch instead.
type PlatformBlockedError struct {
	DirectMediaURL string
}

func (e *PlatformBlockedError) Error() string {
	return "platform blocks server-side download"
}

// DownloadResult describes a successfully downloaded video
type DownloadResult struct {
	MediaKey     string         `json:"media_key"`
	Platform     model.Platform `json:"platform"`
	VideoID      string         `json:"video_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	ThumbnailURL string         `json:"thumbnail_url"`
	Duration     float64        `json:"duration"`
}

// ProbeResult describes an audio file's properties
type ProbeResult struct {
	Duration   float64 `json:"duration"`
	Format     string  `json:"format"`
	SampleRate int     `json:"sample_rate"`
}

// MediaClient implements MediaFetcher against the media microservice
type MediaClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewMediaClient creates a new media service client
func NewMediaClient(cfg *config.MediaConfig) *MediaClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout == 0 {
		timeout = 300 * time.Second
	}
	return &MediaClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.ServiceURL,
	}
}

// Download fetches the video server-side and stores it in object storage.
// A platform-block response maps to *PlatformBlockedError.
func (c *MediaClient) Download(ctx context.Context, url string) (*DownloadResult, error) {
	req := map[string]string{"url": url}

	var result struct {
		DownloadResult
		Blocked   bool   `json:"blocked"`
		DirectURL string `json:"direct_url"`
	}
	if err := c.post(ctx, "/v1/media/download", req, &result); err != nil {
		return nil, err
	}

	if result.Blocked {
		return nil, &PlatformBlockedError{DirectMediaURL: result.DirectURL}
	}
	return &result.DownloadResult, nil
}

// ExtractAudio extracts the audio track and returns its storage key
func (c *MediaClient) ExtractAudio(ctx context.Context, mediaKey string) (string, error) {
	req := map[string]string{"media_key": mediaKey}
	var result struct {
		AudioKey string `json:"audio_key"`
	}
	if err := c.post(ctx, "/v1/media/audio", req, &result); err != nil {
		return "", err
	}
	return result.AudioKey, nil
}

// ExtractFrames extracts periodic frames and returns their storage keys
func (c *MediaClient) ExtractFrames(ctx context.Context, mediaKey string, intervalSec int) ([]string, error) {
	req := map[string]interface{}{
		"media_key":    mediaKey,
		"interval_sec": intervalSec,
	}
	var result struct {
		FrameKeys []string `json:"frame_keys"`
	}
	if err := c.post(ctx, "/v1/media/frames", req, &result); err != nil {
		return nil, err
	}
	return result.FrameKeys, nil
}

// Probe returns duration and format of a stored audio file
func (c *MediaClient) Probe(ctx context.Context, mediaKey string) (*ProbeResult, error) {
	req := map[string]string{"media_key": mediaKey}
	var result ProbeResult
	if err := c.post(ctx, "/v1/media/probe", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post sends a POST request with JSON body
func (c *MediaClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("media service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *MediaClient) IsConfigured() bool {
	return c.baseURL != ""
}
