package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/recipeclip/api/internal/client"
	"github.com/recipeclip/api/internal/model"
)

// UploadService handles pre-submission media uploads to R2 storage. Photo
// and voice sources, and the client-download resume flow, upload here first
// and submit the returned key.
type UploadService struct {
	r2Client client.StorageClient
}

// NewUploadService creates a new upload service with R2 client
func NewUploadService(r2Client client.StorageClient) *UploadService {
	return &UploadService{
		r2Client: r2Client,
	}
}

// UploadMedia uploads one media file and returns its storage key
func (s *UploadService) UploadMedia(ctx context.Context, userID, filename, contentType string, file io.Reader, fileSize int64) (*model.UploadMediaResponse, error) {
	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("uploads/%s/%s%s", userID, uuid.New().String(), ext)

	if _, err := s.r2Client.Upload(ctx, key, file, contentType); err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}

	return &model.UploadMediaResponse{
		MediaKey:    key,
		ContentType: contentType,
		Size:        fileSize,
		CreatedAt:   time.Now(),
	}, nil
}

// DeleteMedia deletes an uploaded media file by its storage key
func (s *UploadService) DeleteMedia(ctx context.Context, key string) error {
	return s.r2Client.Delete(ctx, key)
}
