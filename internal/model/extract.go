package model

import "time"

// ExtractSubmitRequest represents the request to submit a new source
type ExtractSubmitRequest struct {
	SourceType SourceType `json:"sourceType" validate:"required,oneof=video photo voice link paste"`
	URL        string     `json:"url,omitempty" validate:"omitempty,url"`
	Text       string     `json:"text,omitempty" validate:"omitempty,max=50000"`
	MediaKeys  []string   `json:"mediaKeys,omitempty" validate:"omitempty,max=10,dive,min=1"`
}

// ExtractSubmitResponse represents the response after accepting a submission.
// On a duplicate hit the job is created directly in completed status and
// RecipeID carries the existing recipe.
type ExtractSubmitResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	RecipeID  string    `json:"recipeId,omitempty"`
	Duplicate bool      `json:"duplicate,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExtractStatusResponse represents the current state of a job
type ExtractStatusResponse struct {
	JobID       string           `json:"jobId"`
	Status      JobStatus        `json:"status"`
	Progress    int              `json:"progress"`
	CurrentStep string           `json:"currentStep,omitempty"`
	Error       *string          `json:"error,omitempty"`
	ErrorCode   string           `json:"errorCode,omitempty"`
	Handoff     *DownloadHandoff `json:"downloadHandoff,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// ExtractResultResponse represents the result of a completed job
type ExtractResultResponse struct {
	JobID    string    `json:"jobId"`
	Status   JobStatus `json:"status"`
	RecipeID string    `json:"recipeId"`
	ImageURL string    `json:"imageUrl,omitempty"`
}

// ExtractCancelResponse represents the response to a cancel request
type ExtractCancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
}

// ExtractResumeRequest resumes a job suspended for a client-side download.
// MediaKey references a prior upload via POST /api/upload/media.
type ExtractResumeRequest struct {
	ResumeToken string `json:"resumeToken" validate:"required,uuid4"`
	MediaKey    string `json:"mediaKey" validate:"required,min=1"`
}

// UploadMediaResponse represents the response for a media upload
type UploadMediaResponse struct {
	MediaKey    string    `json:"mediaKey"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}
