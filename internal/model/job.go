package model

import "time"

// ExtractionJob represents one tracked attempt to turn a submitted source
// into a recipe. Stored as JSON in Redis under job:<id>.
type ExtractionJob struct {
	ID             string           `json:"id"`
	UserID         string           `json:"userId"`
	SourceType     SourceType       `json:"sourceType"`
	SourceRef      SourceRef        `json:"sourceRef"`
	Status         JobStatus        `json:"status"`
	Progress       int              `json:"progress"`
	CurrentStep    string           `json:"currentStep,omitempty"`
	ResultRecipeID string           `json:"resultRecipeId,omitempty"`
	Error          *string          `json:"error,omitempty"`
	ErrorCode      string           `json:"errorCode,omitempty"`
	Handoff        *DownloadHandoff `json:"downloadHandoff,omitempty"`
	// HandoffUsed is set when the job has already suspended for a client
	// download once; a second platform-block signal is a hard failure.
	HandoffUsed bool       `json:"handoffUsed,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// SourceRef is the opaque reference to the submitted content. Exactly one
// of URL, Text, MediaKeys is meaningful depending on the source type.
type SourceRef struct {
	URL       string   `json:"url,omitempty"`
	Text      string   `json:"text,omitempty"`
	MediaKeys []string `json:"mediaKeys,omitempty"`
}

// DownloadHandoff holds the data a client needs to perform a download the
// server cannot. Present only while the job is in needs_client_download.
type DownloadHandoff struct {
	DirectMediaURL string    `json:"directMediaUrl"`
	ResumeToken    string    `json:"resumeToken"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// ExtractJobPayload is the asynq task payload for extract:process.
type ExtractJobPayload struct {
	JobID string `json:"jobId"`
}

// ResumeJobPayload is the asynq task payload for extract:resume. MediaKey
// points at the client-uploaded media in object storage.
type ResumeJobPayload struct {
	JobID    string `json:"jobId"`
	MediaKey string `json:"mediaKey"`
}
