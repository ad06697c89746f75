package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/recipeclip/api/internal/client"
	"github.com/recipeclip/api/internal/dedupe"
	"github.com/recipeclip/api/internal/model"
)

const (
	TaskTypeExtract = "extract:process"
	TaskTypeResume  = "extract:resume"

	QueueExtract = "extract"

	jobTTL     = 48 * time.Hour
	jobTimeout = 30 * time.Minute
)

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrJobTerminal        = errors.New("job already finished")
	ErrJobNotCompleted    = errors.New("job not completed")
	ErrJobNotResumable    = errors.New("job is not awaiting a client download")
	ErrInvalidResumeToken = errors.New("invalid or expired resume token")
	ErrInvalidSource      = errors.New("invalid source submission")
	ErrForbidden          = errors.New("job belongs to another user")
)

// TaskEnqueuer is the slice of the asynq client the service needs.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExtractionService owns the extraction job lifecycle: creation after the
// pre-flight checks, the Redis-backed job record, and the asynq handoff to
// the worker. All status mutations go through here so the state machine has
// a single writer.
type ExtractionService struct {
	redis       *redis.Client
	asynqClient TaskEnqueuer
	dedupe      *dedupe.Checker
	billing     client.Biller
	handoffTTL  time.Duration
}

// NewExtractionService creates a new extraction service
func NewExtractionService(redisClient *redis.Client, asynqClient TaskEnqueuer, checker *dedupe.Checker, billing client.Biller, handoffTTLMinutes int) *ExtractionService {
	ttl := time.Duration(handoffTTLMinutes) * time.Minute
	if handoffTTLMinutes == 0 {
		ttl = 30 * time.Minute
	}
	return &ExtractionService{
		redis:       redisClient,
		asynqClient: asynqClient,
		dedupe:      checker,
		billing:     billing,
		handoffTTL:  ttl,
	}
}

// Submit accepts a new source submission. Balance and duplicate checks run
// before anything billable or slow; on a duplicate hit the job is created
// directly in completed status pointing at the existing recipe.
func (s *ExtractionService) Submit(ctx context.Context, userID string, req *model.ExtractSubmitRequest) (*model.ExtractSubmitResponse, error) {
	ref, err := buildSourceRef(req)
	if err != nil {
		return nil, err
	}

	if s.billing != nil {
		if err := s.billing.CheckBalance(ctx, userID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	job := &model.ExtractionJob{
		ID:         uuid.New().String(),
		UserID:     userID,
		SourceType: req.SourceType,
		SourceRef:  ref,
		Status:     model.JobStatusPending,
		CreatedAt:  now,
	}

	if recipeID, hit, err := s.dedupe.Check(ctx, req.SourceType, ref); err == nil && hit {
		job.Status = model.JobStatusCompleted
		job.Progress = 100
		job.ResultRecipeID = recipeID
		job.CompletedAt = &now
		if err := s.saveJob(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to save job: %w", err)
		}
		return &model.ExtractSubmitResponse{
			JobID:     job.ID,
			Status:    job.Status,
			RecipeID:  recipeID,
			Duplicate: true,
			CreatedAt: now,
		}, nil
	}

	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	if err := s.enqueue(TaskTypeExtract, &model.ExtractJobPayload{JobID: job.ID}); err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.ExtractSubmitResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: now,
	}, nil
}

// GetStatus returns the current status of a job
func (s *ExtractionService) GetStatus(ctx context.Context, userID, jobID string) (*model.ExtractStatusResponse, error) {
	job, err := s.ownedJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	return &model.ExtractStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		ErrorCode:   job.ErrorCode,
		Handoff:     job.Handoff,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}

// GetResult returns the recipe id of a completed job
func (s *ExtractionService) GetResult(ctx context.Context, userID, jobID string) (*model.ExtractResultResponse, error) {
	job, err := s.ownedJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusCompleted {
		return nil, ErrJobNotCompleted
	}

	return &model.ExtractResultResponse{
		JobID:    job.ID,
		Status:   job.Status,
		RecipeID: job.ResultRecipeID,
	}, nil
}

// Cancel marks a job cancelled. Cancellation is cooperative: the worker
// checks between steps and stops advancing; an in-flight external call is
// abandoned, not killed.
func (s *ExtractionService) Cancel(ctx context.Context, userID, jobID string) (*model.ExtractCancelResponse, error) {
	job, err := s.ownedJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status.IsTerminal() {
		return nil, ErrJobTerminal
	}

	now := time.Now()
	job.Status = model.JobStatusCancelled
	job.CompletedAt = &now
	job.Handoff = nil
	if err := s.saveJob(ctx, job); err != nil {
		return nil, err
	}

	return &model.ExtractCancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusCancelled,
	}, nil
}

// Resume accepts the client-side download for a suspended job. The resume
// token is single-use; any mismatch, expiry or reuse is a hard failure at
// the API boundary, never a silent restart.
func (s *ExtractionService) Resume(ctx context.Context, userID, jobID string, req *model.ExtractResumeRequest) (*model.ExtractStatusResponse, error) {
	job, err := s.ownedJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusNeedsClientDownload {
		if job.HandoffUsed {
			return nil, ErrInvalidResumeToken
		}
		return nil, ErrJobNotResumable
	}
	if job.Handoff == nil || job.Handoff.ResumeToken != req.ResumeToken {
		return nil, ErrInvalidResumeToken
	}
	if time.Now().After(job.Handoff.ExpiresAt) {
		return nil, ErrInvalidResumeToken
	}

	job.Handoff = nil
	job.HandoffUsed = true
	job.Status = model.JobStatusDownloading
	job.CurrentStep = "Resuming with uploaded media..."
	if err := s.saveJob(ctx, job); err != nil {
		return nil, err
	}

	if err := s.enqueue(TaskTypeResume, &model.ResumeJobPayload{JobID: job.ID, MediaKey: req.MediaKey}); err != nil {
		return nil, fmt.Errorf("failed to enqueue resume task: %w", err)
	}

	return s.GetStatus(ctx, userID, jobID)
}

// --- worker-facing job record operations ---

// GetJob loads a job by id
func (s *ExtractionService) GetJob(ctx context.Context, jobID string) (*model.ExtractionJob, error) {
	return s.getJob(ctx, jobID)
}

// MarkRunning records the first transition out of pending
func (s *ExtractionService) MarkRunning(ctx context.Context, jobID string, status model.JobStatus) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return ErrJobTerminal
	}
	if job.StartedAt == nil {
		now := time.Now()
		job.StartedAt = &now
	}
	job.Status = status
	return s.saveJob(ctx, job)
}

// SetStatus moves an active job to a new non-terminal status
func (s *ExtractionService) SetStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return ErrJobTerminal
	}
	job.Status = status
	return s.saveJob(ctx, job)
}

// UpdateProgress persists a progress update. Progress is monotonic:
// out-of-order stragglers are dropped, reported as applied=false.
func (s *ExtractionService) UpdateProgress(ctx context.Context, jobID string, progress int, step string) (bool, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job.Status.IsTerminal() {
		return false, nil
	}
	if progress < job.Progress {
		return false, nil
	}
	job.Progress = progress
	job.CurrentStep = step
	if err := s.saveJob(ctx, job); err != nil {
		return false, err
	}
	return true, nil
}

// SetHandoff suspends a job for a client-side download and returns the
// handoff the client needs.
func (s *ExtractionService) SetHandoff(ctx context.Context, jobID, directMediaURL string) (*model.DownloadHandoff, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, ErrJobTerminal
	}

	handoff := &model.DownloadHandoff{
		DirectMediaURL: directMediaURL,
		ResumeToken:    uuid.New().String(),
		ExpiresAt:      time.Now().Add(s.handoffTTL),
	}
	job.Status = model.JobStatusNeedsClientDownload
	job.CurrentStep = "Waiting for client download"
	job.Handoff = handoff
	if err := s.saveJob(ctx, job); err != nil {
		return nil, err
	}
	return handoff, nil
}

// CompleteJob marks a job completed with its recipe. ResultRecipeID is set
// exactly once, here.
func (s *ExtractionService) CompleteJob(ctx context.Context, jobID, recipeID string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return ErrJobTerminal
	}
	now := time.Now()
	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.CurrentStep = "Done"
	job.ResultRecipeID = recipeID
	job.CompletedAt = &now
	return s.saveJob(ctx, job)
}

// MarkNotARecipe ends a job whose source was not food content. This is a
// normal outcome: no error, no recipe.
func (s *ExtractionService) MarkNotARecipe(ctx context.Context, jobID string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return ErrJobTerminal
	}
	now := time.Now()
	job.Status = model.JobStatusNotARecipe
	job.Progress = 100
	job.CurrentStep = "Done"
	job.CompletedAt = &now
	return s.saveJob(ctx, job)
}

// FailJob marks a job failed with a stable reason code and a user-safe
// message. The error is set exactly once; a job that already reached a
// terminal state is left untouched, reported as applied=false so callers
// do not announce a failure that never happened.
func (s *ExtractionService) FailJob(ctx context.Context, jobID, code, message string) (bool, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job.Status.IsTerminal() {
		return false, nil
	}
	now := time.Now()
	job.Status = model.JobStatusFailed
	job.ErrorCode = code
	job.Error = &message
	job.CompletedAt = &now
	job.Handoff = nil
	if err := s.saveJob(ctx, job); err != nil {
		return false, err
	}
	return true, nil
}

// --- helpers ---

func (s *ExtractionService) ownedJob(ctx context.Context, userID, jobID string) (*model.ExtractionJob, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrForbidden
	}
	return job, nil
}

func (s *ExtractionService) saveJob(ctx context.Context, job *model.ExtractionJob) error {
	job.UpdatedAt = time.Now()
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "job:"+job.ID, data, jobTTL).Err()
}

func (s *ExtractionService) getJob(ctx context.Context, jobID string) (*model.ExtractionJob, error) {
	data, err := s.redis.Get(ctx, "job:"+jobID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.ExtractionJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *ExtractionService) enqueue(taskType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.asynqClient.Enqueue(asynq.NewTask(taskType, data),
		asynq.Queue(QueueExtract),
		// The worker resolves its own failures into the job record; an
		// asynq retry would re-run completed side effects.
		asynq.MaxRetry(0),
		asynq.Timeout(jobTimeout),
		asynq.Retention(24*time.Hour),
	)
	return err
}

// buildSourceRef validates that the submission carries the fields its
// source type needs.
func buildSourceRef(req *model.ExtractSubmitRequest) (model.SourceRef, error) {
	switch req.SourceType {
	case model.SourceVideo, model.SourceLink:
		if req.URL == "" {
			return model.SourceRef{}, fmt.Errorf("%w: %s source requires a url", ErrInvalidSource, req.SourceType)
		}
		return model.SourceRef{URL: req.URL}, nil
	case model.SourcePaste:
		if req.Text == "" {
			return model.SourceRef{}, fmt.Errorf("%w: paste source requires text", ErrInvalidSource)
		}
		return model.SourceRef{Text: req.Text}, nil
	case model.SourcePhoto:
		if len(req.MediaKeys) == 0 {
			return model.SourceRef{}, fmt.Errorf("%w: photo source requires at least one media key", ErrInvalidSource)
		}
		return model.SourceRef{MediaKeys: req.MediaKeys}, nil
	case model.SourceVoice:
		if len(req.MediaKeys) != 1 {
			return model.SourceRef{}, fmt.Errorf("%w: voice source requires exactly one media key", ErrInvalidSource)
		}
		return model.SourceRef{MediaKeys: req.MediaKeys}, nil
	default:
		return model.SourceRef{}, fmt.Errorf("%w: unknown source type %q", ErrInvalidSource, req.SourceType)
	}
}
