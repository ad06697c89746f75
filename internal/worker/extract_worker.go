package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/recipeclip/api/internal/client"
	"github.com/recipeclip/api/internal/dedupe"
	"github.com/recipeclip/api/internal/extractor"
	"github.com/recipeclip/api/internal/model"
	"github.com/recipeclip/api/internal/progress"
)

// JobStore is the slice of the extraction service the worker drives jobs
// through.
type JobStore interface {
	GetJob(ctx context.Context, jobID string) (*model.ExtractionJob, error)
	MarkRunning(ctx context.Context, jobID string, status model.JobStatus) error
	SetStatus(ctx context.Context, jobID string, status model.JobStatus) error
	SetHandoff(ctx context.Context, jobID, directMediaURL string) (*model.DownloadHandoff, error)
	CompleteJob(ctx context.Context, jobID, recipeID string) error
	MarkNotARecipe(ctx context.Context, jobID string) error
	FailJob(ctx context.Context, jobID, code, message string) (bool, error)
}

// Notifier pushes job events to connected clients.
type Notifier interface {
	BroadcastComplete(jobID string, status model.JobStatus, result interface{})
	BroadcastHandoff(jobID string, handoff model.DownloadHandoff)
	BroadcastError(jobID string, code, message string)
	BroadcastWarning(jobID string, code, message string)
}

// SourceIndex records source fingerprints for duplicate detection.
type SourceIndex interface {
	Record(ctx context.Context, sourceType model.SourceType, ref model.SourceRef, recipeID string) error
}

// MediaProcessor re-enters the video pipeline from an already-stored media
// file; used by the resume path.
type MediaProcessor interface {
	ProcessMedia(ctx context.Context, mediaKey string, meta map[string]string, sink extractor.ProgressSink) (*model.RawContent, error)
}

// RecipeNormalizer turns raw content into a structured recipe.
type RecipeNormalizer interface {
	Normalize(ctx context.Context, raw *model.RawContent, categories []string) (*model.NormalizedRecipe, error)
}

// ExtractWorker drives an extraction job through the pipeline: extract,
// normalize, image, save, charge. It is the only writer of job progress and
// terminal states while a job is running.
type ExtractWorker struct {
	jobs       JobStore
	registry   *extractor.Registry
	video      MediaProcessor
	normalizer RecipeNormalizer
	images     client.ImageGenerator
	core       client.RecipeStore
	billing    client.Biller
	storage    client.StorageClient
	dedupe     SourceIndex
	tracker    *progress.Tracker
	hub        Notifier

	imageTimeout time.Duration
}

// NewExtractWorker creates a new extraction worker
func NewExtractWorker(
	jobs JobStore,
	registry *extractor.Registry,
	video MediaProcessor,
	norm RecipeNormalizer,
	images client.ImageGenerator,
	core client.RecipeStore,
	billing client.Biller,
	storage client.StorageClient,
	checker SourceIndex,
	tracker *progress.Tracker,
	hub Notifier,
	imageTimeoutSec int,
) *ExtractWorker {
	timeout := time.Duration(imageTimeoutSec) * time.Second
	if imageTimeoutSec == 0 {
		timeout = 60 * time.Second
	}
	return &ExtractWorker{
		jobs:         jobs,
		registry:     registry,
		video:        video,
		normalizer:   norm,
		images:       images,
		core:         core,
		billing:      billing,
		storage:      storage,
		dedupe:       checker,
		tracker:      tracker,
		hub:          hub,
		imageTimeout: timeout,
	}
}

// ProcessTask handles a fresh extraction job
func (w *ExtractWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ExtractJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	job, err := w.jobs.GetJob(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", payload.JobID, err)
	}
	if job.Status.IsTerminal() {
		log.Printf("Job %s already %s, skipping", job.ID, job.Status)
		return nil
	}

	log.Printf("Starting extraction job %s (%s)", job.ID, job.SourceType)

	running := model.JobStatusProcessing
	if job.SourceType == model.SourceVideo || job.SourceType == model.SourceLink {
		running = model.JobStatusDownloading
	}
	if err := w.jobs.MarkRunning(ctx, job.ID, running); err != nil {
		return err
	}

	ext, err := w.registry.ForSource(job.SourceType)
	if err != nil {
		return w.fail(ctx, job.ID, "SOURCE_ERROR", "Unsupported source type")
	}

	raw, err := ext.Extract(ctx, job.SourceRef, w.extractSink(ctx, job.ID, running))
	if err != nil {
		return w.handleExtractError(ctx, job, err)
	}

	return w.finalize(ctx, job, raw)
}

// ProcessResume handles the continuation of a job after the client uploaded
// the media the server could not download.
func (w *ExtractWorker) ProcessResume(ctx context.Context, t *asynq.Task) error {
	var payload model.ResumeJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal resume payload: %w", err)
	}

	job, err := w.jobs.GetJob(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", payload.JobID, err)
	}
	if job.Status.IsTerminal() {
		log.Printf("Job %s already %s, skipping resume", job.ID, job.Status)
		return nil
	}

	log.Printf("Resuming extraction job %s from uploaded media", job.ID)

	if err := w.jobs.SetStatus(ctx, job.ID, model.JobStatusProcessing); err != nil {
		return err
	}

	meta := map[string]string{model.MetaOriginalURL: job.SourceRef.URL}
	if platform, videoID, ok := dedupe.ParseVideoURL(job.SourceRef.URL); ok {
		meta[model.MetaPlatform] = string(platform)
		meta[model.MetaVideoID] = videoID
	}

	raw, err := w.video.ProcessMedia(ctx, payload.MediaKey, meta, w.extractSink(ctx, job.ID, model.JobStatusProcessing))
	if err != nil {
		return w.handleExtractError(ctx, job, err)
	}

	return w.finalize(ctx, job, raw)
}

// handleExtractError resolves an extraction failure into the job record. A
// platform block suspends the job once; a second one on the same job means
// the uploaded media itself could not be processed, which is final.
func (w *ExtractWorker) handleExtractError(ctx context.Context, job *model.ExtractionJob, err error) error {
	var blocked *extractor.ClientDownloadRequired
	if errors.As(err, &blocked) {
		if job.HandoffUsed {
			return w.fail(ctx, job.ID, "SOURCE_ERROR", "Media could not be processed after client download")
		}
		handoff, herr := w.jobs.SetHandoff(ctx, job.ID, blocked.DirectMediaURL)
		if herr != nil {
			log.Printf("Failed to suspend job %s for client download: %v", job.ID, herr)
			return herr
		}
		w.hub.BroadcastHandoff(job.ID, *handoff)
		log.Printf("Job %s suspended for client download", job.ID)
		return nil
	}

	var srcErr *extractor.SourceError
	if errors.As(err, &srcErr) {
		log.Printf("Extraction failed for job %s at %s: %v", job.ID, srcErr.Step, srcErr.Err)
		return w.fail(ctx, job.ID, "SOURCE_ERROR", "Could not extract content from the submitted source")
	}

	log.Printf("Extraction failed for job %s: %v", job.ID, err)
	return w.fail(ctx, job.ID, "SOURCE_ERROR", "Could not extract content from the submitted source")
}

// finalize runs the shared tail of the pipeline: normalize, image, save,
// dedupe record, charge. Intermediate artifacts are cleaned up whichever
// way the job ends.
func (w *ExtractWorker) finalize(ctx context.Context, job *model.ExtractionJob, raw *model.RawContent) error {
	defer w.cleanupArtifacts(raw)

	if w.cancelled(ctx, job.ID) {
		return nil
	}

	if err := w.jobs.SetStatus(ctx, job.ID, model.JobStatusNormalizing); err != nil {
		return err
	}
	w.tracker.Report(ctx, job.ID, model.JobStatusNormalizing, progress.NormalizeLo, "Structuring recipe...")

	categories, err := w.core.ListCategories(ctx)
	if err != nil {
		// The normalizer falls back to the built-in category list.
		log.Printf("Failed to list categories for job %s: %v", job.ID, err)
		categories = nil
	}

	recipe, err := w.normalizer.Normalize(ctx, raw, categories)
	if err != nil {
		log.Printf("Normalization failed for job %s: %v", job.ID, err)
		return w.fail(ctx, job.ID, "PROVIDER_ERROR", "Could not turn the content into a recipe")
	}
	w.tracker.Report(ctx, job.ID, model.JobStatusNormalizing, progress.NormalizeHi, "Recipe structured")

	if !recipe.IsRecipe {
		if err := w.jobs.MarkNotARecipe(ctx, job.ID); err != nil {
			return err
		}
		w.hub.BroadcastComplete(job.ID, model.JobStatusNotARecipe, nil)
		log.Printf("Job %s finished: source is not a recipe", job.ID)
		return nil
	}

	if w.cancelled(ctx, job.ID) {
		return nil
	}

	// Image resolution is part of saving; the job status flips first so
	// polls and progress events agree.
	if err := w.jobs.SetStatus(ctx, job.ID, model.JobStatusSaving); err != nil {
		return err
	}

	imageURL := w.resolveImage(ctx, job.ID, raw, recipe)

	if w.cancelled(ctx, job.ID) {
		return nil
	}

	w.tracker.Report(ctx, job.ID, model.JobStatusSaving, progress.SaveLo, "Saving recipe...")

	recipeID, err := w.core.SaveDraftRecipe(ctx, &client.SaveRecipeRequest{
		UserID:         job.UserID,
		Recipe:         recipe,
		ImageURL:       imageURL,
		SourceType:     job.SourceType,
		SourceMetadata: raw.SourceMetadata,
	})
	if err != nil {
		log.Printf("Failed to save recipe for job %s: %v", job.ID, err)
		return w.fail(ctx, job.ID, "PERSISTENCE_ERROR", "Could not save the extracted recipe")
	}

	if err := w.dedupe.Record(ctx, job.SourceType, job.SourceRef, recipeID); err != nil {
		log.Printf("Failed to record source fingerprint for job %s: %v", job.ID, err)
	}

	if err := w.jobs.CompleteJob(ctx, job.ID, recipeID); err != nil {
		// The recipe exists but the job record could not say so; undo the
		// save so a retry does not leave an orphaned draft.
		log.Printf("Failed to complete job %s, deleting draft recipe %s: %v", job.ID, recipeID, err)
		if derr := w.core.DeleteRecipe(context.Background(), recipeID); derr != nil {
			log.Printf("Failed to delete orphaned recipe %s: %v", recipeID, derr)
		}
		return err
	}

	w.charge(ctx, job)

	w.hub.BroadcastComplete(job.ID, model.JobStatusCompleted, &model.ExtractResultResponse{
		JobID:    job.ID,
		Status:   model.JobStatusCompleted,
		RecipeID: recipeID,
	})

	log.Printf("Extraction job %s completed with recipe %s", job.ID, recipeID)
	return nil
}

// resolveImage picks the recipe image: a thumbnail or page image from the
// source when one exists, otherwise a generated one. Failure leaves the
// recipe without an image, never fails the job.
func (w *ExtractWorker) resolveImage(ctx context.Context, jobID string, raw *model.RawContent, recipe *model.NormalizedRecipe) string {
	w.tracker.Report(ctx, jobID, model.JobStatusSaving, progress.ImageLo, "Preparing recipe image...")

	if raw.SourceMetadata != nil {
		if url := raw.SourceMetadata[model.MetaThumbnailURL]; url != "" {
			return url
		}
		if url := raw.SourceMetadata[model.MetaImageURL]; url != "" {
			return url
		}
	}

	if w.images == nil {
		return ""
	}

	imgCtx, cancel := context.WithTimeout(ctx, w.imageTimeout)
	defer cancel()

	url, err := w.images.GenerateImage(imgCtx, recipe.Title, recipe.Description)
	if err != nil {
		log.Printf("Image generation failed for job %s: %v", jobID, err)
		return ""
	}
	w.tracker.Report(ctx, jobID, model.JobStatusSaving, progress.ImageHi, "Recipe image ready")
	return url
}

// charge deducts one extraction unit after the recipe is safely saved. A
// charge failure never un-completes the job; the client gets a warning and
// accounting reconciles later.
func (w *ExtractWorker) charge(ctx context.Context, job *model.ExtractionJob) {
	if w.billing == nil {
		return
	}

	unmetered, err := w.billing.IsUnmetered(ctx, job.UserID)
	if err != nil {
		log.Printf("Plan lookup failed for job %s: %v", job.ID, err)
	}
	if unmetered {
		return
	}

	if err := w.billing.ChargeOneUnit(ctx, job.UserID); err != nil {
		log.Printf("Charge failed for job %s (user %s): %v", job.ID, job.UserID, err)
		w.hub.BroadcastWarning(job.ID, "billing_warning", "Extraction completed but the charge could not be processed")
	}
}

// cancelled re-reads the job between pipeline stages. Cancellation is
// cooperative: an in-flight call finishes, the next stage does not start.
func (w *ExtractWorker) cancelled(ctx context.Context, jobID string) bool {
	job, err := w.jobs.GetJob(ctx, jobID)
	if err != nil {
		log.Printf("Failed to re-read job %s for cancellation check: %v", jobID, err)
		return false
	}
	if job.Status == model.JobStatusCancelled {
		log.Printf("Job %s cancelled, stopping pipeline", jobID)
		return true
	}
	return job.Status.IsTerminal()
}

// extractSink maps an extractor's local 0-100 progress into the extraction
// band of the overall job.
func (w *ExtractWorker) extractSink(ctx context.Context, jobID string, status model.JobStatus) extractor.ProgressSink {
	return func(local int, step string) {
		w.tracker.Report(ctx, jobID, status, progress.Scale(local, progress.ExtractLo, progress.ExtractHi), step)
	}
}

// fail marks the job failed and notifies connected clients. A job that is
// already terminal (cancelled, most likely) is left alone and nothing is
// broadcast.
func (w *ExtractWorker) fail(ctx context.Context, jobID, code, message string) error {
	applied, err := w.jobs.FailJob(ctx, jobID, code, message)
	if err != nil {
		log.Printf("Failed to mark job %s failed: %v", jobID, err)
		return err
	}
	if applied {
		w.hub.BroadcastError(jobID, code, message)
	}
	return nil
}

// cleanupArtifacts deletes intermediate media (extracted audio, frames)
// from object storage. Source URLs that were never ours stay untouched.
func (w *ExtractWorker) cleanupArtifacts(raw *model.RawContent) {
	if raw == nil || w.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, ref := range raw.MediaRefs {
		if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			continue
		}
		if err := w.storage.Delete(ctx, ref); err != nil {
			log.Printf("Failed to delete artifact %s: %v", ref, err)
		}
	}
}
