package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeclip/api/internal/dedupe"
	"github.com/recipeclip/api/internal/model"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: uuid.New().String(), Type: task.Type()}, nil
}

func newTestService(t *testing.T) (*ExtractionService, *fakeEnqueuer) {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })

	enq := &fakeEnqueuer{}
	return NewExtractionService(rdb, enq, dedupe.NewChecker(rdb), nil, 30), enq
}

func TestSubmit_DuplicateLinkReturnsExistingRecipe(t *testing.T) {
	svc, enq := newTestService(t)
	ctx := context.Background()

	base := fmt.Sprintf("https://blog.test/recipes/%s", uuid.New().String())
	first, err := svc.Submit(ctx, "user-1", &model.ExtractSubmitRequest{
		SourceType: model.SourceLink,
		URL:        base + "?utm_source=share",
	})
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, model.JobStatusPending, first.Status)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskTypeExtract, enq.tasks[0].Type())

	// What the worker does once the first extraction lands a recipe.
	job, err := svc.GetJob(ctx, first.JobID)
	require.NoError(t, err)
	require.NoError(t, svc.dedupe.Record(ctx, model.SourceLink, job.SourceRef, "recipe-42"))
	require.NoError(t, svc.CompleteJob(ctx, first.JobID, "recipe-42"))

	// Same page shared through a different channel, different user.
	second, err := svc.Submit(ctx, "user-2", &model.ExtractSubmitRequest{
		SourceType: model.SourceLink,
		URL:        base + "?utm_medium=social&fbclid=abc123",
	})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, "recipe-42", second.RecipeID)
	assert.Equal(t, model.JobStatusCompleted, second.Status)
	assert.NotEqual(t, first.JobID, second.JobID)
	// The second submission never reached the queue.
	assert.Len(t, enq.tasks, 1)

	status, err := svc.GetStatus(ctx, "user-2", second.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, status.Status)
	assert.Equal(t, 100, status.Progress)
}

func TestSubmit_PasteNeverDeduplicates(t *testing.T) {
	svc, enq := newTestService(t)
	ctx := context.Background()

	text := "Carbonara: eggs, guanciale, pecorino " + uuid.New().String()
	req := &model.ExtractSubmitRequest{SourceType: model.SourcePaste, Text: text}

	first, err := svc.Submit(ctx, "user-1", req)
	require.NoError(t, err)
	second, err := svc.Submit(ctx, "user-1", req)
	require.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.False(t, second.Duplicate)
	assert.Len(t, enq.tasks, 2)
}

func TestResume_TokenIsSingleUse(t *testing.T) {
	svc, enq := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "user-1", &model.ExtractSubmitRequest{
		SourceType: model.SourceVideo,
		URL:        "https://www.instagram.com/reel/" + uuid.New().String()[:8] + "/",
	})
	require.NoError(t, err)

	handoff, err := svc.SetHandoff(ctx, sub.JobID, "https://cdn.ig.test/media.mp4")
	require.NoError(t, err)
	require.NotEmpty(t, handoff.ResumeToken)

	resume := &model.ExtractResumeRequest{
		ResumeToken: handoff.ResumeToken,
		MediaKey:    "uploads/user-1/media.mp4",
	}
	status, err := svc.Resume(ctx, "user-1", sub.JobID, resume)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusDownloading, status.Status)
	assert.Nil(t, status.Handoff)
	require.Len(t, enq.tasks, 2)
	assert.Equal(t, TaskTypeResume, enq.tasks[1].Type())

	// A second upload with the same token is a hard failure, not a
	// silent re-run.
	_, err = svc.Resume(ctx, "user-1", sub.JobID, resume)
	assert.ErrorIs(t, err, ErrInvalidResumeToken)
	assert.Len(t, enq.tasks, 2)
}

func TestResume_WrongToken(t *testing.T) {
	svc, enq := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "user-1", &model.ExtractSubmitRequest{
		SourceType: model.SourceVideo,
		URL:        "https://www.instagram.com/reel/" + uuid.New().String()[:8] + "/",
	})
	require.NoError(t, err)

	_, err = svc.SetHandoff(ctx, sub.JobID, "https://cdn.ig.test/media.mp4")
	require.NoError(t, err)

	_, err = svc.Resume(ctx, "user-1", sub.JobID, &model.ExtractResumeRequest{
		ResumeToken: uuid.New().String(),
		MediaKey:    "uploads/user-1/media.mp4",
	})
	assert.ErrorIs(t, err, ErrInvalidResumeToken)

	// The job stays suspended and resumable with the real token.
	job, err := svc.GetJob(ctx, sub.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusNeedsClientDownload, job.Status)
	require.NotNil(t, job.Handoff)
	assert.Len(t, enq.tasks, 1)
}

func TestResume_ExpiredToken(t *testing.T) {
	svc, enq := newTestService(t)
	svc.handoffTTL = -time.Minute
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "user-1", &model.ExtractSubmitRequest{
		SourceType: model.SourceVideo,
		URL:        "https://www.instagram.com/reel/" + uuid.New().String()[:8] + "/",
	})
	require.NoError(t, err)

	handoff, err := svc.SetHandoff(ctx, sub.JobID, "https://cdn.ig.test/media.mp4")
	require.NoError(t, err)

	_, err = svc.Resume(ctx, "user-1", sub.JobID, &model.ExtractResumeRequest{
		ResumeToken: handoff.ResumeToken,
		MediaKey:    "uploads/user-1/media.mp4",
	})
	assert.ErrorIs(t, err, ErrInvalidResumeToken)
	assert.Len(t, enq.tasks, 1)
}
