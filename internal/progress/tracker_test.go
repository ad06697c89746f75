package progress

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/recipeclip/api/internal/model"
)

type fakeStore struct {
	applied bool
	err     error
	updates []int
}

func (f *fakeStore) UpdateProgress(_ context.Context, _ string, progress int, _ string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.updates = append(f.updates, progress)
	return f.applied, nil
}

type fakePublisher struct {
	published []int
	panics    bool
}

func (f *fakePublisher) BroadcastProgress(_ string, progress int, _ model.JobStatus, _ string) {
	if f.panics {
		panic("broadcast channel closed")
	}
	f.published = append(f.published, progress)
}

func TestScale(t *testing.T) {
	tests := []struct {
		local, lo, hi, want int
	}{
		{0, 0, 70, 0},
		{50, 0, 70, 35},
		{100, 0, 70, 70},
		{0, 70, 80, 70},
		{100, 70, 80, 80},
		{50, 90, 100, 95},
		{-10, 0, 70, 0},
		{150, 0, 70, 70},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d in [%d,%d]", tt.local, tt.lo, tt.hi), func(t *testing.T) {
			assert.Equal(t, tt.want, Scale(tt.local, tt.lo, tt.hi))
		})
	}
}

func TestReport_PublishesAppliedUpdates(t *testing.T) {
	store := &fakeStore{applied: true}
	pub := &fakePublisher{}
	tr := NewTracker(store, pub)

	tr.Report(context.Background(), "job-1", model.JobStatusProcessing, 42, "Transcribing...")

	assert.Equal(t, []int{42}, store.updates)
	assert.Equal(t, []int{42}, pub.published)
}

func TestReport_DroppedUpdateIsNotPublished(t *testing.T) {
	store := &fakeStore{applied: false}
	pub := &fakePublisher{}
	tr := NewTracker(store, pub)

	tr.Report(context.Background(), "job-1", model.JobStatusProcessing, 30, "stale")

	assert.Empty(t, pub.published, "a stale update must never reach clients")
}

func TestReport_StoreErrorIsNotPublished(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("redis down")}
	pub := &fakePublisher{}
	tr := NewTracker(store, pub)

	tr.Report(context.Background(), "job-1", model.JobStatusProcessing, 30, "step")

	assert.Empty(t, pub.published)
}

func TestReport_PublisherPanicIsContained(t *testing.T) {
	store := &fakeStore{applied: true}
	tr := NewTracker(store, &fakePublisher{panics: true})

	assert.NotPanics(t, func() {
		tr.Report(context.Background(), "job-1", model.JobStatusProcessing, 10, "step")
	})
}

func TestReport_NilPublisher(t *testing.T) {
	tr := NewTracker(&fakeStore{applied: true}, nil)

	assert.NotPanics(t, func() {
		tr.Report(context.Background(), "job-1", model.JobStatusProcessing, 10, "step")
	})
}
