package progress

import (
	"context"
	"log"

	"github.com/recipeclip/api/internal/model"
)

// Pipeline stage bands. Each stage reports locally in 0-100 and is scaled
// into its band, so the overall number only ever moves forward.
const (
	ExtractLo   = 0
	ExtractHi   = 70
	NormalizeLo = 70
	NormalizeHi = 80
	ImageLo     = 80
	ImageHi     = 90
	SaveLo      = 90
	SaveHi      = 100
)

// Store persists a progress update and reports whether it was applied.
// Stale (non-monotonic) updates come back applied=false.
type Store interface {
	UpdateProgress(ctx context.Context, jobID string, progress int, step string) (bool, error)
}

// Publisher pushes an applied update to connected clients.
type Publisher interface {
	BroadcastProgress(jobID string, progress int, status model.JobStatus, step string)
}

// Tracker routes progress updates: persist first, then broadcast. A failed
// or dropped persist never reaches clients, so websocket consumers and
// status polls always agree.
type Tracker struct {
	store     Store
	publisher Publisher
}

// NewTracker creates a new progress tracker
func NewTracker(store Store, publisher Publisher) *Tracker {
	return &Tracker{store: store, publisher: publisher}
}

// Scale maps a stage-local percentage onto the [lo, hi] band.
func Scale(local, lo, hi int) int {
	if local < 0 {
		local = 0
	}
	if local > 100 {
		local = 100
	}
	return lo + local*(hi-lo)/100
}

// Report persists a progress update and, if it was applied, publishes it.
// Progress delivery is best-effort: errors are logged and swallowed so a
// broken reporting path never fails the job itself.
func (t *Tracker) Report(ctx context.Context, jobID string, status model.JobStatus, percent int, step string) {
	applied, err := t.store.UpdateProgress(ctx, jobID, percent, step)
	if err != nil {
		log.Printf("Failed to persist progress for job %s: %v", jobID, err)
		return
	}
	if !applied {
		return
	}
	t.publish(jobID, percent, status, step)
}

func (t *Tracker) publish(jobID string, percent int, status model.JobStatus, step string) {
	if t.publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Progress broadcast panicked for job %s: %v", jobID, r)
		}
	}()
	t.publisher.BroadcastProgress(jobID, percent, status, step)
}
