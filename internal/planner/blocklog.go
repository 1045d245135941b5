package planner

import (
	"time"

	"github.com/printfleet/printfleet-api/internal/models"
)

// BlockRecorder receives structured block-reason events for diagnostics.
// The stream is append-only and purely advisory; the planner never reads it
// back.
type BlockRecorder interface {
	Record(event models.BlockEvent)
}

// NopRecorder discards every event. Used for dry-run simulations.
type NopRecorder struct{}

// Record implements BlockRecorder.
func (NopRecorder) Record(models.BlockEvent) {}

// BufferRecorder collects events in memory, capped at a fixed retention count.
// Oldest events are dropped first once the cap is exceeded.
type BufferRecorder struct {
	cap    int
	events []models.BlockEvent
}

// NewBufferRecorder builds a recorder retaining at most cap events.
func NewBufferRecorder(cap int) *BufferRecorder {
	if cap <= 0 {
		cap = 500
	}
	return &BufferRecorder{cap: cap}
}

// Record implements BlockRecorder.
func (r *BufferRecorder) Record(event models.BlockEvent) {
	r.events = append(r.events, event)
	if len(r.events) > r.cap {
		r.events = r.events[len(r.events)-r.cap:]
	}
}

// Events returns the retained events in arrival order.
func (r *BufferRecorder) Events() []models.BlockEvent {
	return r.events
}

func blockEvent(reason models.BlockReason, at time.Time, projectID, printerID, presetID, detail string) models.BlockEvent {
	return models.BlockEvent{
		Reason:    reason,
		ProjectID: projectID,
		PrinterID: printerID,
		PresetID:  presetID,
		Detail:    detail,
		At:        at,
	}
}
