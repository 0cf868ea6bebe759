package events

import (
	"context"
	"sync"
)

// Recorder keeps published events in memory. Tests use it to assert on what
// a service emitted.
type Recorder struct {
	mu    sync.Mutex
	trips []TripEvent
	fixes []FixEvent
}

func (r *Recorder) PublishTrip(_ context.Context, evt TripEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trips = append(r.trips, evt)
	return nil
}

func (r *Recorder) PublishFix(_ context.Context, evt FixEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixes = append(r.fixes, evt)
	return nil
}

func (r *Recorder) Close() error { return nil }

// TripEvents returns a copy of the recorded trip events.
func (r *Recorder) TripEvents() []TripEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TripEvent(nil), r.trips...)
}

// FixEvents returns a copy of the recorded fix events.
func (r *Recorder) FixEvents() []FixEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FixEvent(nil), r.fixes...)
}

var _ Publisher = (*Recorder)(nil)
