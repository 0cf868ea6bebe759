// Package realtime keeps the in-memory membership of trip rooms and the
// WebSocket connections that belong to them.
package realtime

import (
	"context"
	"fmt"
	"sync"

	"parcelroute/internal/domain"
	"parcelroute/internal/observability"
)

// ErrNotRoomMember is returned when a caller may not join a trip's room.
var ErrNotRoomMember = fmt.Errorf("%w: not a participant of this trip", domain.ErrForbidden)

// Handle is one connected client as seen by the registry.
type Handle interface {
	ID() string
	Principal() domain.Principal
	// Send queues evt for delivery without blocking. It reports whether the
	// event was queued.
	Send(evt Event) bool
}

// TripReader loads the trip a room belongs to.
type TripReader interface {
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
}

type room struct {
	mu      sync.RWMutex
	members map[string]Handle
	closed  bool // set once the room is unlinked from the registry
}

// Registry maps trip ids to the handles currently in each trip's room.
// Membership changes and broadcasts for one room serialize on that room's
// lock; distinct rooms never contend.
type Registry struct {
	trips TripReader

	mu    sync.Mutex // guards rooms map only
	rooms map[string]*room

	memberships sync.Map // handle id -> *handleRooms
}

type handleRooms struct {
	mu    sync.Mutex
	trips map[string]struct{}
}

// NewRegistry creates an empty Registry authorizing joins against trips.
func NewRegistry(trips TripReader) *Registry {
	return &Registry{trips: trips, rooms: make(map[string]*room)}
}

// Authorize checks that p may enter the trip's room and returns the trip.
func (r *Registry) Authorize(ctx context.Context, tripID string, p domain.Principal) (*domain.Trip, error) {
	if tripID == "" {
		return nil, fmt.Errorf("%w: tripId is required", domain.ErrValidation)
	}
	trip, err := r.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !trip.IsParticipant(p.UserID) {
		return nil, ErrNotRoomMember
	}
	return trip, nil
}

// Join adds h to the trip's room after authorizing it. Joining a room the
// handle is already in is a no-op.
func (r *Registry) Join(ctx context.Context, tripID string, h Handle) error {
	if _, err := r.Authorize(ctx, tripID, h.Principal()); err != nil {
		return err
	}

	for {
		rm := r.getOrCreate(tripID)
		rm.mu.Lock()
		if rm.closed {
			// Lost a race with the last member leaving; retry on a fresh room.
			rm.mu.Unlock()
			continue
		}
		rm.members[h.ID()] = h
		rm.mu.Unlock()
		break
	}

	hr := r.handleRooms(h.ID())
	hr.mu.Lock()
	hr.trips[tripID] = struct{}{}
	hr.mu.Unlock()
	return nil
}

// Leave removes h from the trip's room. Leaving a room the handle is not in
// is a no-op. Once Leave returns, no later Broadcast reaches h.
func (r *Registry) Leave(tripID string, h Handle) {
	r.mu.Lock()
	rm := r.rooms[tripID]
	r.mu.Unlock()

	if rm != nil {
		rm.mu.Lock()
		delete(rm.members, h.ID())
		if len(rm.members) == 0 && !rm.closed {
			rm.closed = true
			r.mu.Lock()
			if r.rooms[tripID] == rm {
				delete(r.rooms, tripID)
				observability.ActiveRooms.Dec()
			}
			r.mu.Unlock()
		}
		rm.mu.Unlock()
	}

	if v, ok := r.memberships.Load(h.ID()); ok {
		hr := v.(*handleRooms)
		hr.mu.Lock()
		delete(hr.trips, tripID)
		hr.mu.Unlock()
	}
}

// LeaveAll removes h from every room it joined and returns those trip ids.
func (r *Registry) LeaveAll(h Handle) []string {
	trips := r.Rooms(h.ID())
	for _, tripID := range trips {
		r.Leave(tripID, h)
	}
	r.memberships.Delete(h.ID())
	return trips
}

// Broadcast delivers evt to every member of the trip's room except the
// handle with id exclude (pass "" to exclude nobody). It returns how many
// handles accepted the event.
func (r *Registry) Broadcast(tripID string, evt Event, exclude string) int {
	r.mu.Lock()
	rm := r.rooms[tripID]
	r.mu.Unlock()
	if rm == nil {
		return 0
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	delivered := 0
	for id, h := range rm.members {
		if id == exclude {
			continue
		}
		if h.Send(evt) {
			delivered++
		}
	}
	return delivered
}

// IsMember reports whether the handle is in the trip's room.
func (r *Registry) IsMember(tripID, handleID string) bool {
	rm := r.get(tripID)
	if rm == nil {
		return false
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	_, ok := rm.members[handleID]
	return ok
}

// HasUser reports whether any handle of userID is in the trip's room.
func (r *Registry) HasUser(tripID, userID string) bool {
	rm := r.get(tripID)
	if rm == nil {
		return false
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	for _, h := range rm.members {
		if h.Principal().UserID == userID {
			return true
		}
	}
	return false
}

// MemberCount returns the number of handles in the trip's room.
func (r *Registry) MemberCount(tripID string) int {
	rm := r.get(tripID)
	if rm == nil {
		return 0
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.members)
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Rooms returns the trip ids the handle has joined.
func (r *Registry) Rooms(handleID string) []string {
	v, ok := r.memberships.Load(handleID)
	if !ok {
		return nil
	}
	hr := v.(*handleRooms)
	hr.mu.Lock()
	defer hr.mu.Unlock()
	out := make([]string, 0, len(hr.trips))
	for id := range hr.trips {
		out = append(out, id)
	}
	return out
}

func (r *Registry) get(tripID string) *room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[tripID]
}

func (r *Registry) getOrCreate(tripID string) *room {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[tripID]
	if !ok {
		rm = &room{members: make(map[string]Handle)}
		r.rooms[tripID] = rm
		observability.ActiveRooms.Inc()
	}
	return rm
}

func (r *Registry) handleRooms(handleID string) *handleRooms {
	v, _ := r.memberships.LoadOrStore(handleID, &handleRooms{trips: make(map[string]struct{})})
	return v.(*handleRooms)
}
