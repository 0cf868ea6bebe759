package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parcelroute/internal/domain"
	"parcelroute/internal/redis"
	"parcelroute/internal/repository"
)

const (
	defaultNearbyRadiusKm = 5.0
	maxNearbyRadiusKm     = 50.0
)

// TravelerService handles traveler profiles and positions.
type TravelerService struct {
	locationStore redis.LocationStoreInterface
	travelerRepo  repository.TravelerRepository
}

// NewTravelerService creates a new TravelerService.
func NewTravelerService(
	locationStore redis.LocationStoreInterface,
	travelerRepo repository.TravelerRepository,
) *TravelerService {
	return &TravelerService{
		locationStore: locationStore,
		travelerRepo:  travelerRepo,
	}
}

// RegisterTravelerRequest declares a traveler's journey and spare capacity.
type RegisterTravelerRequest struct {
	TravelerID   string // admins may register on behalf of a traveler
	Name         string
	JourneyID    string
	Route        []domain.Location
	Capacity     domain.Capacity
	Availability domain.AvailabilityWindow
	Reliability  *float64 // admin only
}

// RegisterTraveler creates or replaces the caller's traveler profile. The
// in-flight count and the reliability score survive re-registration.
func (s *TravelerService) RegisterTraveler(ctx context.Context, p domain.Principal, req RegisterTravelerRequest) (*domain.TravelerCandidate, error) {
	travelerID := p.UserID
	if p.IsAdmin() && req.TravelerID != "" {
		travelerID = req.TravelerID
	}
	if travelerID == "" {
		return nil, ErrInvalidTravelerID
	}
	if req.TravelerID != "" && req.TravelerID != travelerID {
		return nil, fmt.Errorf("%w: cannot register another traveler", domain.ErrForbidden)
	}

	if req.Capacity.MaxWeightKg <= 0 || req.Capacity.MaxVolumeCm3 <= 0 {
		return nil, ErrInvalidCapacity
	}
	if len(req.Route) == 0 {
		return nil, ErrInvalidRoute
	}
	for _, wp := range req.Route {
		if !wp.Valid() {
			return nil, ErrInvalidRoute
		}
	}
	w := req.Availability
	if !w.From.IsZero() && !w.To.IsZero() && w.To.Before(w.From) {
		return nil, fmt.Errorf("%w: availability window ends before it starts", domain.ErrValidation)
	}
	if req.Reliability != nil && (*req.Reliability < 0 || *req.Reliability > 5) {
		return nil, fmt.Errorf("%w: reliability must be within [0,5]", domain.ErrValidation)
	}

	existing, err := s.travelerRepo.GetByID(ctx, travelerID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	traveler := &domain.TravelerCandidate{
		TravelerID:   travelerID,
		Name:         req.Name,
		JourneyID:    req.JourneyID,
		Route:        req.Route,
		Capacity:     req.Capacity,
		Availability: req.Availability,
		Status:       domain.TravelerStatusIdle,
		UpdatedAt:    time.Now(),
	}
	if traveler.JourneyID == "" {
		traveler.JourneyID = uuid.New().String()
	}
	if existing != nil {
		traveler.Reliability = existing.Reliability
		traveler.InFlightPackages = existing.InFlightPackages
		if existing.InFlightPackages > 0 {
			traveler.Status = domain.TravelerStatusActive
		}
	}
	if req.Reliability != nil && p.IsAdmin() {
		traveler.Reliability = *req.Reliability
	}

	if err := s.travelerRepo.Upsert(ctx, traveler); err != nil {
		return nil, err
	}
	return traveler, nil
}

// GetTraveler retrieves a traveler profile.
func (s *TravelerService) GetTraveler(ctx context.Context, travelerID string) (*domain.TravelerCandidate, error) {
	if travelerID == "" {
		return nil, ErrInvalidTravelerID
	}
	return s.travelerRepo.GetByID(ctx, travelerID)
}

// EndJourney takes a traveler out of matching. It fails while the traveler
// still carries packages.
func (s *TravelerService) EndJourney(ctx context.Context, p domain.Principal, travelerID string) error {
	if travelerID == "" {
		return ErrInvalidTravelerID
	}
	if !p.IsAdmin() && p.UserID != travelerID {
		return fmt.Errorf("%w: cannot end another traveler's journey", domain.ErrForbidden)
	}

	traveler, err := s.travelerRepo.GetByID(ctx, travelerID)
	if err != nil {
		return err
	}
	if traveler.InFlightPackages > 0 {
		return ErrTravelerCarrying
	}

	traveler.Status = domain.TravelerStatusCompleted
	traveler.UpdatedAt = time.Now()
	if err := s.travelerRepo.Upsert(ctx, traveler); err != nil {
		return err
	}

	return s.locationStore.RemoveLocation(ctx, travelerID)
}

// UpdateLocationRequest contains the parameters for updating a traveler's position.
type UpdateLocationRequest struct {
	TravelerID string
	Lat        float64
	Lng        float64
}

// UpdateLocation records a traveler's position in the geo index.
func (s *TravelerService) UpdateLocation(ctx context.Context, p domain.Principal, req UpdateLocationRequest) error {
	if req.TravelerID == "" {
		return ErrInvalidTravelerID
	}
	if !p.IsAdmin() && p.UserID != req.TravelerID {
		return fmt.Errorf("%w: cannot move another traveler", domain.ErrForbidden)
	}
	if !domain.ValidLatitude(req.Lat) || !domain.ValidLongitude(req.Lng) {
		return ErrInvalidLocation
	}

	return s.locationStore.UpdateLocation(ctx, req.TravelerID, req.Lat, req.Lng)
}

// Nearby returns travelers whose last position lies within radiusKm,
// nearest first.
func (s *TravelerService) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]redis.TravelerLocation, error) {
	if !domain.ValidLatitude(lat) || !domain.ValidLongitude(lng) {
		return nil, ErrInvalidLocation
	}
	if radiusKm <= 0 {
		radiusKm = defaultNearbyRadiusKm
	}
	if radiusKm > maxNearbyRadiusKm {
		radiusKm = maxNearbyRadiusKm
	}
	return s.locationStore.FindNearby(ctx, lat, lng, radiusKm)
}
