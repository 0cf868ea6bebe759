package handler

import (
	"time"

	"parcelroute/internal/domain"
)

// LocationDTO is a point on the wire.
type LocationDTO struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

func (l LocationDTO) toDomain() domain.Location {
	return domain.Location{Lat: l.Lat, Lng: l.Lng, Address: l.Address}
}

func newLocationDTO(l domain.Location) LocationDTO {
	return LocationDTO{Lat: l.Lat, Lng: l.Lng, Address: l.Address}
}

// DimensionsDTO are package measurements in centimeters.
type DimensionsDTO struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PackageDTO describes a parcel on the wire.
type PackageDTO struct {
	Description string         `json:"description,omitempty"`
	Weight      float64        `json:"weightKg"`
	Dimensions  *DimensionsDTO `json:"dimensions,omitempty"`
	Type        string         `json:"type,omitempty"`
}

func (p PackageDTO) toDomain() domain.PackageDetails {
	pkg := domain.PackageDetails{
		Description: p.Description,
		WeightKg:    p.Weight,
		Type:        p.Type,
	}
	if d := p.Dimensions; d != nil {
		pkg.Dimensions = &domain.Dimensions{LengthCm: d.Length, WidthCm: d.Width, HeightCm: d.Height}
	}
	return pkg
}

func newPackageDTO(p domain.PackageDetails) PackageDTO {
	dto := PackageDTO{Description: p.Description, Weight: p.WeightKg, Type: p.Type}
	if d := p.Dimensions; d != nil {
		dto.Dimensions = &DimensionsDTO{Length: d.LengthCm, Width: d.WidthCm, Height: d.HeightCm}
	}
	return dto
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	ID                  string       `json:"id"`
	ShipperID           string       `json:"shipperId"`
	TravelerID          string       `json:"travelerId,omitempty"`
	Status              string       `json:"status"`
	Origin              LocationDTO  `json:"origin"`
	Destination         LocationDTO  `json:"destination"`
	PackageDetails      PackageDTO   `json:"packageDetails"`
	Fare                float64      `json:"fare"`
	CurrentLocation     *LocationDTO `json:"currentLocation,omitempty"`
	StatusVersion       int64        `json:"statusVersion"`
	EstimatedDeliveryAt *time.Time   `json:"estimatedDeliveryTime,omitempty"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

func newTripResponse(t *domain.Trip) TripResponse {
	resp := TripResponse{
		ID:             t.ID,
		ShipperID:      t.ShipperID,
		TravelerID:     t.TravelerID,
		Status:         string(t.Status),
		Origin:         newLocationDTO(t.Origin),
		Destination:    newLocationDTO(t.Destination),
		PackageDetails: newPackageDTO(t.Package),
		Fare:           t.Fare,
		StatusVersion:  t.StatusVersion,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.CurrentLocation != nil {
		loc := newLocationDTO(*t.CurrentLocation)
		resp.CurrentLocation = &loc
	}
	if !t.EstimatedDeliveryAt.IsZero() {
		eta := t.EstimatedDeliveryAt
		resp.EstimatedDeliveryAt = &eta
	}
	return resp
}

// MatchResultResponse is one ranked traveler.
type MatchResultResponse struct {
	TravelerID              string  `json:"travelerId"`
	MatchingTripID          string  `json:"matchingTripId"`
	EstimatedDetourDistance float64 `json:"estimatedDetourDistance"`
	EstimatedDetourDuration float64 `json:"estimatedDetourDuration"`
	EstimatedCost           float64 `json:"estimatedCost"`
	EstimatedEarnings       float64 `json:"estimatedEarnings"`
	Reliability             float64 `json:"reliability"`
	Rank                    int     `json:"rank"`
}

func newMatchResultResponse(r domain.MatchResult) MatchResultResponse {
	return MatchResultResponse{
		TravelerID:              r.TravelerID,
		MatchingTripID:          r.MatchingTripID,
		EstimatedDetourDistance: r.EstimatedDetourDistance,
		EstimatedDetourDuration: r.EstimatedDetourDuration,
		EstimatedCost:           r.EstimatedCost,
		EstimatedEarnings:       r.EstimatedEarnings,
		Reliability:             r.Reliability,
		Rank:                    r.Rank,
	}
}

// PaymentResponse is the HTTP response for escrow records.
type PaymentResponse struct {
	ID         string    `json:"id"`
	TripID     string    `json:"tripId"`
	ShipperID  string    `json:"shipperId"`
	TravelerID string    `json:"travelerId"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID,
		TripID:     p.TripID,
		ShipperID:  p.ShipperID,
		TravelerID: p.TravelerID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// FixResponse is one stored GPS fix.
type FixResponse struct {
	ID        string    `json:"id"`
	TripID    string    `json:"tripId"`
	UserID    string    `json:"userId"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newFixResponse(f *domain.GPSFix) FixResponse {
	return FixResponse{
		ID:        f.ID,
		TripID:    f.TripID,
		UserID:    f.UserID,
		Lat:       f.Lat,
		Lng:       f.Lng,
		Accuracy:  f.Accuracy,
		Speed:     f.Speed,
		Altitude:  f.Altitude,
		Timestamp: f.Timestamp,
	}
}

// TravelerResponse is the HTTP response for traveler profiles.
type TravelerResponse struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	JourneyID        string        `json:"journeyId"`
	Route            []LocationDTO `json:"route"`
	MaxWeightKg      float64       `json:"maxWeightKg"`
	MaxVolumeCm3     float64       `json:"maxVolume"`
	AvailableFrom    *time.Time    `json:"availableFrom,omitempty"`
	AvailableTo      *time.Time    `json:"availableTo,omitempty"`
	Reliability      float64       `json:"reliability"`
	Status           string        `json:"status"`
	InFlightPackages int           `json:"inFlightPackages"`
}

func newTravelerResponse(t *domain.TravelerCandidate) TravelerResponse {
	route := make([]LocationDTO, 0, len(t.Route))
	for _, wp := range t.Route {
		route = append(route, newLocationDTO(wp))
	}
	resp := TravelerResponse{
		ID:               t.TravelerID,
		Name:             t.Name,
		JourneyID:        t.JourneyID,
		Route:            route,
		MaxWeightKg:      t.Capacity.MaxWeightKg,
		MaxVolumeCm3:     t.Capacity.MaxVolumeCm3,
		Reliability:      t.Reliability,
		Status:           string(t.Status),
		InFlightPackages: t.InFlightPackages,
	}
	if from := t.Availability.From; !from.IsZero() {
		resp.AvailableFrom = &from
	}
	if to := t.Availability.To; !to.IsZero() {
		resp.AvailableTo = &to
	}
	return resp
}

// DisputeResponse is the JSON shape of a dispute record.
type DisputeResponse struct {
	ID                string     `json:"id"`
	TripID            string     `json:"tripId"`
	ReporterID        string     `json:"userId"`
	Type              string     `json:"type"`
	Description       string     `json:"description"`
	Evidence          []string   `json:"evidence"`
	Status            string     `json:"status"`
	Outcome           string     `json:"outcome,omitempty"`
	ResolvedBy        string     `json:"resolvedBy,omitempty"`
	ResolutionDetails string     `json:"resolutionDetails,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
}

func newDisputeResponse(d *domain.Dispute) DisputeResponse {
	evidence := d.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	return DisputeResponse{
		ID:                d.ID,
		TripID:            d.TripID,
		ReporterID:        d.ReporterID,
		Type:              string(d.Type),
		Description:       d.Description,
		Evidence:          evidence,
		Status:            string(d.Status),
		Outcome:           string(d.Outcome),
		ResolvedBy:        d.ResolvedBy,
		ResolutionDetails: d.ResolutionDetails,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		ResolvedAt:        d.ResolvedAt,
	}
}

// DisputedTripResponse pairs a trip with the dispute that moved it.
type DisputedTripResponse struct {
	Trip    TripResponse     `json:"trip"`
	Dispute *DisputeResponse `json:"dispute,omitempty"`
}

func newDisputedTripResponse(t *domain.Trip, d *domain.Dispute) DisputedTripResponse {
	resp := DisputedTripResponse{Trip: newTripResponse(t)}
	if d != nil {
		dr := newDisputeResponse(d)
		resp.Dispute = &dr
	}
	return resp
}

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	ReadAt    *time.Time        `json:"readAt,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

func newNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Body,
		Data:      n.Data,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
