package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"parcelroute/internal/domain"
	"parcelroute/internal/service"
)

// TravelerHandler handles HTTP requests for travelers.
type TravelerHandler struct {
	travelerService *service.TravelerService
}

// NewTravelerHandler creates a new TravelerHandler.
func NewTravelerHandler(travelerService *service.TravelerService) *TravelerHandler {
	return &TravelerHandler{travelerService: travelerService}
}

// RegisterTravelerRequest is the HTTP request body for declaring a journey.
type RegisterTravelerRequest struct {
	TravelerID    string        `json:"travelerId"`
	Name          string        `json:"name"`
	JourneyID     string        `json:"journeyId"`
	Route         []LocationDTO `json:"route" binding:"required"`
	MaxWeightKg   float64       `json:"maxWeightKg"`
	MaxVolume     float64       `json:"maxVolume"`
	AvailableFrom *time.Time    `json:"availableFrom"`
	AvailableTo   *time.Time    `json:"availableTo"`
	Reliability   *float64      `json:"reliability"`
}

// UpdateLocationRequest is the HTTP request body for updating traveler location.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NearbyTraveler is one entry of the nearby search.
type NearbyTraveler struct {
	TravelerID string  `json:"travelerId"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	DistanceKm float64 `json:"distanceKm"`
}

// Register handles POST /v1/travelers
func (h *TravelerHandler) Register(c *gin.Context) {
	var req RegisterTravelerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "route is required")
		return
	}

	route := make([]domain.Location, 0, len(req.Route))
	for _, wp := range req.Route {
		route = append(route, wp.toDomain())
	}

	var window domain.AvailabilityWindow
	if req.AvailableFrom != nil {
		window.From = *req.AvailableFrom
	}
	if req.AvailableTo != nil {
		window.To = *req.AvailableTo
	}

	traveler, err := h.travelerService.RegisterTraveler(c.Request.Context(), principal(c), service.RegisterTravelerRequest{
		TravelerID:   req.TravelerID,
		Name:         req.Name,
		JourneyID:    req.JourneyID,
		Route:        route,
		Capacity:     domain.Capacity{MaxWeightKg: req.MaxWeightKg, MaxVolumeCm3: req.MaxVolume},
		Availability: window,
		Reliability:  req.Reliability,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTravelerResponse(traveler))
}

// GetTraveler handles GET /v1/travelers/:id
func (h *TravelerHandler) GetTraveler(c *gin.Context) {
	traveler, err := h.travelerService.GetTraveler(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTravelerResponse(traveler))
}

// EndJourney handles POST /v1/travelers/:id/complete
func (h *TravelerHandler) EndJourney(c *gin.Context) {
	if err := h.travelerService.EndJourney(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateLocation handles PUT /v1/travelers/:id/location
func (h *TravelerHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	err := h.travelerService.UpdateLocation(c.Request.Context(), principal(c), service.UpdateLocationRequest{
		TravelerID: c.Param("id"),
		Lat:        req.Lat,
		Lng:        req.Lng,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Nearby handles GET /v1/travelers/nearby?lat=&lng=&radius_km=
func (h *TravelerHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		respondBadRequest(c, "lat and lng are required")
		return
	}
	radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)

	locations, err := h.travelerService.Nearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]NearbyTraveler, 0, len(locations))
	for _, l := range locations {
		response = append(response, NearbyTraveler{
			TravelerID: l.TravelerID,
			Lat:        l.Lat,
			Lng:        l.Lng,
			DistanceKm: l.DistanceKm,
		})
	}

	respondJSON(c, http.StatusOK, response)
}
