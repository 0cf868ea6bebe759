package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"parcelroute/internal/domain"
	"parcelroute/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// CreateTripRequest is the HTTP request body for creating a trip.
type CreateTripRequest struct {
	Origin                *LocationDTO `json:"origin" binding:"required"`
	Destination           *LocationDTO `json:"destination" binding:"required"`
	PackageDetails        *PackageDTO  `json:"packageDetails" binding:"required"`
	Fare                  float64      `json:"fare"`
	EstimatedDeliveryTime *time.Time   `json:"estimatedDeliveryTime"`
}

// AcceptMatchRequest is the HTTP request body for accepting a match.
type AcceptMatchRequest struct {
	TravelerID string `json:"travelerId" binding:"required"`
}

// ReportDisputeRequest is the HTTP request body for disputing a trip.
type ReportDisputeRequest struct {
	Type        string   `json:"type" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Evidence    []string `json:"evidence"`
}

// ResolveDisputeRequest is the HTTP request body for resolving a dispute.
type ResolveDisputeRequest struct {
	Outcome           string `json:"outcome" binding:"required"`
	ResolutionDetails string `json:"resolutionDetails" binding:"required"`
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "origin, destination and packageDetails are required")
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), principal(c), service.CreateTripRequest{
		Origin:              req.Origin.toDomain(),
		Destination:         req.Destination.toDomain(),
		Package:             req.PackageDetails.toDomain(),
		Fare:                req.Fare,
		EstimatedDeliveryAt: req.EstimatedDeliveryTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newTripResponse(trip))
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// ListTrips handles GET /v1/trips
func (h *TripHandler) ListTrips(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	trips, err := h.tripService.ListTrips(c.Request.Context(), principal(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(trips))
	for _, t := range trips {
		response = append(response, newTripResponse(t))
	}

	respondJSON(c, http.StatusOK, response)
}

// AcceptMatch handles POST /v1/trips/:id/accept
func (h *TripHandler) AcceptMatch(c *gin.Context) {
	var req AcceptMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "travelerId is required")
		return
	}

	trip, err := h.tripService.AcceptMatch(c.Request.Context(), principal(c), c.Param("id"), req.TravelerID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	trip, err := h.tripService.CancelTrip(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// DisputeTrip handles POST /v1/trips/:id/dispute
func (h *TripHandler) DisputeTrip(c *gin.Context) {
	var req ReportDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "type and description are required")
		return
	}

	trip, dispute, err := h.tripService.DisputeTrip(c.Request.Context(), principal(c), c.Param("id"), service.ReportDisputeRequest{
		Type:        domain.DisputeType(req.Type),
		Description: req.Description,
		Evidence:    req.Evidence,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newDisputedTripResponse(trip, dispute))
}

// ResolveDispute handles POST /v1/trips/:id/resolve
func (h *TripHandler) ResolveDispute(c *gin.Context) {
	var req ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "outcome and resolutionDetails are required")
		return
	}

	trip, dispute, err := h.tripService.ResolveDispute(c.Request.Context(), principal(c), c.Param("id"), service.ResolveDisputeRequest{
		Outcome: domain.TripStatus(req.Outcome),
		Details: req.ResolutionDetails,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newDisputedTripResponse(trip, dispute))
}

// GetDispute handles GET /v1/disputes/:id
func (h *TripHandler) GetDispute(c *gin.Context) {
	dispute, err := h.tripService.GetDispute(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newDisputeResponse(dispute))
}

// ListDisputes handles GET /v1/disputes?tripId=&userId=&limit=
func (h *TripHandler) ListDisputes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	disputes, err := h.tripService.ListDisputes(c.Request.Context(), principal(c), service.DisputeQuery{
		TripID:     c.Query("tripId"),
		ReporterID: c.Query("userId"),
		Limit:      limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DisputeResponse, 0, len(disputes))
	for _, d := range disputes {
		response = append(response, newDisputeResponse(d))
	}

	respondJSON(c, http.StatusOK, response)
}
