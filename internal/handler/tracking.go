package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parcelroute/internal/service"
)

// TrackingHandler handles HTTP requests for live tracking.
type TrackingHandler struct {
	trackingService *service.TrackingService
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(trackingService *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{trackingService: trackingService}
}

// RecordFixRequest is the HTTP request body for posting a GPS fix.
type RecordFixRequest struct {
	Lat       *float64   `json:"lat" binding:"required"`
	Lng       *float64   `json:"lng" binding:"required"`
	Accuracy  *float64   `json:"accuracy"`
	Speed     *float64   `json:"speed"`
	Altitude  *float64   `json:"altitude"`
	Timestamp *time.Time `json:"timestamp"`
}

// StartTracking handles POST /v1/tracking/:tripId/start
func (h *TrackingHandler) StartTracking(c *gin.Context) {
	trip, err := h.trackingService.StartTracking(c.Request.Context(), principal(c), c.Param("tripId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// StopTracking handles POST /v1/tracking/:tripId/stop
func (h *TrackingHandler) StopTracking(c *gin.Context) {
	trip, err := h.trackingService.StopTracking(c.Request.Context(), principal(c), c.Param("tripId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(trip))
}

// RecordFix handles POST /v1/tracking/:tripId/fixes
func (h *TrackingHandler) RecordFix(c *gin.Context) {
	var req RecordFixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "lat and lng are required")
		return
	}

	fixReq := service.RecordFixRequest{
		TripID:   c.Param("tripId"),
		UserID:   principal(c).UserID,
		Lat:      *req.Lat,
		Lng:      *req.Lng,
		Accuracy: req.Accuracy,
		Speed:    req.Speed,
		Altitude: req.Altitude,
		Source:   service.FixSourceREST,
	}
	if req.Timestamp != nil {
		fixReq.Timestamp = *req.Timestamp
	}

	fix, err := h.trackingService.RecordFix(c.Request.Context(), fixReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, newFixResponse(fix))
}

// History handles GET /v1/tracking/:tripId
func (h *TrackingHandler) History(c *gin.Context) {
	fixes, err := h.trackingService.History(c.Request.Context(), principal(c), c.Param("tripId"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]FixResponse, 0, len(fixes))
	for _, f := range fixes {
		response = append(response, newFixResponse(f))
	}

	respondJSON(c, http.StatusOK, response)
}
