package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parcelroute/internal/domain"
	"parcelroute/internal/service"
)

// MatchHandler handles HTTP requests for traveler matching.
type MatchHandler struct {
	matchingService *service.MatchingService
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matchingService *service.MatchingService) *MatchHandler {
	return &MatchHandler{matchingService: matchingService}
}

// FindMatchesRequest is the HTTP request body for a match search.
type FindMatchesRequest struct {
	Origin              *LocationDTO `json:"origin" binding:"required"`
	Destination         *LocationDTO `json:"destination" binding:"required"`
	PackageDetails      *PackageDTO  `json:"packageDetails" binding:"required"`
	DesiredDeliveryTime *time.Time   `json:"desiredDeliveryTime"`
	MaxBudget           *float64     `json:"maxBudget"`
}

// FindMatches handles POST /v1/match/find
func (h *MatchHandler) FindMatches(c *gin.Context) {
	var req FindMatchesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "origin, destination and packageDetails are required")
		return
	}

	results, err := h.matchingService.FindMatches(c.Request.Context(), &domain.MatchRequest{
		Origin:              req.Origin.toDomain(),
		Destination:         req.Destination.toDomain(),
		Package:             req.PackageDetails.toDomain(),
		DesiredDeliveryTime: req.DesiredDeliveryTime,
		MaxBudget:           req.MaxBudget,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]MatchResultResponse, 0, len(results))
	for _, r := range results {
		response = append(response, newMatchResultResponse(r))
	}

	respondJSON(c, http.StatusOK, response)
}
