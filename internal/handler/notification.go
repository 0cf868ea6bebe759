package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parcelroute/internal/service"
)

// NotificationHandler serves the in-app notification inbox.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListForUser handles GET /v1/notifications/user/:userId?limit=
func (h *NotificationHandler) ListForUser(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	inbox, err := h.notifications.ListInbox(c.Request.Context(), principal(c), c.Param("userId"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]NotificationResponse, 0, len(inbox))
	for _, n := range inbox {
		response = append(response, newNotificationResponse(n))
	}

	respondJSON(c, http.StatusOK, response)
}

// MarkRead handles PATCH /v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	n, err := h.notifications.MarkRead(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newNotificationResponse(n))
}
