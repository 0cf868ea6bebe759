package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parcelroute/internal/realtime"
	"parcelroute/internal/repository"
	"parcelroute/internal/service"
)

// ChatHandler handles HTTP requests for trip chat history.
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// History handles GET /v1/trips/:id/messages?limit=&page=
func (h *ChatHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	page, _ := strconv.Atoi(c.Query("page"))

	messages, err := h.chatService.History(c.Request.Context(), principal(c), c.Param("id"), repository.MessagePage{
		Limit: limit,
		Page:  page,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]realtime.MessagePayload, 0, len(messages))
	for _, m := range messages {
		response = append(response, realtime.NewMessagePayload(m))
	}

	respondJSON(c, http.StatusOK, response)
}

// DeleteMessage handles DELETE /v1/trips/:id/messages/:messageId
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	err := h.chatService.DeleteMessage(c.Request.Context(), principal(c), c.Param("id"), c.Param("messageId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
