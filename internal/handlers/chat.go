package handlers

import (
	"net/http"

	"synergy-backend/internal/middleware"
	"synergy-backend/internal/services"
	"synergy-backend/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ChatHandler struct {
	chats *services.ChatService
	hub   *websocket.Hub
	log   *logrus.Logger
}

func NewChatHandler(chats *services.ChatService, hub *websocket.Hub, log *logrus.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, hub: hub, log: log}
}

// History returns the conversation between the caller and :id, oldest first.
func (h *ChatHandler) History(c *gin.Context) {
	otherID, ok := idParam(c, "id")
	if !ok {
		return
	}

	messages, err := h.chats.History(c.Request.Context(), middleware.CurrentUserID(c), otherID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) Connect(c *gin.Context) {
	websocket.HandleWebSocket(h.hub, c)
}
