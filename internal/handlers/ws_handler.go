package handlers

import (
	"log"

	"sahay/internal/services"
	"sahay/pkg/realtime"

	"github.com/gin-gonic/gin"
)

// WSHandler подключает websocket клиента к личной комнате и комнате текущей сессии
type WSHandler struct {
	hub            *realtime.Hub
	sessionService services.SessionService
}

func NewWSHandler(hub *realtime.Hub, sessionService services.SessionService) *WSHandler {
	return &WSHandler{hub: hub, sessionService: sessionService}
}

// Connect выполняет upgrade соединения. Комната сессии выбирается в момент подключения,
// после смены сессии клиент переподключается
func (h *WSHandler) Connect(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	rooms := []string{realtime.UserRoom(actor.UserID)}
	if state, err := h.sessionService.State(actor); err == nil && state.MatchID != "" {
		rooms = append(rooms, realtime.MatchRoom(state.MatchID))
	}

	if err := realtime.ServeWS(h.hub, c.Writer, c.Request, rooms...); err != nil {
		log.Printf("websocket upgrade for %s failed: %v", actor.UserID, err)
	}
}
