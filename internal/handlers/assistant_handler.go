package handlers

import (
	"net/http"

	"sahay/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler обслуживает помощника, прогресс и уведомления пользователя
type AccountHandler struct {
	assistant     *services.AssistantService
	streaks       services.StreakService
	dashboard     *services.DashboardService
	notifications services.NotificationService
}

func NewAccountHandler(
	assistant *services.AssistantService,
	streaks services.StreakService,
	dashboard *services.DashboardService,
	notifications services.NotificationService,
) *AccountHandler {
	return &AccountHandler{
		assistant:     assistant,
		streaks:       streaks,
		dashboard:     dashboard,
		notifications: notifications,
	}
}

// AskRequest представляет вопрос к помощнику
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask отвечает на учебный вопрос
func (h *AccountHandler) Ask(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.assistant.Ask(c.Request.Context(), actor, req.Question)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// GetStreak возвращает серию учебных дней
func (h *AccountHandler) GetStreak(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	streak, err := h.streaks.Get(actor.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, streak)
}

// GetDashboard возвращает прогресс: серию, число сессий, средний балл, место в рейтинге и историю
func (h *AccountHandler) GetDashboard(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	dashboard, err := h.dashboard.Get(actor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// ListNotifications возвращает последние уведомления
func (h *AccountHandler) ListNotifications(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	notifications, err := h.notifications.ListNotificationsByUser(actor.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkNotificationRead отмечает уведомление прочитанным
func (h *AccountHandler) MarkNotificationRead(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	if err := h.notifications.MarkAsRead(id, actor.UserID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
