package handlers

import (
	"net/http"

	"sahay/internal/services"

	"github.com/gin-gonic/gin"
)

// ProfileHandler представляет обработчик профиля
type ProfileHandler struct {
	profileService services.ProfileService
}

func NewProfileHandler(profileService services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// GetProfile возвращает профиль текущего пользователя
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	profile, err := h.profileService.GetProfile(actor.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile, "complete": profile.Complete()})
}

// SaveProfile создает или обновляет профиль
func (h *ProfileHandler) SaveProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var input services.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profileService.SaveProfile(actor, input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile, "complete": profile.Complete()})
}
