package handlers

import (
	"net/http"
	"time"

	"sahay/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthHandler представляет обработчик авторизации
type AuthHandler struct {
	authService *services.AuthService
	tokenTTL    time.Duration
}

// NewAuthHandler создает новый обработчик авторизации
func NewAuthHandler(authService *services.AuthService, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokenTTL:    tokenTTL,
	}
}

// RegisterRequest представляет запрос регистрации
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest представляет запрос входа
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LinkTelegramRequest представляет запрос привязки Telegram
type LinkTelegramRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

// Register регистрирует пользователя
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Register(req.Name, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setCookie(c, result.Token)
	c.JSON(http.StatusCreated, result)
}

// Login выполняет вход по email и паролю
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setCookie(c, result.Token)
	c.JSON(http.StatusOK, result)
}

// LinkTelegram привязывает чат Telegram для уведомлений
func (h *AuthHandler) LinkTelegram(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req LinkTelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authService.LinkTelegram(actor.UserID, req.TelegramID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Telegram linked successfully"})
}

func (h *AuthHandler) setCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("jwt", token, int(h.tokenTTL.Seconds()), "/", "", false, true)
}
