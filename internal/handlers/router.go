package handlers

import (
	"net/http"

	"sahay/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes содержит обработчики, из которых собирается роутер
type Routes struct {
	AuthService *services.AuthService
	Auth        *AuthHandler
	Profile     *ProfileHandler
	Match       *MatchHandler
	Session     *SessionHandler
	Account     *AccountHandler
	WS          *WSHandler
}

// NewRouter настраивает маршруты API
func NewRouter(routes Routes) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(CORSMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	// Публичные маршруты
	public := api.Group("/public")
	{
		public.POST("/register", routes.Auth.Register)
		public.POST("/login", routes.Auth.Login)
	}

	// Защищенные маршруты (требуют авторизации)
	protected := api.Group("/")
	protected.Use(AuthMiddleware(routes.AuthService))
	{
		// Профиль
		protected.GET("/profile", routes.Profile.GetProfile)
		protected.PUT("/profile", routes.Profile.SaveProfile)
		protected.POST("/profile/telegram", routes.Auth.LinkTelegram)

		// Подбор пары
		protected.GET("/match/find", routes.Match.FindMatch)
		protected.POST("/match/propose", routes.Match.ProposeMatch)
		protected.POST("/match/now", routes.Match.MatchNow)
		protected.POST("/match/accept", routes.Match.AcceptMatch)
		protected.POST("/match/decline", routes.Match.DeclineMatch)

		// Сессия
		protected.GET("/session", routes.Session.GetState)
		protected.GET("/session/messages", routes.Session.PollMessages)
		protected.POST("/session/messages", routes.Session.SendMessage)
		protected.GET("/session/files", routes.Session.ListFiles)
		protected.POST("/session/files", routes.Session.UploadFile)
		protected.GET("/session/files/:id", routes.Session.DownloadFile)
		protected.GET("/session/files/:id/thumbnail", routes.Session.GetThumbnail)
		protected.POST("/session/end", routes.Session.EndSession)
		protected.POST("/session/finish", routes.Session.FinishSession)
		protected.POST("/session/:match_id/rating", routes.Session.SubmitRating)
		protected.POST("/session/:match_id/quiz", routes.Session.GenerateQuiz)
		protected.POST("/quiz/:id/answers", routes.Session.SubmitQuiz)

		// Помощник, прогресс и уведомления
		protected.POST("/assistant", routes.Account.Ask)
		protected.GET("/streak", routes.Account.GetStreak)
		protected.GET("/dashboard", routes.Account.GetDashboard)
		protected.GET("/notifications", routes.Account.ListNotifications)
		protected.POST("/notifications/:id/read", routes.Account.MarkNotificationRead)

		// Realtime
		protected.GET("/ws", routes.WS.Connect)
	}

	return router
}
