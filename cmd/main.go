package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sahay/internal/config"
	"sahay/internal/handlers"
	"sahay/internal/jobs"
	"sahay/internal/repository"
	"sahay/internal/services"
	"sahay/pkg/ai"
	"sahay/pkg/cache"
	"sahay/pkg/database"
	"sahay/pkg/realtime"
	"sahay/pkg/storage"
	"sahay/pkg/telegram"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Подключаемся к базе данных
	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Инициализируем файловое хранилище
	fileStorage, err := storage.NewStorage(cfg.UploadPath, cfg.MaxFileSize, cfg.MaxSessionStorage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Telegram бот необязателен: без токена уведомления остаются только в приложении
	var notifier services.TelegramSender
	if cfg.TelegramBotToken != "" {
		telegramBot, err := telegram.NewBot(cfg.TelegramBotToken)
		if err != nil {
			log.Printf("Failed to initialize Telegram bot: %v", err)
		} else {
			if err := telegramBot.SetCommands(); err != nil {
				log.Printf("Failed to set bot commands: %v", err)
			}
			go telegramBot.Run(ctx)
			notifier = telegramBot
		}
	}

	// AI помощник: без ключа работает в отключенном режиме, ответы кэшируются в Redis, если он задан
	var assistant ai.Client = ai.Disabled{}
	if cfg.OpenAIAPIKey != "" {
		assistant = ai.NewOpenAI(nil, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.AITimeout)
	} else {
		log.Printf("OPENAI_API_KEY is not set, AI summaries and quizzes are disabled")
	}
	redisCache, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, "sahay:ai:")
	if err != nil {
		log.Printf("Redis unavailable, AI answers will not be cached: %v", err)
	}
	if redisCache != nil {
		defer redisCache.Close()
		assistant = ai.NewCachedClient(assistant, redisCache, cfg.AICacheTTL)
	}

	hub := realtime.NewHub()

	// Создаем репозитории
	tx := repository.NewTxManager(db.DB)
	userRepo := repository.NewUserRepository(db.DB)
	profileRepo := repository.NewProfileRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	chatRepo := repository.NewChatRepository(db.DB)
	ratingRepo := repository.NewRatingRepository(db.DB)
	quizRepo := repository.NewQuizRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)
	streakRepo := repository.NewStreakRepository(db.DB)

	// Создаем сервисы
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiration)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, hub, notifier)
	streakService := services.NewStreakService(streakRepo)
	profileService := services.NewProfileService(profileRepo)
	chatService := services.NewChatService(chatRepo, profileRepo, sessionRepo, fileStorage, hub)
	matchService := services.NewMatchService(tx, profileRepo, sessionRepo, notificationService, services.MatchConfig{
		Threshold:  cfg.MatchThreshold,
		Jitter:     cfg.MatchJitter,
		RetryLimit: cfg.MatchRetryLimit,
	})
	sessionService := services.NewSessionService(tx, profileRepo, sessionRepo, ratingRepo, quizRepo,
		chatService, assistant, services.LineQuizParser{}, streakService, notificationService, hub,
		services.SessionConfig{
			QuizEnabled:          cfg.QuizEnabled,
			RatingBeforeQuiz:     cfg.RatingBeforeQuiz,
			RatingDuplicateCheck: cfg.RatingDuplicateCheck,
			AITimeout:            cfg.AITimeout,
		})
	assistantService := services.NewAssistantService(assistant, profileRepo, cfg.AITimeout)
	dashboardService := services.NewDashboardService(profileRepo, sessionRepo, ratingRepo, userRepo, streakService)

	// Фоновые задачи
	jobs.StartMessagePoller(ctx, cfg.PollInterval, jobs.NewMessagePoller(hub, chatService, hub))
	jobs.StartProposalExpiryJob(ctx, cfg.ProposalTimeout, cfg.ProposalSweepInterval, matchService)
	jobs.StartNotificationCleanupJob(ctx, 24*time.Hour, cfg.NotificationRetention, notificationService)

	router := handlers.NewRouter(handlers.Routes{
		AuthService: authService,
		Auth:        handlers.NewAuthHandler(authService, cfg.JWTExpiration),
		Profile:     handlers.NewProfileHandler(profileService),
		Match:       handlers.NewMatchHandler(matchService),
		Session:     handlers.NewSessionHandler(sessionService, chatService),
		Account:     handlers.NewAccountHandler(assistantService, streakService, dashboardService, notificationService),
		WS:          handlers.NewWSHandler(hub, sessionService),
	})

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Запускаем сервер
	go func() {
		log.Printf("Starting Sahay server on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
