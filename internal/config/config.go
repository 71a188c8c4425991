package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит все настройки приложения
type Config struct {
	// Server
	Port string
	Host string

	// Database
	DBPath string

	// Telegram
	TelegramBotToken string

	// File Storage
	UploadPath        string
	MaxFileSize       int64
	MaxSessionStorage int64

	// Security
	JWTSecret     string
	JWTExpiration time.Duration

	// AI helper
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	AITimeout     time.Duration

	// Redis (кэш ответов AI, необязателен)
	RedisAddr     string
	RedisPassword string
	AICacheTTL    time.Duration

	// Matching
	MatchThreshold        int
	MatchJitter           int
	MatchRetryLimit       int
	ProposalTimeout       time.Duration
	ProposalSweepInterval time.Duration

	// Session lifecycle
	PollInterval         time.Duration
	QuizEnabled          bool
	RatingBeforeQuiz     bool
	RatingDuplicateCheck bool

	// Notifications
	NotificationRetention time.Duration
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// Загружаем .env файл если он существует
	_ = godotenv.Load()

	config := &Config{
		Port:             getEnv("PORT", "10000"),
		Host:             getEnv("HOST", "0.0.0.0"),
		DBPath:           getEnv("DB_PATH", "/tmp/sahay.db"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		UploadPath:       getEnv("UPLOAD_PATH", "/tmp/uploads/sessions"),
		JWTSecret:        getEnv("JWT_SECRET", "sahay_secret_key_2024"),
		JWTExpiration:    getEnvDuration("JWT_EXPIRATION", 24*time.Hour),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AITimeout:     getEnvDuration("AI_TIMEOUT", 30*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		AICacheTTL:    getEnvDuration("AI_CACHE_TTL", time.Hour),

		MatchThreshold:        getEnvInt("MATCH_THRESHOLD", 30),
		MatchJitter:           getEnvInt("MATCH_JITTER", 0),
		MatchRetryLimit:       getEnvInt("MATCH_RETRY_LIMIT", 3),
		ProposalTimeout:       getEnvDuration("PROPOSAL_TIMEOUT", 0),
		ProposalSweepInterval: getEnvDuration("PROPOSAL_SWEEP_INTERVAL", time.Minute),

		PollInterval:         getEnvDuration("POLL_INTERVAL", 2*time.Second),
		QuizEnabled:          getEnvBool("QUIZ_ENABLED", true),
		RatingBeforeQuiz:     getEnvBool("RATING_BEFORE_QUIZ", false),
		RatingDuplicateCheck: getEnvBool("RATING_DUPLICATE_CHECK", true),

		NotificationRetention: getEnvDuration("NOTIFICATION_RETENTION", 30*24*time.Hour),
	}

	// Парсим числовые значения
	if maxFileSize, err := strconv.ParseInt(getEnv("MAX_FILE_SIZE", "52428800"), 10, 64); err == nil {
		config.MaxFileSize = maxFileSize
	} else {
		config.MaxFileSize = 50 * 1024 * 1024 // 50MB по умолчанию
	}

	if maxStorage, err := strconv.ParseInt(getEnv("MAX_SESSION_STORAGE", "524288000"), 10, 64); err == nil {
		config.MaxSessionStorage = maxStorage
	} else {
		config.MaxSessionStorage = 500 * 1024 * 1024 // 500MB по умолчанию
	}

	return config, nil
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration понимает как "90s", так и KEY_SECONDS=90
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	if value := os.Getenv(key + "_SECONDS"); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
