package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sahay/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database представляет подключение к базе данных
type Database struct {
	DB *gorm.DB
}

// Параметры SQLite: WAL для параллельного чтения во время записи,
// ожидание блокировки вместо мгновенного SQLITE_BUSY и немедленный захват
// блокировки записи в транзакциях
const sqlitePragmas = "_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate&_foreign_keys=on"

// NewDatabase создает новое подключение к базе данных
func NewDatabase(dbPath string) (*Database, error) {
	// Создаем директорию для базы данных если она не существует
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	return open(dsn(dbPath), logger.Warn)
}

// NewInMemory открывает изолированную базу в памяти. Используется в тестах
// и в seed-скрипте с --db=:memory:
func NewInMemory(name string) (*Database, error) {
	return open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000&_txlock=immediate", name), logger.Silent)
}

func open(dsn string, level logger.LogLevel) (*Database, error) {
	// Подключаемся к SQLite базе данных
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			// Время хранится в UTC, иначе сравнение created_at > ? идет по строкам с разными зонами
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	// SQLite допускает одного писателя
	sqlDB.SetMaxOpenConns(1)

	database := &Database{DB: db}

	// Автомиграция моделей
	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return database, nil
}

func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + sqlitePragmas
	}
	return dbPath + "?" + sqlitePragmas
}

// Migrate выполняет миграцию базы данных
func (d *Database) Migrate() error {
	return d.DB.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Session{},
		&models.SessionParticipant{},
		&models.Message{},
		&models.SessionFile{},
		&models.Rating{},
		&models.Quiz{},
		&models.Notification{},
		&models.UserStreak{},
	)
}

// Close закрывает подключение к базе данных
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
