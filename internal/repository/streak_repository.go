package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"sahay/internal/models"
)

type StreakRepository interface {
	Get(userID uuid.UUID) (*models.UserStreak, error)
	Save(streak *models.UserStreak) error
}

type streakRepository struct {
	db *gorm.DB
}

func NewStreakRepository(db *gorm.DB) StreakRepository {
	return &streakRepository{db: db}
}

// Get возвращает серию пользователя или ErrNotFound, если активности еще не было
func (r *streakRepository) Get(userID uuid.UUID) (*models.UserStreak, error) {
	var streak models.UserStreak
	err := r.db.First(&streak, "user_id = ?", userID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &streak, nil
}

func (r *streakRepository) Save(streak *models.UserStreak) error {
	return r.db.Save(streak).Error
}
