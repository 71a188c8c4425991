package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"sahay/internal/models"
)

// RatingStats описывает строку рейтинга: сколько оценок получил пользователь и их среднее
type RatingStats struct {
	UserID   uuid.UUID `json:"user_id"`
	Sessions int64     `json:"sessions"`
	Average  float64   `json:"average"`
}

type RatingRepository interface {
	WithTx(tx *gorm.DB) RatingRepository

	Create(rating *models.Rating) error
	ExistsForRater(matchID string, raterID uuid.UUID) (bool, error)
	ListByMatch(matchID string) ([]models.Rating, error)
	AverageForUser(userID uuid.UUID) (float64, int64, error)
	Leaderboard() ([]RatingStats, error)
}

type ratingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) WithTx(tx *gorm.DB) RatingRepository {
	return &ratingRepository{db: tx}
}

func (r *ratingRepository) Create(rating *models.Rating) error {
	if rating.ID == uuid.Nil {
		rating.ID = uuid.New()
	}
	return r.db.Create(rating).Error
}

func (r *ratingRepository) ExistsForRater(matchID string, raterID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&models.Rating{}).
		Where("match_id = ? AND rater_id = ?", matchID, raterID).
		Count(&count).Error
	return count > 0, err
}

func (r *ratingRepository) ListByMatch(matchID string) ([]models.Rating, error) {
	var ratings []models.Rating
	err := r.db.Where("match_id = ?", matchID).
		Order("created_at ASC").
		Find(&ratings).Error
	return ratings, err
}

// AverageForUser возвращает среднюю оценку, полученную пользователем, и число оценок
func (r *ratingRepository) AverageForUser(userID uuid.UUID) (float64, int64, error) {
	var row struct {
		Avg   float64
		Count int64
	}
	err := r.db.Model(&models.Rating{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("ratee_id = ?", userID).
		Scan(&row).Error
	return row.Avg, row.Count, err
}

// Leaderboard упорядочивает получивших оценки по числу оценок, затем по среднему
func (r *ratingRepository) Leaderboard() ([]RatingStats, error) {
	var rows []RatingStats
	err := r.db.Model(&models.Rating{}).
		Select("ratee_id AS user_id, COUNT(*) AS sessions, AVG(rating) AS average").
		Group("ratee_id").
		Order("sessions DESC, average DESC, ratee_id ASC").
		Scan(&rows).Error
	return rows, err
}
