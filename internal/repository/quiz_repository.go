package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sahay/internal/models"
)

type QuizRepository interface {
	WithTx(tx *gorm.DB) QuizRepository

	Create(quiz *models.Quiz) error
	GetByID(id uuid.UUID) (*models.Quiz, error)
	GetUnanswered(matchID string, userID uuid.UUID) (*models.Quiz, error)
	SaveResult(id uuid.UUID, correct int) error
}

type quizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) WithTx(tx *gorm.DB) QuizRepository {
	return &quizRepository{db: tx}
}

func (r *quizRepository) Create(quiz *models.Quiz) error {
	if quiz.ID == uuid.Nil {
		quiz.ID = uuid.New()
	}
	return r.db.Create(quiz).Error
}

func (r *quizRepository) GetByID(id uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.First(&quiz, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &quiz, nil
}

// GetUnanswered возвращает последний квиз пользователя по сессии, на который еще нет ответа
func (r *quizRepository) GetUnanswered(matchID string, userID uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.Where("match_id = ? AND user_id = ? AND answered_at IS NULL", matchID, userID).
		Order("created_at DESC").
		First(&quiz).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &quiz, nil
}

// SaveResult сохраняет результат только для неотвеченного квиза
func (r *quizRepository) SaveResult(id uuid.UUID, correct int) error {
	now := time.Now().UTC()
	result := r.db.Model(&models.Quiz{}).
		Where("id = ? AND answered_at IS NULL", id).
		Updates(map[string]interface{}{
			"correct":     correct,
			"answered_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return ErrConflict
	}
	return nil
}
