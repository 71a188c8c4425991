package repository

import (
	"time"

	"sahay/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionRepository интерфейс для работы с сессиями пар и прогрессом участников
type SessionRepository interface {
	WithTx(tx *gorm.DB) SessionRepository

	Create(session *models.Session) error
	GetByMatchID(matchID string) (*models.Session, error)
	Transition(matchID string, from, to models.SessionStatus, fields map[string]interface{}) error
	SetSummary(matchID, summary string) error
	ListProposedBefore(before time.Time) ([]models.Session, error)
	CountEndedForUser(userID uuid.UUID) (int64, error)
	ListEndedForUser(userID uuid.UUID, limit int) ([]models.Session, error)

	// Участники
	CreateParticipants(matchID string, userIDs ...uuid.UUID) error
	GetParticipant(matchID string, userID uuid.UUID) (*models.SessionParticipant, error)
	MarkParticipant(matchID string, userID uuid.UUID, column string) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) WithTx(tx *gorm.DB) SessionRepository {
	return &sessionRepository{db: tx}
}

func (r *sessionRepository) Create(session *models.Session) error {
	return r.db.Create(session).Error
}

func (r *sessionRepository) GetByMatchID(matchID string) (*models.Session, error) {
	var session models.Session
	err := r.db.First(&session, "match_id = ?", matchID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

// Transition меняет статус сессии только из ожидаемого состояния
func (r *sessionRepository) Transition(matchID string, from, to models.SessionStatus, fields map[string]interface{}) error {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.Model(&models.Session{}).
		Where("match_id = ? AND status = ?", matchID, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return ErrConflict
	}
	return nil
}

func (r *sessionRepository) SetSummary(matchID, summary string) error {
	return r.db.Model(&models.Session{}).
		Where("match_id = ?", matchID).
		Update("summary", summary).Error
}

func (r *sessionRepository) ListProposedBefore(before time.Time) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.Where("status = ? AND proposed_at < ?", models.SessionProposed, before.UTC()).
		Order("proposed_at ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) endedForUser(userID uuid.UUID) *gorm.DB {
	return r.db.Model(&models.Session{}).
		Where("status = ? AND (participant_a = ? OR participant_b = ?)", models.SessionEnded, userID, userID)
}

// CountEndedForUser считает завершенные сессии пользователя
func (r *sessionRepository) CountEndedForUser(userID uuid.UUID) (int64, error) {
	var count int64
	err := r.endedForUser(userID).Count(&count).Error
	return count, err
}

// ListEndedForUser возвращает последние завершенные сессии пользователя, новые первыми
func (r *sessionRepository) ListEndedForUser(userID uuid.UUID, limit int) ([]models.Session, error) {
	var sessions []models.Session
	query := r.endedForUser(userID).Order("ended_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepository) CreateParticipants(matchID string, userIDs ...uuid.UUID) error {
	participants := make([]models.SessionParticipant, 0, len(userIDs))
	for _, userID := range userIDs {
		participants = append(participants, models.SessionParticipant{
			ID:      uuid.New(),
			MatchID: matchID,
			UserID:  userID,
		})
	}
	return r.db.Create(&participants).Error
}

func (r *sessionRepository) GetParticipant(matchID string, userID uuid.UUID) (*models.SessionParticipant, error) {
	var participant models.SessionParticipant
	err := r.db.Where("match_id = ? AND user_id = ?", matchID, userID).First(&participant).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &participant, nil
}

// MarkParticipant проставляет отметку этапа (rated_at, quizzed_at, finished_at), если она еще пуста
func (r *sessionRepository) MarkParticipant(matchID string, userID uuid.UUID, column string) error {
	switch column {
	case "rated_at", "quizzed_at", "finished_at":
	default:
		return gorm.ErrInvalidField
	}
	return r.db.Model(&models.SessionParticipant{}).
		Where("match_id = ? AND user_id = ? AND "+column+" IS NULL", matchID, userID).
		Update(column, time.Now().UTC()).Error
}
