package repository

import (
	"errors"

	"sahay/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrConflict возвращается, когда условный UPDATE не затронул ожидаемые строки
var ErrConflict = errors.New("row state changed concurrently")

// ProfileRepository интерфейс для работы с учебными профилями
type ProfileRepository interface {
	WithTx(tx *gorm.DB) ProfileRepository

	Create(profile *models.Profile) error
	UpdateDetails(profile *models.Profile) error
	GetByUserID(userID uuid.UUID) (*models.Profile, error)
	ListWaiting(exclude uuid.UUID) ([]models.Profile, error)
	ListByMatchID(matchID string) ([]models.Profile, error)

	// Переходы состояния подбора
	ClaimPair(a, b uuid.UUID, matchID string) error
	SetAccepted(userID uuid.UUID, matchID string) error
	SetStatusByMatchID(matchID string, from, to models.ProfileStatus) (int64, error)
	ResetByMatchID(matchID string) error
	ResetUser(userID uuid.UUID, matchID string) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository создает новый репозиторий профилей
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) WithTx(tx *gorm.DB) ProfileRepository {
	return &profileRepository{db: tx}
}

func (r *profileRepository) Create(profile *models.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if profile.Status == "" {
		profile.Status = models.StatusWaiting
	}
	return r.db.Omit("User").Create(profile).Error
}

// UpdateDetails меняет поля анкеты, не трогая состояние подбора. Только для профиля в waiting
func (r *profileRepository) UpdateDetails(profile *models.Profile) error {
	result := r.db.Model(&models.Profile{}).
		Where("user_id = ? AND status = ?", profile.UserID, models.StatusWaiting).
		Updates(map[string]interface{}{
			"role":            profile.Role,
			"grade":           profile.Grade,
			"time_slot":       profile.TimeSlot,
			"strong_subjects": profile.StrongSubjects,
			"weak_subjects":   profile.WeakSubjects,
			"teaches":         profile.Teaches,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return ErrConflict
	}
	return nil
}

func (r *profileRepository) GetByUserID(userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.Preload("User").Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

// ListWaiting возвращает пул ожидающих в порядке создания, без текущего пользователя
func (r *profileRepository) ListWaiting(exclude uuid.UUID) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.Preload("User").
		Where("status = ? AND user_id <> ?", models.StatusWaiting, exclude).
		Order("created_at ASC").
		Find(&profiles).Error
	return profiles, err
}

func (r *profileRepository) ListByMatchID(matchID string) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.Preload("User").Where("match_id = ?", matchID).Find(&profiles).Error
	return profiles, err
}

// ClaimPair переводит обоих участников в confirming одним UPDATE.
// Строки меняются только если обе еще в waiting
func (r *profileRepository) ClaimPair(a, b uuid.UUID, matchID string) error {
	result := r.db.Model(&models.Profile{}).
		Where("user_id IN ? AND status = ?", []uuid.UUID{a, b}, models.StatusWaiting).
		Updates(map[string]interface{}{
			"status":   models.StatusConfirming,
			"match_id": matchID,
			"accepted": false,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 2 {
		return ErrConflict
	}
	return nil
}

// SetAccepted отмечает согласие участника на предложенную пару
func (r *profileRepository) SetAccepted(userID uuid.UUID, matchID string) error {
	result := r.db.Model(&models.Profile{}).
		Where("user_id = ? AND match_id = ? AND status = ?", userID, matchID, models.StatusConfirming).
		Update("accepted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return ErrConflict
	}
	return nil
}

func (r *profileRepository) SetStatusByMatchID(matchID string, from, to models.ProfileStatus) (int64, error) {
	result := r.db.Model(&models.Profile{}).
		Where("match_id = ? AND status = ?", matchID, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

// ResetByMatchID возвращает всех участников пары в пул ожидания
func (r *profileRepository) ResetByMatchID(matchID string) error {
	return r.db.Model(&models.Profile{}).
		Where("match_id = ?", matchID).
		Updates(resetFields()).Error
}

// ResetUser возвращает одного участника в пул ожидания
func (r *profileRepository) ResetUser(userID uuid.UUID, matchID string) error {
	return r.db.Model(&models.Profile{}).
		Where("user_id = ? AND match_id = ?", userID, matchID).
		Updates(resetFields()).Error
}

// map вместо структуры, иначе gorm пропустит nil и false
func resetFields() map[string]interface{} {
	return map[string]interface{}{
		"status":   models.StatusWaiting,
		"match_id": nil,
		"accepted": false,
	}
}
