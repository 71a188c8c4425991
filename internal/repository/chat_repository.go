package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sahay/internal/models"
)

type ChatRepository interface {
	// Messages
	CreateMessage(message *models.Message) error
	ListSince(matchID string, since time.Time) ([]models.Message, error)
	ListAll(matchID string) ([]models.Message, error)
	LatestCreatedAt(matchID string) (time.Time, error)

	// Files
	CreateFile(file *models.SessionFile) error
	GetFile(id uuid.UUID) (*models.SessionFile, error)
	ListFiles(matchID string) ([]models.SessionFile, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// CreateMessage ставит время и вставляет сообщение в одной транзакции.
// created_at строго растет внутри комнаты, поэтому водяная отметка не пропускает
// сообщения, закоммиченные позже
func (r *chatRepository) CreateMessage(message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		repo := &chatRepository{db: tx}
		latest, err := repo.LatestCreatedAt(message.MatchID)
		if err != nil {
			return err
		}
		message.CreatedAt = nextMessageTime(message.CreatedAt, latest)
		return tx.Create(message).Error
	})
}

// nextMessageTime возвращает max(stamp, latest+1ns); нулевой stamp заменяется текущим временем
func nextMessageTime(stamp, latest time.Time) time.Time {
	if stamp.IsZero() {
		stamp = time.Now()
	}
	stamp = stamp.UTC()
	if !latest.IsZero() && !stamp.After(latest) {
		stamp = latest.UTC().Add(time.Nanosecond)
	}
	return stamp
}

// ListSince возвращает сообщения строго новее водяной отметки, по возрастанию времени
func (r *chatRepository) ListSince(matchID string, since time.Time) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("match_id = ? AND created_at > ?", matchID, since.UTC()).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *chatRepository) ListAll(matchID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("match_id = ?", matchID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

// LatestCreatedAt возвращает время последнего сообщения или нулевое время
func (r *chatRepository) LatestCreatedAt(matchID string) (time.Time, error) {
	var message models.Message
	err := r.db.Where("match_id = ?", matchID).
		Order("created_at DESC").
		Limit(1).
		Find(&message).Error
	if err != nil {
		return time.Time{}, err
	}
	return message.CreatedAt, nil
}

func (r *chatRepository) CreateFile(file *models.SessionFile) error {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	return r.db.Create(file).Error
}

func (r *chatRepository) GetFile(id uuid.UUID) (*models.SessionFile, error) {
	var file models.SessionFile
	err := r.db.First(&file, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &file, nil
}

func (r *chatRepository) ListFiles(matchID string) ([]models.SessionFile, error) {
	var files []models.SessionFile
	err := r.db.Where("match_id = ?", matchID).
		Order("created_at ASC").
		Find(&files).Error
	return files, err
}
