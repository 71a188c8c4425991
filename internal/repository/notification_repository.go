package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sahay/internal/models"
)

type NotificationRepository interface {
	Create(notification *models.Notification) error
	ListByUser(userID uuid.UUID, limit int) ([]*models.Notification, error)
	MarkAsSent(id uuid.UUID) error
	MarkAsRead(id, userID uuid.UUID) error
	CleanupOld(olderThan time.Time) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if notification.Status == "" {
		notification.Status = models.NotificationStatusPending
	}
	return r.db.Create(notification).Error
}

func (r *notificationRepository) ListByUser(userID uuid.UUID, limit int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	query := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) MarkAsSent(id uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.Model(&models.Notification{}).
		Where("id = ? AND status = ?", id, models.NotificationStatusPending).
		Updates(map[string]interface{}{
			"status":  models.NotificationStatusSent,
			"sent_at": &now,
		}).Error
}

// MarkAsRead отмечает уведомление прочитанным, только если оно принадлежит пользователю
func (r *notificationRepository) MarkAsRead(id, userID uuid.UUID) error {
	now := time.Now().UTC()
	result := r.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"status":  models.NotificationStatusRead,
			"read_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CleanupOld удаляет уведомления старше olderThan, в том числе непрочитанные
func (r *notificationRepository) CleanupOld(olderThan time.Time) error {
	return r.db.Where("created_at < ?", olderThan.UTC()).
		Delete(&models.Notification{}).Error
}
