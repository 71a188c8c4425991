package services

import (
	"log"
	"time"

	"github.com/google/uuid"

	"sahay/internal/models"
	"sahay/internal/repository"
	"sahay/pkg/realtime"
)

// Publisher доставляет события подключенным websocket клиентам
type Publisher interface {
	Broadcast(room string, event realtime.Event)
}

// TelegramSender отправляет уведомление в Telegram чат
type TelegramSender interface {
	SendNotification(chatID int64, title, message string) error
}

type NotificationService interface {
	Notify(userID uuid.UUID, notificationType models.NotificationType, matchID, title, message string) (*models.Notification, error)
	ListNotificationsByUser(userID uuid.UUID) ([]*models.Notification, error)
	MarkAsRead(notificationID, userID uuid.UUID) error
	CleanupOldNotifications(olderThan time.Duration) error
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	publisher        Publisher
	bot              TelegramSender
}

// NewNotificationService создает сервис уведомлений. publisher и bot могут быть nil
func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	publisher Publisher,
	bot TelegramSender,
) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		publisher:        publisher,
		bot:              bot,
	}
}

// Notify сохраняет уведомление, отправляет его в личный канал и, если привязан, в Telegram.
// Ошибки доставки только логируются
func (s *notificationService) Notify(userID uuid.UUID, notificationType models.NotificationType, matchID, title, message string) (*models.Notification, error) {
	notification := &models.Notification{
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		MatchID: matchID,
		Channel: models.NotificationChannelInApp,
		Status:  models.NotificationStatusPending,
	}

	var chatID int64
	if s.bot != nil {
		if user, err := s.userRepo.GetByID(userID); err == nil && user.TelegramID != 0 {
			chatID = user.TelegramID
			notification.Channel = models.NotificationChannelBot
		}
	}

	if err := s.notificationRepo.Create(notification); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.Broadcast(realtime.UserRoom(userID), realtime.Event{
			Type: string(notificationType),
			Data: notification,
		})
	}

	if chatID != 0 {
		if err := s.bot.SendNotification(chatID, title, message); err != nil {
			log.Printf("Failed to send telegram notification to %s: %v", userID, err)
			return notification, nil
		}
		if err := s.notificationRepo.MarkAsSent(notification.ID); err != nil {
			log.Printf("Failed to mark notification %s as sent: %v", notification.ID, err)
		}
	}

	return notification, nil
}

func (s *notificationService) ListNotificationsByUser(userID uuid.UUID) ([]*models.Notification, error) {
	return s.notificationRepo.ListByUser(userID, 50)
}

func (s *notificationService) MarkAsRead(notificationID, userID uuid.UUID) error {
	if err := s.notificationRepo.MarkAsRead(notificationID, userID); err != nil {
		if err == repository.ErrNotFound {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *notificationService) CleanupOldNotifications(olderThan time.Duration) error {
	return s.notificationRepo.CleanupOld(time.Now().Add(-olderThan))
}
