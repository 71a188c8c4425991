package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType определяет типы уведомлений
type NotificationType string

const (
	NotificationTypeMatchProposed NotificationType = "match_proposed"
	NotificationTypeMatchDeclined NotificationType = "match_declined"
	NotificationTypeMatchLive     NotificationType = "match_live"
	NotificationTypeSessionEnded  NotificationType = "session_ended"
)

// NotificationChannel определяет каналы доставки
type NotificationChannel string

const (
	NotificationChannelBot   NotificationChannel = "bot"
	NotificationChannelInApp NotificationChannel = "inapp"
)

// NotificationStatus определяет статусы уведомлений
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusRead    NotificationStatus = "read"
)

// Notification представляет уведомление пользователю
type Notification struct {
	ID        uuid.UUID           `json:"id" gorm:"type:text;primaryKey"`
	UserID    uuid.UUID           `json:"user_id" gorm:"type:text;not null;index"`
	Type      NotificationType    `json:"type" gorm:"type:varchar(30);not null"`
	Title     string              `json:"title" gorm:"not null"`
	Message   string              `json:"message" gorm:"not null"`
	MatchID   string              `json:"match_id,omitempty" gorm:"type:text"`
	Channel   NotificationChannel `json:"channel" gorm:"type:varchar(10);not null"`
	Status    NotificationStatus  `json:"status" gorm:"type:varchar(10);default:'pending'"`
	SentAt    *time.Time          `json:"sent_at,omitempty"`
	ReadAt    *time.Time          `json:"read_at,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// UserStreak хранит серию дней с учебной активностью
type UserStreak struct {
	UserID        uuid.UUID `json:"user_id" gorm:"type:text;primaryKey"`
	Current       int       `json:"current"`
	Longest       int       `json:"longest"`
	LastActiveDay string    `json:"last_active_day"` // YYYY-MM-DD в UTC
	UpdatedAt     time.Time `json:"updated_at"`
}
