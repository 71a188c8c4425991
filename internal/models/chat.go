package models

import (
	"time"

	"github.com/google/uuid"
)

// Message представляет сообщение в комнате сессии. Сообщения не редактируются и не удаляются
type Message struct {
	ID        uuid.UUID  `json:"id" gorm:"type:text;primaryKey"`
	MatchID   string     `json:"match_id" gorm:"type:text;not null;index:idx_messages_match_created,priority:1"`
	SenderID  uuid.UUID  `json:"sender_id" gorm:"type:text;not null"`
	Sender    string     `json:"sender"` // отображаемое имя
	Message   string     `json:"message" gorm:"type:text"`
	FileID    *uuid.UUID `json:"file_id,omitempty" gorm:"type:text"`
	CreatedAt time.Time  `json:"created_at" gorm:"index:idx_messages_match_created,priority:2"`
}

// SessionFile представляет файл, загруженный в комнату сессии
type SessionFile struct {
	ID            uuid.UUID `json:"id" gorm:"type:text;primaryKey"`
	MatchID       string    `json:"match_id" gorm:"type:text;not null;index"`
	UploaderID    uuid.UUID `json:"uploader_id" gorm:"type:text;not null"`
	Uploader      string    `json:"uploader"`
	FileName      string    `json:"file_name"`
	FilePath      string    `json:"-"`
	ThumbnailPath string    `json:"-"`
	FileSize      int64     `json:"file_size"`
	MimeType      string    `json:"mime_type"`
	CreatedAt     time.Time `json:"created_at"`
}
