package services

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"sahay/internal/models"
	"sahay/internal/repository"
	"sahay/pkg/metrics"
	"sahay/pkg/realtime"
	"sahay/pkg/storage"
)

// MaxMessageLength ограничивает длину сообщения в символах
const MaxMessageLength = 5000

// PollResult содержит новые сообщения и водяную отметку для следующего запроса
type PollResult struct {
	Messages  []models.Message `json:"messages"`
	Watermark time.Time        `json:"watermark"`
}

// FileUpload описывает загружаемый файл
type FileUpload struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
}

type ChatService interface {
	SendMessage(actor Actor, text string, fileID *uuid.UUID) (*models.Message, error)
	PollMessages(actor Actor, since time.Time) (*PollResult, error)
	RoomMessagesSince(matchID string, since time.Time) ([]models.Message, error)
	Transcript(matchID string) ([]models.Message, error)
	UploadFile(actor Actor, upload FileUpload) (*models.SessionFile, *models.Message, error)
	ListFiles(actor Actor) ([]models.SessionFile, error)
	GetFile(actor Actor, fileID uuid.UUID) (*models.SessionFile, error)
}

type chatService struct {
	chatRepo    repository.ChatRepository
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	storage     *storage.Storage
	publisher   Publisher
}

// NewChatService создает сервис комнаты сессии. storage и publisher могут быть nil
func NewChatService(
	chatRepo repository.ChatRepository,
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	fileStorage *storage.Storage,
	publisher Publisher,
) ChatService {
	return &chatService{
		chatRepo:    chatRepo,
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		storage:     fileStorage,
		publisher:   publisher,
	}
}

// currentSession возвращает сессию, к которой сейчас привязан пользователь
func (s *chatService) currentSession(userID uuid.UUID) (*models.Session, error) {
	profile, err := s.profileRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if profile.MatchID == nil {
		return nil, ErrSessionNotFound
	}
	session, err := s.sessionRepo.GetByMatchID(*profile.MatchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if !session.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return session, nil
}

func (s *chatService) liveSession(userID uuid.UUID) (*models.Session, error) {
	session, err := s.currentSession(userID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionLive {
		return nil, ErrInvalidTransition
	}
	return session, nil
}

// SendMessage добавляет сообщение в комнату live сессии
func (s *chatService) SendMessage(actor Actor, text string, fileID *uuid.UUID) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && fileID == nil {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	session, err := s.liveSession(actor.UserID)
	if err != nil {
		return nil, err
	}
	if fileID != nil {
		file, err := s.chatRepo.GetFile(*fileID)
		if err != nil || file.MatchID != session.MatchID {
			return nil, fmt.Errorf("%w: unknown file", ErrInvalidInput)
		}
	}

	return s.appendMessage(session.MatchID, actor, text, fileID)
}

func (s *chatService) appendMessage(matchID string, actor Actor, text string, fileID *uuid.UUID) (*models.Message, error) {
	message := &models.Message{
		MatchID:  matchID,
		SenderID: actor.UserID,
		Sender:   displayName(actor.Name),
		Message:  text,
		FileID:   fileID,
	}
	if err := s.chatRepo.CreateMessage(message); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	metrics.MessagesSent.Inc()
	return message, nil
}

// PollMessages возвращает сообщения новее since. Повторный вызов с той же отметкой
// без новых сообщений возвращает пустой список
func (s *chatService) PollMessages(actor Actor, since time.Time) (*PollResult, error) {
	session, err := s.currentSession(actor.UserID)
	if err != nil {
		return nil, err
	}
	messages, err := s.RoomMessagesSince(session.MatchID, since)
	if err != nil {
		return nil, err
	}
	return &PollResult{Messages: messages, Watermark: Watermark(messages, since)}, nil
}

func (s *chatService) RoomMessagesSince(matchID string, since time.Time) ([]models.Message, error) {
	messages, err := s.chatRepo.ListSince(matchID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to poll messages: %w", err)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

func (s *chatService) Transcript(matchID string) ([]models.Message, error) {
	return s.chatRepo.ListAll(matchID)
}

// Watermark возвращает время последнего сообщения или since, если сообщений нет
func Watermark(messages []models.Message, since time.Time) time.Time {
	watermark := since
	for _, m := range messages {
		if m.CreatedAt.After(watermark) {
			watermark = m.CreatedAt
		}
	}
	return watermark
}

// UploadFile сохраняет файл и добавляет в комнату сообщение со ссылкой на него
func (s *chatService) UploadFile(actor Actor, upload FileUpload) (*models.SessionFile, *models.Message, error) {
	if s.storage == nil {
		return nil, nil, errors.New("file storage is not configured")
	}
	session, err := s.liveSession(actor.UserID)
	if err != nil {
		return nil, nil, err
	}

	stored, err := s.storage.SaveSessionFile(upload.Reader, upload.FileName, upload.ContentType, upload.Size, session.MatchID)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrStorageLimit) {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, nil, err
	}

	file := &models.SessionFile{
		MatchID:       session.MatchID,
		UploaderID:    actor.UserID,
		Uploader:      displayName(actor.Name),
		FileName:      upload.FileName,
		FilePath:      stored.Path,
		ThumbnailPath: stored.ThumbnailPath,
		FileSize:      stored.Size,
		MimeType:      upload.ContentType,
	}
	if err := s.chatRepo.CreateFile(file); err != nil {
		if delErr := s.storage.DeleteFile(stored.Path); delErr != nil {
			log.Printf("Failed to remove orphaned file %s: %v", stored.Path, delErr)
		}
		return nil, nil, fmt.Errorf("failed to save file record: %w", err)
	}

	message, err := s.appendMessage(session.MatchID, actor, "", &file.ID)
	if err != nil {
		return file, nil, err
	}

	if s.publisher != nil {
		s.publisher.Broadcast(realtime.MatchRoom(session.MatchID), realtime.Event{Type: "file", Data: file})
	}
	return file, message, nil
}

func (s *chatService) ListFiles(actor Actor) ([]models.SessionFile, error) {
	session, err := s.currentSession(actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.chatRepo.ListFiles(session.MatchID)
}

// GetFile возвращает файл, если пользователь участвует в его сессии
func (s *chatService) GetFile(actor Actor, fileID uuid.UUID) (*models.SessionFile, error) {
	file, err := s.chatRepo.GetFile(fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	session, err := s.sessionRepo.GetByMatchID(file.MatchID)
	if err != nil {
		return nil, err
	}
	if !session.HasParticipant(actor.UserID) {
		return nil, ErrNotParticipant
	}
	return file, nil
}
