package services

import (
	"errors"

	"github.com/google/uuid"
)

// Ошибки предметной области. Все они обрабатываются на границе запроса
var (
	ErrProfileIncomplete    = errors.New("profile is incomplete")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrCandidateUnavailable = errors.New("candidate is no longer waiting")
	ErrInvalidTransition    = errors.New("action is not allowed in the current state")
	ErrNotParticipant       = errors.New("user is not a participant of this session")
	ErrAIUnavailable        = errors.New("AI helper is unavailable")
	ErrMalformedQuizOutput  = errors.New("not enough content for a quiz")
	ErrDuplicateRating      = errors.New("you have already rated this session")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrRatingRequired       = errors.New("rate the session before taking the quiz")
	ErrQuizDisabled         = errors.New("quizzes are disabled")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrQuizAnswered         = errors.New("quiz has already been answered")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrMessageTooLong       = errors.New("message is too long")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmailTaken           = errors.New("email is already registered")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
)

// Actor описывает пользователя, от имени которого выполняется операция
type Actor struct {
	UserID uuid.UUID
	Name   string
}
