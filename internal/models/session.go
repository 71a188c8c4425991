package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionStatus определяет состояние сессии пары
type SessionStatus string

const (
	SessionProposed SessionStatus = "proposed"
	SessionLive     SessionStatus = "live"
	SessionEnded    SessionStatus = "ended"
	SessionDeclined SessionStatus = "declined"
	SessionExpired  SessionStatus = "expired"
)

// SessionStage определяет этап участника после начала сессии
type SessionStage string

const (
	StageLive     SessionStage = "live"
	StageEnded    SessionStage = "ended"
	StageRated    SessionStage = "rated"
	StageQuizzed  SessionStage = "quizzed"
	StageFinished SessionStage = "finished"
)

// Session представляет пару, связанную общим match_id
type Session struct {
	MatchID      string        `json:"match_id" gorm:"type:text;primaryKey"`
	ParticipantA uuid.UUID     `json:"participant_a" gorm:"type:text;not null;index"` // инициатор
	ParticipantB uuid.UUID     `json:"participant_b" gorm:"type:text;not null;index"`
	Score        int           `json:"score"`
	Status       SessionStatus `json:"status" gorm:"type:text;not null;index"`
	ProposedAt   time.Time     `json:"proposed_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	EndedAt      *time.Time    `json:"ended_at,omitempty"`
	EndedBy      *uuid.UUID    `json:"ended_by,omitempty" gorm:"type:text"`
	Summary      string        `json:"summary,omitempty" gorm:"type:text"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// HasParticipant проверяет, участвует ли пользователь в сессии
func (s *Session) HasParticipant(userID uuid.UUID) bool {
	return s.ParticipantA == userID || s.ParticipantB == userID
}

// Peer возвращает второго участника
func (s *Session) Peer(userID uuid.UUID) (uuid.UUID, bool) {
	if s.ParticipantA == userID {
		return s.ParticipantB, true
	}
	if s.ParticipantB == userID {
		return s.ParticipantA, true
	}
	return uuid.Nil, false
}

// SessionParticipant хранит прогресс участника после завершения сессии
type SessionParticipant struct {
	ID         uuid.UUID  `json:"id" gorm:"type:text;primaryKey"`
	MatchID    string     `json:"match_id" gorm:"type:text;not null;uniqueIndex:idx_participant_match_user"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:text;not null;uniqueIndex:idx_participant_match_user"`
	RatedAt    *time.Time `json:"rated_at,omitempty"`
	QuizzedAt  *time.Time `json:"quizzed_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Rating представляет оценку сессии одним из участников
type Rating struct {
	ID        uuid.UUID `json:"id" gorm:"type:text;primaryKey"`
	MatchID   string    `json:"match_id" gorm:"type:text;not null;index:idx_rating_match_rater"`
	RaterID   uuid.UUID `json:"rater_id" gorm:"type:text;not null;index:idx_rating_match_rater"`
	RateeID   uuid.UUID `json:"ratee_id" gorm:"type:text;not null;index"`
	Rating    int       `json:"rating" gorm:"not null"` // 1-5
	Feedback  string    `json:"feedback" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName сохраняет имя таблицы session_ratings
func (Rating) TableName() string { return "session_ratings" }

// QuizQuestion представляет вопрос с четырьмя вариантами ответа
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"` // A, B, C, D по порядку
	Answer   string   `json:"answer"`  // буква правильного варианта
}

// Quiz представляет квиз, сгенерированный по переписке сессии
type Quiz struct {
	ID         uuid.UUID      `json:"id" gorm:"type:text;primaryKey"`
	MatchID    string         `json:"match_id" gorm:"type:text;not null;index"`
	UserID     uuid.UUID      `json:"user_id" gorm:"type:text;not null;index"`
	Questions  datatypes.JSON `json:"questions"`
	Raw        string         `json:"-" gorm:"type:text"`
	Correct    *int           `json:"correct,omitempty"`
	AnsweredAt *time.Time     `json:"answered_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
