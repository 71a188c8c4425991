package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"sahay/internal/models"
	"sahay/internal/repository"
	"sahay/pkg/ai"
	"sahay/pkg/metrics"
	"sahay/pkg/realtime"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizQuestionCount - сколько вопросов просим у модели
const QuizQuestionCount = 3

// SessionConfig содержит правила жизненного цикла сессии
type SessionConfig struct {
	QuizEnabled          bool
	RatingBeforeQuiz     bool
	RatingDuplicateCheck bool
	AITimeout            time.Duration
}

// SessionState описывает положение пользователя в подборе и сессии
type SessionState struct {
	Status       models.ProfileStatus `json:"status"`
	MatchID      string               `json:"match_id,omitempty"`
	Accepted     bool                 `json:"accepted"`
	PeerAccepted bool                 `json:"peer_accepted"`
	PeerName     string               `json:"peer_name,omitempty"`
	Stage        models.SessionStage  `json:"stage,omitempty"`
	Session      *models.Session      `json:"session,omitempty"`
}

// EndResult содержит итог сессии. AIError заполняется, если итог получить не удалось
type EndResult struct {
	MatchID string `json:"match_id"`
	Summary string `json:"summary"`
	AIError string `json:"ai_error,omitempty"`
}

// QuizResult содержит квиз. NotEnoughContent означает, что разобрано меньше трех вопросов
type QuizResult struct {
	Quiz             *models.Quiz          `json:"quiz,omitempty"`
	Questions        []models.QuizQuestion `json:"questions"`
	NotEnoughContent bool                  `json:"not_enough_content"`
}

// QuizScore содержит результат ответа на квиз
type QuizScore struct {
	Correct int                 `json:"correct"`
	Total   int                 `json:"total"`
	Stage   models.SessionStage `json:"stage"`
}

type SessionService interface {
	State(actor Actor) (*SessionState, error)
	EndSession(ctx context.Context, actor Actor) (*EndResult, error)
	SubmitRating(actor Actor, matchID string, rating int, feedback string) (*models.Rating, error)
	GenerateQuiz(ctx context.Context, actor Actor, matchID string) (*QuizResult, error)
	SubmitQuiz(actor Actor, quizID uuid.UUID, answers []string) (*QuizScore, error)
	FinishSession(actor Actor) error
}

type sessionService struct {
	tx            repository.TxManager
	profileRepo   repository.ProfileRepository
	sessionRepo   repository.SessionRepository
	ratingRepo    repository.RatingRepository
	quizRepo      repository.QuizRepository
	chat          ChatService
	assistant     ai.Client
	parser        QuizParser
	streaks       StreakService
	notifications NotificationService
	publisher     Publisher
	cfg           SessionConfig
	now           func() time.Time
}

func NewSessionService(
	tx repository.TxManager,
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	ratingRepo repository.RatingRepository,
	quizRepo repository.QuizRepository,
	chat ChatService,
	assistant ai.Client,
	parser QuizParser,
	streaks StreakService,
	notifications NotificationService,
	publisher Publisher,
	cfg SessionConfig,
) SessionService {
	if assistant == nil {
		assistant = ai.Disabled{}
	}
	if parser == nil {
		parser = LineQuizParser{}
	}
	return &sessionService{
		tx:            tx,
		profileRepo:   profileRepo,
		sessionRepo:   sessionRepo,
		ratingRepo:    ratingRepo,
		quizRepo:      quizRepo,
		chat:          chat,
		assistant:     assistant,
		parser:        parser,
		streaks:       streaks,
		notifications: notifications,
		publisher:     publisher,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *sessionService) State(actor Actor) (*SessionState, error) {
	profile, err := s.profileRepo.GetByUserID(actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	state := &SessionState{Status: profile.Status, Accepted: profile.Accepted}
	if profile.MatchID == nil {
		return state, nil
	}
	state.MatchID = *profile.MatchID

	pair, err := s.profileRepo.ListByMatchID(state.MatchID)
	if err != nil {
		return nil, err
	}
	for _, p := range pair {
		if p.UserID != actor.UserID {
			state.PeerAccepted = p.Accepted
			state.PeerName = p.User.Name
		}
	}

	session, err := s.sessionRepo.GetByMatchID(state.MatchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return state, nil
		}
		return nil, err
	}
	state.Session = session
	state.Stage, err = s.stage(session, actor.UserID)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// stage вычисляет этап участника по отметкам прогресса
func (s *sessionService) stage(session *models.Session, userID uuid.UUID) (models.SessionStage, error) {
	switch session.Status {
	case models.SessionLive:
		return models.StageLive, nil
	case models.SessionEnded:
	default:
		return "", nil
	}
	participant, err := s.sessionRepo.GetParticipant(session.MatchID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.StageEnded, nil
	}
	if err != nil {
		return "", err
	}
	return participantStage(participant), nil
}

func participantStage(p *models.SessionParticipant) models.SessionStage {
	switch {
	case p.FinishedAt != nil:
		return models.StageFinished
	case p.QuizzedAt != nil:
		return models.StageQuizzed
	case p.RatedAt != nil:
		return models.StageRated
	default:
		return models.StageEnded
	}
}

// loadParticipantSession возвращает сессию по match_id, проверяя участие пользователя
func (s *sessionService) loadParticipantSession(matchID string, userID uuid.UUID) (*models.Session, error) {
	session, err := s.sessionRepo.GetByMatchID(matchID)
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

// EndSession завершает live сессию для обоих участников и запрашивает итог у AI.
// Сбой AI не отменяет завершение
func (s *sessionService) EndSession(ctx context.Context, actor Actor) (*EndResult, error) {
	profile, err := s.profileRepo.GetByUserID(actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if profile.Status != models.StatusMatched || profile.MatchID == nil {
		return nil, ErrInvalidTransition
	}
	matchID := *profile.MatchID

	session, err := s.loadParticipantSession(matchID, actor.UserID)
	if err != nil {
		return nil, err
	}

	ended := s.now()
	err = s.tx.WithinTx(func(tx *gorm.DB) error {
		sessions := s.sessionRepo.WithTx(tx)
		if err := sessions.Transition(matchID, models.SessionLive, models.SessionEnded, map[string]interface{}{
			"ended_at": &ended,
			"ended_by": actor.UserID,
		}); err != nil {
			return err
		}
		if _, err := s.profileRepo.WithTx(tx).SetStatusByMatchID(matchID, models.StatusMatched, models.StatusBusy); err != nil {
			return err
		}
		return sessions.CreateParticipants(matchID, session.ParticipantA, session.ParticipantB)
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}

	metrics.SessionsEnded.Inc()
	log.Printf("session %s ended by %s", matchID, actor.UserID)

	result := &EndResult{MatchID: matchID}
	transcript, err := s.chat.Transcript(matchID)
	if err != nil {
		log.Printf("Failed to load transcript for %s: %v", matchID, err)
	}
	if len(transcript) == 0 {
		result.Summary = "No messages were exchanged in this session."
	} else {
		summary, err := s.ask(ctx, ai.Request{
			Prompt:    "Summarize this peer tutoring session in 3 to 5 short bullet points: the topics covered and what the student should review next.\n\n" + FormatTranscript(transcript),
			MaxTokens: 300,
		})
		if err != nil {
			log.Printf("Failed to summarize session %s: %v", matchID, err)
			result.AIError = ErrAIUnavailable.Error()
		} else {
			result.Summary = summary
			if err := s.sessionRepo.SetSummary(matchID, summary); err != nil {
				log.Printf("Failed to store summary for %s: %v", matchID, err)
			}
		}
	}

	for _, userID := range []uuid.UUID{session.ParticipantA, session.ParticipantB} {
		if s.streaks != nil {
			if _, err := s.streaks.RecordActivity(userID, ended); err != nil {
				log.Printf("Failed to record streak for %s: %v", userID, err)
			}
		}
	}
	if s.publisher != nil {
		s.publisher.Broadcast(realtime.MatchRoom(matchID), realtime.Event{Type: "session_ended", Data: result})
	}
	if peer, ok := session.Peer(actor.UserID); ok {
		notify(s.notifications, peer, models.NotificationTypeSessionEnded, matchID,
			"Session ended", fmt.Sprintf("%s ended the session. Rate it and take the quiz.", displayName(actor.Name)))
	}

	return result, nil
}

// SubmitRating сохраняет оценку 1-5; повторная оценка того же участника отклоняется, если включена проверка
func (s *sessionService) SubmitRating(actor Actor, matchID string, rating int, feedback string) (*models.Rating, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	session, err := s.loadParticipantSession(matchID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionEnded {
		return nil, ErrInvalidTransition
	}
	peer, _ := session.Peer(actor.UserID)

	record := &models.Rating{
		MatchID:  matchID,
		RaterID:  actor.UserID,
		RateeID:  peer,
		Rating:   rating,
		Feedback: strings.TrimSpace(feedback),
	}
	err = s.tx.WithinTx(func(tx *gorm.DB) error {
		ratings := s.ratingRepo.WithTx(tx)
		if s.cfg.RatingDuplicateCheck {
			exists, err := ratings.ExistsForRater(matchID, actor.UserID)
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateRating
			}
		}
		if err := ratings.Create(record); err != nil {
			return err
		}
		return s.sessionRepo.WithTx(tx).MarkParticipant(matchID, actor.UserID, "rated_at")
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateRating) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}

	metrics.RatingsSubmitted.Inc()
	if err := s.completeIfDone(matchID, actor.UserID); err != nil {
		log.Printf("Failed to complete session %s for %s: %v", matchID, actor.UserID, err)
	}
	return record, nil
}

// GenerateQuiz просит у AI три вопроса по переписке. Неразборчивый ответ дает меньше вопросов, а не ошибку
func (s *sessionService) GenerateQuiz(ctx context.Context, actor Actor, matchID string) (*QuizResult, error) {
	if !s.cfg.QuizEnabled {
		return nil, ErrQuizDisabled
	}
	session, err := s.loadParticipantSession(matchID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionEnded {
		return nil, ErrInvalidTransition
	}
	if s.cfg.RatingBeforeQuiz {
		participant, err := s.sessionRepo.GetParticipant(matchID, actor.UserID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if participant == nil || participant.RatedAt == nil {
			return nil, ErrRatingRequired
		}
	}

	// Неотвеченный квиз отдаем повторно, не обращаясь к AI
	pending, err := s.quizRepo.GetUnanswered(matchID, actor.UserID)
	if err == nil {
		return storedQuizResult(pending)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	transcript, err := s.chat.Transcript(matchID)
	if err != nil {
		return nil, err
	}
	if len(transcript) == 0 {
		return &QuizResult{Questions: []models.QuizQuestion{}, NotEnoughContent: true}, nil
	}

	raw, err := s.ask(ctx, ai.Request{Prompt: quizPrompt(transcript), MaxTokens: 700})
	if err != nil {
		log.Printf("Failed to generate quiz for %s: %v", matchID, err)
		return nil, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	questions := s.parser.Parse(raw)
	if len(questions) > QuizQuestionCount {
		questions = questions[:QuizQuestionCount]
	}
	result := &QuizResult{Questions: questions, NotEnoughContent: len(questions) < QuizQuestionCount}
	if len(questions) == 0 {
		log.Printf("quiz for %s: %v", matchID, ErrMalformedQuizOutput)
		return result, nil
	}

	encoded, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}
	quiz := &models.Quiz{
		MatchID:   matchID,
		UserID:    actor.UserID,
		Questions: datatypes.JSON(encoded),
		Raw:       raw,
	}
	if err := s.quizRepo.Create(quiz); err != nil {
		return nil, fmt.Errorf("failed to save quiz: %w", err)
	}
	result.Quiz = quiz
	return result, nil
}

func storedQuizResult(quiz *models.Quiz) (*QuizResult, error) {
	var questions []models.QuizQuestion
	if err := json.Unmarshal(quiz.Questions, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode quiz: %w", err)
	}
	return &QuizResult{
		Quiz:             quiz,
		Questions:        questions,
		NotEnoughContent: len(questions) < QuizQuestionCount,
	}, nil
}

func quizPrompt(transcript []models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create exactly %d multiple-choice questions that test the concepts discussed in this study session.\n", QuizQuestionCount)
	b.WriteString("Use exactly this format for every question and nothing else:\n")
	b.WriteString("Q1. <question>\nA) <option>\nB) <option>\nC) <option>\nD) <option>\nAnswer: <letter>\n\n")
	b.WriteString("Session transcript:\n")
	b.WriteString(FormatTranscript(transcript))
	return b.String()
}

// SubmitQuiz проверяет ответы и отмечает участника как прошедшего квиз
func (s *sessionService) SubmitQuiz(actor Actor, quizID uuid.UUID, answers []string) (*QuizScore, error) {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	if quiz.UserID != actor.UserID {
		return nil, ErrNotParticipant
	}
	if quiz.AnsweredAt != nil {
		return nil, ErrQuizAnswered
	}

	var questions []models.QuizQuestion
	if err := json.Unmarshal(quiz.Questions, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode quiz: %w", err)
	}
	score := &QuizScore{Total: len(questions)}
	for i, q := range questions {
		if i < len(answers) && strings.EqualFold(strings.TrimSpace(answers[i]), q.Answer) {
			score.Correct++
		}
	}

	err = s.tx.WithinTx(func(tx *gorm.DB) error {
		if err := s.quizRepo.WithTx(tx).SaveResult(quiz.ID, score.Correct); err != nil {
			return err
		}
		return s.sessionRepo.WithTx(tx).MarkParticipant(quiz.MatchID, actor.UserID, "quizzed_at")
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrQuizAnswered
		}
		return nil, fmt.Errorf("failed to save quiz result: %w", err)
	}
	if s.streaks != nil {
		if _, err := s.streaks.RecordActivity(actor.UserID, s.now()); err != nil {
			log.Printf("Failed to record streak for %s: %v", actor.UserID, err)
		}
	}
	if err := s.completeIfDone(quiz.MatchID, actor.UserID); err != nil {
		log.Printf("Failed to complete session %s for %s: %v", quiz.MatchID, actor.UserID, err)
	}

	participant, err := s.sessionRepo.GetParticipant(quiz.MatchID, actor.UserID)
	if err == nil {
		score.Stage = participantStage(participant)
	}
	return score, nil
}

// FinishSession пропускает оставшиеся шаги и возвращает пользователя в пул ожидания
func (s *sessionService) FinishSession(actor Actor) error {
	profile, err := s.profileRepo.GetByUserID(actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProfileNotFound
		}
		return err
	}
	if profile.Status != models.StatusBusy || profile.MatchID == nil {
		return ErrInvalidTransition
	}
	return s.finish(*profile.MatchID, actor.UserID)
}

// completeIfDone возвращает участника в waiting, когда оценка и квиз (если включен) пройдены
func (s *sessionService) completeIfDone(matchID string, userID uuid.UUID) error {
	participant, err := s.sessionRepo.GetParticipant(matchID, userID)
	if err != nil {
		return err
	}
	if participant.FinishedAt != nil || participant.RatedAt == nil {
		return nil
	}
	if s.cfg.QuizEnabled && participant.QuizzedAt == nil {
		return nil
	}
	return s.finish(matchID, userID)
}

func (s *sessionService) finish(matchID string, userID uuid.UUID) error {
	return s.tx.WithinTx(func(tx *gorm.DB) error {
		if err := s.sessionRepo.WithTx(tx).MarkParticipant(matchID, userID, "finished_at"); err != nil {
			return err
		}
		return s.profileRepo.WithTx(tx).ResetUser(userID, matchID)
	})
}

func (s *sessionService) ask(ctx context.Context, request ai.Request) (string, error) {
	if s.cfg.AITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AITimeout)
		defer cancel()
	}
	answer, err := s.assistant.Ask(ctx, request)
	if err == nil && strings.TrimSpace(answer) == "" {
		err = errors.New("empty answer")
	}
	metrics.ObserveAI(err)
	return answer, err
}

// FormatTranscript собирает переписку в текст для AI
func FormatTranscript(messages []models.Message) string {
	var b strings.Builder
	for _, m := range messages {
		text := m.Message
		if text == "" && m.FileID != nil {
			text = "[shared a file]"
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Sender, text)
	}
	return b.String()
}
