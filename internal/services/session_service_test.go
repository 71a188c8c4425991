package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sahay/internal/models"
	"sahay/internal/repository"
	"sahay/pkg/realtime"
)

const threeQuestions = `Q1. What is a derivative?
A) An area
B) A rate of change
C) A constant
D) A vector
Answer: B

Q2. Derivative of x^2?
A) x
B) 2
C) 2x
D) x^3
Answer: C

Q3. Derivative of a constant?
A) 0
B) 1
C) The constant
D) Undefined
Answer: A`

// endedSession доводит пару до завершенной сессии с перепиской
func endedSession(t *testing.T, env *testEnv) (Actor, Actor, string) {
	t.Helper()

	a := env.newUser(t, "Asha", studentInput("Math"))
	b := env.newUser(t, "Meera", teacherInput("Math"))
	matchID := env.liveSession(t, a, b)
	if _, err := env.chat.SendMessage(a, "How do derivatives work?", nil); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if _, err := env.session.EndSession(context.Background(), a); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	return a, b, matchID
}

func TestEndSessionMovesBothToBusy(t *testing.T) {
	env := newTestEnv(t, defaultSessionConfig())
	env.ai.answer = "- derivatives\n- limits"
	a := env.newUser(t, "Asha", studentInput("Math"))
	b := env.newUser(t, "Meera", teacherInput("Math"))
	matchID := env.liveSession(t, a, b)
	if _, err := env.chat.SendMessage(b, "A derivative is a slope.", nil); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	result, err := env.session.EndSession(context.Background(), a)
	if err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if result.Summary != "- derivatives\n- limits" || result.AIError != "" {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(env.ai.prompts[0], "Meera: A derivative is a slope.") {
		t.Fatalf("summary prompt does not contain the transcript: %q", env.ai.prompts[0])
	}

	for _, actor := range []Actor{a, b} {
		if p := env.profileOf(t, actor); p.Status != models.StatusBusy {
			t.Fatalf("%s status = %s, want busy", actor.Name, p.Status)
		}
		state, err := env.session.State(actor)
		if err != nil {
			t.Fatalf("State() error = %v", err)
		}
		if state.Stage != models.StageEnded {
			t.Fatalf("%s stage = %s, want ended", actor.Name, state.Stage)
		}
	}
	session, _ := env.sessions.GetByMatchID(matchID)
	if session.Status != models.SessionEnded || session.Summary != result.Summary {
		t.Fatalf("session = %+v", session)
	}
	if types := env.publisher.eventTypes(realtime.MatchRoom(matchID)); len(types) != 1 || types[0] != "session_ended" {
		t.Fatalf("room events = %v", types)
	}

	if _, err := env.session.EndSession(context.Background(), b); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second EndSession() error = %v, want ErrInvalidTransition", err)
	}
	if _, err := env.chat.SendMessage(a, "still here?", nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("send after end error = %v, want ErrInvalidTransition", err)
	}
}

func TestEndSessionSurvivesAIFailure(t *testing.T) {
	env := newTestEnv(t, defaultSessionConfig())
	env.ai.err = errors.New("provider down")
	a := env.newUser(t, "Asha", studentInput("Math"))
	b := env.newUser(t, "Meera", teacherInput("Math"))
	env.liveSession(t, a, b)
	if _, err := env.chat.SendMessage(a, "hi", nil); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	result, err := env.session.EndSession(context.Background(), a)
	if err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if result.AIError == "" || result.Summary != "" {
		t.Fatalf("result = %+v, want AI error without summary", result)
	}
	if p := env.profileOf(t, b); p.Status != models.StatusBusy {
		t.Fatalf("peer status = %s, want busy", p.Status)
	}
}

func TestEndSessionWithoutMessagesSkipsAI(t *testing.T) {
	env := newTestEnv(t, defaultSessionConfig())
	a := env.newUser(t, "Asha", studentInput("Math"))
	b := env.newUser(t, "Meera", teacherInput("Math"))
	env.liveSession(t, a, b)

	result, err := env.session.EndSession(context.Background(), b)
	if err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if result.Summary == "" || env.ai.calls() != 0 {
		t.Fatalf("result = %+v, ai calls = %d", result, env.ai.calls())
	}
}

func TestSubmitRatingRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t, defaultSessionConfig())
	a, b, matchID := endedSession(t, env)

	if _, err := env.session.SubmitRating(a, matchID, 6, ""); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("rating 6 error = %v, want ErrInvalidRating", err)
	}
	rating, err := env.session.SubmitRating(a, matchID, 5, " great ")
	if err != nil {
		t.Fatalf("SubmitRating() error = %v", err)
	}
	if rating.RateeID != b.UserID || rating.Feedback != "great" {
		t.Fatalf("rating = %+v", rating)
	}
	if _, err := env.session.SubmitRating(a, matchID, 4, ""); !errors.Is(err, ErrDuplicateRating) {
		t.Fatalf("duplicate rating error = %v, want ErrDuplicateRating", err)
	}

	ratings, err := env.ratings.ListByMatch(matchID)
	if err != nil || len(ratings) != 1 {
		t.Fatalf("stored ratings = %d, %v; want 1", len(ratings), err)
	}

	state, _ := env.session.State(a)
	if state.Stage != models.StageRated {
		t.Fatalf("stage = %s, want rated", state.Stage)
	}
}

func TestSubmitRatingAllowsRepeatsWhenCheckDisabled(t *testing.T) {
	cfg := defaultSessionConfig()
	cfg.RatingDuplicateCheck = false
	env := newTestEnv(t, cfg)
	a, _, matchID := endedSession(t, env)

	for i := 0; i < 2; i++ {
		if _, err := env.session.SubmitRating(a, matchID, 4, ""); err != nil {
			t.Fatalf("SubmitRating() #%d error = %v", i, err)
		}
	}
}

func TestSubmitRatingRequiresParticipant(t *testing.T) {
	env := newTestEnv(t, defaultSessionConfig())
	_, _, matchID := endedSession(t, env)
	outsider := env.newUser(t, "Kiran", studentInput("Physics"))

	if _, err := env.session.SubmitRating(outsider, matchID, 5, ""); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("outsider rating error = %v, want ErrNotParticipant", err)
	}
	if _, err := env.session.SubmitRating(outsider, "missing", 5, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown session error = %v, want ErrSessionNotFound", err)
	}
}

func TestGenerateQuizRequiresRatingWhenConfigured(t *testing.T) {
	cfg := defaultSessionConfig()
	cfg.RatingBeforeQuiz = true
	env := newTestEnv(t, cfg)
	a, _, matchID := endedSession(t, env)
	env.ai.answer = threeQuestions

	if _, err := env.session.GenerateQuiz(context.Background(), a, matchID); !errors.Is(err, ErrRatingRequired) {
		t.Fatalf("GenerateQuiz() before rating error = %v, want ErrRatingRequired", err)
	}
	if _, err := env.session.SubmitRating(a, matchID, 5, ""); err != nil {
		t.Fatalf("SubmitRating() error = %v", err)
	}
	result, err := env.session.GenerateQuiz(context.Background(), a, matchID)
	if err != nil {
		t.Fatalf("GenerateQuiz() error = %v", err)
	}
	if len(result.Questions) != 3 || result.NotEnoughContent || result.Quiz == nil {
		t.Fatalf("quiz = %+v", result)
	}
}

func TestGenerateQuizDegradesOnMalformedOutput(t *testing.T) {
	env := newTestEnv(t, defaultSessionConfig())
	a, _, matchID := endedSession(t, env)
	env.ai.answer = "Sorry, here are some thoughts instead of a quiz."

	result, err := env.session.GenerateQuiz(context.Background(), a, matchID)
	if err != nil {
		t.Fatalf("GenerateQuiz() error = %v", err)
	}
	if !result.NotEnoughContent || len(result.Questions) != 0 || result.Quiz != nil {
		t.Fatalf("result = %+v, want not enough content", result)
	}
}

func TestGenerateQuizReportsAIFailure(t *testing.T) {
	env := newTestEnv(t, defaultSessionConfig())
	a, _, matchID := endedSession(t, env)
	env.ai.err = errors.New("timeout")

	if _, err := env.session.GenerateQuiz(context.Background(), a, matchID); !errors.Is(err, ErrAIUnavailable) {
		t.Fatalf("GenerateQuiz() error = %v, want ErrAIUnavailable", err)
	}
}

func TestGenerateQuizDisabled(t *testing.T) {
	cfg := defaultSessionConfig()
	cfg.QuizEnabled = false
	env := newTestEnv(t, cfg)
	a, _, matchID := endedSession(t, env)

	if _, err := env.session.GenerateQuiz(context.Background(), a, matchID); !errors.Is(err, ErrQuizDisabled) {
		t.Fatalf("GenerateQuiz() error = %v, want ErrQuizDisabled", err)
	}

	// Без квиза оценки достаточно для возврата в пул
	if _, err := env.session.SubmitRating(a, matchID, 5, ""); err != nil {
		t.Fatalf("SubmitRating() error = %v", err)
	}
	if p := env.profileOf(t, a); p.Status != models.StatusWaiting || p.MatchID != nil {
		t.Fatalf("profile after rating = %+v, want waiting", p)
	}
}

func TestCompletingRatingAndQuizReturnsToPool(t *testing.T) {
	env := newTestEnv(t, defaultSessionConfig())
	a, b, matchID := endedSession(t, env)
	env.ai.answer = threeQuestions

	result, err := env.session.GenerateQuiz(context.Background(), a, matchID)
	if err != nil {
		t.Fatalf("GenerateQuiz() error = %v", err)
	}
	score, err := env.session.SubmitQuiz(a, result.Quiz.ID, []string{"b", "C", "D"})
	if err != nil {
		t.Fatalf("SubmitQuiz() error = %v", err)
	}
	if score.Correct != 2 || score.Total != 3 || score.Stage != models.StageQuizzed {
		t.Fatalf("score = %+v", score)
	}
	if _, err := env.session.SubmitQuiz(a, result.Quiz.ID, nil); !errors.Is(err, ErrQuizAnswered) {
		t.Fatalf("second SubmitQuiz() error = %v, want ErrQuizAnswered", err)
	}
	if _, err := env.session.SubmitQuiz(b, result.Quiz.ID, nil); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("foreign SubmitQuiz() error = %v, want ErrNotParticipant", err)
	}

	if p := env.profileOf(t, a); p.Status != models.StatusBusy {
		t.Fatalf("status before rating = %s, want busy", p.Status)
	}
	if _, err := env.session.SubmitRating(a, matchID, 4, ""); err != nil {
		t.Fatalf("SubmitRating() error = %v", err)
	}

	if p := env.profileOf(t, a); p.Status != models.StatusWaiting || p.MatchID != nil {
		t.Fatalf("profile after completion = %+v, want waiting", p)
	}
	// Второй участник остается на своем этапе
	if p := env.profileOf(t, b); p.Status != models.StatusBusy {
		t.Fatalf("peer status = %s, want busy", p.Status)
	}

	streak, err := env.streaks.Get(a.UserID)
	if err != nil || streak.Current != 1 {
		t.Fatalf("streak = %+v, %v; want 1 day", streak, err)
	}
}

func TestGenerateQuizReusesUnansweredQuiz(t *testing.T) {
	env := newTestEnv(t, defaultSessionConfig())
	a, _, matchID := endedSession(t, env)
	env.ai.answer = threeQuestions

	first, err := env.session.GenerateQuiz(context.Background(), a, matchID)
	if err != nil {
		t.Fatalf("GenerateQuiz() error = %v", err)
	}
	calls := env.ai.calls()

	second, err := env.session.GenerateQuiz(context.Background(), a, matchID)
	if err != nil {
		t.Fatalf("second GenerateQuiz() error = %v", err)
	}
	if second.Quiz == nil || second.Quiz.ID != first.Quiz.ID || len(second.Questions) != 3 {
		t.Fatalf("second quiz = %+v, want %s again", second, first.Quiz.ID)
	}
	if env.ai.calls() != calls {
		t.Fatalf("AI calls = %d, want %d", env.ai.calls(), calls)
	}

	if _, err := env.session.SubmitQuiz(a, first.Quiz.ID, []string{"B", "C", "A"}); err != nil {
		t.Fatalf("SubmitQuiz() error = %v", err)
	}
	third, err := env.session.GenerateQuiz(context.Background(), a, matchID)
	if err != nil {
		t.Fatalf("third GenerateQuiz() error = %v", err)
	}
	if third.Quiz == nil || third.Quiz.ID == first.Quiz.ID {
		t.Fatalf("quiz after answering = %+v, want a new one", third.Quiz)
	}
}

// flakyMarks отказывает в отметке quizzed_at, пока fail выставлен
type flakyMarks struct {
	repository.SessionRepository
	fail *bool
}

func (f flakyMarks) WithTx(tx *gorm.DB) repository.SessionRepository {
	return flakyMarks{SessionRepository: f.SessionRepository.WithTx(tx), fail: f.fail}
}

func (f flakyMarks) MarkParticipant(matchID string, userID uuid.UUID, column string) error {
	if *f.fail && column == "quizzed_at" {
		return errors.New("disk I/O error")
	}
	return f.SessionRepository.MarkParticipant(matchID, userID, column)
}

func TestSubmitQuizRollsBackWhenMarkFails(t *testing.T) {
	env := newTestEnv(t, defaultSessionConfig())
	a, _, matchID := endedSession(t, env)
	env.ai.answer = threeQuestions

	fail := true
	service := NewSessionService(env.tx, env.profiles, flakyMarks{SessionRepository: env.sessions, fail: &fail},
		env.ratings, env.quizzes, env.chat, env.ai, LineQuizParser{}, env.streaks, env.notifications,
		env.publisher, defaultSessionConfig())

	result, err := service.GenerateQuiz(context.Background(), a, matchID)
	if err != nil {
		t.Fatalf("GenerateQuiz() error = %v", err)
	}
	if _, err := service.SubmitQuiz(a, result.Quiz.ID, []string{"B", "C", "A"}); err == nil || errors.Is(err, ErrQuizAnswered) {
		t.Fatalf("SubmitQuiz() error = %v, want storage error", err)
	}
	quiz, err := env.quizzes.GetByID(result.Quiz.ID)
	if err != nil || quiz.AnsweredAt != nil {
		t.Fatalf("quiz after failed submit = %+v, %v; want unanswered", quiz, err)
	}

	fail = false
	score, err := service.SubmitQuiz(a, result.Quiz.ID, []string{"B", "C", "A"})
	if err != nil {
		t.Fatalf("retried SubmitQuiz() error = %v", err)
	}
	if score.Correct != 3 || score.Stage != models.StageQuizzed {
		t.Fatalf("score = %+v", score)
	}
}

func TestFinishSessionSkipsRemainingSteps(t *testing.T) {
	env := newTestEnv(t, defaultSessionConfig())
	a, b, _ := endedSession(t, env)

	if err := env.session.FinishSession(b); err != nil {
		t.Fatalf("FinishSession() error = %v", err)
	}
	if p := env.profileOf(t, b); p.Status != models.StatusWaiting || p.MatchID != nil {
		t.Fatalf("profile after finish = %+v", p)
	}
	if err := env.session.FinishSession(b); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second FinishSession() error = %v, want ErrInvalidTransition", err)
	}
	if p := env.profileOf(t, a); p.Status != models.StatusBusy {
		t.Fatalf("peer status = %s, want busy", p.Status)
	}

	// Вернувшийся в пул снова доступен для подбора
	if _, err := env.profile.SaveProfile(b, teacherInput("Math", "Physics")); err != nil {
		t.Fatalf("SaveProfile() after finish error = %v", err)
	}
}

func TestFormatTranscript(t *testing.T) {
	got := FormatTranscript([]models.Message{
		{Sender: "Asha", Message: "hi"},
		{Sender: "Meera", Message: "hello"},
	})
	if got != "Asha: hi\nMeera: hello\n" {
		t.Fatalf("FormatTranscript() = %q", got)
	}
}
