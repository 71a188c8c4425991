package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"sahay/internal/models"
	"sahay/internal/repository"
	"sahay/pkg/ai"
	"sahay/pkg/database"
	"sahay/pkg/realtime"
)

type fakeAI struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (f *fakeAI) Ask(_ context.Context, request ai.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, request.Prompt)
	return f.answer, f.err
}

func (f *fakeAI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakePublisher struct {
	mu     sync.Mutex
	events map[string][]realtime.Event
}

func (f *fakePublisher) Broadcast(room string, event realtime.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events == nil {
		f.events = make(map[string][]realtime.Event)
	}
	f.events[room] = append(f.events[room], event)
}

func (f *fakePublisher) eventTypes(room string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []string
	for _, e := range f.events[room] {
		types = append(types, e.Type)
	}
	return types
}

type sentTelegram struct {
	chatID int64
	title  string
}

type fakeTelegram struct {
	mu   sync.Mutex
	sent []sentTelegram
}

func (f *fakeTelegram) SendNotification(chatID int64, title, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentTelegram{chatID: chatID, title: title})
	return nil
}

type testEnv struct {
	tx            repository.TxManager
	users         repository.UserRepository
	profiles      repository.ProfileRepository
	sessions      repository.SessionRepository
	ratings       repository.RatingRepository
	quizzes       repository.QuizRepository
	auth          *AuthService
	profile       ProfileService
	match         MatchService
	chat          ChatService
	session       SessionService
	streaks       StreakService
	notifications NotificationService
	ai            *fakeAI
	publisher     *fakePublisher
	telegram      *fakeTelegram
}

func defaultSessionConfig() SessionConfig {
	return SessionConfig{QuizEnabled: true, RatingDuplicateCheck: true}
}

func newTestEnv(t *testing.T, cfg SessionConfig) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()
	db, err := database.NewInMemory(name)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		users:     repository.NewUserRepository(db.DB),
		profiles:  repository.NewProfileRepository(db.DB),
		sessions:  repository.NewSessionRepository(db.DB),
		ratings:   repository.NewRatingRepository(db.DB),
		quizzes:   repository.NewQuizRepository(db.DB),
		ai:        &fakeAI{answer: "summary"},
		publisher: &fakePublisher{},
		telegram:  &fakeTelegram{},
	}
	tx := repository.NewTxManager(db.DB)
	env.tx = tx

	env.auth = NewAuthService(env.users, "test-secret", 0)
	env.profile = NewProfileService(env.profiles)
	env.streaks = NewStreakService(repository.NewStreakRepository(db.DB))
	env.notifications = NewNotificationService(repository.NewNotificationRepository(db.DB), env.users, env.publisher, env.telegram)
	env.match = NewMatchService(tx, env.profiles, env.sessions, env.notifications, MatchConfig{RetryLimit: 3})
	env.chat = NewChatService(repository.NewChatRepository(db.DB), env.profiles, env.sessions, nil, env.publisher)
	env.session = NewSessionService(tx, env.profiles, env.sessions, env.ratings, env.quizzes,
		env.chat, env.ai, LineQuizParser{}, env.streaks, env.notifications, env.publisher, cfg)
	return env
}

// newUser регистрирует пользователя с заполненным профилем
func (e *testEnv) newUser(t *testing.T, name string, input ProfileInput) Actor {
	t.Helper()

	result, err := e.auth.Register(name, strings.ToLower(name)+"@example.org", "secret123")
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	actor := Actor{UserID: result.User.ID, Name: name}
	if _, err := e.profile.SaveProfile(actor, input); err != nil {
		t.Fatalf("save profile %s: %v", name, err)
	}
	return actor
}

func studentInput(weak ...string) ProfileInput {
	return ProfileInput{
		Role:         models.RoleStudent,
		Grade:        "8",
		TimeSlot:     models.TimeSlotEvening,
		WeakSubjects: weak,
	}
}

func teacherInput(teaches ...string) ProfileInput {
	return ProfileInput{
		Role:     models.RoleTeacher,
		Grade:    "8",
		TimeSlot: models.TimeSlotEvening,
		Teaches:  teaches,
	}
}

func (e *testEnv) profileOf(t *testing.T, actor Actor) *models.Profile {
	t.Helper()
	profile, err := e.profiles.GetByUserID(actor.UserID)
	if err != nil {
		t.Fatalf("load profile %s: %v", actor.Name, err)
	}
	return profile
}

// liveSession проводит пару через предложение и двойное согласие
func (e *testEnv) liveSession(t *testing.T, a, b Actor) string {
	t.Helper()

	matchID, err := e.match.ProposeMatch(a, b.UserID)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := e.match.AcceptMatch(a); err != nil {
		t.Fatalf("accept %s: %v", a.Name, err)
	}
	state, err := e.match.AcceptMatch(b)
	if err != nil {
		t.Fatalf("accept %s: %v", b.Name, err)
	}
	if state.Status != models.StatusMatched {
		t.Fatalf("status after both accepted = %s, want matched", state.Status)
	}
	return matchID
}
