package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"sahay/internal/repository"
	"sahay/pkg/ai"
	"sahay/pkg/metrics"
)

const maxQuestionLength = 2000

// AssistantService отвечает на учебные вопросы с учетом класса пользователя
type AssistantService struct {
	client      ai.Client
	profileRepo repository.ProfileRepository
	timeout     time.Duration
}

func NewAssistantService(client ai.Client, profileRepo repository.ProfileRepository, timeout time.Duration) *AssistantService {
	if client == nil {
		client = ai.Disabled{}
	}
	return &AssistantService{client: client, profileRepo: profileRepo, timeout: timeout}
}

// Ask возвращает объяснение; без профиля вопрос задается без уровня класса
func (s *AssistantService) Ask(ctx context.Context, actor Actor, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(question) > maxQuestionLength {
		return "", fmt.Errorf("%w: question is too long", ErrInvalidInput)
	}

	request := ai.Request{Prompt: question}
	if profile, err := s.profileRepo.GetByUserID(actor.UserID); err == nil {
		request.Grade = profile.Grade
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	answer, err := s.client.Ask(ctx, request)
	metrics.ObserveAI(err)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	return answer, nil
}
