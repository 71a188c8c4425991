// Package ai предоставляет доступ к языковой модели для объяснений,
// итогов сессии и генерации квизов. Ответы модели не имеют гарантированного
// формата, вызывающий код обязан считать их текстом без структуры.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrDisabled возвращается клиентом без ключа API
var ErrDisabled = errors.New("ai: helper is not configured")

// DefaultSystemPrompt задает тон объяснений
const DefaultSystemPrompt = "You are a helpful tutor explaining concepts simply."

// Request описывает один вопрос к модели
type Request struct {
	Prompt    string
	Grade     string // необязательный уровень класса для объяснения
	MaxTokens int
}

// SystemPrompt возвращает системную инструкцию с учетом класса
func (r Request) SystemPrompt() string {
	if r.Grade == "" {
		return DefaultSystemPrompt
	}
	return fmt.Sprintf("%s Explain at a grade %s level.", DefaultSystemPrompt, r.Grade)
}

// Client задает вопрос модели и возвращает текст ответа
type Client interface {
	Ask(ctx context.Context, request Request) (string, error)
}

// ProviderError возвращается, когда API модели ответил ошибкой
type ProviderError struct {
	StatusCode int
	Type       string
	Message    string
}

func (err *ProviderError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("ai: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
	}
	return fmt.Sprintf("ai: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsRateLimited сообщает об исчерпанной квоте (HTTP 429)
func (err *ProviderError) IsRateLimited() bool {
	return err.StatusCode == 429
}

// Disabled используется, когда ключ API не задан
type Disabled struct{}

func (Disabled) Ask(context.Context, Request) (string, error) {
	return "", ErrDisabled
}
