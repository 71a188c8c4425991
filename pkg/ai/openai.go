package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultMaxTokens = 300

// OpenAI реализует Client для API Chat Completions.
// Подходит для любого сервера с тем же форматом (OpenRouter, vLLM, Ollama)
type OpenAI struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
}

// NewOpenAI создает клиента. Пустой httpClient заменяется http.DefaultClient
func NewOpenAI(httpClient *http.Client, baseURL, apiKey, model string, timeout time.Duration) *OpenAI {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAI{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		timeout:    timeout,
	}
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type openaiResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
}

// Ask отправляет вопрос и возвращает текст первого варианта ответа
func (provider *OpenAI) Ask(ctx context.Context, request Request) (string, error) {
	if provider.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, provider.timeout)
		defer cancel()
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	wireRequest := openaiRequest{
		Model: provider.model,
		Messages: []openaiMessage{
			{Role: "system", Content: request.SystemPrompt()},
			{Role: "user", Content: request.Prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.4,
	}

	body, err := json.Marshal(wireRequest)
	if err != nil {
		return "", fmt.Errorf("ai/openai: marshaling request: %w", err)
	}
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost,
		provider.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai/openai: creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	if provider.apiKey != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+provider.apiKey)
	}

	httpResponse, err := provider.httpClient.Do(httpRequest)
	if err != nil {
		return "", fmt.Errorf("ai/openai: sending request: %w", err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return "", readProviderError(httpResponse)
	}

	var wireResponse openaiResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&wireResponse); err != nil {
		return "", fmt.Errorf("ai/openai: decoding response: %w", err)
	}
	if len(wireResponse.Choices) == 0 {
		return "", fmt.Errorf("ai/openai: empty choices")
	}
	return strings.TrimSpace(wireResponse.Choices[0].Message.Content), nil
}

// readProviderError разбирает тело ошибки вида {"error": {"type", "message"}}
func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 64*1024))

	var errorBody struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errorBody) == nil && errorBody.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Type:       errorBody.Error.Type,
			Message:    errorBody.Error.Message,
		}
	}
	return &ProviderError{
		StatusCode: httpResponse.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}
