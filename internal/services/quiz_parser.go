package services

import (
	"regexp"
	"strings"

	"sahay/internal/models"
)

// QuizParser извлекает вопросы из ответа модели. Реализация не должна паниковать
// и возвращает только полностью разобранные вопросы
type QuizParser interface {
	Parse(raw string) []models.QuizQuestion
}

var (
	questionHeader = regexp.MustCompile(`(?m)^[ \t*#]*Q(?:uestion)?[ \t]*\d+[ \t]*[.):][ \t]*`)
	optionLine     = regexp.MustCompile(`^\(?([A-D])[).:]\s*(.*)$|^\(?([a-d])\)\s*(.*)$`)
	answerLine     = regexp.MustCompile(`(?i)^(?:correct\s+)?answer\s*[:\-]\s*\(?([A-D])\b`)
)

var optionLetters = []string{"A", "B", "C", "D"}

// LineQuizParser разбирает формат "Q1. ... A) ... B) ... C) ... D) ... Answer: X".
// Блоки начинаются с заголовка Q<n>. в начале строки, поэтому буква Q внутри текста не режет вопрос
type LineQuizParser struct{}

func (LineQuizParser) Parse(raw string) []models.QuizQuestion {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	headers := questionHeader.FindAllStringIndex(raw, -1)

	questions := []models.QuizQuestion{}
	for i, header := range headers {
		end := len(raw)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		if q, ok := parseQuestionBlock(raw[header[1]:end]); ok {
			questions = append(questions, q)
		}
	}
	return questions
}

func parseQuestionBlock(block string) (models.QuizQuestion, bool) {
	var (
		questionParts []string
		options       = map[string]string{}
		answer        string
	)

	for _, line := range strings.Split(block, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "*")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := answerLine.FindStringSubmatch(line); m != nil {
			if answer == "" {
				answer = strings.ToUpper(m[1])
			}
			continue
		}
		if m := optionLine.FindStringSubmatch(line); m != nil {
			letter, text := m[1], m[2]
			if letter == "" {
				letter, text = strings.ToUpper(m[3]), m[4]
			}
			text = strings.TrimSpace(text)
			if _, seen := options[letter]; !seen && text != "" {
				options[letter] = text
			}
			continue
		}
		// Текст вопроса идет до первого варианта
		if len(options) == 0 && answer == "" {
			questionParts = append(questionParts, line)
		}
	}

	question := strings.TrimSpace(strings.Join(questionParts, " "))
	if question == "" || answer == "" {
		return models.QuizQuestion{}, false
	}
	if _, ok := options[answer]; !ok {
		return models.QuizQuestion{}, false
	}

	q := models.QuizQuestion{Question: question, Answer: answer}
	for _, letter := range optionLetters {
		text, ok := options[letter]
		if !ok {
			return models.QuizQuestion{}, false
		}
		q.Options = append(q.Options, text)
	}
	return q, true
}

// ParseQuiz разбирает ответ модели парсером по умолчанию
func ParseQuiz(raw string) []models.QuizQuestion {
	return LineQuizParser{}.Parse(raw)
}
