package services

import (
	"errors"
	"fmt"
	"time"

	"sahay/internal/models"
	"sahay/internal/repository"

	"github.com/google/uuid"
)

const dayLayout = "2006-01-02"

// StreakLevel описывает ступень серии
type StreakLevel struct {
	MinDays int
	Name    string
}

var streakLevels = []StreakLevel{
	{MinDays: 0, Name: "Seedling"},
	{MinDays: 3, Name: "Growing"},
	{MinDays: 7, Name: "Established"},
	{MinDays: 14, Name: "Legend"},
}

// StreakView представляет серию для клиента
type StreakView struct {
	Current       int     `json:"current"`
	Longest       int     `json:"longest"`
	LastActiveDay string  `json:"last_active_day,omitempty"`
	Level         string  `json:"level"`
	WeekProgress  float64 `json:"week_progress"` // доля недели от 0 до 1
}

type StreakService interface {
	RecordActivity(userID uuid.UUID, at time.Time) (*models.UserStreak, error)
	Get(userID uuid.UUID) (*StreakView, error)
}

type streakService struct {
	repo repository.StreakRepository
}

func NewStreakService(repo repository.StreakRepository) StreakService {
	return &streakService{repo: repo}
}

// RecordActivity учитывает учебный день: тот же день не меняет серию,
// следующий день продлевает, пропуск начинает заново
func (s *streakService) RecordActivity(userID uuid.UUID, at time.Time) (*models.UserStreak, error) {
	streak, err := s.repo.Get(userID)
	if errors.Is(err, repository.ErrNotFound) {
		streak = &models.UserStreak{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}

	today := at.UTC().Format(dayLayout)
	if streak.LastActiveDay == today {
		return streak, nil
	}

	next := 1
	if last, err := time.Parse(dayLayout, streak.LastActiveDay); err == nil {
		day, _ := time.Parse(dayLayout, today)
		if day.Sub(last) == 24*time.Hour {
			next = streak.Current + 1
		}
	}
	streak.Current = next
	streak.LastActiveDay = today
	if streak.Current > streak.Longest {
		streak.Longest = streak.Current
	}

	if err := s.repo.Save(streak); err != nil {
		return nil, fmt.Errorf("failed to save streak: %w", err)
	}
	return streak, nil
}

func (s *streakService) Get(userID uuid.UUID) (*StreakView, error) {
	streak, err := s.repo.Get(userID)
	if errors.Is(err, repository.ErrNotFound) {
		streak = &models.UserStreak{UserID: userID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}
	return newStreakView(streak), nil
}

func newStreakView(streak *models.UserStreak) *StreakView {
	view := &StreakView{
		Current:       streak.Current,
		Longest:       streak.Longest,
		LastActiveDay: streak.LastActiveDay,
		Level:         streakLevels[0].Name,
	}
	for _, level := range streakLevels {
		if streak.Current >= level.MinDays {
			view.Level = level.Name
		}
	}
	// Полная неделя показывается как 1, а не 0
	step := streak.Current % 7
	switch {
	case streak.Current > 0 && step == 0:
		view.WeekProgress = 1
	default:
		view.WeekProgress = float64(step) / 7
	}
	return view
}
