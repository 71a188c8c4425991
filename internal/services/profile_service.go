package services

import (
	"errors"
	"fmt"
	"strings"

	"sahay/internal/models"
	"sahay/internal/repository"

	"github.com/google/uuid"
)

// ProfileInput содержит поля формы профиля
type ProfileInput struct {
	Role           models.UserRole `json:"role"`
	Grade          string          `json:"grade"`
	TimeSlot       models.TimeSlot `json:"time_slot"`
	StrongSubjects []string        `json:"strong_subjects"`
	WeakSubjects   []string        `json:"weak_subjects"`
	Teaches        []string        `json:"teaches"`
}

type ProfileService interface {
	SaveProfile(actor Actor, input ProfileInput) (*models.Profile, error)
	GetProfile(userID uuid.UUID) (*models.Profile, error)
}

type profileService struct {
	profileRepo repository.ProfileRepository
}

func NewProfileService(profileRepo repository.ProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

// SaveProfile создает или обновляет профиль. Менять профиль можно только в пуле ожидания
func (s *profileService) SaveProfile(actor Actor, input ProfileInput) (*models.Profile, error) {
	if input.Role != models.RoleStudent && input.Role != models.RoleTeacher {
		return nil, fmt.Errorf("%w: role must be student or teacher", ErrInvalidInput)
	}
	if input.TimeSlot != "" && !input.TimeSlot.Valid() {
		return nil, fmt.Errorf("%w: unknown time slot %q", ErrInvalidInput, input.TimeSlot)
	}

	profile, err := s.profileRepo.GetByUserID(actor.UserID)
	isNew := errors.Is(err, repository.ErrNotFound)
	if err != nil && !isNew {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if isNew {
		profile = &models.Profile{UserID: actor.UserID, Status: models.StatusWaiting}
	} else if profile.Status != models.StatusWaiting {
		return nil, ErrInvalidTransition
	}

	profile.Role = input.Role
	profile.Grade = strings.TrimSpace(input.Grade)
	profile.TimeSlot = input.TimeSlot
	profile.StrongSubjects = models.JoinTags(input.StrongSubjects)
	switch input.Role {
	case models.RoleStudent:
		profile.WeakSubjects = models.JoinTags(input.WeakSubjects)
		profile.Teaches = ""
	case models.RoleTeacher:
		profile.WeakSubjects = ""
		profile.Teaches = models.JoinTags(input.Teaches)
	}

	if isNew {
		err = s.profileRepo.Create(profile)
	} else {
		err = s.profileRepo.UpdateDetails(profile)
	}
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return profile, nil
}

func (s *profileService) GetProfile(userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}
