package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"sahay/internal/models"
	"sahay/internal/repository"
)

const (
	recentSessionsLimit = 10
	consistencyGoalDays = 30
)

// RecentSession представляет строку истории занятий
type RecentSession struct {
	MatchID        string     `json:"match_id"`
	PeerID         uuid.UUID  `json:"peer_id"`
	PeerName       string     `json:"peer_name"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	RatingReceived *int       `json:"rating_received,omitempty"`
	Summary        string     `json:"summary,omitempty"`
}

// Dashboard содержит прогресс пользователя. LeaderboardRank равен 0, пока пользователя никто не оценил
type Dashboard struct {
	Profile           *models.Profile `json:"profile,omitempty"`
	Streak            *StreakView     `json:"streak"`
	ConsistencyGoal   float64         `json:"consistency_goal"` // доля 30-дневной цели
	SessionsCompleted int64           `json:"sessions_completed"`
	AverageRating     float64         `json:"average_rating"`
	RatingsReceived   int64           `json:"ratings_received"`
	LeaderboardRank   int             `json:"leaderboard_rank"`
	RecentSessions    []RecentSession `json:"recent_sessions"`
}

// DashboardService собирает прогресс пользователя из сессий, оценок и серии
type DashboardService struct {
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	ratingRepo  repository.RatingRepository
	userRepo    repository.UserRepository
	streaks     StreakService
}

func NewDashboardService(
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	ratingRepo repository.RatingRepository,
	userRepo repository.UserRepository,
	streaks StreakService,
) *DashboardService {
	return &DashboardService{
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		ratingRepo:  ratingRepo,
		userRepo:    userRepo,
		streaks:     streaks,
	}
}

func (s *DashboardService) Get(actor Actor) (*Dashboard, error) {
	dashboard := &Dashboard{RecentSessions: []RecentSession{}}

	profile, err := s.profileRepo.GetByUserID(actor.UserID)
	switch {
	case err == nil:
		dashboard.Profile = profile
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	dashboard.Streak, err = s.streaks.Get(actor.UserID)
	if err != nil {
		return nil, err
	}
	dashboard.ConsistencyGoal = float64(dashboard.Streak.Current) / consistencyGoalDays
	if dashboard.ConsistencyGoal > 1 {
		dashboard.ConsistencyGoal = 1
	}

	dashboard.SessionsCompleted, err = s.sessionRepo.CountEndedForUser(actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	dashboard.AverageRating, dashboard.RatingsReceived, err = s.ratingRepo.AverageForUser(actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}

	leaderboard, err := s.ratingRepo.Leaderboard()
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	for i, row := range leaderboard {
		if row.UserID == actor.UserID {
			dashboard.LeaderboardRank = i + 1
			break
		}
	}

	sessions, err := s.sessionRepo.ListEndedForUser(actor.UserID, recentSessionsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	for _, session := range sessions {
		dashboard.RecentSessions = append(dashboard.RecentSessions, s.recentSession(session, actor.UserID))
	}

	return dashboard, nil
}

func (s *DashboardService) recentSession(session models.Session, userID uuid.UUID) RecentSession {
	peer, _ := session.Peer(userID)
	recent := RecentSession{
		MatchID: session.MatchID,
		PeerID:  peer,
		EndedAt: session.EndedAt,
		Summary: session.Summary,
	}
	if user, err := s.userRepo.GetByID(peer); err == nil {
		recent.PeerName = user.Name
	}

	ratings, err := s.ratingRepo.ListByMatch(session.MatchID)
	if err != nil {
		log.Printf("Failed to load ratings for %s: %v", session.MatchID, err)
		return recent
	}
	for _, r := range ratings {
		if r.RateeID == userID {
			rating := r.Rating
			recent.RatingReceived = &rating
		}
	}
	return recent
}
