package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"sahay/internal/models"
	"sahay/internal/repository"
	"sahay/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Candidate представляет предложенного партнера
type Candidate struct {
	UserID   uuid.UUID       `json:"user_id"`
	Name     string          `json:"name"`
	Role     models.UserRole `json:"role"`
	Grade    string          `json:"grade"`
	TimeSlot models.TimeSlot `json:"time_slot"`
	Strong   []string        `json:"strong_subjects"`
	Weak     []string        `json:"weak_subjects"`
	Score    int             `json:"score"`
}

func newCandidate(profile *models.Profile, score int) *Candidate {
	return &Candidate{
		UserID:   profile.UserID,
		Name:     profile.User.Name,
		Role:     profile.Role,
		Grade:    profile.Grade,
		TimeSlot: profile.TimeSlot,
		Strong:   profile.Strong(),
		Weak:     profile.Weak(),
		Score:    score,
	}
}

// HandshakeState описывает состояние подтверждения пары для участника
type HandshakeState struct {
	MatchID      string               `json:"match_id"`
	Status       models.ProfileStatus `json:"status"`
	Accepted     bool                 `json:"accepted"`
	PeerAccepted bool                 `json:"peer_accepted"`
}

// MatchConfig содержит параметры подбора
type MatchConfig struct {
	Threshold  int
	Jitter     int
	RetryLimit int
}

type MatchService interface {
	FindMatch(actor Actor) (*Candidate, error)
	ProposeMatch(actor Actor, candidateID uuid.UUID) (string, error)
	MatchNow(actor Actor) (*Candidate, string, error)
	AcceptMatch(actor Actor) (*HandshakeState, error)
	DeclineMatch(actor Actor) error
	ExpireStaleProposals(olderThan time.Time) (int, error)
}

type matchService struct {
	tx            repository.TxManager
	profileRepo   repository.ProfileRepository
	sessionRepo   repository.SessionRepository
	notifications NotificationService
	scorer        Scorer
	retryLimit    int
	now           func() time.Time
}

func NewMatchService(
	tx repository.TxManager,
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	notifications NotificationService,
	cfg MatchConfig,
) MatchService {
	if cfg.RetryLimit < 1 {
		cfg.RetryLimit = 1
	}
	return &matchService{
		tx:            tx,
		profileRepo:   profileRepo,
		sessionRepo:   sessionRepo,
		notifications: notifications,
		scorer:        Scorer{Threshold: cfg.Threshold, Jitter: cfg.Jitter},
		retryLimit:    cfg.RetryLimit,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// NewMatchID строит идентификатор сессии из упорядоченной пары участников и времени
func NewMatchID(a, b uuid.UUID, at time.Time) string {
	first, second := a.String(), b.String()
	if first > second {
		first, second = second, first
	}
	return first + "_" + second + "_" + strconv.FormatInt(at.UnixNano(), 36)
}

func (s *matchService) loadOwnProfile(userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

// FindMatch ищет лучшего кандидата среди ожидающих. nil без ошибки означает, что никого не нашлось
func (s *matchService) FindMatch(actor Actor) (*Candidate, error) {
	profile, err := s.loadOwnProfile(actor.UserID)
	if err != nil {
		return nil, err
	}
	if !profile.Complete() {
		return nil, ErrProfileIncomplete
	}

	waiting, err := s.profileRepo.ListWaiting(actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting profiles: %w", err)
	}
	pool := waiting[:0]
	for _, candidate := range waiting {
		if candidate.Complete() {
			pool = append(pool, candidate)
		}
	}

	best, score := s.scorer.Best(profile, pool)
	if best == nil {
		return nil, nil
	}
	return newCandidate(best, score), nil
}

// ProposeMatch атомарно переводит обоих участников в confirming
func (s *matchService) ProposeMatch(actor Actor, candidateID uuid.UUID) (string, error) {
	if candidateID == actor.UserID {
		return "", fmt.Errorf("%w: cannot match with yourself", ErrInvalidInput)
	}
	profile, err := s.loadOwnProfile(actor.UserID)
	if err != nil {
		return "", err
	}
	if !profile.Complete() {
		return "", ErrProfileIncomplete
	}
	if profile.Status != models.StatusWaiting {
		return "", ErrInvalidTransition
	}

	candidate, err := s.profileRepo.GetByUserID(candidateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("failed to load candidate: %w", err)
	}
	if !candidate.Complete() {
		return "", ErrCandidateUnavailable
	}

	now := s.now()
	matchID := NewMatchID(actor.UserID, candidateID, now)
	session := &models.Session{
		MatchID:      matchID,
		ParticipantA: actor.UserID,
		ParticipantB: candidateID,
		Score:        Score(profile, candidate),
		Status:       models.SessionProposed,
		ProposedAt:   now,
	}

	err = s.tx.WithinTx(func(tx *gorm.DB) error {
		if err := s.profileRepo.WithTx(tx).ClaimPair(actor.UserID, candidateID, matchID); err != nil {
			return err
		}
		return s.sessionRepo.WithTx(tx).Create(session)
	})
	if errors.Is(err, repository.ErrConflict) {
		return "", ErrCandidateUnavailable
	}
	if err != nil {
		return "", fmt.Errorf("failed to propose match: %w", err)
	}

	metrics.MatchesProposed.Inc()
	log.Printf("match %s proposed: %s -> %s (score %d)", matchID, actor.UserID, candidateID, session.Score)
	notify(s.notifications, candidateID, models.NotificationTypeMatchProposed, matchID,
		"New study partner",
		fmt.Sprintf("%s wants to study with you. Accept or decline the proposal.", displayName(actor.Name)))

	return matchID, nil
}

// MatchNow ищет и предлагает пару, повторяя поиск, если кандидата перехватили
func (s *matchService) MatchNow(actor Actor) (*Candidate, string, error) {
	for attempt := 0; attempt < s.retryLimit; attempt++ {
		candidate, err := s.FindMatch(actor)
		if err != nil || candidate == nil {
			return nil, "", err
		}
		matchID, err := s.ProposeMatch(actor, candidate.UserID)
		if errors.Is(err, ErrCandidateUnavailable) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return candidate, matchID, nil
	}
	return nil, "", ErrCandidateUnavailable
}

// AcceptMatch отмечает согласие. Когда согласны оба, пара становится matched, а сессия live
func (s *matchService) AcceptMatch(actor Actor) (*HandshakeState, error) {
	profile, err := s.loadOwnProfile(actor.UserID)
	if err != nil {
		return nil, err
	}
	if profile.MatchID == nil {
		return nil, ErrInvalidTransition
	}
	matchID := *profile.MatchID
	if profile.Status == models.StatusMatched {
		return &HandshakeState{MatchID: matchID, Status: models.StatusMatched, Accepted: true, PeerAccepted: true}, nil
	}
	if profile.Status != models.StatusConfirming {
		return nil, ErrInvalidTransition
	}

	state := &HandshakeState{MatchID: matchID, Status: models.StatusConfirming, Accepted: true}
	var participants []models.Profile
	err = s.tx.WithinTx(func(tx *gorm.DB) error {
		profiles := s.profileRepo.WithTx(tx)
		if err := profiles.SetAccepted(actor.UserID, matchID); err != nil {
			return err
		}
		pair, err := profiles.ListByMatchID(matchID)
		if err != nil {
			return err
		}
		participants = pair
		if len(pair) != 2 {
			return repository.ErrConflict
		}
		for _, p := range pair {
			if p.UserID != actor.UserID {
				state.PeerAccepted = p.Accepted
			}
		}
		if !state.PeerAccepted {
			return nil
		}

		if n, err := profiles.SetStatusByMatchID(matchID, models.StatusConfirming, models.StatusMatched); err != nil {
			return err
		} else if n != 2 {
			return repository.ErrConflict
		}
		started := s.now()
		if err := s.sessionRepo.WithTx(tx).Transition(matchID, models.SessionProposed, models.SessionLive,
			map[string]interface{}{"started_at": &started}); err != nil {
			return err
		}
		state.Status = models.StatusMatched
		return nil
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("failed to accept match: %w", err)
	}

	if state.Status == models.StatusMatched {
		metrics.SessionsStarted.Inc()
		log.Printf("session %s is live", matchID)
		for _, p := range participants {
			notify(s.notifications, p.UserID, models.NotificationTypeMatchLive, matchID,
				"Session started", "Both of you accepted. Your study room is open.")
		}
	}
	return state, nil
}

// DeclineMatch сбрасывает обоих участников в waiting и сразу уведомляет второго
func (s *matchService) DeclineMatch(actor Actor) error {
	profile, err := s.loadOwnProfile(actor.UserID)
	if err != nil {
		return err
	}
	if profile.Status != models.StatusConfirming || profile.MatchID == nil {
		return ErrInvalidTransition
	}
	matchID := *profile.MatchID

	session, err := s.cancelProposal(matchID, models.SessionDeclined, &actor.UserID)
	if err != nil {
		return err
	}

	metrics.MatchesDeclined.Inc()
	log.Printf("match %s declined by %s", matchID, actor.UserID)
	if peer, ok := session.Peer(actor.UserID); ok {
		notify(s.notifications, peer, models.NotificationTypeMatchDeclined, matchID,
			"Match declined", fmt.Sprintf("%s declined the proposal. You are back in the waiting pool.", displayName(actor.Name)))
	}
	return nil
}

// ExpireStaleProposals снимает предложения, которые не подтвердили вовремя
func (s *matchService) ExpireStaleProposals(olderThan time.Time) (int, error) {
	stale, err := s.sessionRepo.ListProposedBefore(olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale proposals: %w", err)
	}

	expired := 0
	for _, proposal := range stale {
		session, err := s.cancelProposal(proposal.MatchID, models.SessionExpired, nil)
		if errors.Is(err, ErrInvalidTransition) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
		metrics.MatchesDeclined.Inc()
		for _, userID := range []uuid.UUID{session.ParticipantA, session.ParticipantB} {
			notify(s.notifications, userID, models.NotificationTypeMatchDeclined, session.MatchID,
				"Proposal expired", "The proposal was not confirmed in time. You are back in the waiting pool.")
		}
	}
	return expired, nil
}

func (s *matchService) cancelProposal(matchID string, to models.SessionStatus, by *uuid.UUID) (*models.Session, error) {
	var session *models.Session
	err := s.tx.WithinTx(func(tx *gorm.DB) error {
		sessions := s.sessionRepo.WithTx(tx)
		ended := s.now()
		fields := map[string]interface{}{"ended_at": &ended}
		if by != nil {
			fields["ended_by"] = *by
		}
		if err := sessions.Transition(matchID, models.SessionProposed, to, fields); err != nil {
			return err
		}
		if err := s.profileRepo.WithTx(tx).ResetByMatchID(matchID); err != nil {
			return err
		}
		loaded, err := sessions.GetByMatchID(matchID)
		session = loaded
		return err
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel proposal: %w", err)
	}
	return session, nil
}

func displayName(name string) string {
	if name == "" {
		return "Your partner"
	}
	return name
}

// notify отправляет уведомление; ошибка не прерывает операцию
func notify(n NotificationService, userID uuid.UUID, notificationType models.NotificationType, matchID, title, message string) {
	if n == nil {
		return
	}
	if _, err := n.Notify(userID, notificationType, matchID, title, message); err != nil {
		log.Printf("Failed to notify %s about %s: %v", userID, notificationType, err)
	}
}
