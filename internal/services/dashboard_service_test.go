package services

import (
	"context"
	"testing"
)

func TestDashboardSummarizesProgress(t *testing.T) {
	cfg := defaultSessionConfig()
	cfg.QuizEnabled = false
	env := newTestEnv(t, cfg)
	dashboards := NewDashboardService(env.profiles, env.sessions, env.ratings, env.users, env.streaks)

	asha := env.newUser(t, "Asha", studentInput("Math"))
	meera := env.newUser(t, "Meera", teacherInput("Math"))
	chitra := env.newUser(t, "Chitra", studentInput("Math"))

	first := env.liveSession(t, asha, meera)
	if _, err := env.session.EndSession(context.Background(), asha); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if _, err := env.session.SubmitRating(asha, first, 4, ""); err != nil {
		t.Fatalf("SubmitRating() error = %v", err)
	}
	if _, err := env.session.SubmitRating(meera, first, 5, ""); err != nil {
		t.Fatalf("SubmitRating() error = %v", err)
	}

	second := env.liveSession(t, chitra, meera)
	if _, err := env.session.EndSession(context.Background(), meera); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	if _, err := env.session.SubmitRating(chitra, second, 2, ""); err != nil {
		t.Fatalf("SubmitRating() error = %v", err)
	}

	d, err := dashboards.Get(meera)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.SessionsCompleted != 2 || d.RatingsReceived != 2 || d.AverageRating != 3 || d.LeaderboardRank != 1 {
		t.Fatalf("dashboard = %+v", d)
	}
	if d.Profile == nil || d.Streak.Current != 1 || d.ConsistencyGoal != 1.0/30 {
		t.Fatalf("profile or streak = %+v %+v", d.Profile, d.Streak)
	}
	if len(d.RecentSessions) != 2 {
		t.Fatalf("recent sessions = %+v, want 2", d.RecentSessions)
	}
	latest := d.RecentSessions[0]
	if latest.MatchID != second || latest.PeerName != "Chitra" || latest.RatingReceived == nil || *latest.RatingReceived != 2 {
		t.Fatalf("latest session = %+v", latest)
	}

	d, err = dashboards.Get(asha)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.SessionsCompleted != 1 || d.AverageRating != 5 || d.LeaderboardRank != 2 {
		t.Fatalf("dashboard = %+v", d)
	}

	d, err = dashboards.Get(chitra)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.LeaderboardRank != 0 || d.RatingsReceived != 0 || len(d.RecentSessions) != 1 {
		t.Fatalf("unrated dashboard = %+v", d)
	}
}

func TestDashboardWithoutProfile(t *testing.T) {
	env := newTestEnv(t, defaultSessionConfig())
	dashboards := NewDashboardService(env.profiles, env.sessions, env.ratings, env.users, env.streaks)

	result, err := env.auth.Register("Ravi", "ravi@example.org", "secret123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	d, err := dashboards.Get(Actor{UserID: result.User.ID, Name: "Ravi"})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.Profile != nil || d.SessionsCompleted != 0 || d.RecentSessions == nil || len(d.RecentSessions) != 0 {
		t.Fatalf("dashboard = %+v", d)
	}
}
