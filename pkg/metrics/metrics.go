package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesProposed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sahay_matches_proposed_total",
		Help: "Proposed matches written to the waiting pool.",
	})
	MatchesDeclined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sahay_matches_declined_total",
		Help: "Proposals declined by a participant or expired.",
	})
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sahay_sessions_started_total",
		Help: "Sessions that became live after both participants accepted.",
	})
	SessionsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sahay_sessions_ended_total",
		Help: "Sessions ended by a participant.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sahay_messages_sent_total",
		Help: "Messages appended to session rooms.",
	})
	RatingsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sahay_ratings_submitted_total",
		Help: "Session ratings accepted.",
	})
	AIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sahay_ai_requests_total",
		Help: "AI helper calls by outcome.",
	}, []string{"outcome"})
)

// ObserveAI учитывает результат обращения к AI
func ObserveAI(err error) {
	if err != nil {
		AIRequests.WithLabelValues("error").Inc()
		return
	}
	AIRequests.WithLabelValues("ok").Inc()
}
