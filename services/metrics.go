package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pointsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wfdrop",
		Name:      "points_credited_total",
		Help:      "Points added to user balances, by source.",
	}, []string{"source"})

	claimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wfdrop",
		Name:      "claims_total",
		Help:      "Reward claim attempts, by kind and result.",
	}, []string{"kind", "result"})

	referralCredits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wfdrop",
		Name:      "referral_credits_total",
		Help:      "Referrer credit attempts, by result.",
	}, []string{"result"})

	boostActivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wfdrop",
		Name:      "boost_activations_total",
		Help:      "Boost activation attempts, by result.",
	}, []string{"result"})

	materializeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wfdrop",
		Name:      "leaderboard_materialize_seconds",
		Help:      "Duration of leaderboard snapshot rebuilds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
)

// claimResult labels a claim outcome for claimsTotal.
func claimResult(err error) string {
	if err == nil {
		return "ok"
	}
	switch err.(type) {
	case *AlreadyClaimedError:
		return "already_claimed"
	case *NotFoundError:
		return "not_found"
	case *ValidationError:
		return "invalid"
	}
	return "error"
}
