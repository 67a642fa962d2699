package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidence_votes_total",
			Help: "Accepted verification votes, by vote type.",
		},
		[]string{"vote_type"},
	)

	VoteRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidence_vote_rejections_total",
			Help: "Rejected verification votes, by reason.",
		},
		[]string{"reason"},
	)

	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidence_status_transitions_total",
			Help: "Evidence status changes, by origin and target status.",
		},
		[]string{"from", "to", "reason"},
	)

	EvidenceCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evidence_created_total",
			Help: "Evidence items created, by initial status.",
		},
		[]string{"status"},
	)

	EvidenceDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evidence_deleted_total",
			Help: "Evidence items deleted together with their votes.",
		},
	)

	MediaDeleteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evidence_media_delete_failures_total",
			Help: "Hosted media that could not be removed during evidence deletion.",
		},
	)

	ReconcileDrift = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evidence_reconcile_drift_total",
			Help: "Evidence items whose trust score did not match the vote ledger.",
		},
	)

	EvidenceByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evidence_by_status",
			Help: "Current number of evidence items per status, refreshed by the reconcile job.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		VotesTotal,
		VoteRejections,
		StatusTransitions,
		EvidenceCreated,
		EvidenceDeleted,
		MediaDeleteFailures,
		ReconcileDrift,
		EvidenceByStatus,
	)
}
