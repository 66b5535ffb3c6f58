// Package metrics provides Prometheus metrics for the governance engine:
// counters and gauges for campaigns, ballots, escalations, dispatch, and
// the audit buffer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Campaigns ──────────────────────────────────────────────────────────────

// CampaignTransitions counts lifecycle transitions by target status.
var CampaignTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "strata",
	Name:      "campaign_transitions_total",
	Help:      "Total campaign lifecycle transitions.",
}, []string{"to"})

// CampaignsActive tracks campaigns currently accepting votes.
var CampaignsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "strata",
	Name:      "campaigns_active",
	Help:      "Number of campaigns currently accepting votes.",
})

// ─── Ballots ────────────────────────────────────────────────────────────────

// BallotsCast counts accepted ballots.
var BallotsCast = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "strata",
	Name:      "ballots_cast_total",
	Help:      "Total ballots accepted.",
})

// BallotsRejected counts rejected casts by error kind.
var BallotsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "strata",
	Name:      "ballots_rejected_total",
	Help:      "Total rejected vote attempts.",
}, []string{"kind"})

// ─── Escalation ─────────────────────────────────────────────────────────────

// EscalationActivations counts escalation level activations.
var EscalationActivations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "strata",
	Name:      "escalation_activations_total",
	Help:      "Total escalation level activations.",
})

// EscalationTimeouts counts levels that timed out without acknowledgment.
var EscalationTimeouts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "strata",
	Name:      "escalation_timeouts_total",
	Help:      "Total escalation levels that timed out unacknowledged.",
})

// AlertsOpen tracks alerts in a non-terminal state.
var AlertsOpen = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "strata",
	Name:      "alerts_open",
	Help:      "Number of alerts in a non-terminal state.",
})

// SuccessionActivations counts succession plan activations.
var SuccessionActivations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "strata",
	Name:      "succession_activations_total",
	Help:      "Total succession plan activations.",
})

// ─── Dispatch ───────────────────────────────────────────────────────────────

// DispatchRequests counts notification dispatch requests by method.
var DispatchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "strata",
	Name:      "dispatch_requests_total",
	Help:      "Total notification dispatch requests.",
}, []string{"method"})

// DispatchFailures counts failed dispatch attempts. Failures never block
// escalation progression.
var DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "strata",
	Name:      "dispatch_failures_total",
	Help:      "Total failed notification dispatch attempts.",
})

// ─── Audit ──────────────────────────────────────────────────────────────────

// AuditAppended counts audit entries appended.
var AuditAppended = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "strata",
	Name:      "audit_entries_total",
	Help:      "Total audit entries appended.",
})

// AuditBufferDepth tracks entries buffered in memory awaiting a store retry.
var AuditBufferDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "strata",
	Name:      "audit_buffer_depth",
	Help:      "Audit entries buffered in memory pending persistence.",
})
