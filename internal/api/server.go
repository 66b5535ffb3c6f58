// Package api provides the HTTP server for the governance engine. Routes
// are thin adapters over the governance coordinator; all state and rule
// enforcement lives in the engines.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strata-labs/strata/internal/domain"
	"github.com/strata-labs/strata/internal/governance"
)

// Server is the governance HTTP API server.
type Server struct {
	coord          *governance.Coordinator
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(coord *governance.Coordinator) *Server {
	return &Server{coord: coord}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", s.handleCreateCampaign)
			r.Get("/", s.handleListCampaigns)
			r.Get("/{id}", s.handleGetCampaign)
			r.Get("/{id}/tally", s.handleTally)
			r.Post("/{id}/schedule", s.handleScheduleCampaign)
			r.Post("/{id}/activate", s.handleActivateCampaign)
			r.Post("/{id}/close", s.handleCloseCampaign)
			r.Post("/{id}/publish", s.handlePublishResults)
			r.Post("/{id}/cancel", s.handleCancelCampaign)
			r.Post("/{id}/votes", s.handleCastVote)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Post("/", s.handleDeclareAlert)
			r.Get("/", s.handleListAlerts)
			r.Get("/{id}", s.handleGetAlert)
			r.Post("/{id}/ack", s.handleAcknowledge)
			r.Post("/{id}/resolve", s.handleResolve)
		})

		r.Route("/succession-plans", func(r chi.Router) {
			r.Post("/", s.handleCreatePlan)
			r.Get("/{id}", s.handleGetPlan)
			r.Post("/{id}/trigger", s.handleTriggerPlan)
			r.Post("/{id}/complete", s.handleCompletePlan)
		})

		r.Route("/proposals", func(r chi.Router) {
			r.Post("/", s.handleCreateProposal)
			r.Get("/{id}", s.handleGetProposal)
			r.Post("/{id}/open-voting", s.handleOpenVoting)
			r.Post("/{id}/votes", s.handleVoteOnProposal)
			r.Post("/{id}/finalize", s.handleFinalizeProposal)
		})

		r.Get("/audit", s.handleQueryAudit)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the uniform error envelope. The kind is the stable
// machine-readable discriminator; message text is informational only.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]interface{}{
		"error": map[string]interface{}{
			"kind":    domain.Kind(err),
			"message": err.Error(),
		},
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCampaignNotFound),
		errors.Is(err, domain.ErrAlertNotFound),
		errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrProposalNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSpec),
		errors.Is(err, domain.ErrInvalidRule),
		errors.Is(err, domain.ErrEmptyChain),
		errors.Is(err, domain.ErrUnknownChoice):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrVoterNotEligible):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRosterUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrDuplicateVote),
		errors.Is(err, domain.ErrCampaignNotActive),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNotYetStarted),
		errors.Is(err, domain.ErrQuorumNotMet),
		errors.Is(err, domain.ErrTieRequiresRunoff),
		errors.Is(err, domain.ErrEmptyElectorate),
		errors.Is(err, domain.ErrAlertAlreadyResolved),
		errors.Is(err, domain.ErrAlertTerminal),
		errors.Is(err, domain.ErrLevelNotActive),
		errors.Is(err, domain.ErrNoPlanConfigured),
		errors.Is(err, domain.ErrPlanNotInactive),
		errors.Is(err, domain.ErrProposalNotDraft):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decode unmarshals a JSON request body into v.
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidSpec
	}
	return nil
}

// actorID identifies the caller for audit attribution. Header first, then
// the anonymous fallback; authn is handled upstream of this service.
func actorID(r *http.Request) string {
	if id := r.Header.Get("X-Actor-ID"); id != "" {
		return id
	}
	return "api"
}
