package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/strata-labs/strata/internal/domain"
	"github.com/strata-labs/strata/internal/governance"
	"github.com/strata-labs/strata/internal/infra/campaign"
	"github.com/strata-labs/strata/internal/infra/escalation"
	"github.com/strata-labs/strata/internal/infra/succession"
)

// ─── Campaigns ──────────────────────────────────────────────────────────────

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var spec campaign.CreateSpec
	if err := decode(r, &spec); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.coord.CreateCampaign(spec, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	status := domain.CampaignStatus(r.URL.Query().Get("status"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaigns": s.coord.ListCampaigns(status),
	})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.coord.GetCampaign(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	tally, err := s.coord.Tally(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tally": tally})
}

func (s *Server) handleScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.coord.ScheduleCampaign(chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleActivateCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.coord.ActivateCampaign(chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCloseCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.coord.CloseCampaign(chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handlePublishResults(w http.ResponseWriter, r *http.Request) {
	result, err := s.coord.PublishResults(chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancelCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.coord.CancelCampaign(chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type castVoteRequest struct {
	VoterID  string `json:"voter_id"`
	ChoiceID string `json:"choice_id"`
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req castVoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.coord.CastVote(chi.URLParam(r, "id"), req.VoterID, req.ChoiceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ─── Alerts ─────────────────────────────────────────────────────────────────

func (s *Server) handleDeclareAlert(w http.ResponseWriter, r *http.Request) {
	var spec escalation.DeclareSpec
	if err := decode(r, &spec); err != nil {
		writeError(w, err)
		return
	}
	a, err := s.coord.DeclareEmergency(spec, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": s.coord.ListAlerts(),
	})
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	a, err := s.coord.GetAlert(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type acknowledgeRequest struct {
	Level int `json:"level"`
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, err := s.coord.AcknowledgeEscalation(chi.URLParam(r, "id"), req.Level, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, err := s.coord.ResolveEmergency(chi.URLParam(r, "id"), req.Notes, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ─── Succession Plans ───────────────────────────────────────────────────────

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var spec succession.PlanSpec
	if err := decode(r, &spec); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.coord.CreateSuccessionPlan(spec, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.coord.GetSuccessionPlan(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleTriggerPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.coord.TriggerSuccession(chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCompletePlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.coord.CompleteSuccession(chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ─── Policy Proposals ───────────────────────────────────────────────────────

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var spec governance.PolicySpec
	if err := decode(r, &spec); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.coord.CreatePolicyProposal(spec, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := s.coord.GetPolicyProposal(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleOpenVoting(w http.ResponseWriter, r *http.Request) {
	var spec governance.PolicyVoteSpec
	if err := decode(r, &spec); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.coord.OpenPolicyVoting(chi.URLParam(r, "id"), spec, actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type proposalVoteRequest struct {
	VoterID string `json:"voter_id"`
	Choice  string `json:"choice"` // "Approve" or "Reject"
}

func (s *Server) handleVoteOnProposal(w http.ResponseWriter, r *http.Request) {
	var req proposalVoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.coord.VoteOnPolicy(chi.URLParam(r, "id"), req.VoterID, req.Choice)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleFinalizeProposal(w http.ResponseWriter, r *http.Request) {
	p, err := s.coord.FinalizePolicy(chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ─── Audit ──────────────────────────────────────────────────────────────────

func (s *Server) handleQueryAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.AuditFilter{
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		ActorID:      q.Get("actor_id"),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, domain.ErrInvalidSpec)
			return
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, domain.ErrInvalidSpec)
			return
		}
		f.To = t
	}

	entries, err := s.coord.QueryAudit(f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
