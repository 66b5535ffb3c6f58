// Package governance composes the coordination engine behind a single entry
// point. The Coordinator is the only component the API layer calls; it
// routes commands to the campaign lifecycle manager, the escalation
// scheduler, and the succession coordinator, all sharing one audit log.
package governance

import (
	"sync"
	"time"

	"github.com/strata-labs/strata/internal/domain"
	"github.com/strata-labs/strata/internal/infra/audit"
	"github.com/strata-labs/strata/internal/infra/ballot"
	"github.com/strata-labs/strata/internal/infra/campaign"
	"github.com/strata-labs/strata/internal/infra/escalation"
	"github.com/strata-labs/strata/internal/infra/succession"
)

// Coordinator is the root of the governance engine. All dependencies are
// injected at construction, with no module-level state, so isolated instances
// per test are cheap.
type Coordinator struct {
	campaigns  *campaign.Manager
	alerts     *escalation.Scheduler
	succession *succession.Coordinator
	auditLog   *audit.Log

	proposalMu sync.Mutex
	proposals  map[string]*domain.PolicyProposal

	store domain.Store
	now   func() time.Time
}

// New builds a coordinator over the given collaborators. The escalation
// scheduler's chain-exhausted hook is wired to succession evaluation.
func New(store domain.Store, roster domain.RosterProvider, dispatcher domain.Dispatcher, tokens *ballot.Tokenizer) *Coordinator {
	auditLog := audit.NewLog(store)
	ballots := ballot.NewEngine(store, tokens)

	c := &Coordinator{
		campaigns:  campaign.NewManager(store, roster, ballots, auditLog),
		alerts:     escalation.NewScheduler(store, dispatcher, auditLog),
		succession: succession.NewCoordinator(store, auditLog),
		auditLog:   auditLog,
		proposals:  make(map[string]*domain.PolicyProposal),
		store:      store,
		now:        time.Now,
	}

	c.alerts.OnExhausted(func(alert domain.EmergencyAlert) {
		// NoPlanConfigured is already audited by the coordinator; nothing
		// further to do here.
		_, _ = c.succession.HandleExhaustedAlert(alert)
	})

	return c
}

// Rehydrate reloads all engine state from the store and re-arms escalation
// timers. Called once on daemon start before serving requests.
func (c *Coordinator) Rehydrate() error {
	if err := c.campaigns.Rehydrate(); err != nil {
		return err
	}
	if err := c.succession.Rehydrate(); err != nil {
		return err
	}
	if err := c.rehydrateProposals(); err != nil {
		return err
	}
	// Alerts last: an expired level advances immediately on rehydration and
	// may trigger succession, which must already be loaded.
	return c.alerts.Rehydrate()
}

// Shutdown cancels outstanding escalation timers and flushes the audit
// buffer.
func (c *Coordinator) Shutdown() {
	c.alerts.Shutdown()
	c.auditLog.Flush()
}

// Sweep advances time-driven campaign transitions. The daemon calls this
// periodically; escalation needs no sweep since each alert runs its own
// timer.
func (c *Coordinator) Sweep() {
	c.campaigns.Sweep()
}

// FlushAudit retries buffered audit entries, returning how many remain.
func (c *Coordinator) FlushAudit() int {
	return c.auditLog.Flush()
}

// ─── Campaigns ──────────────────────────────────────────────────────────────

// CreateCampaign registers a new campaign in draft.
func (c *Coordinator) CreateCampaign(spec campaign.CreateSpec, actorID string) (*domain.VotingCampaign, error) {
	return c.campaigns.Create(spec, actorID)
}

// ScheduleCampaign freezes the electorate and moves the campaign to
// scheduled.
func (c *Coordinator) ScheduleCampaign(id, actorID string) (*domain.VotingCampaign, error) {
	return c.campaigns.Schedule(id, actorID)
}

// ActivateCampaign opens the campaign for voting.
func (c *Coordinator) ActivateCampaign(id, actorID string) (*domain.VotingCampaign, error) {
	return c.campaigns.Activate(id, actorID)
}

// CastVote records one ballot for the voter.
func (c *Coordinator) CastVote(campaignID, voterID, choiceID string) (*domain.VotingCampaign, error) {
	return c.campaigns.CastVote(campaignID, voterID, choiceID)
}

// CloseCampaign stops voting and computes participation and quorum.
func (c *Coordinator) CloseCampaign(id, actorID string) (*domain.VotingCampaign, error) {
	return c.campaigns.Close(id, actorID)
}

// PublishResults publishes the final tally of a closed campaign.
func (c *Coordinator) PublishResults(id, actorID string) (*domain.CampaignResult, error) {
	return c.campaigns.PublishResults(id, actorID)
}

// CancelCampaign abandons a draft or scheduled campaign.
func (c *Coordinator) CancelCampaign(id, actorID string) (*domain.VotingCampaign, error) {
	return c.campaigns.Cancel(id, actorID)
}

// GetCampaign returns a campaign by id.
func (c *Coordinator) GetCampaign(id string) (*domain.VotingCampaign, error) {
	return c.campaigns.Get(id)
}

// ListCampaigns returns campaigns filtered by status ("" = all).
func (c *Coordinator) ListCampaigns(status domain.CampaignStatus) []domain.VotingCampaign {
	return c.campaigns.List(status)
}

// Tally returns the current votes per choice for a campaign.
func (c *Coordinator) Tally(campaignID string) (map[string]int, error) {
	return c.campaigns.Tally(campaignID)
}

// ─── Emergencies ────────────────────────────────────────────────────────────

// DeclareEmergency creates an alert and activates escalation level 1.
func (c *Coordinator) DeclareEmergency(spec escalation.DeclareSpec, actorID string) (*domain.EmergencyAlert, error) {
	return c.alerts.Declare(spec, actorID)
}

// AcknowledgeEscalation accepts the active escalation level, stopping
// auto-escalation.
func (c *Coordinator) AcknowledgeEscalation(alertID string, level int, ackBy string) (*domain.EmergencyAlert, error) {
	return c.alerts.Acknowledge(alertID, level, ackBy)
}

// ResolveEmergency closes the alert from any non-terminal state.
func (c *Coordinator) ResolveEmergency(alertID, notes, resolvedBy string) (*domain.EmergencyAlert, error) {
	return c.alerts.Resolve(alertID, notes, resolvedBy)
}

// GetAlert returns an alert by id.
func (c *Coordinator) GetAlert(alertID string) (*domain.EmergencyAlert, error) {
	return c.alerts.Get(alertID)
}

// ListAlerts returns all alerts.
func (c *Coordinator) ListAlerts() []domain.EmergencyAlert {
	return c.alerts.List()
}

// ─── Succession ─────────────────────────────────────────────────────────────

// CreateSuccessionPlan registers an inactive succession plan.
func (c *Coordinator) CreateSuccessionPlan(spec succession.PlanSpec, actorID string) (*domain.SuccessionPlan, error) {
	return c.succession.CreatePlan(spec, actorID)
}

// TriggerSuccession activates a plan by explicit admin request.
func (c *Coordinator) TriggerSuccession(planID, actorID string) (*domain.SuccessionPlan, error) {
	return c.succession.Trigger(planID, actorID)
}

// CompleteSuccession marks an active plan completed.
func (c *Coordinator) CompleteSuccession(planID, actorID string) (*domain.SuccessionPlan, error) {
	return c.succession.Complete(planID, actorID)
}

// GetSuccessionPlan returns a plan by id.
func (c *Coordinator) GetSuccessionPlan(planID string) (*domain.SuccessionPlan, error) {
	return c.succession.Get(planID)
}

// ─── Audit ──────────────────────────────────────────────────────────────────

// QueryAudit returns audit entries matching the filter.
func (c *Coordinator) QueryAudit(f domain.AuditFilter) ([]domain.AuditEntry, error) {
	return c.auditLog.Query(f)
}
