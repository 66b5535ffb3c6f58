// Package campaign implements the voting-campaign state machine:
//
//	DRAFT → SCHEDULED → ACTIVE → CLOSED → RESULTS_PUBLISHED
//
// with CANCELLED reachable from DRAFT or SCHEDULED only. The electorate is
// resolved and frozen at scheduling time; quorum and tie handling happen at
// close/publish. Mutations on a single campaign are serialized by a
// per-campaign lock; different campaigns proceed fully in parallel.
package campaign

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strata-labs/strata/internal/domain"
	"github.com/strata-labs/strata/internal/infra/audit"
	"github.com/strata-labs/strata/internal/infra/ballot"
	"github.com/strata-labs/strata/internal/infra/eligibility"
	"github.com/strata-labs/strata/internal/infra/metrics"
)

// SystemActor is the actor id recorded for timer-driven transitions.
const SystemActor = "system"

// ChoiceSpec describes one candidate or option at creation time.
type ChoiceSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateSpec describes a campaign to create.
type CreateSpec struct {
	SocietyID        string                 `json:"society_id"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description,omitempty"`
	Type             domain.CampaignType    `json:"type"`
	StartTime        time.Time              `json:"start_time"`
	EndTime          time.Time              `json:"end_time"`
	IsAnonymous      bool                   `json:"is_anonymous"`
	RequiresQuorum   bool                   `json:"requires_quorum"`
	MinParticipation float64                `json:"min_participation_pct"`
	Choices          []ChoiceSpec           `json:"choices"`
	Rule             domain.EligibilityRule `json:"eligibility_rule"`
}

// entry pairs a campaign with its serialization lock.
type entry struct {
	mu sync.Mutex
	c  domain.VotingCampaign
}

// Manager owns all voting campaigns and their lifecycle transitions.
type Manager struct {
	mu        sync.RWMutex
	campaigns map[string]*entry

	store   domain.Store
	roster  domain.RosterProvider
	ballots *ballot.Engine
	audit   *audit.Log

	now func() time.Time
}

// NewManager creates a campaign lifecycle manager.
func NewManager(store domain.Store, roster domain.RosterProvider, ballots *ballot.Engine, auditLog *audit.Log) *Manager {
	return &Manager{
		campaigns: make(map[string]*entry),
		store:     store,
		roster:    roster,
		ballots:   ballots,
		audit:     auditLog,
		now:       time.Now,
	}
}

// Rehydrate loads non-terminal campaigns from the store after a restart.
func (m *Manager) Rehydrate() error {
	for _, status := range []domain.CampaignStatus{
		domain.CampaignDraft, domain.CampaignScheduled, domain.CampaignActive, domain.CampaignClosed,
	} {
		list, err := m.store.ListCampaigns(status)
		if err != nil {
			return fmt.Errorf("rehydrate campaigns: %w", err)
		}
		for _, c := range list {
			m.mu.Lock()
			m.campaigns[c.ID] = &entry{c: c}
			m.mu.Unlock()
			if c.Status == domain.CampaignActive {
				if err := m.ballots.Rehydrate(c.ID); err != nil {
					return err
				}
				metrics.CampaignsActive.Inc()
			}
		}
	}
	return nil
}

// ─── Creation ───────────────────────────────────────────────────────────────

// Create registers a new campaign in DRAFT.
func (m *Manager) Create(spec CreateSpec, actorID string) (*domain.VotingCampaign, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidSpec)
	}
	if !spec.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown campaign type %q", domain.ErrInvalidSpec, spec.Type)
	}
	if len(spec.Choices) < 2 {
		return nil, fmt.Errorf("%w: at least two choices required", domain.ErrInvalidSpec)
	}
	if !spec.EndTime.After(spec.StartTime) {
		return nil, fmt.Errorf("%w: end time must follow start time", domain.ErrInvalidSpec)
	}
	if err := eligibility.Validate(spec.Rule); err != nil {
		return nil, err
	}

	choices := make([]domain.Choice, len(spec.Choices))
	for i, cs := range spec.Choices {
		choices[i] = domain.Choice{
			ID:          uuid.New().String(),
			Name:        cs.Name,
			Description: cs.Description,
		}
	}

	c := domain.VotingCampaign{
		ID:               uuid.New().String(),
		SocietyID:        spec.SocietyID,
		Title:            spec.Title,
		Description:      spec.Description,
		Type:             spec.Type,
		Status:           domain.CampaignDraft,
		StartTime:        spec.StartTime,
		EndTime:          spec.EndTime,
		IsAnonymous:      spec.IsAnonymous,
		RequiresQuorum:   spec.RequiresQuorum,
		MinParticipation: spec.MinParticipation,
		Choices:          choices,
		EligibilityRule:  spec.Rule,
		CreatedBy:        actorID,
		CreatedAt:        m.now(),
	}

	if err := m.store.SaveCampaign(c); err != nil {
		return nil, fmt.Errorf("persist campaign: %w", err)
	}

	m.mu.Lock()
	m.campaigns[c.ID] = &entry{c: c}
	m.mu.Unlock()

	m.audit.Record(actorID, "campaign.create", "campaign", c.ID, string(c.Type))
	metrics.CampaignTransitions.WithLabelValues(string(domain.CampaignDraft)).Inc()

	out := c
	return &out, nil
}

// ─── Transitions ────────────────────────────────────────────────────────────

// Schedule moves DRAFT → SCHEDULED, resolving and freezing the electorate.
// A roster failure blocks the transition entirely (fail closed).
func (m *Manager) Schedule(id, actorID string) (*domain.VotingCampaign, error) {
	return m.transition(id, func(c *domain.VotingCampaign) error {
		if c.Status != domain.CampaignDraft {
			return domain.ErrInvalidTransition
		}
		roster, err := m.roster.ResidencyRoster(c.SocietyID)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrRosterUnavailable, err)
		}
		voters, err := eligibility.Resolve(c.EligibilityRule, roster)
		if err != nil {
			return err
		}
		if len(voters) == 0 {
			return domain.ErrEmptyElectorate
		}
		c.EligibleVoterIDs = voters
		c.Status = domain.CampaignScheduled
		c.ScheduledAt = m.now()
		m.audit.Record(actorID, "campaign.schedule", "campaign", c.ID,
			fmt.Sprintf("electorate=%d", len(voters)))
		metrics.CampaignTransitions.WithLabelValues(string(domain.CampaignScheduled)).Inc()
		return nil
	})
}

// Activate moves SCHEDULED → ACTIVE. Rejected before the start time.
func (m *Manager) Activate(id, actorID string) (*domain.VotingCampaign, error) {
	return m.transition(id, func(c *domain.VotingCampaign) error {
		if c.Status != domain.CampaignScheduled {
			return domain.ErrInvalidTransition
		}
		if m.now().Before(c.StartTime) {
			return domain.ErrNotYetStarted
		}
		c.Status = domain.CampaignActive
		c.ActivatedAt = m.now()
		m.audit.Record(actorID, "campaign.activate", "campaign", c.ID, "")
		metrics.CampaignTransitions.WithLabelValues(string(domain.CampaignActive)).Inc()
		metrics.CampaignsActive.Inc()
		return nil
	})
}

// Close moves ACTIVE → CLOSED, computing participation and quorum. Reached
// at end time by the sweep or earlier by explicit admin close. Results are
// computed but not published here; publication is always an explicit call.
func (m *Manager) Close(id, actorID string) (*domain.VotingCampaign, error) {
	return m.transition(id, func(c *domain.VotingCampaign) error {
		if c.Status != domain.CampaignActive {
			return domain.ErrInvalidTransition
		}
		distinct := m.ballots.DistinctVoters(c.ID)
		c.Participation = 0
		if n := len(c.EligibleVoterIDs); n > 0 {
			c.Participation = float64(distinct) / float64(n) * 100
		}
		c.QuorumMet = !c.RequiresQuorum || c.Participation >= c.MinParticipation
		c.Status = domain.CampaignClosed
		c.ClosedAt = m.now()
		m.audit.Record(actorID, "campaign.close", "campaign", c.ID,
			fmt.Sprintf("participation=%.1f%% quorum_met=%t", c.Participation, c.QuorumMet))
		metrics.CampaignTransitions.WithLabelValues(string(domain.CampaignClosed)).Inc()
		metrics.CampaignsActive.Dec()
		return nil
	})
}

// Cancel abandons a campaign. Allowed from DRAFT or SCHEDULED only.
func (m *Manager) Cancel(id, actorID string) (*domain.VotingCampaign, error) {
	return m.transition(id, func(c *domain.VotingCampaign) error {
		if c.Status != domain.CampaignDraft && c.Status != domain.CampaignScheduled {
			return domain.ErrInvalidTransition
		}
		c.Status = domain.CampaignCancelled
		c.CancelledAt = m.now()
		m.ballots.Forget(c.ID)
		m.audit.Record(actorID, "campaign.cancel", "campaign", c.ID, "")
		metrics.CampaignTransitions.WithLabelValues(string(domain.CampaignCancelled)).Inc()
		return nil
	})
}

// PublishResults moves CLOSED → RESULTS_PUBLISHED and returns the final
// result. Tie-break: highest vote count wins; on an exact tie no winner is
// emitted and TieRequiresRunoff is set; callers create the runoff campaign
// explicitly. Idempotent: publishing an already-published campaign returns
// the stored result without further mutation.
func (m *Manager) PublishResults(id, actorID string) (*domain.CampaignResult, error) {
	ent, err := m.entry(id)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	c := &ent.c

	if c.Status == domain.CampaignPublished {
		return m.resultLocked(c), nil
	}
	if c.Status != domain.CampaignClosed {
		return nil, domain.ErrInvalidTransition
	}

	tally := m.ballots.Tally(c.ID)
	total := 0
	for i := range c.Choices {
		c.Choices[i].VoteCount = tally[c.Choices[i].ID]
		total += c.Choices[i].VoteCount
	}
	c.TotalVotes = total

	// Tie-break: highest vote count wins; exact ties require a runoff.
	best := -1
	for _, ch := range c.Choices {
		if ch.VoteCount > best {
			best = ch.VoteCount
		}
	}
	var leaders []string
	for _, ch := range c.Choices {
		if ch.VoteCount == best {
			leaders = append(leaders, ch.ID)
		}
	}
	if len(leaders) == 1 {
		c.WinnerID = leaders[0]
	} else {
		c.TieRequiresRunoff = true
		c.TiedChoiceIDs = leaders
	}

	c.Status = domain.CampaignPublished
	c.PublishedAt = m.now()

	if err := m.store.SaveCampaign(*c); err != nil {
		// Roll back so a retry can re-publish.
		c.Status = domain.CampaignClosed
		c.PublishedAt = time.Time{}
		return nil, fmt.Errorf("persist results: %w", err)
	}

	action := "campaign.publish_results"
	if !c.QuorumMet {
		// Manual override path: publishing despite a failed quorum is
		// audited under its own action.
		action = "campaign.publish_results_quorum_override"
	}
	m.audit.Record(actorID, action, "campaign", c.ID,
		fmt.Sprintf("total_votes=%d winner=%s tie=%t", c.TotalVotes, c.WinnerID, c.TieRequiresRunoff))
	metrics.CampaignTransitions.WithLabelValues(string(domain.CampaignPublished)).Inc()

	return m.resultLocked(c), nil
}

// resultLocked builds the published result from campaign state. Caller
// holds the entry lock.
func (m *Manager) resultLocked(c *domain.VotingCampaign) *domain.CampaignResult {
	tally := make(map[string]int, len(c.Choices))
	for _, ch := range c.Choices {
		tally[ch.ID] = ch.VoteCount
	}
	return &domain.CampaignResult{
		CampaignID:        c.ID,
		Tally:             tally,
		TotalVotes:        c.TotalVotes,
		EligibleCount:     len(c.EligibleVoterIDs),
		Participation:     c.Participation,
		QuorumMet:         c.QuorumMet,
		WinnerID:          c.WinnerID,
		TieRequiresRunoff: c.TieRequiresRunoff,
		TiedChoiceIDs:     c.TiedChoiceIDs,
		PublishedAt:       c.PublishedAt,
	}
}

// ─── Voting ─────────────────────────────────────────────────────────────────

// CastVote records one ballot for the voter. Serialized per campaign so two
// simultaneous votes from the same voter cannot both pass the duplicate
// check. A rejected vote leaves no ballot and no count change.
func (m *Manager) CastVote(campaignID, voterID, choiceID string) (*domain.VotingCampaign, error) {
	ent, err := m.entry(campaignID)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	c := &ent.c

	if _, err := m.ballots.Cast(c, voterID, choiceID); err != nil {
		metrics.BallotsRejected.WithLabelValues(domain.Kind(err)).Inc()
		return nil, err
	}

	// Counters are derived from the recorded ballot, keeping
	// TotalVotes == sum(choice.VoteCount) at all times.
	c.Choice(choiceID).VoteCount++
	c.TotalVotes++
	if err := m.store.SaveCampaign(*c); err != nil {
		return nil, fmt.Errorf("persist campaign counts: %w", err)
	}

	actor := voterID
	if c.IsAnonymous {
		actor = "anonymous"
	}
	m.audit.Record(actor, "campaign.vote", "campaign", c.ID, "")
	metrics.BallotsCast.Inc()

	out := *c
	return &out, nil
}

// Tally returns votes per choice for the campaign. Lock-free snapshot for
// open campaigns; published campaigns report their frozen counts.
func (m *Manager) Tally(campaignID string) (map[string]int, error) {
	ent, err := m.entry(campaignID)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	c := ent.c
	ent.mu.Unlock()

	if c.Status == domain.CampaignPublished {
		tally := make(map[string]int, len(c.Choices))
		for _, ch := range c.Choices {
			tally[ch.ID] = ch.VoteCount
		}
		return tally, nil
	}
	return m.ballots.Tally(campaignID), nil
}

// ─── Reads & Sweep ──────────────────────────────────────────────────────────

// Get returns a copy of the campaign.
func (m *Manager) Get(id string) (*domain.VotingCampaign, error) {
	ent, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	c := ent.c
	ent.mu.Unlock()
	return &c, nil
}

// List returns campaigns with the given status ("" = all), unordered.
func (m *Manager) List(status domain.CampaignStatus) []domain.VotingCampaign {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.VotingCampaign
	for _, ent := range m.campaigns {
		ent.mu.Lock()
		c := ent.c
		ent.mu.Unlock()
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

// Sweep advances time-driven transitions: activates scheduled campaigns past
// their start time and closes active campaigns past their end time. Called
// periodically by the daemon; transitions are attributed to the system actor.
func (m *Manager) Sweep() {
	now := m.now()
	for _, c := range m.List("") {
		switch {
		case c.Status == domain.CampaignScheduled && !now.Before(c.StartTime):
			_, _ = m.Activate(c.ID, SystemActor)
		case c.Status == domain.CampaignActive && !now.Before(c.EndTime):
			_, _ = m.Close(c.ID, SystemActor)
		}
	}
}

// ─── Internal ───────────────────────────────────────────────────────────────

func (m *Manager) entry(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ent, ok := m.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	return ent, nil
}

// transition runs fn under the campaign's lock and persists the result.
func (m *Manager) transition(id string, fn func(*domain.VotingCampaign) error) (*domain.VotingCampaign, error) {
	ent, err := m.entry(id)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()

	before := ent.c
	if err := fn(&ent.c); err != nil {
		ent.c = before
		return nil, err
	}
	if err := m.store.SaveCampaign(ent.c); err != nil {
		ent.c = before
		return nil, fmt.Errorf("persist campaign: %w", err)
	}
	out := ent.c
	return &out, nil
}
