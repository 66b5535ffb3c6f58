// Package memstore is an in-memory Store implementation. It backs tests and
// ephemeral deployments; production uses infra/sqlite.
package memstore

import (
	"errors"
	"sort"
	"sync"

	"github.com/strata-labs/strata/internal/domain"
)

var errAuditUnavailable = errors.New("audit store unavailable")

// Store holds all governance entities in maps under a single mutex.
type Store struct {
	mu sync.Mutex

	campaigns map[string]domain.VotingCampaign
	ballots   map[string][]domain.Ballot // campaign id → ballots in cast order
	alerts    map[string]domain.EmergencyAlert
	plans     map[string]domain.SuccessionPlan
	proposals map[string]domain.PolicyProposal
	audit     []domain.AuditEntry

	// FailAudit makes AppendAudit fail, for buffer-retry tests.
	FailAudit bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		campaigns: make(map[string]domain.VotingCampaign),
		ballots:   make(map[string][]domain.Ballot),
		alerts:    make(map[string]domain.EmergencyAlert),
		plans:     make(map[string]domain.SuccessionPlan),
		proposals: make(map[string]domain.PolicyProposal),
	}
}

// ─── Campaigns ──────────────────────────────────────────────────────────────

func (s *Store) SaveCampaign(c domain.VotingCampaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
	return nil
}

func (s *Store) GetCampaign(id string) (*domain.VotingCampaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	return &c, nil
}

func (s *Store) ListCampaigns(status domain.CampaignStatus) ([]domain.VotingCampaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.VotingCampaign
	for _, c := range s.campaigns {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ─── Ballots ────────────────────────────────────────────────────────────────

func (s *Store) SaveBallot(b domain.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ballots[b.CampaignID] = append(s.ballots[b.CampaignID], b)
	return nil
}

func (s *Store) ListBallots(campaignID string) ([]domain.Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Ballot, len(s.ballots[campaignID]))
	copy(out, s.ballots[campaignID])
	return out, nil
}

// ─── Alerts ─────────────────────────────────────────────────────────────────

func (s *Store) SaveAlert(a domain.EmergencyAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.ID] = a
	return nil
}

func (s *Store) GetAlert(id string) (*domain.EmergencyAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	return &a, nil
}

func (s *Store) ListOpenAlerts() ([]domain.EmergencyAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.EmergencyAlert
	for _, a := range s.alerts {
		if !a.IsTerminal() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeclaredAt.Before(out[j].DeclaredAt) })
	return out, nil
}

// ─── Succession Plans ───────────────────────────────────────────────────────

func (s *Store) SavePlan(p domain.SuccessionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
	return nil
}

func (s *Store) GetPlan(id string) (*domain.SuccessionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return &p, nil
}

func (s *Store) ListPlans(societyID string) ([]domain.SuccessionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SuccessionPlan
	for _, p := range s.plans {
		if societyID == "" || p.SocietyID == societyID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ─── Policy Proposals ───────────────────────────────────────────────────────

func (s *Store) SaveProposal(p domain.PolicyProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ID] = p
	return nil
}

func (s *Store) GetProposal(id string) (*domain.PolicyProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	return &p, nil
}

func (s *Store) ListProposals() ([]domain.PolicyProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PolicyProposal
	for _, p := range s.proposals {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ─── Audit ──────────────────────────────────────────────────────────────────

func (s *Store) AppendAudit(e domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAudit {
		return errAuditUnavailable
	}
	s.audit = append(s.audit, e)
	return nil
}

func (s *Store) QueryAudit(f domain.AuditFilter) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range s.audit {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) MaxAuditSequence() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max uint64
	for _, e := range s.audit {
		if e.Sequence > max {
			max = e.Sequence
		}
	}
	return max, nil
}

// AuditEntries returns a copy of all stored audit entries, for tests.
func (s *Store) AuditEntries() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}
