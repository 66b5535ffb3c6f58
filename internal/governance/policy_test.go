package governance

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/strata-labs/strata/internal/domain"
	"github.com/strata-labs/strata/internal/infra/ballot"
	"github.com/strata-labs/strata/internal/infra/memstore"
	"github.com/strata-labs/strata/internal/infra/notify"
)

// rosterFunc adapts a function to the RosterProvider interface.
type rosterFunc func(societyID string) (*domain.RosterSnapshot, error)

func (f rosterFunc) ResidencyRoster(societyID string) (*domain.RosterSnapshot, error) {
	return f(societyID)
}

func rosterOf(n int) rosterFunc {
	return func(societyID string) (*domain.RosterSnapshot, error) {
		taken := time.Now()
		entries := make([]domain.RosterEntry, n)
		for i := range entries {
			entries[i] = domain.RosterEntry{
				ResidentID: fmt.Sprintf("v-%03d", i),
				Role:       domain.RoleOwner,
				Category:   domain.CategoryOwnerOccupant,
				MovedInAt:  taken.AddDate(-1, 0, 0),
				Verified:   true,
			}
		}
		return &domain.RosterSnapshot{SocietyID: societyID, TakenAt: taken, Entries: entries}, nil
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	c := New(store, rosterOf(5), notify.LogDispatcher{},
		ballot.NewTokenizer([]byte("test-secret-test-secret-test-sec")))
	t.Cleanup(c.Shutdown)
	return c, store
}

// openVote returns a vote window that is already open, so the backing
// campaign can be activated right away.
func openVote() PolicyVoteSpec {
	return PolicyVoteSpec{
		StartTime: time.Now().Add(-time.Minute),
		EndTime:   time.Now().Add(time.Hour),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Proposal Lifecycle
// ═══════════════════════════════════════════════════════════════════════════

func TestPolicyProposal_ApprovedByMajority(t *testing.T) {
	c, _ := newTestCoordinator(t)

	p, err := c.CreatePolicyProposal(PolicySpec{
		SocietyID: "soc-1",
		Title:     "Allow pets in common areas",
		Text:      "Residents may bring leashed pets into the garden.",
	}, "resident-1")
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if p.Status != domain.ProposalDraft {
		t.Fatalf("expected DRAFT, got %s", p.Status)
	}

	p, err = c.OpenPolicyVoting(p.ID, openVote(), "admin")
	if err != nil {
		t.Fatalf("open voting: %v", err)
	}
	if p.Status != domain.ProposalVoting || p.CampaignID == "" {
		t.Fatalf("expected VOTING with backing campaign, got %+v", p)
	}

	// The backing campaign is scheduled with a frozen electorate; activate it.
	camp, err := c.GetCampaign(p.CampaignID)
	if err != nil {
		t.Fatalf("get backing campaign: %v", err)
	}
	if camp.Type != domain.CampaignPolicyVote || len(camp.Choices) != 2 {
		t.Fatalf("unexpected backing campaign: %+v", camp)
	}
	if _, err := c.ActivateCampaign(p.CampaignID, "admin"); err != nil {
		t.Fatalf("activate backing campaign: %v", err)
	}

	for _, vote := range []struct{ voter, choice string }{
		{"v-000", "Approve"},
		{"v-001", "Approve"},
		{"v-002", "reject"}, // choice matching is case-insensitive
	} {
		if _, err := c.VoteOnPolicy(p.ID, vote.voter, vote.choice); err != nil {
			t.Fatalf("vote %s: %v", vote.voter, err)
		}
	}

	p, err = c.FinalizePolicy(p.ID, "admin")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if p.Status != domain.ProposalApproved {
		t.Fatalf("expected APPROVED, got %s", p.Status)
	}
	if p.VotesFor != 2 || p.VotesAgainst != 1 {
		t.Fatalf("unexpected counts: for=%d against=%d", p.VotesFor, p.VotesAgainst)
	}
	if p.DecidedAt.IsZero() {
		t.Fatal("DecidedAt not set")
	}
}

func TestPolicyProposal_TieRejects(t *testing.T) {
	c, _ := newTestCoordinator(t)

	p, _ := c.CreatePolicyProposal(PolicySpec{SocietyID: "soc-1", Title: "Repaint lobby"}, "resident-1")
	p, _ = c.OpenPolicyVoting(p.ID, openVote(), "admin")
	c.ActivateCampaign(p.CampaignID, "admin")

	c.VoteOnPolicy(p.ID, "v-000", "Approve")
	c.VoteOnPolicy(p.ID, "v-001", "Reject")

	p, err := c.FinalizePolicy(p.ID, "admin")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	// A tie does not change policy.
	if p.Status != domain.ProposalRejected {
		t.Fatalf("expected REJECTED on tie, got %s", p.Status)
	}
}

func TestPolicyProposal_Guards(t *testing.T) {
	c, _ := newTestCoordinator(t)

	if _, err := c.CreatePolicyProposal(PolicySpec{SocietyID: "soc-1"}, "r"); !errors.Is(err, domain.ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec for missing title, got %v", err)
	}
	if _, err := c.OpenPolicyVoting("no-such", openVote(), "admin"); !errors.Is(err, domain.ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}

	p, _ := c.CreatePolicyProposal(PolicySpec{SocietyID: "soc-1", Title: "T"}, "r")

	// Voting before the window opens fails through the campaign state machine.
	if _, err := c.VoteOnPolicy(p.ID, "v-000", "Approve"); !errors.Is(err, domain.ErrCampaignNotActive) {
		t.Fatalf("expected ErrCampaignNotActive before voting opens, got %v", err)
	}
	if _, err := c.FinalizePolicy(p.ID, "admin"); !errors.Is(err, domain.ErrProposalNotDraft) {
		t.Fatalf("expected ErrProposalNotDraft finalizing a draft, got %v", err)
	}

	p, _ = c.OpenPolicyVoting(p.ID, openVote(), "admin")
	if _, err := c.OpenPolicyVoting(p.ID, openVote(), "admin"); !errors.Is(err, domain.ErrProposalNotDraft) {
		t.Fatalf("expected ErrProposalNotDraft reopening, got %v", err)
	}

	c.ActivateCampaign(p.CampaignID, "admin")
	if _, err := c.VoteOnPolicy(p.ID, "v-000", "Abstain"); !errors.Is(err, domain.ErrUnknownChoice) {
		t.Fatalf("expected ErrUnknownChoice, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Rehydration
// ═══════════════════════════════════════════════════════════════════════════

func TestRehydrate_RestoresProposals(t *testing.T) {
	c, store := newTestCoordinator(t)
	p, _ := c.CreatePolicyProposal(PolicySpec{SocietyID: "soc-1", Title: "Quiet hours"}, "resident-1")
	p, _ = c.OpenPolicyVoting(p.ID, openVote(), "admin")

	c2 := New(store, rosterOf(5), notify.LogDispatcher{},
		ballot.NewTokenizer([]byte("test-secret-test-secret-test-sec")))
	t.Cleanup(c2.Shutdown)
	if err := c2.Rehydrate(); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}

	got, err := c2.GetPolicyProposal(p.ID)
	if err != nil {
		t.Fatalf("get after rehydrate: %v", err)
	}
	if got.Status != domain.ProposalVoting || got.CampaignID != p.CampaignID {
		t.Fatalf("unexpected rehydrated proposal: %+v", got)
	}
	// The backing campaign came back too.
	if _, err := c2.GetCampaign(p.CampaignID); err != nil {
		t.Fatalf("backing campaign missing after rehydrate: %v", err)
	}
}
