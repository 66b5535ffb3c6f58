package governance

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strata-labs/strata/internal/domain"
	"github.com/strata-labs/strata/internal/infra/campaign"
)

// Policy choice names on the backing campaign's ballot.
const (
	PolicyChoiceApprove = "Approve"
	PolicyChoiceReject  = "Reject"
)

// PolicySpec describes a policy proposal to create.
type PolicySpec struct {
	SocietyID string `json:"society_id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
}

// PolicyVoteSpec configures the voting window when a proposal opens.
type PolicyVoteSpec struct {
	StartTime        time.Time              `json:"start_time"`
	EndTime          time.Time              `json:"end_time"`
	RequiresQuorum   bool                   `json:"requires_quorum"`
	MinParticipation float64                `json:"min_participation_pct"`
	Rule             domain.EligibilityRule `json:"eligibility_rule"`
}

// CreatePolicyProposal registers a draft proposal. Vote and tally semantics
// come from the backing campaign created when voting opens.
func (c *Coordinator) CreatePolicyProposal(spec PolicySpec, actorID string) (*domain.PolicyProposal, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return nil, fmt.Errorf("%w: proposal title is required", domain.ErrInvalidSpec)
	}

	p := domain.PolicyProposal{
		ID:         uuid.New().String(),
		SocietyID:  spec.SocietyID,
		Title:      spec.Title,
		Text:       spec.Text,
		Status:     domain.ProposalDraft,
		ProposedBy: actorID,
		CreatedAt:  c.now(),
	}

	if err := c.store.SaveProposal(p); err != nil {
		return nil, fmt.Errorf("persist proposal: %w", err)
	}

	c.proposalMu.Lock()
	stored := p
	c.proposals[p.ID] = &stored
	c.proposalMu.Unlock()

	c.auditLog.Record(actorID, "proposal.create", "proposal", p.ID, p.Title)
	return &p, nil
}

// OpenPolicyVoting creates and schedules the backing POLICY_VOTE campaign
// (Approve/Reject ballot) and moves the proposal to voting. Activation then
// follows the campaign's start time like any other campaign.
func (c *Coordinator) OpenPolicyVoting(proposalID string, vote PolicyVoteSpec, actorID string) (*domain.PolicyProposal, error) {
	c.proposalMu.Lock()
	defer c.proposalMu.Unlock()

	p, ok := c.proposals[proposalID]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	if p.Status != domain.ProposalDraft {
		return nil, domain.ErrProposalNotDraft
	}

	camp, err := c.campaigns.Create(campaign.CreateSpec{
		SocietyID:        p.SocietyID,
		Title:            "Policy vote: " + p.Title,
		Description:      p.Text,
		Type:             domain.CampaignPolicyVote,
		StartTime:        vote.StartTime,
		EndTime:          vote.EndTime,
		RequiresQuorum:   vote.RequiresQuorum,
		MinParticipation: vote.MinParticipation,
		Choices: []campaign.ChoiceSpec{
			{Name: PolicyChoiceApprove},
			{Name: PolicyChoiceReject},
		},
		Rule: vote.Rule,
	}, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := c.campaigns.Schedule(camp.ID, actorID); err != nil {
		// Leave the proposal in draft; the backing campaign stays cancellable.
		_, _ = c.campaigns.Cancel(camp.ID, actorID)
		return nil, err
	}

	p.Status = domain.ProposalVoting
	p.CampaignID = camp.ID
	if err := c.store.SaveProposal(*p); err != nil {
		return nil, fmt.Errorf("persist proposal: %w", err)
	}

	c.auditLog.Record(actorID, "proposal.open_voting", "proposal", p.ID,
		"campaign="+camp.ID)

	out := *p
	return &out, nil
}

// VoteOnPolicy casts a ballot on the proposal's backing campaign. Choice is
// "Approve" or "Reject".
func (c *Coordinator) VoteOnPolicy(proposalID, voterID, choice string) (*domain.PolicyProposal, error) {
	c.proposalMu.Lock()
	p, ok := c.proposals[proposalID]
	if !ok {
		c.proposalMu.Unlock()
		return nil, domain.ErrProposalNotFound
	}
	campaignID := p.CampaignID
	c.proposalMu.Unlock()

	if campaignID == "" {
		return nil, domain.ErrCampaignNotActive
	}

	camp, err := c.campaigns.Get(campaignID)
	if err != nil {
		return nil, err
	}
	choiceID := ""
	for _, ch := range camp.Choices {
		if strings.EqualFold(ch.Name, choice) {
			choiceID = ch.ID
			break
		}
	}
	if choiceID == "" {
		return nil, domain.ErrUnknownChoice
	}

	if _, err := c.campaigns.CastVote(campaignID, voterID, choiceID); err != nil {
		return nil, err
	}
	return c.GetPolicyProposal(proposalID)
}

// FinalizePolicy closes the backing campaign if still active, publishes its
// results, and decides the proposal: approved when Approve strictly
// outpolls Reject, rejected otherwise (a tie does not change policy).
func (c *Coordinator) FinalizePolicy(proposalID, actorID string) (*domain.PolicyProposal, error) {
	c.proposalMu.Lock()
	defer c.proposalMu.Unlock()

	p, ok := c.proposals[proposalID]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	if p.Status != domain.ProposalVoting {
		return nil, domain.ErrProposalNotDraft
	}

	camp, err := c.campaigns.Get(p.CampaignID)
	if err != nil {
		return nil, err
	}
	if camp.Status == domain.CampaignActive {
		if _, err := c.campaigns.Close(p.CampaignID, actorID); err != nil {
			return nil, err
		}
	}
	result, err := c.campaigns.PublishResults(p.CampaignID, actorID)
	if err != nil {
		return nil, err
	}

	camp, err = c.campaigns.Get(p.CampaignID)
	if err != nil {
		return nil, err
	}
	for _, ch := range camp.Choices {
		switch ch.Name {
		case PolicyChoiceApprove:
			p.VotesFor = result.Tally[ch.ID]
		case PolicyChoiceReject:
			p.VotesAgainst = result.Tally[ch.ID]
		}
	}

	if p.VotesFor > p.VotesAgainst {
		p.Status = domain.ProposalApproved
	} else {
		p.Status = domain.ProposalRejected
	}
	p.DecidedAt = c.now()

	if err := c.store.SaveProposal(*p); err != nil {
		return nil, fmt.Errorf("persist proposal: %w", err)
	}
	c.auditLog.Record(actorID, "proposal.decide", "proposal", p.ID,
		fmt.Sprintf("status=%s for=%d against=%d", p.Status, p.VotesFor, p.VotesAgainst))

	out := *p
	return &out, nil
}

// GetPolicyProposal returns a proposal by id.
func (c *Coordinator) GetPolicyProposal(proposalID string) (*domain.PolicyProposal, error) {
	c.proposalMu.Lock()
	defer c.proposalMu.Unlock()
	p, ok := c.proposals[proposalID]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	out := *p
	return &out, nil
}

// rehydrateProposals loads proposals from the store after a restart.
func (c *Coordinator) rehydrateProposals() error {
	proposals, err := c.store.ListProposals()
	if err != nil {
		return fmt.Errorf("rehydrate proposals: %w", err)
	}
	c.proposalMu.Lock()
	defer c.proposalMu.Unlock()
	for i := range proposals {
		p := proposals[i]
		c.proposals[p.ID] = &p
	}
	return nil
}
