// Package domain defines the governance engine's core types and errors.
// Campaigns, ballots, alerts, and plans are pure values with no infrastructure
// dependency, so engines and stores can share them freely.
package domain

import "time"

// CampaignStatus tracks the voting-campaign lifecycle.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "DRAFT"
	CampaignScheduled CampaignStatus = "SCHEDULED"
	CampaignActive    CampaignStatus = "ACTIVE"
	CampaignClosed    CampaignStatus = "CLOSED"
	CampaignPublished CampaignStatus = "RESULTS_PUBLISHED"
	CampaignCancelled CampaignStatus = "CANCELLED"
)

// CampaignType categorizes what a campaign decides.
type CampaignType string

const (
	CampaignCommitteeElection CampaignType = "COMMITTEE_ELECTION"
	CampaignPoll              CampaignType = "POLL"
	CampaignReferendum        CampaignType = "REFERENDUM"
	CampaignEmergencyDecision CampaignType = "EMERGENCY_DECISION"
	CampaignPolicyVote        CampaignType = "POLICY_VOTE"
)

// Valid reports whether the campaign type is a known variant.
func (t CampaignType) Valid() bool {
	switch t {
	case CampaignCommitteeElection, CampaignPoll, CampaignReferendum,
		CampaignEmergencyDecision, CampaignPolicyVote:
		return true
	}
	return false
}

// Choice is a candidate or option on a campaign's ballot.
// VoteCount is derived from stored ballots, never set by callers.
type Choice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	VoteCount   int    `json:"vote_count"`
}

// VotingCampaign is an election, poll, or referendum run by a society.
//
// Invariants:
//   - TotalVotes == sum of Choice.VoteCount at all times
//   - EligibleVoterIDs is frozen once status leaves SCHEDULED
type VotingCampaign struct {
	ID          string         `json:"id"`
	SocietyID   string         `json:"society_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Type        CampaignType   `json:"type"`
	Status      CampaignStatus `json:"status"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	IsAnonymous      bool    `json:"is_anonymous"`
	RequiresQuorum   bool    `json:"requires_quorum"`
	MinParticipation float64 `json:"min_participation_pct"` // 0–100

	Choices          []Choice        `json:"choices"`
	EligibilityRule  EligibilityRule `json:"eligibility_rule"`
	EligibleVoterIDs []string        `json:"eligible_voter_ids,omitempty"`
	TotalVotes       int             `json:"total_votes"`

	// Close/publish outcome
	Participation     float64  `json:"participation_pct"`
	QuorumMet         bool     `json:"quorum_met"`
	WinnerID          string   `json:"winner_id,omitempty"`
	TieRequiresRunoff bool     `json:"tie_requires_runoff"`
	TiedChoiceIDs     []string `json:"tied_choice_ids,omitempty"`

	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
	ActivatedAt time.Time `json:"activated_at,omitempty"`
	ClosedAt    time.Time `json:"closed_at,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	CancelledAt time.Time `json:"cancelled_at,omitempty"`
}

// IsTerminal reports whether the campaign can no longer change.
func (c *VotingCampaign) IsTerminal() bool {
	return c.Status == CampaignPublished || c.Status == CampaignCancelled
}

// Choice returns the choice with the given id, or nil.
func (c *VotingCampaign) Choice(id string) *Choice {
	for i := range c.Choices {
		if c.Choices[i].ID == id {
			return &c.Choices[i]
		}
	}
	return nil
}

// IsEligible reports whether the voter id is in the frozen electorate.
func (c *VotingCampaign) IsEligible(voterID string) bool {
	for _, id := range c.EligibleVoterIDs {
		if id == voterID {
			return true
		}
	}
	return false
}

// Ballot is a single recorded vote. VoterToken is the raw voter id for
// identified campaigns, or a one-way derived token for anonymous ones;
// either way it is unique per (campaign, voter).
type Ballot struct {
	CampaignID string    `json:"campaign_id"`
	VoterToken string    `json:"voter_token"`
	ChoiceID   string    `json:"choice_id"`
	CastAt     time.Time `json:"cast_at"`
}

// CampaignResult is the published outcome of a closed campaign.
type CampaignResult struct {
	CampaignID        string         `json:"campaign_id"`
	Tally             map[string]int `json:"tally"` // choice id → votes
	TotalVotes        int            `json:"total_votes"`
	EligibleCount     int            `json:"eligible_count"`
	Participation     float64        `json:"participation_pct"`
	QuorumMet         bool           `json:"quorum_met"`
	WinnerID          string         `json:"winner_id,omitempty"`
	TieRequiresRunoff bool           `json:"tie_requires_runoff"`
	TiedChoiceIDs     []string       `json:"tied_choice_ids,omitempty"`
	PublishedAt       time.Time      `json:"published_at"`
}
