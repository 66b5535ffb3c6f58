package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency. Every rejected
// operation maps to exactly one of these; callers branch with errors.Is.

var (
	// Eligibility errors
	ErrInvalidRule       = errors.New("eligibility rule is invalid or contradictory")
	ErrEmptyElectorate   = errors.New("eligibility rule resolves to an empty electorate")
	ErrRosterUnavailable = errors.New("residency roster unavailable, cannot resolve eligibility")

	// Voting errors
	ErrVoterNotEligible  = errors.New("voter is not in the campaign's electorate")
	ErrDuplicateVote     = errors.New("voter has already cast a ballot in this campaign")
	ErrCampaignNotActive = errors.New("campaign is not accepting votes")
	ErrUnknownChoice     = errors.New("choice is not on the campaign's ballot")

	// Input errors
	ErrInvalidSpec = errors.New("specification is invalid")

	// Lifecycle errors
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrInvalidTransition = errors.New("campaign status does not permit this transition")
	ErrNotYetStarted     = errors.New("campaign start time has not been reached")
	ErrQuorumNotMet      = errors.New("quorum not met, results require explicit publication")
	ErrTieRequiresRunoff = errors.New("exact tie, a runoff campaign must be created explicitly")

	// Escalation errors
	ErrAlertNotFound        = errors.New("alert not found")
	ErrAlertAlreadyResolved = errors.New("alert is already resolved")
	ErrAlertTerminal        = errors.New("alert has reached a terminal state")
	ErrLevelNotActive       = errors.New("escalation level is not the active level")
	ErrEmptyChain           = errors.New("escalation chain must have at least one level")

	// Succession errors
	ErrNoPlanConfigured = errors.New("society has no succession plan configured")
	ErrPlanNotFound     = errors.New("succession plan not found")
	ErrPlanNotInactive  = errors.New("succession plan is already active or completed")

	// Proposal errors
	ErrProposalNotFound = errors.New("policy proposal not found")
	ErrProposalNotDraft = errors.New("policy proposal is not in draft")
)

// ─── Error Kinds ────────────────────────────────────────────────────────────

// Kind returns the stable machine-readable kind for a domain error, or
// "Internal" for anything unrecognized. API responses carry this so callers
// never parse error text to branch.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRule):
		return "InvalidRule"
	case errors.Is(err, ErrEmptyElectorate):
		return "EmptyElectorate"
	case errors.Is(err, ErrRosterUnavailable):
		return "RosterUnavailable"
	case errors.Is(err, ErrVoterNotEligible):
		return "VoterNotEligible"
	case errors.Is(err, ErrDuplicateVote):
		return "DuplicateVote"
	case errors.Is(err, ErrCampaignNotActive):
		return "CampaignNotActive"
	case errors.Is(err, ErrUnknownChoice):
		return "UnknownChoice"
	case errors.Is(err, ErrInvalidSpec):
		return "InvalidSpec"
	case errors.Is(err, ErrCampaignNotFound):
		return "CampaignNotFound"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrNotYetStarted):
		return "NotYetStarted"
	case errors.Is(err, ErrQuorumNotMet):
		return "QuorumNotMet"
	case errors.Is(err, ErrTieRequiresRunoff):
		return "TieRequiresRunoff"
	case errors.Is(err, ErrAlertNotFound):
		return "AlertNotFound"
	case errors.Is(err, ErrAlertAlreadyResolved):
		return "AlertAlreadyResolved"
	case errors.Is(err, ErrAlertTerminal):
		return "AlertTerminal"
	case errors.Is(err, ErrLevelNotActive):
		return "LevelNotActive"
	case errors.Is(err, ErrEmptyChain):
		return "EmptyChain"
	case errors.Is(err, ErrNoPlanConfigured):
		return "NoPlanConfigured"
	case errors.Is(err, ErrPlanNotFound):
		return "PlanNotFound"
	case errors.Is(err, ErrPlanNotInactive):
		return "PlanNotInactive"
	case errors.Is(err, ErrProposalNotFound):
		return "ProposalNotFound"
	case errors.Is(err, ErrProposalNotDraft):
		return "ProposalNotDraft"
	default:
		return "Internal"
	}
}
