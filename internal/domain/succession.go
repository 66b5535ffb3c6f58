package domain

import "time"

// PlanStatus tracks the succession-plan lifecycle.
type PlanStatus string

const (
	PlanInactive  PlanStatus = "INACTIVE"
	PlanActive    PlanStatus = "ACTIVE"
	PlanCompleted PlanStatus = "COMPLETED"
)

// TriggerKind identifies what activated a succession plan.
type TriggerKind string

const (
	TriggerEscalationExhausted TriggerKind = "ESCALATION_EXHAUSTED"
	TriggerAdminInitiated      TriggerKind = "ADMIN_INITIATED"
)

// Deputy is a pre-designated stand-in, activated in plan order.
type Deputy struct {
	Order      int       `json:"order"` // 1 = first in line
	ResidentID string    `json:"resident_id"`
	Role       string    `json:"role"` // role the deputy assumes
	AssignedAt time.Time `json:"assigned_at,omitempty"`
}

// SuccessionPlan is a society's predefined deputy assignment, activated
// when leadership or escalation failure conditions are met.
type SuccessionPlan struct {
	ID        string     `json:"id"`
	SocietyID string     `json:"society_id"`
	Name      string     `json:"name"`
	Status    PlanStatus `json:"status"`

	Deputies []Deputy      `json:"deputies"`
	Triggers []TriggerKind `json:"triggers"`

	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	ActivatedAt time.Time   `json:"activated_at,omitempty"`
	TriggeredBy TriggerKind `json:"triggered_by,omitempty"`
	TriggerRef  string      `json:"trigger_ref,omitempty"` // alert id or actor id
	CompletedAt time.Time   `json:"completed_at,omitempty"`
}

// AcceptsTrigger reports whether the plan is configured for the trigger kind.
func (p *SuccessionPlan) AcceptsTrigger(kind TriggerKind) bool {
	for _, t := range p.Triggers {
		if t == kind {
			return true
		}
	}
	return false
}

// ProposalStatus tracks the policy-proposal lifecycle.
type ProposalStatus string

const (
	ProposalDraft    ProposalStatus = "DRAFT"
	ProposalVoting   ProposalStatus = "VOTING"
	ProposalApproved ProposalStatus = "APPROVED"
	ProposalRejected ProposalStatus = "REJECTED"
)

// PolicyProposal is a proposed rule change decided through a backing
// POLICY_VOTE campaign. Thin wrapper; vote/tally semantics live in the
// campaign lifecycle manager.
type PolicyProposal struct {
	ID         string         `json:"id"`
	SocietyID  string         `json:"society_id"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Status     ProposalStatus `json:"status"`
	CampaignID string         `json:"campaign_id,omitempty"`

	VotesFor     int `json:"votes_for"`
	VotesAgainst int `json:"votes_against"`

	ProposedBy string    `json:"proposed_by"`
	CreatedAt  time.Time `json:"created_at"`
	DecidedAt  time.Time `json:"decided_at,omitempty"`
}
