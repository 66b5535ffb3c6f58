package domain

// ─── Collaborator Interfaces ────────────────────────────────────────────────
// These interfaces define boundaries between layers. Infrastructure
// implements them; the engines depend only on the contracts.

// Store is the persistence adapter for governance entities. Each entity is
// serialized as a record keyed by its id; audit entries are append-only.
// Implemented by infra/sqlite.DB (production) and infra/memstore.Store
// (tests).
type Store interface {
	SaveCampaign(c VotingCampaign) error
	GetCampaign(id string) (*VotingCampaign, error)
	ListCampaigns(status CampaignStatus) ([]VotingCampaign, error)

	SaveBallot(b Ballot) error
	ListBallots(campaignID string) ([]Ballot, error)

	SaveAlert(a EmergencyAlert) error
	GetAlert(id string) (*EmergencyAlert, error)
	ListOpenAlerts() ([]EmergencyAlert, error)

	SavePlan(p SuccessionPlan) error
	GetPlan(id string) (*SuccessionPlan, error)
	ListPlans(societyID string) ([]SuccessionPlan, error)

	SaveProposal(p PolicyProposal) error
	GetProposal(id string) (*PolicyProposal, error)
	ListProposals() ([]PolicyProposal, error)

	AppendAudit(e AuditEntry) error
	QueryAudit(f AuditFilter) ([]AuditEntry, error)
	MaxAuditSequence() (uint64, error)
}

// RosterProvider supplies residency roster snapshots for eligibility
// resolution. A failed fetch blocks campaign scheduling (fail closed).
type RosterProvider interface {
	ResidencyRoster(societyID string) (*RosterSnapshot, error)
}

// Dispatcher delivers escalation notifications. Fire-and-forget: a returned
// error is recorded but never blocks escalation progression.
type Dispatcher interface {
	Dispatch(req DispatchRequest) error
}
