package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/strata-labs/strata/internal/domain"
)

// fixedTime returns a deterministic time for testing.
func fixedTime() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestCampaignRoundTrip(t *testing.T) {
	db := openTestDB(t)

	c := domain.VotingCampaign{
		ID:        "camp-1",
		SocietyID: "soc-1",
		Title:     "Committee election",
		Type:      domain.CampaignCommitteeElection,
		Status:    domain.CampaignScheduled,
		StartTime: fixedTime(),
		EndTime:   fixedTime().Add(24 * time.Hour),
		Choices: []domain.Choice{
			{ID: "ch-1", Name: "Slate A"},
			{ID: "ch-2", Name: "Slate B"},
		},
		EligibleVoterIDs: []string{"v-1", "v-2", "v-3"},
		CreatedBy:        "admin",
		CreatedAt:        fixedTime(),
	}
	if err := db.SaveCampaign(c); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.GetCampaign("camp-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != c.Title || len(got.Choices) != 2 || len(got.EligibleVoterIDs) != 3 {
		t.Fatalf("round trip lost data: %+v", got)
	}

	// Upsert on status change.
	c.Status = domain.CampaignActive
	if err := db.SaveCampaign(c); err != nil {
		t.Fatalf("resave: %v", err)
	}
	active, err := db.ListCampaigns(domain.CampaignActive)
	if err != nil || len(active) != 1 {
		t.Fatalf("status filter: %v / %d", err, len(active))
	}
	scheduled, _ := db.ListCampaigns(domain.CampaignScheduled)
	if len(scheduled) != 0 {
		t.Fatalf("stale status row remains: %d", len(scheduled))
	}

	if _, err := db.GetCampaign("absent"); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestBallotUniqueness(t *testing.T) {
	db := openTestDB(t)

	b := domain.Ballot{CampaignID: "camp-1", VoterToken: "tok-1", ChoiceID: "ch-1", CastAt: fixedTime()}
	if err := db.SaveBallot(b); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Same (campaign, voter token) must be rejected by the primary key.
	b.ChoiceID = "ch-2"
	if err := db.SaveBallot(b); err == nil {
		t.Fatal("duplicate ballot accepted by the store")
	}

	ballots, err := db.ListBallots("camp-1")
	if err != nil || len(ballots) != 1 {
		t.Fatalf("expected 1 ballot, got %d (err %v)", len(ballots), err)
	}
	if ballots[0].ChoiceID != "ch-1" {
		t.Fatalf("first ballot overwritten: %+v", ballots[0])
	}
}

func TestAlertRoundTripAndOpenFilter(t *testing.T) {
	db := openTestDB(t)

	open := domain.EmergencyAlert{
		ID:        "alert-1",
		SocietyID: "soc-1",
		Title:     "Fire in stairwell",
		Severity:  domain.SeverityCritical,
		Status:    domain.AlertEscalating,
		Chain: []domain.EscalationLevel{
			{Level: 1, Responsible: "manager-1", TimeoutMinutes: 10, IsActivated: true, ActivatedAt: fixedTime()},
		},
		CurrentLevel: 1,
		DeclaredAt:   fixedTime(),
	}
	resolved := open
	resolved.ID = "alert-2"
	resolved.Status = domain.AlertResolved

	if err := db.SaveAlert(open); err != nil {
		t.Fatalf("save open: %v", err)
	}
	if err := db.SaveAlert(resolved); err != nil {
		t.Fatalf("save resolved: %v", err)
	}

	got, err := db.GetAlert("alert-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Chain) != 1 || !got.Chain[0].IsActivated {
		t.Fatalf("chain lost in round trip: %+v", got)
	}

	openAlerts, err := db.ListOpenAlerts()
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(openAlerts) != 1 || openAlerts[0].ID != "alert-1" {
		t.Fatalf("open filter wrong: %+v", openAlerts)
	}
}

func TestPlanAndProposalRoundTrip(t *testing.T) {
	db := openTestDB(t)

	p := domain.SuccessionPlan{
		ID:        "plan-1",
		SocietyID: "soc-1",
		Name:      "Chair succession",
		Status:    domain.PlanInactive,
		Deputies:  []domain.Deputy{{Order: 1, ResidentID: "dep-1", Role: "acting_chair"}},
		Triggers:  []domain.TriggerKind{domain.TriggerEscalationExhausted},
		CreatedAt: fixedTime(),
	}
	if err := db.SavePlan(p); err != nil {
		t.Fatalf("save plan: %v", err)
	}
	plans, err := db.ListPlans("soc-1")
	if err != nil || len(plans) != 1 || len(plans[0].Deputies) != 1 {
		t.Fatalf("plan round trip: %v / %+v", err, plans)
	}
	if others, _ := db.ListPlans("soc-2"); len(others) != 0 {
		t.Fatal("society filter ignored")
	}

	prop := domain.PolicyProposal{
		ID:        "prop-1",
		SocietyID: "soc-1",
		Title:     "Quiet hours",
		Status:    domain.ProposalVoting,
		CreatedAt: fixedTime(),
	}
	if err := db.SaveProposal(prop); err != nil {
		t.Fatalf("save proposal: %v", err)
	}
	gotProp, err := db.GetProposal("prop-1")
	if err != nil || gotProp.Status != domain.ProposalVoting {
		t.Fatalf("proposal round trip: %v / %+v", err, gotProp)
	}
}

func TestAuditAppendAndQuery(t *testing.T) {
	db := openTestDB(t)

	base := fixedTime()
	entries := []domain.AuditEntry{
		{Timestamp: base, Sequence: 1, ActorID: "admin", Action: "campaign.create", ResourceType: "campaign", ResourceID: "c-1"},
		{Timestamp: base, Sequence: 2, ActorID: "system", Action: "alert.declare", ResourceType: "alert", ResourceID: "a-1"},
		{Timestamp: base.Add(time.Hour), Sequence: 3, ActorID: "admin", Action: "campaign.schedule", ResourceType: "campaign", ResourceID: "c-1"},
	}
	for _, e := range entries {
		if err := db.AppendAudit(e); err != nil {
			t.Fatalf("append %d: %v", e.Sequence, err)
		}
	}

	max, err := db.MaxAuditSequence()
	if err != nil || max != 3 {
		t.Fatalf("max sequence: %v / %d", err, max)
	}

	byResource, err := db.QueryAudit(domain.AuditFilter{ResourceType: "campaign", ResourceID: "c-1"})
	if err != nil || len(byResource) != 2 {
		t.Fatalf("resource filter: %v / %d", err, len(byResource))
	}
	if byResource[0].Sequence != 1 || byResource[1].Sequence != 3 {
		t.Fatalf("ordering wrong: %+v", byResource)
	}

	windowed, err := db.QueryAudit(domain.AuditFilter{From: base.Add(30 * time.Minute)})
	if err != nil || len(windowed) != 1 || windowed[0].Sequence != 3 {
		t.Fatalf("time window filter: %v / %+v", err, windowed)
	}
}

func TestMaxAuditSequence_EmptyTable(t *testing.T) {
	db := openTestDB(t)
	max, err := db.MaxAuditSequence()
	if err != nil || max != 0 {
		t.Fatalf("expected 0 on empty table, got %d (err %v)", max, err)
	}
}
