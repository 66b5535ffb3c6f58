package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/strata-labs/strata/internal/domain"
	"github.com/strata-labs/strata/internal/governance"
	"github.com/strata-labs/strata/internal/infra/ballot"
	"github.com/strata-labs/strata/internal/infra/memstore"
	"github.com/strata-labs/strata/internal/infra/notify"
)

// rosterFunc adapts a function to the RosterProvider interface.
type rosterFunc func(societyID string) (*domain.RosterSnapshot, error)

func (f rosterFunc) ResidencyRoster(societyID string) (*domain.RosterSnapshot, error) {
	return f(societyID)
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	roster := rosterFunc(func(societyID string) (*domain.RosterSnapshot, error) {
		taken := time.Now()
		entries := make([]domain.RosterEntry, 5)
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
	})

	coord := governance.New(memstore.New(), roster, notify.LogDispatcher{},
		ballot.NewTokenizer([]byte("test-secret-test-secret-test-sec")))
	t.Cleanup(coord.Shutdown)
	return NewServer(coord).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "test-admin")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func campaignBody() map[string]interface{} {
	return map[string]interface{}{
		"society_id": "soc-1",
		"title":      "Committee election",
		"type":       "COMMITTEE_ELECTION",
		"start_time": time.Now().Add(-time.Minute).Format(time.RFC3339),
		"end_time":   time.Now().Add(time.Hour).Format(time.RFC3339),
		"choices": []map[string]string{
			{"name": "Slate A"},
			{"name": "Slate B"},
		},
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
}

func TestCampaignLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/campaigns", campaignBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.VotingCampaign
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created campaign: %v", err)
	}

	for _, step := range []string{"schedule", "activate"} {
		rec = doJSON(t, h, http.MethodPost, "/v1/campaigns/"+created.ID+"/"+step, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s returned %d: %s", step, rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/campaigns/"+created.ID+"/votes", map[string]string{
		"voter_id":  "v-000",
		"choice_id": created.Choices[0].ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("vote returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/campaigns/"+created.ID+"/tally", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tally returned %d", rec.Code)
	}
	var tallyResp struct {
		Tally map[string]int `json:"tally"`
	}
	json.Unmarshal(rec.Body.Bytes(), &tallyResp)
	if tallyResp.Tally[created.Choices[0].ID] != 1 {
		t.Fatalf("unexpected tally: %v", tallyResp.Tally)
	}

	for _, step := range []string{"close", "publish"} {
		rec = doJSON(t, h, http.MethodPost, "/v1/campaigns/"+created.ID+"/"+step, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s returned %d: %s", step, rec.Code, rec.Body.String())
		}
	}

	// Vote attribution lands in the audit trail.
	rec = doJSON(t, h, http.MethodGet, "/v1/audit?resource_id="+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit returned %d", rec.Code)
	}
	var auditResp struct {
		Entries []domain.AuditEntry `json:"entries"`
	}
	json.Unmarshal(rec.Body.Bytes(), &auditResp)
	if len(auditResp.Entries) == 0 {
		t.Fatal("no audit entries for campaign")
	}
}

func TestErrorEnvelope(t *testing.T) {
	h := newTestServer(t)

	// Unknown campaign → 404 with stable error kind.
	rec := doJSON(t, h, http.MethodGet, "/v1/campaigns/absent", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Kind != "CampaignNotFound" {
		t.Fatalf("expected kind CampaignNotFound, got %q", envelope.Error.Kind)
	}

	// Invalid spec → 400.
	body := campaignBody()
	body["title"] = ""
	rec = doJSON(t, h, http.MethodPost, "/v1/campaigns", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	// Voting on a draft campaign → 409 conflict.
	rec = doJSON(t, h, http.MethodPost, "/v1/campaigns", campaignBody())
	var created domain.VotingCampaign
	json.Unmarshal(rec.Body.Bytes(), &created)
	rec = doJSON(t, h, http.MethodPost, "/v1/campaigns/"+created.ID+"/votes", map[string]string{
		"voter_id":  "v-000",
		"choice_id": created.Choices[0].ID,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	json.Unmarshal(rec.Body.Bytes(), &envelope)
	if envelope.Error.Kind != "CampaignNotActive" {
		t.Fatalf("expected kind CampaignNotActive, got %q", envelope.Error.Kind)
	}
}

func TestAlertEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/alerts", map[string]interface{}{
		"society_id": "soc-1",
		"title":      "Elevator stuck with passengers",
		"severity":   "CRITICAL",
		"escalation_chain": []map[string]interface{}{
			{"role": "facility_manager", "responsible": "manager-1",
				"contact_methods": []string{"PUSH"}, "timeout_minutes": 10},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("declare returned %d: %s", rec.Code, rec.Body.String())
	}
	var alert domain.EmergencyAlert
	json.Unmarshal(rec.Body.Bytes(), &alert)
	if alert.Status != domain.AlertEscalating || alert.CurrentLevel != 1 {
		t.Fatalf("unexpected alert state: %+v", alert)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/alerts/"+alert.ID+"/ack", map[string]int{"level": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("ack returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/alerts/"+alert.ID+"/resolve", map[string]string{
		"notes": "passengers freed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve returned %d: %s", rec.Code, rec.Body.String())
	}

	// Second resolve conflicts.
	rec = doJSON(t, h, http.MethodPost, "/v1/alerts/"+alert.ID+"/resolve", map[string]string{})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double resolve, got %d", rec.Code)
	}
}
