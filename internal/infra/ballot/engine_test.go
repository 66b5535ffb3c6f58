package ballot

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/strata-labs/strata/internal/domain"
	"github.com/strata-labs/strata/internal/infra/memstore"
)

// fixedTime returns a deterministic time for testing.
func fixedTime() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func testSecret() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func activeCampaign(anonymous bool) *domain.VotingCampaign {
	return &domain.VotingCampaign{
		ID:          "camp-1",
		Status:      domain.CampaignActive,
		IsAnonymous: anonymous,
		Choices: []domain.Choice{
			{ID: "choice-a", Name: "A"},
			{ID: "choice-b", Name: "B"},
		},
		EligibleVoterIDs: []string{"alice", "bob", "carol"},
	}
}

func newTestEngine(t *testing.T) (*Engine, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	e := NewEngine(store, NewTokenizer(testSecret()))
	e.now = fixedTime
	return e, store
}

// ═══════════════════════════════════════════════════════════════════════════
// Voter Tokens
// ═══════════════════════════════════════════════════════════════════════════

func TestVoterToken_IdentifiedIsRawID(t *testing.T) {
	tok := NewTokenizer(testSecret())
	if got := tok.VoterToken("camp-1", "alice", false); got != "alice" {
		t.Fatalf("identified token should be the raw voter id, got %q", got)
	}
}

func TestVoterToken_AnonymousDeterministicPerCampaign(t *testing.T) {
	tok := NewTokenizer(testSecret())

	a1 := tok.VoterToken("camp-1", "alice", true)
	a2 := tok.VoterToken("camp-1", "alice", true)
	if a1 != a2 {
		t.Fatal("same voter in same campaign must derive the same token")
	}
	if a1 == "alice" {
		t.Fatal("anonymous token must not expose the voter id")
	}

	other := tok.VoterToken("camp-2", "alice", true)
	if other == a1 {
		t.Fatal("same voter in different campaigns must derive different tokens")
	}

	otherSecret := NewTokenizer([]byte("another-secret-another-secret-xx"))
	if otherSecret.VoterToken("camp-1", "alice", true) == a1 {
		t.Fatal("different secrets must derive different tokens")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Casting
// ═══════════════════════════════════════════════════════════════════════════

func TestCast_RecordsBallot(t *testing.T) {
	e, store := newTestEngine(t)
	c := activeCampaign(false)

	b, err := e.Cast(c, "alice", "choice-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.VoterToken != "alice" || b.ChoiceID != "choice-a" {
		t.Fatalf("unexpected ballot: %+v", b)
	}

	persisted, err := store.ListBallots("camp-1")
	if err != nil || len(persisted) != 1 {
		t.Fatalf("expected 1 persisted ballot, got %d (err %v)", len(persisted), err)
	}
}

func TestCast_Rejections(t *testing.T) {
	e, _ := newTestEngine(t)

	closed := activeCampaign(false)
	closed.Status = domain.CampaignClosed
	if _, err := e.Cast(closed, "alice", "choice-a"); !errors.Is(err, domain.ErrCampaignNotActive) {
		t.Fatalf("expected ErrCampaignNotActive, got %v", err)
	}

	c := activeCampaign(false)
	if _, err := e.Cast(c, "mallory", "choice-a"); !errors.Is(err, domain.ErrVoterNotEligible) {
		t.Fatalf("expected ErrVoterNotEligible, got %v", err)
	}
	if _, err := e.Cast(c, "alice", "choice-zzz"); !errors.Is(err, domain.ErrUnknownChoice) {
		t.Fatalf("expected ErrUnknownChoice, got %v", err)
	}

	if _, err := e.Cast(c, "alice", "choice-a"); err != nil {
		t.Fatalf("valid cast failed: %v", err)
	}
	if _, err := e.Cast(c, "alice", "choice-b"); !errors.Is(err, domain.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
}

func TestCast_AnonymousDuplicateDetected(t *testing.T) {
	e, store := newTestEngine(t)
	c := activeCampaign(true)

	if _, err := e.Cast(c, "alice", "choice-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Cast(c, "alice", "choice-b"); !errors.Is(err, domain.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}

	ballots, _ := store.ListBallots("camp-1")
	if len(ballots) != 1 {
		t.Fatalf("expected 1 ballot, got %d", len(ballots))
	}
	if ballots[0].VoterToken == "alice" {
		t.Fatal("anonymous ballot stored with raw voter id")
	}
}

func TestCast_ConcurrentSameVoterExactlyOneWins(t *testing.T) {
	e, _ := newTestEngine(t)
	c := activeCampaign(false)

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Cast(c, "bob", "choice-a")
		}(i)
	}
	wg.Wait()

	success, dup := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, domain.ErrDuplicateVote):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 || dup != attempts-1 {
		t.Fatalf("expected exactly 1 success, got %d successes / %d duplicates", success, dup)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Tally & Rehydration
// ═══════════════════════════════════════════════════════════════════════════

func TestTallyAndDistinctVoters(t *testing.T) {
	e, _ := newTestEngine(t)
	c := activeCampaign(false)

	e.Cast(c, "alice", "choice-a")
	e.Cast(c, "bob", "choice-a")
	e.Cast(c, "carol", "choice-b")

	tally := e.Tally("camp-1")
	if tally["choice-a"] != 2 || tally["choice-b"] != 1 {
		t.Fatalf("unexpected tally: %v", tally)
	}
	if n := e.DistinctVoters("camp-1"); n != 3 {
		t.Fatalf("expected 3 distinct voters, got %d", n)
	}
}

func TestRehydrate_RestoresDuplicateDetection(t *testing.T) {
	store := memstore.New()
	tok := NewTokenizer(testSecret())

	first := NewEngine(store, tok)
	first.now = fixedTime
	c := activeCampaign(true)
	if _, err := first.Cast(c, "alice", "choice-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Fresh engine over the same store and secret, as after a restart.
	second := NewEngine(store, tok)
	second.now = fixedTime
	if err := second.Rehydrate("camp-1"); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if _, err := second.Cast(c, "alice", "choice-b"); !errors.Is(err, domain.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote after rehydration, got %v", err)
	}
	if tally := second.Tally("camp-1"); tally["choice-a"] != 1 {
		t.Fatalf("unexpected tally after rehydration: %v", tally)
	}
}
