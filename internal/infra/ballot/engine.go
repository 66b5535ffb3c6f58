// Package ballot records one ballot per (campaign, voter) and tallies them.
// Uniqueness is enforced against the in-memory ballot set under the caller's
// per-campaign serialization; the store's primary key backs it on disk.
// Tallies are pure reads derived from stored ballots, never from a
// separately mutated counter.
package ballot

import (
	"fmt"
	"sync"
	"time"

	"github.com/strata-labs/strata/internal/domain"
)

// Engine is the ballot store. Thread-safe; writes for the same campaign are
// additionally serialized by the campaign lifecycle manager, so two
// simultaneous votes from the same voter cannot both pass the duplicate
// check.
type Engine struct {
	mu     sync.RWMutex
	store  domain.Store
	tokens *Tokenizer

	// campaign id → voter token → ballot
	byCampaign map[string]map[string]domain.Ballot

	now func() time.Time
}

// NewEngine creates a ballot engine backed by the given store.
func NewEngine(store domain.Store, tokens *Tokenizer) *Engine {
	return &Engine{
		store:      store,
		tokens:     tokens,
		byCampaign: make(map[string]map[string]domain.Ballot),
		now:        time.Now,
	}
}

// Rehydrate loads a campaign's ballots from the store into memory.
// Called on daemon start for campaigns that are still open.
func (e *Engine) Rehydrate(campaignID string) error {
	ballots, err := e.store.ListBallots(campaignID)
	if err != nil {
		return fmt.Errorf("rehydrate ballots for %s: %w", campaignID, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	set := make(map[string]domain.Ballot, len(ballots))
	for _, b := range ballots {
		set[b.VoterToken] = b
	}
	e.byCampaign[campaignID] = set
	return nil
}

// Cast validates and records a ballot for the given campaign. The caller
// holds the campaign's write lock and passes the campaign's current state.
// A rejected cast leaves no ballot recorded.
func (e *Engine) Cast(c *domain.VotingCampaign, voterID, choiceID string) (domain.Ballot, error) {
	if c.Status != domain.CampaignActive {
		return domain.Ballot{}, domain.ErrCampaignNotActive
	}
	if !c.IsEligible(voterID) {
		return domain.Ballot{}, domain.ErrVoterNotEligible
	}
	if c.Choice(choiceID) == nil {
		return domain.Ballot{}, domain.ErrUnknownChoice
	}

	token := e.tokens.VoterToken(c.ID, voterID, c.IsAnonymous)

	e.mu.Lock()
	defer e.mu.Unlock()

	set := e.byCampaign[c.ID]
	if set == nil {
		set = make(map[string]domain.Ballot)
		e.byCampaign[c.ID] = set
	}
	if _, dup := set[token]; dup {
		return domain.Ballot{}, domain.ErrDuplicateVote
	}

	b := domain.Ballot{
		CampaignID: c.ID,
		VoterToken: token,
		ChoiceID:   choiceID,
		CastAt:     e.now(),
	}
	if err := e.store.SaveBallot(b); err != nil {
		return domain.Ballot{}, fmt.Errorf("persist ballot: %w", err)
	}
	set[token] = b
	return b, nil
}

// Tally returns votes per choice id, derived from recorded ballots.
// Lock-free with respect to writers on other campaigns.
func (e *Engine) Tally(campaignID string) map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tally := make(map[string]int)
	for _, b := range e.byCampaign[campaignID] {
		tally[b.ChoiceID]++
	}
	return tally
}

// DistinctVoters returns how many distinct voter identities have cast a
// ballot in the campaign. Basis for the participation computation.
func (e *Engine) DistinctVoters(campaignID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.byCampaign[campaignID])
}

// Forget drops a campaign's in-memory ballot set. Called after results are
// published; the store keeps the ballots for audit.
func (e *Engine) Forget(campaignID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.byCampaign, campaignID)
}
