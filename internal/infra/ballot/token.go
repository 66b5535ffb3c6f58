package ballot

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// Tokenizer derives voter tokens for ballot storage. Identified campaigns
// store the raw voter id; anonymous campaigns store an HMAC of
// (campaign id, voter id), which is deterministic, so a duplicate cast by
// the same voter still collides, but cannot be reversed to the voter id
// from storage alone.
type Tokenizer struct {
	secret []byte
}

// NewTokenizer creates a tokenizer with the given secret. The secret must
// stay stable for the lifetime of the campaigns it serves.
func NewTokenizer(secret []byte) *Tokenizer {
	return &Tokenizer{secret: secret}
}

// NewRandomTokenizer creates a tokenizer with a fresh random secret.
// Suitable for single-process deployments where campaigns never outlive
// the stored secret.
func NewRandomTokenizer() (*Tokenizer, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return &Tokenizer{secret: secret}, nil
}

// VoterToken returns the storage identity for a voter in a campaign.
func (t *Tokenizer) VoterToken(campaignID, voterID string, anonymous bool) string {
	if !anonymous {
		return voterID
	}
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(campaignID))
	mac.Write([]byte{0})
	mac.Write([]byte(voterID))
	return hex.EncodeToString(mac.Sum(nil))
}
