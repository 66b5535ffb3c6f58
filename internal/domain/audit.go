package domain

import "time"

// AuditEntry is an immutable record of a governance action. Entries are
// keyed by (timestamp, sequence) so ordering stays stable even when two
// entries share a timestamp.
type AuditEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Sequence     uint64    `json:"sequence"`
	ActorID      string    `json:"actor_id"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"` // "campaign", "alert", "plan", "proposal"
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details,omitempty"`
}

// AuditFilter selects audit entries on query. Zero fields match everything.
type AuditFilter struct {
	ResourceType string
	ResourceID   string
	ActorID      string
	From         time.Time
	To           time.Time
}

// Matches reports whether the entry passes the filter.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}
