// Package audit provides the append-only record of every governance action.
// Appends never lose data: when the store is unavailable the entry is
// buffered in memory and retried, never dropped. Ordering only matters
// within a single entity's history, so (timestamp, sequence) is sufficient.
package audit

import (
	"log"
	"sync"
	"time"

	"github.com/strata-labs/strata/internal/domain"
	"github.com/strata-labs/strata/internal/infra/metrics"
)

// Log is the audit log engine. Safe for concurrent writers; entries are
// independent.
type Log struct {
	mu     sync.Mutex
	store  domain.Store
	seq    uint64
	buffer []domain.AuditEntry // entries awaiting a store retry

	now func() time.Time
}

// NewLog creates an audit log backed by the given store. The sequence
// resumes after the highest persisted sequence so restarts never reuse one.
func NewLog(store domain.Store) *Log {
	l := &Log{store: store, now: time.Now}
	if seq, err := store.MaxAuditSequence(); err == nil {
		l.seq = seq
	} else {
		log.Printf("[audit] reading max sequence: %v", err)
	}
	return l
}

// Record builds and appends an entry for a governance action. Never returns
// an error: a failed persist is buffered and retried on the next append or
// Flush.
func (l *Log) Record(actorID, action, resourceType, resourceID, details string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	entry := domain.AuditEntry{
		Timestamp:    l.now(),
		Sequence:     l.seq,
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	}

	l.drainLocked()
	if len(l.buffer) > 0 {
		// Store still behind; keep strict append order.
		l.buffer = append(l.buffer, entry)
		metrics.AuditBufferDepth.Set(float64(len(l.buffer)))
		return
	}
	if err := l.store.AppendAudit(entry); err != nil {
		log.Printf("[audit] append failed, buffering entry %d: %v", entry.Sequence, err)
		l.buffer = append(l.buffer, entry)
		metrics.AuditBufferDepth.Set(float64(len(l.buffer)))
		return
	}
	metrics.AuditAppended.Inc()
}

// Flush retries buffered entries against the store. Returns how many remain
// buffered. The daemon calls this periodically and at shutdown.
func (l *Log) Flush() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.drainLocked()
	return len(l.buffer)
}

// drainLocked writes buffered entries in order, stopping at the first
// failure to preserve append order.
func (l *Log) drainLocked() {
	for len(l.buffer) > 0 {
		if err := l.store.AppendAudit(l.buffer[0]); err != nil {
			return
		}
		l.buffer = l.buffer[1:]
		metrics.AuditAppended.Inc()
	}
	metrics.AuditBufferDepth.Set(float64(len(l.buffer)))
}

// Query returns entries matching the filter, including any still buffered.
// Read-only.
func (l *Log) Query(f domain.AuditFilter) ([]domain.AuditEntry, error) {
	entries, err := l.store.QueryAudit(f)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	for _, e := range l.buffer {
		if f.Matches(e) {
			entries = append(entries, e)
		}
	}
	l.mu.Unlock()
	return entries, nil
}
