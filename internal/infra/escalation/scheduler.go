// Package escalation implements the emergency-alert state machine:
//
//	DECLARED → ESCALATING (level 1..N) → CLOSED_UNRESOLVED
//
// with ACKNOWLEDGED stopping auto-escalation and RESOLVED reachable from any
// non-terminal state. Each alert owns at most one armed timer at any time
// (arming always follows cancelling), so duplicate escalations are
// impossible. Timeouts are wall-clock based and survive restarts via
// Rehydrate.
package escalation

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strata-labs/strata/internal/domain"
	"github.com/strata-labs/strata/internal/infra/audit"
	"github.com/strata-labs/strata/internal/infra/metrics"
)

// SystemActor is the actor id recorded for timer-driven transitions.
const SystemActor = "system"

// LevelSpec describes one rung of the escalation chain at declaration time.
type LevelSpec struct {
	Role           string                 `json:"role"`
	Responsible    string                 `json:"responsible"`
	ContactMethods []domain.ContactMethod `json:"contact_methods"`
	TimeoutMinutes int                    `json:"timeout_minutes"`
}

// DeclareSpec describes an emergency to declare.
type DeclareSpec struct {
	SocietyID   string               `json:"society_id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Severity    domain.AlertSeverity `json:"severity"`
	Chain       []LevelSpec          `json:"escalation_chain"`
}

// ExhaustedFunc is notified when an alert exhausts its chain and closes
// unresolved. The succession coordinator subscribes with one of these.
type ExhaustedFunc func(alert domain.EmergencyAlert)

// alertEntry pairs an alert with its serialization lock and pending timer.
type alertEntry struct {
	mu    sync.Mutex
	a     domain.EmergencyAlert
	timer *time.Timer // pending level timer, nil when none armed
}

// Scheduler owns all emergency alerts and drives their escalation chains.
type Scheduler struct {
	mu     sync.RWMutex
	alerts map[string]*alertEntry

	store      domain.Store
	dispatcher domain.Dispatcher
	audit      *audit.Log

	exhaustedMu sync.RWMutex
	exhausted   []ExhaustedFunc

	now func() time.Time
}

// NewScheduler creates an escalation scheduler.
func NewScheduler(store domain.Store, dispatcher domain.Dispatcher, auditLog *audit.Log) *Scheduler {
	return &Scheduler{
		alerts:     make(map[string]*alertEntry),
		store:      store,
		dispatcher: dispatcher,
		audit:      auditLog,
		now:        time.Now,
	}
}

// OnExhausted registers a listener for chains that close unresolved.
func (s *Scheduler) OnExhausted(fn ExhaustedFunc) {
	s.exhaustedMu.Lock()
	s.exhausted = append(s.exhausted, fn)
	s.exhaustedMu.Unlock()
}

// ─── Declaration ────────────────────────────────────────────────────────────

// Declare creates an alert and immediately activates level 1: the level's
// contacts are dispatched and its timeout timer armed.
func (s *Scheduler) Declare(spec DeclareSpec, actorID string) (*domain.EmergencyAlert, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidSpec)
	}
	if !spec.Severity.Valid() {
		return nil, fmt.Errorf("%w: unknown severity %q", domain.ErrInvalidSpec, spec.Severity)
	}
	if len(spec.Chain) == 0 {
		return nil, domain.ErrEmptyChain
	}
	for _, l := range spec.Chain {
		if l.TimeoutMinutes <= 0 {
			return nil, fmt.Errorf("%w: level timeout must be positive", domain.ErrInvalidSpec)
		}
	}

	now := s.now()
	chain := make([]domain.EscalationLevel, len(spec.Chain))
	for i, l := range spec.Chain {
		chain[i] = domain.EscalationLevel{
			Level:          i + 1,
			Role:           l.Role,
			Responsible:    l.Responsible,
			ContactMethods: l.ContactMethods,
			TimeoutMinutes: l.TimeoutMinutes,
		}
	}

	a := domain.EmergencyAlert{
		ID:          uuid.New().String(),
		SocietyID:   spec.SocietyID,
		Title:       spec.Title,
		Description: spec.Description,
		Severity:    spec.Severity,
		Status:      domain.AlertDeclared,
		Chain:       chain,
		DeclaredBy:  actorID,
		DeclaredAt:  now,
	}

	ent := &alertEntry{a: a}
	ent.mu.Lock()
	defer ent.mu.Unlock()

	s.mu.Lock()
	s.alerts[a.ID] = ent
	s.mu.Unlock()

	s.audit.Record(actorID, "alert.declare", "alert", a.ID, string(a.Severity))
	metrics.AlertsOpen.Inc()

	if err := s.activateLocked(ent, 1); err != nil {
		return nil, err
	}

	out := ent.a
	return &out, nil
}

// ─── Acknowledgment & Resolution ────────────────────────────────────────────

// Acknowledge records a responder accepting the given level. The pending
// timer is cancelled before returning, so no auto-escalation can be observed
// afterwards. The alert stays open until explicitly resolved.
func (s *Scheduler) Acknowledge(alertID string, level int, ackBy string) (*domain.EmergencyAlert, error) {
	ent, err := s.entry(alertID)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	a := &ent.a

	if a.Status == domain.AlertResolved {
		return nil, domain.ErrAlertAlreadyResolved
	}
	if a.IsTerminal() || a.Status == domain.AlertAcknowledged {
		return nil, domain.ErrAlertTerminal
	}
	if level != a.CurrentLevel {
		return nil, domain.ErrLevelNotActive
	}

	s.cancelTimerLocked(ent)

	now := s.now()
	a.Chain[level-1].AcknowledgedAt = now
	a.Acknowledgments = append(a.Acknowledgments, domain.Acknowledgment{
		Level: level,
		AckBy: ackBy,
		AckAt: now,
	})
	a.Status = domain.AlertAcknowledged

	if err := s.store.SaveAlert(*a); err != nil {
		return nil, fmt.Errorf("persist alert: %w", err)
	}
	s.audit.Record(ackBy, "alert.acknowledge", "alert", a.ID, fmt.Sprintf("level=%d", level))

	out := *a
	return &out, nil
}

// Resolve closes the alert from any non-terminal state. The pending timer
// is cancelled synchronously before returning success. Resolving an already
// resolved alert fails without appending a duplicate audit entry.
func (s *Scheduler) Resolve(alertID, notes, resolvedBy string) (*domain.EmergencyAlert, error) {
	ent, err := s.entry(alertID)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	a := &ent.a

	if a.Status == domain.AlertResolved {
		return nil, domain.ErrAlertAlreadyResolved
	}
	if a.Status == domain.AlertClosedUnresolved {
		return nil, domain.ErrAlertTerminal
	}

	s.cancelTimerLocked(ent)

	a.Status = domain.AlertResolved
	a.ResolvedBy = resolvedBy
	a.ResolvedAt = s.now()
	a.ResolutionNotes = notes

	if err := s.store.SaveAlert(*a); err != nil {
		return nil, fmt.Errorf("persist alert: %w", err)
	}
	s.audit.Record(resolvedBy, "alert.resolve", "alert", a.ID, notes)
	metrics.AlertsOpen.Dec()

	out := *a
	return &out, nil
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// Get returns a copy of the alert.
func (s *Scheduler) Get(alertID string) (*domain.EmergencyAlert, error) {
	ent, err := s.entry(alertID)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	a := ent.a
	ent.mu.Unlock()
	return &a, nil
}

// List returns all alerts known to the scheduler, unordered.
func (s *Scheduler) List() []domain.EmergencyAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.EmergencyAlert, 0, len(s.alerts))
	for _, ent := range s.alerts {
		ent.mu.Lock()
		out = append(out, ent.a)
		ent.mu.Unlock()
	}
	return out
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// Rehydrate reloads open alerts after a restart and re-arms their timers.
// A level whose wall-clock deadline already passed advances immediately, so
// escalation does not depend on the process having been alive.
func (s *Scheduler) Rehydrate() error {
	open, err := s.store.ListOpenAlerts()
	if err != nil {
		return fmt.Errorf("rehydrate alerts: %w", err)
	}

	for _, a := range open {
		ent := &alertEntry{a: a}
		s.mu.Lock()
		s.alerts[a.ID] = ent
		s.mu.Unlock()
		metrics.AlertsOpen.Inc()

		if a.Status != domain.AlertEscalating {
			continue
		}
		level := a.ActiveLevel()
		if level == nil {
			continue
		}

		ent.mu.Lock()
		remaining := level.ActivatedAt.Add(level.Timeout()).Sub(s.now())
		if remaining <= 0 {
			s.timeoutLocked(ent, level.Level)
		} else {
			s.armLocked(ent, level.Level, remaining)
		}
		ent.mu.Unlock()
	}
	return nil
}

// Shutdown cancels all pending timers. Alert state stays persisted; timers
// are re-armed by the next Rehydrate.
func (s *Scheduler) Shutdown() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ent := range s.alerts {
		ent.mu.Lock()
		s.cancelTimerLocked(ent)
		ent.mu.Unlock()
	}
}

// ─── Internal ───────────────────────────────────────────────────────────────

func (s *Scheduler) entry(alertID string) (*alertEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ent, ok := s.alerts[alertID]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	return ent, nil
}

// activateLocked activates the given level: marks it, persists, dispatches
// its contacts, and arms its timeout timer. Caller holds the entry lock.
func (s *Scheduler) activateLocked(ent *alertEntry, level int) error {
	a := &ent.a
	now := s.now()

	l := &a.Chain[level-1]
	l.IsActivated = true
	l.ActivatedAt = now
	a.CurrentLevel = level
	a.Status = domain.AlertEscalating

	if err := s.store.SaveAlert(*a); err != nil {
		return fmt.Errorf("persist alert: %w", err)
	}

	s.audit.Record(SystemActor, "alert.level_activate", "alert", a.ID,
		fmt.Sprintf("level=%d responsible=%s", level, l.Responsible))
	metrics.EscalationActivations.Inc()

	s.dispatchLevel(*a, *l)
	s.armLocked(ent, level, l.Timeout())
	return nil
}

// timeoutLocked handles a level's timer firing: marks the level timed out
// and activates the next level, or closes the alert unresolved when the
// chain is exhausted. Caller holds the entry lock.
func (s *Scheduler) timeoutLocked(ent *alertEntry, level int) {
	a := &ent.a

	// A stale timer races an acknowledgment or resolution only up to the
	// entry lock; whoever loses sees the state change and backs off.
	if a.IsTerminal() || a.Status == domain.AlertAcknowledged || a.CurrentLevel != level {
		return
	}

	a.Chain[level-1].TimedOutAt = s.now()
	s.audit.Record(SystemActor, "alert.level_timeout", "alert", a.ID, fmt.Sprintf("level=%d", level))
	metrics.EscalationTimeouts.Inc()

	if level < len(a.Chain) {
		if err := s.activateLocked(ent, level+1); err != nil {
			log.Printf("[escalation] activate level %d of alert %s: %v", level+1, a.ID, err)
		}
		return
	}

	// Chain exhausted.
	a.Status = domain.AlertClosedUnresolved
	if err := s.store.SaveAlert(*a); err != nil {
		log.Printf("[escalation] persist exhausted alert %s: %v", a.ID, err)
	}
	s.audit.Record(SystemActor, "alert.closed_unresolved", "alert", a.ID,
		fmt.Sprintf("levels_exhausted=%d", len(a.Chain)))
	metrics.AlertsOpen.Dec()

	snapshot := *a
	s.exhaustedMu.RLock()
	listeners := make([]ExhaustedFunc, len(s.exhausted))
	copy(listeners, s.exhausted)
	s.exhaustedMu.RUnlock()

	// Listeners run outside the alert lock; they take their own locks.
	go func() {
		for _, fn := range listeners {
			fn(snapshot)
		}
	}()
}

// armLocked arms the timer for a level after cancelling any previous one.
// The cancel-then-arm order guarantees exactly one active timer per alert.
func (s *Scheduler) armLocked(ent *alertEntry, level int, d time.Duration) {
	s.cancelTimerLocked(ent)
	ent.timer = time.AfterFunc(d, func() {
		ent.mu.Lock()
		defer ent.mu.Unlock()
		s.timeoutLocked(ent, level)
	})
}

func (s *Scheduler) cancelTimerLocked(ent *alertEntry) {
	if ent.timer != nil {
		ent.timer.Stop()
		ent.timer = nil
	}
}

// dispatchLevel emits one dispatch request per contact method,
// fire-and-forget. Failures are logged and counted but never block
// escalation.
func (s *Scheduler) dispatchLevel(a domain.EmergencyAlert, l domain.EscalationLevel) {
	message := fmt.Sprintf("[%s] %s: escalation level %d, respond within %d minutes",
		a.Severity, a.Title, l.Level, l.TimeoutMinutes)

	for _, method := range l.ContactMethods {
		req := domain.DispatchRequest{
			AlertID: a.ID,
			Level:   l.Level,
			Method:  method,
			Target:  l.Responsible,
			Message: message,
		}
		metrics.DispatchRequests.WithLabelValues(string(method)).Inc()
		go func(req domain.DispatchRequest) {
			if err := s.dispatcher.Dispatch(req); err != nil {
				log.Printf("[escalation] dispatch %s to %s for alert %s: %v",
					req.Method, req.Target, req.AlertID, err)
				metrics.DispatchFailures.Inc()
				s.audit.Record(SystemActor, "alert.dispatch_failed", "alert", req.AlertID,
					fmt.Sprintf("level=%d method=%s", req.Level, req.Method))
			}
		}(req)
	}
}
