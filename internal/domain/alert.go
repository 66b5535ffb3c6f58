package domain

import "time"

// AlertSeverity classifies how urgent an emergency is.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// Valid reports whether the severity is a known variant.
func (s AlertSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AlertStatus tracks the emergency-alert lifecycle. Status only advances
// forward, except RESOLVED which is reachable from any non-terminal state.
type AlertStatus string

const (
	AlertDeclared         AlertStatus = "DECLARED"
	AlertEscalating       AlertStatus = "ESCALATING"
	AlertAcknowledged     AlertStatus = "ACKNOWLEDGED"
	AlertResolved         AlertStatus = "RESOLVED"
	AlertClosedUnresolved AlertStatus = "CLOSED_UNRESOLVED"
)

// ContactMethod is a delivery channel for escalation notifications.
type ContactMethod string

const (
	ContactPush  ContactMethod = "PUSH"
	ContactSMS   ContactMethod = "SMS"
	ContactEmail ContactMethod = "EMAIL"
	ContactCall  ContactMethod = "CALL"
)

// EscalationLevel is one rung of an alert's escalation chain. Levels are
// numbered 1..N and their ordering is immutable once the alert is declared.
type EscalationLevel struct {
	Level          int             `json:"level"`
	Role           string          `json:"role"` // responsible role, e.g. "committee_chair"
	Responsible    string          `json:"responsible"` // concrete identity to notify
	ContactMethods []ContactMethod `json:"contact_methods"`
	TimeoutMinutes int             `json:"timeout_minutes"`
	IsActivated    bool            `json:"is_activated"`
	ActivatedAt    time.Time       `json:"activated_at,omitempty"`
	AcknowledgedAt time.Time       `json:"acknowledged_at,omitempty"`
	TimedOutAt     time.Time       `json:"timed_out_at,omitempty"`
}

// Timeout returns the level's timeout as a duration.
func (l EscalationLevel) Timeout() time.Duration {
	return time.Duration(l.TimeoutMinutes) * time.Minute
}

// Acknowledgment records a responder accepting an escalation level.
type Acknowledgment struct {
	Level int       `json:"level"`
	AckBy string    `json:"ack_by"`
	AckAt time.Time `json:"ack_at"`
}

// EmergencyAlert is a declared emergency with a timer-driven escalation
// chain. The scheduler owns its state after declaration.
type EmergencyAlert struct {
	ID          string        `json:"id"`
	SocietyID   string        `json:"society_id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Severity    AlertSeverity `json:"severity"`
	Status      AlertStatus   `json:"status"`

	Chain           []EscalationLevel `json:"escalation_chain"`
	CurrentLevel    int               `json:"current_level"` // 0 = none active
	Acknowledgments []Acknowledgment  `json:"acknowledgments,omitempty"`

	DeclaredBy      string    `json:"declared_by"`
	DeclaredAt      time.Time `json:"declared_at"`
	ResolvedBy      string    `json:"resolved_by,omitempty"`
	ResolvedAt      time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string    `json:"resolution_notes,omitempty"`
}

// IsTerminal reports whether the alert has reached a final state.
func (a *EmergencyAlert) IsTerminal() bool {
	return a.Status == AlertResolved || a.Status == AlertClosedUnresolved
}

// ActiveLevel returns the currently active escalation level, or nil.
func (a *EmergencyAlert) ActiveLevel() *EscalationLevel {
	if a.CurrentLevel < 1 || a.CurrentLevel > len(a.Chain) {
		return nil
	}
	return &a.Chain[a.CurrentLevel-1]
}

// DispatchRequest is a notification emitted to the external dispatcher when
// an escalation level activates. Delivery is fire-and-forget: failures are
// logged but never block escalation progression.
type DispatchRequest struct {
	AlertID string        `json:"alert_id"`
	Level   int           `json:"level"`
	Method  ContactMethod `json:"method"`
	Target  string        `json:"target"`
	Message string        `json:"message"`
}
