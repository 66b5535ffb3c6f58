// Package succession activates a society's succession plan when trigger
// conditions fire: an emergency alert exhausting its escalation chain, or an
// explicit admin trigger. Missing plans are reported, never silently
// ignored, so operators learn that escalation ran out with no fallback.
package succession

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strata-labs/strata/internal/domain"
	"github.com/strata-labs/strata/internal/infra/audit"
	"github.com/strata-labs/strata/internal/infra/metrics"
)

// SystemActor is the actor id recorded for escalation-driven activations.
const SystemActor = "system"

// DeputySpec names one stand-in at plan creation time. Deputies activate in
// the order given.
type DeputySpec struct {
	ResidentID string `json:"resident_id"`
	Role       string `json:"role"`
}

// PlanSpec describes a succession plan to create.
type PlanSpec struct {
	SocietyID string               `json:"society_id"`
	Name      string               `json:"name"`
	Deputies  []DeputySpec         `json:"deputies"`
	Triggers  []domain.TriggerKind `json:"triggers"`
}

// Coordinator owns succession plans and their activation.
type Coordinator struct {
	mu    sync.Mutex
	plans map[string]*domain.SuccessionPlan

	store domain.Store
	audit *audit.Log

	now func() time.Time
}

// NewCoordinator creates a succession coordinator.
func NewCoordinator(store domain.Store, auditLog *audit.Log) *Coordinator {
	return &Coordinator{
		plans: make(map[string]*domain.SuccessionPlan),
		store: store,
		audit: auditLog,
		now:   time.Now,
	}
}

// Rehydrate loads all plans from the store after a restart.
func (c *Coordinator) Rehydrate() error {
	plans, err := c.store.ListPlans("")
	if err != nil {
		return fmt.Errorf("rehydrate plans: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range plans {
		p := plans[i]
		c.plans[p.ID] = &p
	}
	return nil
}

// CreatePlan registers an inactive succession plan.
func (c *Coordinator) CreatePlan(spec PlanSpec, actorID string) (*domain.SuccessionPlan, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: plan name is required", domain.ErrInvalidSpec)
	}
	if len(spec.Deputies) == 0 {
		return nil, fmt.Errorf("%w: at least one deputy is required", domain.ErrInvalidSpec)
	}
	triggers := spec.Triggers
	if len(triggers) == 0 {
		triggers = []domain.TriggerKind{domain.TriggerEscalationExhausted, domain.TriggerAdminInitiated}
	}

	deputies := make([]domain.Deputy, len(spec.Deputies))
	for i, d := range spec.Deputies {
		deputies[i] = domain.Deputy{
			Order:      i + 1,
			ResidentID: d.ResidentID,
			Role:       d.Role,
		}
	}

	p := domain.SuccessionPlan{
		ID:        uuid.New().String(),
		SocietyID: spec.SocietyID,
		Name:      spec.Name,
		Status:    domain.PlanInactive,
		Deputies:  deputies,
		Triggers:  triggers,
		CreatedBy: actorID,
		CreatedAt: c.now(),
	}

	if err := c.store.SavePlan(p); err != nil {
		return nil, fmt.Errorf("persist plan: %w", err)
	}

	c.mu.Lock()
	stored := p
	c.plans[p.ID] = &stored
	c.mu.Unlock()

	c.audit.Record(actorID, "plan.create", "plan", p.ID, p.Name)
	return &p, nil
}

// HandleExhaustedAlert evaluates the escalation-exhausted trigger for the
// alert's society. Registered with the escalation scheduler's OnExhausted
// hook. Returns ErrNoPlanConfigured when no inactive plan accepts the
// trigger; reported so the failure is visible, and audited either way.
func (c *Coordinator) HandleExhaustedAlert(alert domain.EmergencyAlert) (*domain.SuccessionPlan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var plan *domain.SuccessionPlan
	for _, p := range c.plans {
		if p.SocietyID == alert.SocietyID && p.Status == domain.PlanInactive &&
			p.AcceptsTrigger(domain.TriggerEscalationExhausted) {
			plan = p
			break
		}
	}
	if plan == nil {
		log.Printf("[succession] alert %s exhausted its chain but society %s has no succession plan",
			alert.ID, alert.SocietyID)
		c.audit.Record(SystemActor, "plan.trigger_unmatched", "alert", alert.ID,
			"escalation exhausted with no plan configured")
		return nil, domain.ErrNoPlanConfigured
	}

	return c.activateLocked(plan, domain.TriggerEscalationExhausted, alert.ID, SystemActor)
}

// Trigger activates a plan by explicit admin request.
func (c *Coordinator) Trigger(planID, actorID string) (*domain.SuccessionPlan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	plan, ok := c.plans[planID]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	if plan.Status != domain.PlanInactive {
		return nil, domain.ErrPlanNotInactive
	}
	return c.activateLocked(plan, domain.TriggerAdminInitiated, actorID, actorID)
}

// Complete marks an active plan as completed once normal leadership resumes.
func (c *Coordinator) Complete(planID, actorID string) (*domain.SuccessionPlan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	plan, ok := c.plans[planID]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	if plan.Status != domain.PlanActive {
		return nil, domain.ErrPlanNotInactive
	}

	plan.Status = domain.PlanCompleted
	plan.CompletedAt = c.now()
	if err := c.store.SavePlan(*plan); err != nil {
		return nil, fmt.Errorf("persist plan: %w", err)
	}
	c.audit.Record(actorID, "plan.complete", "plan", plan.ID, "")

	out := *plan
	return &out, nil
}

// Get returns a copy of the plan.
func (c *Coordinator) Get(planID string) (*domain.SuccessionPlan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	plan, ok := c.plans[planID]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	out := *plan
	return &out, nil
}

// activateLocked moves a plan INACTIVE → ACTIVE and assigns deputies in
// plan order. Caller holds the coordinator lock.
func (c *Coordinator) activateLocked(plan *domain.SuccessionPlan, kind domain.TriggerKind, ref, actorID string) (*domain.SuccessionPlan, error) {
	now := c.now()
	plan.Status = domain.PlanActive
	plan.ActivatedAt = now
	plan.TriggeredBy = kind
	plan.TriggerRef = ref
	for i := range plan.Deputies {
		plan.Deputies[i].AssignedAt = now
	}

	if err := c.store.SavePlan(*plan); err != nil {
		return nil, fmt.Errorf("persist plan: %w", err)
	}

	c.audit.Record(actorID, "plan.activate", "plan", plan.ID,
		fmt.Sprintf("trigger=%s ref=%s deputies=%d", kind, ref, len(plan.Deputies)))
	metrics.SuccessionActivations.Inc()

	out := *plan
	return &out, nil
}
