package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/strata-labs/strata/internal/domain"
)

// ─── Campaigns ──────────────────────────────────────────────────────────────

// SaveCampaign upserts the full campaign document.
func (d *DB) SaveCampaign(c domain.VotingCampaign) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode campaign: %w", err)
	}
	_, err = d.db.Exec(
		`INSERT INTO campaigns (id, society_id, status, created_at, data)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			data=excluded.data`,
		c.ID, c.SocietyID, string(c.Status), c.CreatedAt.UnixNano(), string(data),
	)
	return err
}

// GetCampaign retrieves a campaign by id.
func (d *DB) GetCampaign(id string) (*domain.VotingCampaign, error) {
	var data string
	err := d.db.QueryRow(`SELECT data FROM campaigns WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	var c domain.VotingCampaign
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("decode campaign %s: %w", id, err)
	}
	return &c, nil
}

// ListCampaigns returns campaigns in creation order, optionally filtered by
// status ("" = all).
func (d *DB) ListCampaigns(status domain.CampaignStatus) ([]domain.VotingCampaign, error) {
	query := `SELECT data FROM campaigns ORDER BY created_at`
	args := []any{}
	if status != "" {
		query = `SELECT data FROM campaigns WHERE status = ? ORDER BY created_at`
		args = append(args, string(status))
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.VotingCampaign
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var c domain.VotingCampaign
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("decode campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ─── Ballots ────────────────────────────────────────────────────────────────

// SaveBallot inserts one ballot. The (campaign, voter token) primary key
// rejects a duplicate at the storage layer.
func (d *DB) SaveBallot(b domain.Ballot) error {
	_, err := d.db.Exec(
		`INSERT INTO ballots (campaign_id, voter_token, choice_id, cast_at)
		 VALUES (?, ?, ?, ?)`,
		b.CampaignID, b.VoterToken, b.ChoiceID, b.CastAt.UnixNano(),
	)
	return err
}

// ListBallots returns all ballots for a campaign in cast order.
func (d *DB) ListBallots(campaignID string) ([]domain.Ballot, error) {
	rows, err := d.db.Query(
		`SELECT campaign_id, voter_token, choice_id, cast_at
		 FROM ballots WHERE campaign_id = ? ORDER BY cast_at`, campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Ballot
	for rows.Next() {
		var b domain.Ballot
		var castAt int64
		if err := rows.Scan(&b.CampaignID, &b.VoterToken, &b.ChoiceID, &castAt); err != nil {
			return nil, err
		}
		b.CastAt = time.Unix(0, castAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// ─── Alerts ─────────────────────────────────────────────────────────────────

// SaveAlert upserts the full alert document, escalation chain included.
func (d *DB) SaveAlert(a domain.EmergencyAlert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	_, err = d.db.Exec(
		`INSERT INTO alerts (id, society_id, status, declared_at, data)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			data=excluded.data`,
		a.ID, a.SocietyID, string(a.Status), a.DeclaredAt.UnixNano(), string(data),
	)
	return err
}

// GetAlert retrieves an alert by id.
func (d *DB) GetAlert(id string) (*domain.EmergencyAlert, error) {
	var data string
	err := d.db.QueryRow(`SELECT data FROM alerts WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, domain.ErrAlertNotFound
	}
	if err != nil {
		return nil, err
	}
	var a domain.EmergencyAlert
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, fmt.Errorf("decode alert %s: %w", id, err)
	}
	return &a, nil
}

// ListOpenAlerts returns alerts not yet in a terminal state, in declaration
// order. Used on rehydration to re-arm escalation timers.
func (d *DB) ListOpenAlerts() ([]domain.EmergencyAlert, error) {
	rows, err := d.db.Query(
		`SELECT data FROM alerts WHERE status NOT IN (?, ?) ORDER BY declared_at`,
		string(domain.AlertResolved), string(domain.AlertClosedUnresolved),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EmergencyAlert
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var a domain.EmergencyAlert
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ─── Succession Plans ───────────────────────────────────────────────────────

// SavePlan upserts the full plan document.
func (d *DB) SavePlan(p domain.SuccessionPlan) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	_, err = d.db.Exec(
		`INSERT INTO succession_plans (id, society_id, status, created_at, data)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			data=excluded.data`,
		p.ID, p.SocietyID, string(p.Status), p.CreatedAt.UnixNano(), string(data),
	)
	return err
}

// GetPlan retrieves a plan by id.
func (d *DB) GetPlan(id string) (*domain.SuccessionPlan, error) {
	var data string
	err := d.db.QueryRow(`SELECT data FROM succession_plans WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	var p domain.SuccessionPlan
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", id, err)
	}
	return &p, nil
}

// ListPlans returns plans in creation order, optionally filtered by society
// ("" = all).
func (d *DB) ListPlans(societyID string) ([]domain.SuccessionPlan, error) {
	query := `SELECT data FROM succession_plans ORDER BY created_at`
	args := []any{}
	if societyID != "" {
		query = `SELECT data FROM succession_plans WHERE society_id = ? ORDER BY created_at`
		args = append(args, societyID)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SuccessionPlan
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p domain.SuccessionPlan
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decode plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ─── Policy Proposals ───────────────────────────────────────────────────────

// SaveProposal upserts the full proposal document.
func (d *DB) SaveProposal(p domain.PolicyProposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode proposal: %w", err)
	}
	_, err = d.db.Exec(
		`INSERT INTO policy_proposals (id, society_id, status, created_at, data)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			data=excluded.data`,
		p.ID, p.SocietyID, string(p.Status), p.CreatedAt.UnixNano(), string(data),
	)
	return err
}

// GetProposal retrieves a proposal by id.
func (d *DB) GetProposal(id string) (*domain.PolicyProposal, error) {
	var data string
	err := d.db.QueryRow(`SELECT data FROM policy_proposals WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, domain.ErrProposalNotFound
	}
	if err != nil {
		return nil, err
	}
	var p domain.PolicyProposal
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decode proposal %s: %w", id, err)
	}
	return &p, nil
}

// ListProposals returns all proposals in creation order.
func (d *DB) ListProposals() ([]domain.PolicyProposal, error) {
	rows, err := d.db.Query(`SELECT data FROM policy_proposals ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PolicyProposal
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p domain.PolicyProposal
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decode proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ─── Audit ──────────────────────────────────────────────────────────────────

// AppendAudit inserts one audit entry. Append-only: no update path exists.
func (d *DB) AppendAudit(e domain.AuditEntry) error {
	_, err := d.db.Exec(
		`INSERT INTO audit_entries (ts, sequence, actor_id, action, resource_type, resource_id, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UnixNano(), e.Sequence, e.ActorID, e.Action,
		e.ResourceType, e.ResourceID, e.Details,
	)
	return err
}

// QueryAudit returns entries matching the filter in (timestamp, sequence)
// order. Resource, actor, and time bounds are pushed into SQL.
func (d *DB) QueryAudit(f domain.AuditFilter) ([]domain.AuditEntry, error) {
	query := `SELECT ts, sequence, actor_id, action, resource_type, resource_id, details
	          FROM audit_entries WHERE 1=1`
	var args []any
	if f.ResourceType != "" {
		query += ` AND resource_type = ?`
		args = append(args, f.ResourceType)
	}
	if f.ResourceID != "" {
		query += ` AND resource_id = ?`
		args = append(args, f.ResourceID)
	}
	if f.ActorID != "" {
		query += ` AND actor_id = ?`
		args = append(args, f.ActorID)
	}
	if !f.From.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, f.From.UnixNano())
	}
	if !f.To.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, f.To.UnixNano())
	}
	query += ` ORDER BY ts, sequence`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var ts int64
		if err := rows.Scan(&ts, &e.Sequence, &e.ActorID, &e.Action,
			&e.ResourceType, &e.ResourceID, &e.Details); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MaxAuditSequence returns the highest stored sequence number, so the audit
// log resumes numbering across restarts.
func (d *DB) MaxAuditSequence() (uint64, error) {
	var max sql.NullInt64
	if err := d.db.QueryRow(`SELECT MAX(sequence) FROM audit_entries`).Scan(&max); err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return uint64(max.Int64), nil
}
