// Package eligibility resolves a campaign's eligibility rule against a
// residency roster snapshot. Resolution is a pure function: the result is
// frozen into the campaign at scheduling time and never recomputed, so later
// roster changes cannot retroactively change an electorate mid-campaign.
package eligibility

import (
	"fmt"
	"sort"
	"time"

	"github.com/strata-labs/strata/internal/domain"
)

// allRoles is the closed set of roles a rule may reference.
var allRoles = []domain.ResidentRole{
	domain.RoleOwner,
	domain.RoleTenant,
	domain.RoleCommitteeMember,
	domain.RoleManager,
	domain.RoleStaff,
}

// Validate checks a rule for unknown references and internal contradictions.
func Validate(rule domain.EligibilityRule) error {
	if rule.MinResidencyDays < 0 {
		return fmt.Errorf("%w: negative minimum residency", domain.ErrInvalidRule)
	}
	for _, r := range rule.ExcludedRoles {
		if !r.Valid() {
			return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidRule, r)
		}
	}
	for _, c := range rule.IncludedCategories {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidRule, c)
		}
	}
	// A rule that excludes every role can never match anyone.
	if len(rule.ExcludedRoles) > 0 {
		excluded := 0
		for _, role := range allRoles {
			if containsRole(rule.ExcludedRoles, role) {
				excluded++
			}
		}
		if excluded == len(allRoles) {
			return fmt.Errorf("%w: all roles excluded", domain.ErrInvalidRule)
		}
	}
	return nil
}

// Resolve returns the sorted set of voter ids the rule admits from the
// roster snapshot. Residency duration is measured against the snapshot's
// TakenAt, not wall-clock time, so resolution is deterministic.
func Resolve(rule domain.EligibilityRule, roster *domain.RosterSnapshot) ([]string, error) {
	if err := Validate(rule); err != nil {
		return nil, err
	}
	if roster == nil {
		return nil, domain.ErrRosterUnavailable
	}

	minResidency := time.Duration(rule.MinResidencyDays) * 24 * time.Hour

	seen := make(map[string]bool, len(roster.Entries))
	var eligible []string
	for _, entry := range roster.Entries {
		if seen[entry.ResidentID] {
			continue
		}
		if !admits(rule, entry, roster.TakenAt, minResidency) {
			continue
		}
		seen[entry.ResidentID] = true
		eligible = append(eligible, entry.ResidentID)
	}

	sort.Strings(eligible)
	return eligible, nil
}

func admits(rule domain.EligibilityRule, entry domain.RosterEntry, asOf time.Time, minResidency time.Duration) bool {
	if entry.MovedInAt.IsZero() || asOf.Sub(entry.MovedInAt) < minResidency {
		return false
	}
	if rule.RequireVerified && !entry.Verified {
		return false
	}
	if containsRole(rule.ExcludedRoles, entry.Role) {
		return false
	}
	if len(rule.IncludedCategories) > 0 && !containsCategory(rule.IncludedCategories, entry.Category) {
		return false
	}
	return true
}

func containsRole(roles []domain.ResidentRole, role domain.ResidentRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func containsCategory(cats []domain.OccupantCategory, cat domain.OccupantCategory) bool {
	for _, c := range cats {
		if c == cat {
			return true
		}
	}
	return false
}
