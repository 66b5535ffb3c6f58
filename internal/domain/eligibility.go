package domain

import "time"

// ResidentRole is a resident's position within the society.
type ResidentRole string

const (
	RoleOwner           ResidentRole = "OWNER"
	RoleTenant          ResidentRole = "TENANT"
	RoleCommitteeMember ResidentRole = "COMMITTEE_MEMBER"
	RoleManager         ResidentRole = "MANAGER"
	RoleStaff           ResidentRole = "STAFF"
)

// Valid reports whether the role is a known variant.
func (r ResidentRole) Valid() bool {
	switch r {
	case RoleOwner, RoleTenant, RoleCommitteeMember, RoleManager, RoleStaff:
		return true
	}
	return false
}

// OccupantCategory distinguishes how a resident occupies their unit.
type OccupantCategory string

const (
	CategoryOwnerOccupant  OccupantCategory = "OWNER_OCCUPANT"
	CategoryTenantOccupant OccupantCategory = "TENANT_OCCUPANT"
	CategoryNonResident    OccupantCategory = "NON_RESIDENT_OWNER"
)

// Valid reports whether the category is a known variant.
func (c OccupantCategory) Valid() bool {
	switch c {
	case CategoryOwnerOccupant, CategoryTenantOccupant, CategoryNonResident:
		return true
	}
	return false
}

// EligibilityRule is a declarative filter deciding who may vote in a
// campaign. Pure value, evaluated against a roster snapshot exactly once,
// at the draft → scheduled transition.
type EligibilityRule struct {
	MinResidencyDays   int                `json:"min_residency_days"`
	RequireVerified    bool               `json:"require_verified"`
	ExcludedRoles      []ResidentRole     `json:"excluded_roles,omitempty"`
	IncludedCategories []OccupantCategory `json:"included_categories,omitempty"`
}

// RosterEntry is one resident in a society's residency roster.
type RosterEntry struct {
	ResidentID string           `json:"resident_id"`
	Role       ResidentRole     `json:"role"`
	Category   OccupantCategory `json:"category"`
	MovedInAt  time.Time        `json:"moved_in_at"`
	Verified   bool             `json:"verified"`
}

// RosterSnapshot is a point-in-time copy of a society's roster. Read-only
// at evaluation time.
type RosterSnapshot struct {
	SocietyID string        `json:"society_id"`
	TakenAt   time.Time     `json:"taken_at"`
	Entries   []RosterEntry `json:"entries"`
}
