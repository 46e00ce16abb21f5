package permission

import "time"

// Decision is the outcome of a permission evaluation.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

// Source identifies which layer of the permission model decided an outcome.
type Source string

const (
	// SourceRoleRule means a rule from the user's primary or additional
	// roles (directly held or inherited) decided the outcome.
	SourceRoleRule Source = "role_rule"
	// SourceUserOverride means a per-user custom permission decided it.
	SourceUserOverride Source = "user_override"
	// SourceRestriction means a user-level restriction forced a denial.
	SourceRestriction Source = "restriction"
	// SourceDefault means no rule matched and the default-deny policy applied.
	SourceDefault Source = "default"
)

// Key identifies a permission rule within a scope. Resources and actions
// are opaque, case-sensitive identifiers; no wildcard matching happens
// inside the engine.
type Key struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// Rule is a single grant or explicit deny for one resource/action pair.
// Absence of a rule is a third, distinct state: no opinion.
type Rule struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Granted  bool   `json:"granted"`
}

// Key returns the rule's identity within its scope.
func (r Rule) Key() Key {
	return Key{Resource: r.Resource, Action: r.Action}
}

// Restriction is a user-scoped rule that denies a resource/action pair
// regardless of any grant found elsewhere. It models explicit lockouts.
type Restriction struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Reason   string `json:"reason,omitempty"`
}

// Key returns the pair the restriction applies to.
func (r Restriction) Key() Key {
	return Key{Resource: r.Resource, Action: r.Action}
}

// Role is a named, reusable bundle of permission rules, optionally
// inheriting the effective rules of other roles.
type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name,omitempty"`
	System      bool     `json:"system"`
	Permissions []Rule   `json:"permissions,omitempty"`
	Inherits    []string `json:"inherits,omitempty"`
}

func (r Role) clone() Role {
	c := r
	if r.Permissions != nil {
		c.Permissions = make([]Rule, len(r.Permissions))
		copy(c.Permissions, r.Permissions)
	}
	if r.Inherits != nil {
		c.Inherits = make([]string, len(r.Inherits))
		copy(c.Inherits, r.Inherits)
	}
	return c
}

// User is an enterprise user record as the engine sees it: role
// assignments plus per-user overrides and restrictions. An inactive user
// is denied every action regardless of rules.
type User struct {
	ID              string        `json:"id"`
	PrimaryRole     string        `json:"primary_role,omitempty"`
	AdditionalRoles []string      `json:"additional_roles,omitempty"`
	Custom          []Rule        `json:"custom_permissions,omitempty"`
	Restrictions    []Restriction `json:"restrictions,omitempty"`
	Active          bool          `json:"active"`
}

func (u User) clone() User {
	c := u
	if u.AdditionalRoles != nil {
		c.AdditionalRoles = make([]string, len(u.AdditionalRoles))
		copy(c.AdditionalRoles, u.AdditionalRoles)
	}
	if u.Custom != nil {
		c.Custom = make([]Rule, len(u.Custom))
		copy(c.Custom, u.Custom)
	}
	if u.Restrictions != nil {
		c.Restrictions = make([]Restriction, len(u.Restrictions))
		copy(c.Restrictions, u.Restrictions)
	}
	return c
}

// Evaluation is the engine's answer to "can user U perform action A on
// resource R", plus the attribution needed to explain it.
type Evaluation struct {
	UserID   string   `json:"user_id"`
	Resource string   `json:"resource"`
	Action   string   `json:"action"`
	Decision Decision `json:"decision"`
	Source   Source   `json:"source"`
	// RoleID is set when Source is SourceRoleRule and names the role whose
	// rule decided the outcome (possibly an ancestor of an assigned role).
	RoleID string `json:"role_id,omitempty"`
	// RuleID is the id of the deciding rule or restriction, when one exists.
	RuleID string `json:"rule_id,omitempty"`
	// UnknownSubject is set when the user id was absent from the snapshot.
	// The evaluation is still a valid Deny/SourceDefault answer; the flag
	// lets the caller decide how to report it.
	UnknownSubject bool `json:"unknown_subject,omitempty"`
	// Version is the snapshot version the evaluation was computed against.
	Version uint64 `json:"snapshot_version"`
}

// Allowed reports whether the evaluation permits the action.
func (e Evaluation) Allowed() bool {
	return e.Decision == Allow
}

// MutationKind classifies an audited change to role or user data.
type MutationKind string

const (
	MutationRoleCreated               MutationKind = "role_created"
	MutationRoleUpdated               MutationKind = "role_updated"
	MutationRoleDeleted               MutationKind = "role_deleted"
	MutationUserCreated               MutationKind = "user_created"
	MutationUserUpdated               MutationKind = "user_updated"
	MutationUserDeleted               MutationKind = "user_deleted"
	MutationUserRoleAssigned          MutationKind = "user_role_assigned"
	MutationUserRoleRemoved           MutationKind = "user_role_removed"
	MutationPermissionOverrideChanged MutationKind = "permission_override_changed"
)

// Mutation describes one committed change to the role/user data, emitted
// to the audit recorder after the new snapshot is published.
type Mutation struct {
	Kind     MutationKind `json:"kind"`
	ActorID  string       `json:"actor_id"`
	TargetID string       `json:"target_id"`
	At       time.Time    `json:"at"`
	Version  uint64       `json:"snapshot_version"`
	Before   any          `json:"before,omitempty"`
	After    any          `json:"after,omitempty"`
}

// Actor identifies who is performing a mutation. System roles may only be
// changed by a privileged actor.
type Actor struct {
	ID         string
	Privileged bool
}
