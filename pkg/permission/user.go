package permission

import "slices"

// UserDecision is one resolved entry in a user's effective permission
// set, retaining which layer of the model decided it.
type UserDecision struct {
	Granted bool   `json:"granted"`
	Source  Source `json:"source"`
	RoleID  string `json:"role_id,omitempty"`
	RuleID  string `json:"rule_id,omitempty"`
}

// EffectiveUserPermissions is a user's fully resolved permission set for
// one snapshot. It is never persisted; it becomes stale the moment any
// contributing role or the user record changes.
type EffectiveUserPermissions struct {
	UserID  string
	Version uint64
	// Inactive is set when the user record has Active=false. The grant map
	// is empty in that case and every evaluation denies with SourceDefault.
	Inactive bool
	// Grants maps each known (resource, action) pair to its decision.
	// Treat as read-only; sets are shared between callers via the cache.
	Grants map[Key]UserDecision
}

// Decision returns the resolved decision for a pair, if the set has one.
// Absence means default-deny applies.
func (p *EffectiveUserPermissions) Decision(resource, action string) (UserDecision, bool) {
	d, ok := p.Grants[Key{Resource: resource, Action: action}]
	return d, ok
}

// MatrixEntry is one row of a user's permission matrix.
type MatrixEntry struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	UserDecision
}

// Matrix returns every resolved pair ordered by resource then action, for
// rendering permission summaries deterministically.
func (p *EffectiveUserPermissions) Matrix() []MatrixEntry {
	entries := make([]MatrixEntry, 0, len(p.Grants))
	for k, d := range p.Grants {
		entries = append(entries, MatrixEntry{Resource: k.Resource, Action: k.Action, UserDecision: d})
	}
	slices.SortFunc(entries, func(a, b MatrixEntry) int {
		if c := cmpString(a.Resource, b.Resource); c != 0 {
			return c
		}
		return cmpString(a.Action, b.Action)
	})
	return entries
}

// resolveUser combines the user's primary role, additional roles, custom
// permissions, and restrictions into one effective set. Precedence is
// ascending: each later layer overrides earlier ones for the same pair.
//
// Additional roles apply in the order given on the user record and a
// later role overrides an earlier one on conflict; there is no deny bias
// at that layer, because it models assigning a broader role after a
// narrower one. Restrictions always force a denial.
func resolveUser(u User, snap *Snapshot) *EffectiveUserPermissions {
	perms := &EffectiveUserPermissions{
		UserID:  u.ID,
		Version: snap.version,
	}

	if !u.Active {
		perms.Inactive = true
		perms.Grants = map[Key]UserDecision{}
		return perms
	}

	grants := make(map[Key]UserDecision)

	overlayRole := func(roleID string) {
		set, ok := snap.resolved[roleID]
		if !ok {
			return
		}
		for k, d := range set.Rules {
			grants[k] = UserDecision{
				Granted: d.Granted,
				Source:  SourceRoleRule,
				RoleID:  d.RoleID,
				RuleID:  d.RuleID,
			}
		}
	}

	if u.PrimaryRole != "" {
		overlayRole(u.PrimaryRole)
	}
	for _, roleID := range u.AdditionalRoles {
		overlayRole(roleID)
	}

	for _, rule := range u.Custom {
		grants[rule.Key()] = UserDecision{
			Granted: rule.Granted,
			Source:  SourceUserOverride,
			RuleID:  rule.ID,
		}
	}

	for _, r := range u.Restrictions {
		grants[r.Key()] = UserDecision{
			Granted: false,
			Source:  SourceRestriction,
			RuleID:  r.ID,
		}
	}

	perms.Grants = grants
	return perms
}
