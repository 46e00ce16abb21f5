package permission

import "slices"

// RoleDecision is one resolved entry in an effective rule set: the grant
// or deny, plus the rule and role it came from for audit attribution.
type RoleDecision struct {
	Granted bool   `json:"granted"`
	RuleID  string `json:"rule_id,omitempty"`
	RoleID  string `json:"role_id,omitempty"`
}

// EffectiveRuleSet is a role's own rules flattened together with every
// inherited rule into one conflict-free mapping.
type EffectiveRuleSet struct {
	RoleID string
	// Rules maps each (resource, action) pair to its resolved decision.
	// Treat as read-only; sets are shared between callers.
	Rules map[Key]RoleDecision
	// Conflicts lists the pairs where two inherited roles disagreed and
	// the role itself had no opinion. Those pairs resolved deny-wins.
	Conflicts []Key
}

// Decision returns the resolved decision for a pair, if the set has one.
func (s *EffectiveRuleSet) Decision(resource, action string) (RoleDecision, bool) {
	d, ok := s.Rules[Key{Resource: resource, Action: action}]
	return d, ok
}

// resolveRoles flattens every role in the (already validated, acyclic)
// graph, parents before children so each role merges fully resolved
// parent sets.
func resolveRoles(roles map[string]Role) map[string]*EffectiveRuleSet {
	resolved := make(map[string]*EffectiveRuleSet, len(roles))
	for _, id := range sortByInheritance(roles) {
		resolved[id] = flattenRole(roles[id], resolved)
	}
	return resolved
}

// flattenRole merges the already-resolved parent sets in inheritance-list
// order, then overlays the role's own rules. A rule of the role itself
// always overrides an inherited rule for the same pair. When two parents
// disagree on a pair the role does not itself specify, deny wins and the
// conflict is recorded.
func flattenRole(role Role, resolved map[string]*EffectiveRuleSet) *EffectiveRuleSet {
	merged := make(map[Key]RoleDecision)
	conflicts := make(map[Key]struct{})

	for _, parentID := range role.Inherits {
		parent, ok := resolved[parentID]
		if !ok {
			continue
		}
		for _, k := range parent.Conflicts {
			conflicts[k] = struct{}{}
		}
		for k, d := range parent.Rules {
			existing, seen := merged[k]
			if !seen {
				merged[k] = d
				continue
			}
			if existing.Granted == d.Granted {
				// Agreement: keep the first parent's attribution so the
				// result does not depend on map iteration.
				continue
			}
			// Sibling parents disagree: deny wins regardless of the order
			// the parents are listed in.
			if !d.Granted {
				merged[k] = d
			}
			conflicts[k] = struct{}{}
		}
	}

	for _, rule := range role.Permissions {
		k := rule.Key()
		merged[k] = RoleDecision{Granted: rule.Granted, RuleID: rule.ID, RoleID: role.ID}
		// The role's own rule settles any inherited disagreement.
		delete(conflicts, k)
	}

	set := &EffectiveRuleSet{RoleID: role.ID, Rules: merged}
	if len(conflicts) > 0 {
		set.Conflicts = make([]Key, 0, len(conflicts))
		for k := range conflicts {
			set.Conflicts = append(set.Conflicts, k)
		}
		slices.SortFunc(set.Conflicts, func(a, b Key) int {
			if c := cmpString(a.Resource, b.Resource); c != 0 {
				return c
			}
			return cmpString(a.Action, b.Action)
		})
	}
	return set
}
