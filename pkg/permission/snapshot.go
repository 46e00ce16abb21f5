package permission

import "fmt"

// Snapshot is an immutable, versioned view of all role and user data,
// with every role's effective rule set pre-resolved. In-flight
// evaluations always see one consistent, cycle-checked snapshot.
type Snapshot struct {
	version  uint64
	roles    map[string]Role
	users    map[string]User
	resolved map[string]*EffectiveRuleSet
	// ordered lists role ids base roles first, for stable listings.
	ordered []string
}

// newSnapshot validates the candidate data and, on success, builds a
// snapshot with all role sets resolved. The maps are taken over, not
// copied; callers must hand in maps nothing else mutates.
func newSnapshot(version uint64, roles map[string]Role, users map[string]User) (*Snapshot, error) {
	if err := validateGraph(roles); err != nil {
		return nil, err
	}
	if err := validateUsers(roles, users); err != nil {
		return nil, err
	}
	return &Snapshot{
		version:  version,
		roles:    roles,
		users:    users,
		resolved: resolveRoles(roles),
		ordered:  sortByInheritance(roles),
	}, nil
}

// validateUsers rejects user records referencing roles absent from the
// snapshot, so dangling assignments never reach evaluation.
func validateUsers(roles map[string]Role, users map[string]User) error {
	for id, u := range users {
		if u.PrimaryRole != "" {
			if _, ok := roles[u.PrimaryRole]; !ok {
				return fmt.Errorf("%w: user %q has unknown primary role %q", ErrRoleNotFound, id, u.PrimaryRole)
			}
		}
		for _, roleID := range u.AdditionalRoles {
			if _, ok := roles[roleID]; !ok {
				return fmt.Errorf("%w: user %q has unknown additional role %q", ErrRoleNotFound, id, roleID)
			}
		}
	}
	return nil
}

// Version returns the snapshot's monotonically increasing version.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Role returns a copy of the role record, if present.
func (s *Snapshot) Role(id string) (Role, bool) {
	r, ok := s.roles[id]
	if !ok {
		return Role{}, false
	}
	return r.clone(), true
}

// User returns a copy of the user record, if present.
func (s *Snapshot) User(id string) (User, bool) {
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return u.clone(), true
}

// RoleIDs returns all role ids ordered base roles first.
func (s *Snapshot) RoleIDs() []string {
	ids := make([]string, len(s.ordered))
	copy(ids, s.ordered)
	return ids
}

// EffectiveRole returns the pre-resolved effective rule set for a role.
func (s *Snapshot) EffectiveRole(id string) (*EffectiveRuleSet, bool) {
	set, ok := s.resolved[id]
	return set, ok
}

// PreviewRole resolves a candidate role against this snapshot without
// publishing anything, so a role editor can preview effective
// permissions (and catch cycles) before saving.
func (s *Snapshot) PreviewRole(candidate Role) (*EffectiveRuleSet, error) {
	if candidate.ID == "" {
		return nil, ErrEmptyRoleID
	}
	roles := make(map[string]Role, len(s.roles)+1)
	for id, r := range s.roles {
		roles[id] = r
	}
	roles[candidate.ID] = candidate.clone()

	for _, parent := range candidate.Inherits {
		if _, ok := roles[parent]; !ok {
			return nil, fmt.Errorf("%w: role %q inherits unknown role %q", ErrRoleNotFound, candidate.ID, parent)
		}
	}
	if err := checkCycle(candidate.ID, roles, []string{candidate.ID}); err != nil {
		return nil, err
	}
	if depth := inheritanceDepth(candidate.ID, roles, make(map[string]int)); depth > MaxInheritanceDepth {
		return nil, fmt.Errorf("%w: role %q has depth %d, maximum is %d",
			ErrInheritanceTooDeep, candidate.ID, depth, MaxInheritanceDepth)
	}

	resolved := resolveRoles(roles)
	return resolved[candidate.ID], nil
}
