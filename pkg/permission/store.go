package permission

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Store is the mutation boundary of the engine. It holds the current
// snapshot behind an atomic pointer: mutations validate a candidate
// snapshot under a lock and publish it with a single pointer swap, so
// evaluations never block on mutation and never observe a
// partially-updated graph. A candidate that would contain a cycle or a
// dangling reference is rejected and the prior snapshot remains live.
type Store struct {
	mu       sync.Mutex
	current  atomic.Pointer[Snapshot]
	recorder Recorder
	now      func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreRecorder sets the recorder that receives one audit record per
// committed mutation. Defaults to a no-op recorder.
func WithStoreRecorder(r Recorder) StoreOption {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewStore creates an empty store at snapshot version zero.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		recorder: NopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	snap, _ := newSnapshot(0, map[string]Role{}, map[string]User{})
	s.current.Store(snap)
	return s
}

// Snapshot returns the currently published snapshot. The result is
// immutable and safe to use for any number of evaluations.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Load replaces the entire data set with a freshly loaded snapshot from
// the role/user store collaborator. The version must be strictly greater
// than the published one; stale loads are rejected. Version 0 is
// reserved for the empty initial snapshot, so a load may never carry it:
// accepting equal versions would let the data change while the version
// stays put, and the resolver cache, keyed by version, would keep
// serving permissions computed from the replaced data. Bulk loads are
// not audited as mutations, the collaborator owns that history.
func (s *Store) Load(version uint64, roles []Role, users []User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if version <= s.current.Load().version {
		return ErrStaleVersion
	}

	roleMap := make(map[string]Role, len(roles))
	for _, r := range roles {
		if r.ID == "" {
			return ErrEmptyRoleID
		}
		roleMap[r.ID] = r.clone()
	}
	userMap := make(map[string]User, len(users))
	for _, u := range users {
		if u.ID == "" {
			return ErrEmptyUserID
		}
		userMap[u.ID] = u.clone()
	}

	snap, err := newSnapshot(version, roleMap, userMap)
	if err != nil {
		return err
	}
	s.current.Store(snap)
	return nil
}

// SaveRole creates or updates a role. The closing edge of any inheritance
// cycle is rejected before anything is published, and changing a system
// role requires a privileged actor.
func (s *Store) SaveRole(ctx context.Context, actor Actor, role Role) error {
	if role.ID == "" {
		return ErrEmptyRoleID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	existing, exists := snap.roles[role.ID]
	if (exists && existing.System || role.System) && !actor.Privileged {
		return ErrSystemRoleImmutable
	}

	roles := copyRoleMap(snap.roles)
	roles[role.ID] = role.clone()

	// Check the mutated role first so the error names the role whose edge
	// closes the cycle, not an arbitrary member of it.
	if err := checkCycle(role.ID, roles, []string{role.ID}); err != nil {
		return err
	}

	candidate, err := newSnapshot(snap.version+1, roles, snap.users)
	if err != nil {
		return err
	}
	s.current.Store(candidate)

	kind := MutationRoleCreated
	var before any
	if exists {
		kind = MutationRoleUpdated
		before = existing.clone()
	}
	s.record(ctx, Mutation{
		Kind:     kind,
		ActorID:  actor.ID,
		TargetID: role.ID,
		At:       s.now(),
		Version:  candidate.version,
		Before:   before,
		After:    role.clone(),
	})
	return nil
}

// DeleteRole removes a role. Referential integrity is enforced before
// deletion: a role still inherited by another role or assigned to any
// user cannot be deleted, and the error names every referrer.
func (s *Store) DeleteRole(ctx context.Context, actor Actor, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	existing, ok := snap.roles[roleID]
	if !ok {
		return ErrRoleNotFound
	}
	if existing.System && !actor.Privileged {
		return ErrSystemRoleImmutable
	}

	if refErr := referencesTo(roleID, snap); refErr != nil {
		return refErr
	}

	roles := copyRoleMap(snap.roles)
	delete(roles, roleID)

	candidate, err := newSnapshot(snap.version+1, roles, snap.users)
	if err != nil {
		return err
	}
	s.current.Store(candidate)

	s.record(ctx, Mutation{
		Kind:     MutationRoleDeleted,
		ActorID:  actor.ID,
		TargetID: roleID,
		At:       s.now(),
		Version:  candidate.version,
		Before:   existing.clone(),
	})
	return nil
}

// SaveUser creates or updates a user record. Changes to custom
// permissions or restrictions are audited as permission override changes
// rather than plain updates.
func (s *Store) SaveUser(ctx context.Context, actor Actor, user User) error {
	if user.ID == "" {
		return ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	existing, exists := snap.users[user.ID]

	users := copyUserMap(snap.users)
	users[user.ID] = user.clone()

	candidate, err := newSnapshot(snap.version+1, snap.roles, users)
	if err != nil {
		return err
	}
	s.current.Store(candidate)

	kind := MutationUserCreated
	var before any
	if exists {
		kind = MutationUserUpdated
		before = existing.clone()
		if overridesChanged(existing, user) {
			kind = MutationPermissionOverrideChanged
		}
	}
	s.record(ctx, Mutation{
		Kind:     kind,
		ActorID:  actor.ID,
		TargetID: user.ID,
		At:       s.now(),
		Version:  candidate.version,
		Before:   before,
		After:    user.clone(),
	})
	return nil
}

// DeleteUser removes a user record.
func (s *Store) DeleteUser(ctx context.Context, actor Actor, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	existing, ok := snap.users[userID]
	if !ok {
		return ErrUserNotFound
	}

	users := copyUserMap(snap.users)
	delete(users, userID)

	candidate, err := newSnapshot(snap.version+1, snap.roles, users)
	if err != nil {
		return err
	}
	s.current.Store(candidate)

	s.record(ctx, Mutation{
		Kind:     MutationUserDeleted,
		ActorID:  actor.ID,
		TargetID: userID,
		At:       s.now(),
		Version:  candidate.version,
		Before:   existing.clone(),
	})
	return nil
}

// AssignRole appends a role to a user's additional roles. Assigning a
// role the user already holds is a no-op. Order matters: a later
// additional role overrides an earlier one on conflicting pairs.
func (s *Store) AssignRole(ctx context.Context, actor Actor, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	user, ok := snap.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if _, ok := snap.roles[roleID]; !ok {
		return ErrRoleNotFound
	}
	if user.PrimaryRole == roleID || slices.Contains(user.AdditionalRoles, roleID) {
		return nil
	}

	updated := user.clone()
	updated.AdditionalRoles = append(updated.AdditionalRoles, roleID)

	users := copyUserMap(snap.users)
	users[userID] = updated

	candidate, err := newSnapshot(snap.version+1, snap.roles, users)
	if err != nil {
		return err
	}
	s.current.Store(candidate)

	s.record(ctx, Mutation{
		Kind:     MutationUserRoleAssigned,
		ActorID:  actor.ID,
		TargetID: userID,
		At:       s.now(),
		Version:  candidate.version,
		Before:   user.clone(),
		After:    updated.clone(),
	})
	return nil
}

// RemoveRole removes a role from a user's additional roles.
func (s *Store) RemoveRole(ctx context.Context, actor Actor, userID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.current.Load()
	user, ok := snap.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	idx := slices.Index(user.AdditionalRoles, roleID)
	if idx < 0 {
		return ErrRoleNotFound
	}

	updated := user.clone()
	updated.AdditionalRoles = slices.Delete(updated.AdditionalRoles, idx, idx+1)

	users := copyUserMap(snap.users)
	users[userID] = updated

	candidate, err := newSnapshot(snap.version+1, snap.roles, users)
	if err != nil {
		return err
	}
	s.current.Store(candidate)

	s.record(ctx, Mutation{
		Kind:     MutationUserRoleRemoved,
		ActorID:  actor.ID,
		TargetID: userID,
		At:       s.now(),
		Version:  candidate.version,
		Before:   user.clone(),
		After:    updated.clone(),
	})
	return nil
}

func (s *Store) record(ctx context.Context, m Mutation) {
	s.recorder.RecordMutation(ctx, m)
}

// referencesTo collects every role and user still referencing roleID.
func referencesTo(roleID string, snap *Snapshot) *ReferenceError {
	refErr := &ReferenceError{RoleID: roleID}
	for _, id := range sortByInheritance(snap.roles) {
		if slices.Contains(snap.roles[id].Inherits, roleID) {
			refErr.Roles = append(refErr.Roles, id)
		}
	}
	userIDs := make([]string, 0, len(snap.users))
	for id := range snap.users {
		userIDs = append(userIDs, id)
	}
	slices.Sort(userIDs)
	for _, id := range userIDs {
		u := snap.users[id]
		if u.PrimaryRole == roleID || slices.Contains(u.AdditionalRoles, roleID) {
			refErr.Users = append(refErr.Users, id)
		}
	}
	if len(refErr.Roles) == 0 && len(refErr.Users) == 0 {
		return nil
	}
	return refErr
}

func overridesChanged(before, after User) bool {
	return !slices.Equal(before.Custom, after.Custom) ||
		!slices.Equal(before.Restrictions, after.Restrictions)
}

// Shallow map copies: snapshots never mutate records in place, so
// unchanged entries can be shared between versions.
func copyRoleMap(src map[string]Role) map[string]Role {
	dst := make(map[string]Role, len(src)+1)
	for id, r := range src {
		dst[id] = r
	}
	return dst
}

func copyUserMap(src map[string]User) map[string]User {
	dst := make(map[string]User, len(src)+1)
	for id, u := range src {
		dst[id] = u
	}
	return dst
}
