package rolestore

import (
	"context"
	"slices"
	"sync"

	"github.com/buildflow/permkit/pkg/permission"
)

// Memory is an in-process Source. It starts at version 1 and bumps the
// version on every Replace, signalling watchers each time. Useful for
// tests and for applications that manage role data themselves.
type Memory struct {
	mu      sync.Mutex
	data    Data
	changes chan struct{}
}

// NewMemory creates a source holding the given data at version 1.
func NewMemory(roles []permission.Role, users []permission.User) *Memory {
	return &Memory{
		data: Data{
			Version: 1,
			Roles:   copyRoles(roles),
			Users:   copyUsers(users),
		},
		changes: make(chan struct{}, 1),
	}
}

// Load returns a copy of the current data set.
func (m *Memory) Load(_ context.Context) (Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Data{
		Version: m.data.Version,
		Roles:   copyRoles(m.data.Roles),
		Users:   copyUsers(m.data.Users),
	}, nil
}

// Replace swaps the entire data set, bumps the version, and signals
// watchers. It returns the new version.
func (m *Memory) Replace(roles []permission.Role, users []permission.User) uint64 {
	m.mu.Lock()
	m.data.Version++
	m.data.Roles = copyRoles(roles)
	m.data.Users = copyUsers(users)
	version := m.data.Version
	m.mu.Unlock()

	select {
	case m.changes <- struct{}{}:
	default: // a signal is already pending, coalesce
	}
	return version
}

// Changes returns the change signal channel. Signals are coalesced;
// one receive may cover several Replace calls.
func (m *Memory) Changes() <-chan struct{} {
	return m.changes
}

func copyRoles(roles []permission.Role) []permission.Role {
	out := make([]permission.Role, len(roles))
	for i, r := range roles {
		out[i] = r
		out[i].Permissions = slices.Clone(r.Permissions)
		out[i].Inherits = slices.Clone(r.Inherits)
	}
	return out
}

func copyUsers(users []permission.User) []permission.User {
	out := make([]permission.User, len(users))
	for i, u := range users {
		out[i] = u
		out[i].AdditionalRoles = slices.Clone(u.AdditionalRoles)
		out[i].Custom = slices.Clone(u.Custom)
		out[i].Restrictions = slices.Clone(u.Restrictions)
	}
	return out
}
