package permission

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for the permission engine.
var (
	// ErrRoleNotFound is returned when a referenced role id is absent from
	// the snapshot.
	ErrRoleNotFound = errors.New("permission: role not found")

	// ErrUserNotFound is returned when a user id is absent from the snapshot.
	ErrUserNotFound = errors.New("permission: user not found")

	// ErrSystemRoleImmutable is returned when a non-privileged actor tries
	// to change or delete a system role.
	ErrSystemRoleImmutable = errors.New("permission: system role requires a privileged actor")

	// ErrEmptyRoleID is returned when a role is saved without an id.
	ErrEmptyRoleID = errors.New("permission: role id is required")

	// ErrEmptyUserID is returned when a user is saved without an id.
	ErrEmptyUserID = errors.New("permission: user id is required")

	// ErrStaleVersion is returned when a full snapshot load carries a
	// version lower than the one already published.
	ErrStaleVersion = errors.New("permission: snapshot version is not newer than the published one")

	// ErrInheritanceTooDeep is returned when a role's inheritance chain
	// exceeds MaxInheritanceDepth.
	ErrInheritanceTooDeep = errors.New("permission: role inheritance exceeds maximum depth")
)

// CycleError reports that a role's inheritance would close a cycle. It is
// fatal to the mutation that caused it and never reaches evaluation.
type CycleError struct {
	// RoleID is the role at which the cycle closes.
	RoleID string
	// Path is the inheritance chain that led back to RoleID, starting at
	// RoleID itself.
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("permission: inheritance cycle at role %q", e.RoleID)
	}
	return fmt.Sprintf("permission: inheritance cycle at role %q (%s -> %s)",
		e.RoleID, strings.Join(e.Path, " -> "), e.RoleID)
}

// ReferenceError reports that a role cannot be deleted while other roles
// inherit it or users are assigned it. It names every referrer so the
// operator can fix the actual conflict.
type ReferenceError struct {
	RoleID string
	// Roles lists role ids that inherit the role.
	Roles []string
	// Users lists user ids assigned the role (primary or additional).
	Users []string
}

func (e *ReferenceError) Error() string {
	var parts []string
	if len(e.Roles) > 0 {
		parts = append(parts, fmt.Sprintf("inherited by roles %s", strings.Join(e.Roles, ", ")))
	}
	if len(e.Users) > 0 {
		parts = append(parts, fmt.Sprintf("assigned to users %s", strings.Join(e.Users, ", ")))
	}
	return fmt.Sprintf("permission: role %q is still referenced (%s)", e.RoleID, strings.Join(parts, "; "))
}
