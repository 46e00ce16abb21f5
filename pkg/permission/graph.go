package permission

import (
	"fmt"
	"slices"
)

// MaxInheritanceDepth bounds role inheritance chains to keep resolution
// cheap and to catch runaway role graphs early.
const MaxInheritanceDepth = 10

// validateGraph checks the whole inheritance relation for dangling parent
// references, cycles, and excessive depth. It runs at the mutation
// boundary; a snapshot that passes is safe to resolve without re-checking.
func validateGraph(roles map[string]Role) error {
	ids := make([]string, 0, len(roles))
	for id := range roles {
		ids = append(ids, id)
	}
	slices.Sort(ids) // deterministic error selection

	for _, id := range ids {
		for _, parent := range roles[id].Inherits {
			if _, ok := roles[parent]; !ok {
				return fmt.Errorf("%w: role %q inherits unknown role %q", ErrRoleNotFound, id, parent)
			}
		}
	}

	for _, id := range ids {
		if err := checkCycle(id, roles, []string{id}); err != nil {
			return err
		}
	}

	for _, id := range ids {
		if depth := inheritanceDepth(id, roles, make(map[string]int)); depth > MaxInheritanceDepth {
			return fmt.Errorf("%w: role %q has depth %d, maximum is %d",
				ErrInheritanceTooDeep, id, depth, MaxInheritanceDepth)
		}
	}

	return nil
}

// checkCycle walks the inheritance edges depth-first from the role at the
// head of path. If that role reappears, the cycle closes there and the
// error names it together with the path that led back.
func checkCycle(start string, roles map[string]Role, path []string) error {
	current := path[len(path)-1]
	for _, parent := range roles[current].Inherits {
		if parent == start {
			return &CycleError{RoleID: start, Path: slices.Clone(path)}
		}
		if slices.Contains(path, parent) {
			// A cycle not through start; the walk that begins at the
			// offending role reports it. Stop descending to terminate.
			continue
		}
		if _, ok := roles[parent]; !ok {
			continue
		}
		if err := checkCycle(start, roles, append(path, parent)); err != nil {
			return err
		}
	}
	return nil
}

// inheritanceDepth returns the length of the longest inheritance chain
// above the role. Only called on acyclic graphs.
func inheritanceDepth(id string, roles map[string]Role, memo map[string]int) int {
	if d, ok := memo[id]; ok {
		return d
	}
	role, ok := roles[id]
	if !ok || len(role.Inherits) == 0 {
		memo[id] = 0
		return 0
	}
	max := 0
	for _, parent := range role.Inherits {
		if d := inheritanceDepth(parent, roles, memo) + 1; d > max {
			max = d
		}
	}
	memo[id] = max
	return max
}

// sortByInheritance returns all role ids ordered base roles first, ties
// broken alphabetically so the ordering is stable across snapshots.
func sortByInheritance(roles map[string]Role) []string {
	memo := make(map[string]int, len(roles))
	ids := make([]string, 0, len(roles))
	for id := range roles {
		ids = append(ids, id)
		inheritanceDepth(id, roles, memo)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if d := memo[a] - memo[b]; d != 0 {
			return d
		}
		return cmpString(a, b)
	})
	return ids
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
