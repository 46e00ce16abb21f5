package wildcard

import (
	"strings"

	"github.com/buildflow/permkit/pkg/permission"
)

const (
	// Wildcard matches any identifier.
	Wildcard = "*"

	// Delimiter separates identifier segments (e.g. "documents.invoices").
	Delimiter = "."
)

// Match reports whether the identifier matches the pattern. Patterns
// are either exact strings, the global wildcard "*", or a segment
// prefix such as "documents.*". An empty pattern matches nothing.
func Match(identifier, pattern string) bool {
	if pattern == "" {
		return false
	}
	if identifier == pattern || pattern == Wildcard {
		return true
	}

	if strings.HasSuffix(pattern, Wildcard) {
		prefix := strings.TrimSuffix(pattern, Wildcard)
		prefix = strings.TrimSuffix(prefix, Delimiter)
		return strings.HasPrefix(identifier, prefix+Delimiter)
	}

	return false
}

// MatchAny reports whether any of the patterns matches the identifier.
// An empty pattern list matches everything, so callers can treat
// "no filter supplied" and "filter by these patterns" uniformly.
func MatchAny(identifier string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if Match(identifier, p) {
			return true
		}
	}
	return false
}

// Filter returns the matrix entries whose resource matches any of the
// resource patterns and whose action matches any of the action
// patterns. Nil pattern lists match everything. Entry order is
// preserved.
func Filter(entries []permission.MatrixEntry, resources, actions []string) []permission.MatrixEntry {
	out := make([]permission.MatrixEntry, 0, len(entries))
	for _, e := range entries {
		if MatchAny(e.Resource, resources) && MatchAny(e.Action, actions) {
			out = append(out, e)
		}
	}
	return out
}
