package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// RoleID records the role identifier under the key "role_id".
func RoleID(id string) slog.Attr {
	return slog.String("role_id", id)
}

// Resource records the resource identifier under the key "resource".
func Resource(resource string) slog.Attr {
	return slog.String("resource", resource)
}

// Action records the action identifier under the key "action".
func Action(action string) slog.Attr {
	return slog.String("action", action)
}

// Decision records an evaluation outcome under the key "decision".
func Decision(decision string) slog.Attr {
	return slog.String("decision", decision)
}

// SnapshotVersion records the snapshot version under the key
// "snapshot_version".
func SnapshotVersion(v uint64) slog.Attr {
	return slog.Uint64("snapshot_version", v)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
