package permission

import (
	"context"
	"log/slog"
)

// Snapshotter supplies the engine with the currently published snapshot.
// *Store satisfies it; read-only deployments can supply their own.
type Snapshotter interface {
	Snapshot() *Snapshot
}

// Engine is the public decision API. Evaluations are pure, in-memory and
// synchronous; the only side effect is the fire-and-forget audit
// emission.
type Engine struct {
	snapshots Snapshotter
	recorder  Recorder
	cache     *resolveCache
	log       *slog.Logger
	// auditAllDenials records every denial, not only restriction-sourced
	// ones.
	auditAllDenials bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets the recorder that receives audited decisions.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithLogger sets the logger used for non-fatal engine diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithCacheSize sets the capacity of the per-snapshot user resolution
// cache. Defaults to 1024 entries.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cache = newResolveCache(n)
	}
}

// WithAllDenialsAudited records every denial instead of only those
// attributable to a restriction.
func WithAllDenialsAudited() Option {
	return func(e *Engine) {
		e.auditAllDenials = true
	}
}

// New creates an evaluation engine reading snapshots from the given
// source.
func New(snapshots Snapshotter, opts ...Option) *Engine {
	if snapshots == nil {
		panic("permission: snapshot source cannot be nil")
	}
	e := &Engine{
		snapshots: snapshots,
		recorder:  NopRecorder{},
		cache:     newResolveCache(1024),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate answers whether the user may perform the action on the
// resource, with the deciding layer attached. It is total: an unknown
// user, an inactive user, or the absence of any matching rule all produce
// a well-formed denial, never an error. Denials attributable to a
// restriction are always audited.
func (e *Engine) Evaluate(ctx context.Context, userID, resource, action string) Evaluation {
	snap := e.snapshots.Snapshot()

	ev := Evaluation{
		UserID:   userID,
		Resource: resource,
		Action:   action,
		Decision: Deny,
		Source:   SourceDefault,
		Version:  snap.version,
	}

	user, ok := snap.users[userID]
	if !ok {
		ev.UnknownSubject = true
		e.log.DebugContext(ctx, "permission evaluation for unknown subject",
			"user_id", userID, "resource", resource, "action", action)
		e.emit(ctx, ev)
		return ev
	}

	perms := e.resolve(snap, user)
	if d, ok := perms.Decision(resource, action); ok {
		ev.Source = d.Source
		ev.RoleID = d.RoleID
		ev.RuleID = d.RuleID
		if d.Granted {
			ev.Decision = Allow
		}
	}

	e.emit(ctx, ev)
	return ev
}

// ResolveUser returns the user's fully resolved permission set, for
// rendering permission summaries. The result is shared and must be
// treated as read-only.
func (e *Engine) ResolveUser(userID string) (*EffectiveUserPermissions, error) {
	snap := e.snapshots.Snapshot()
	user, ok := snap.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return e.resolve(snap, user), nil
}

// ResolveRole returns a role's effective rule set, own rules merged with
// everything inherited.
func (e *Engine) ResolveRole(roleID string) (*EffectiveRuleSet, error) {
	snap := e.snapshots.Snapshot()
	set, ok := snap.EffectiveRole(roleID)
	if !ok {
		return nil, ErrRoleNotFound
	}
	return set, nil
}

// PreviewRole resolves a candidate role against the current snapshot
// without publishing it, for previewing effective permissions in a role
// editor before saving.
func (e *Engine) PreviewRole(candidate Role) (*EffectiveRuleSet, error) {
	return e.snapshots.Snapshot().PreviewRole(candidate)
}

// RoleIDs lists all role ids of the current snapshot, base roles first.
func (e *Engine) RoleIDs() []string {
	return e.snapshots.Snapshot().RoleIDs()
}

// Version returns the version of the currently published snapshot.
func (e *Engine) Version() uint64 {
	return e.snapshots.Snapshot().Version()
}

func (e *Engine) resolve(snap *Snapshot, user User) *EffectiveUserPermissions {
	if perms, ok := e.cache.get(snap.version, user.ID); ok {
		return perms
	}
	perms := resolveUser(user, snap)
	e.cache.put(snap.version, user.ID, perms)
	return perms
}

// emit forwards audit-worthy decisions to the recorder. Restriction
// denials are always recorded; everything else only when configured.
func (e *Engine) emit(ctx context.Context, ev Evaluation) {
	switch {
	case ev.Decision == Deny && ev.Source == SourceRestriction:
	case e.auditAllDenials && ev.Decision == Deny:
	default:
		return
	}
	e.recorder.RecordDecision(ctx, ev)
}
