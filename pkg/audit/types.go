package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/buildflow/permkit/pkg/permission"
)

// Kind classifies an audit event.
type Kind string

const (
	// KindDecision is an audited permission evaluation.
	KindDecision Kind = "decision"
	// KindMutation is a committed change to role or user data.
	KindMutation Kind = "mutation"
)

// Event is a single audit log entry. Decision events carry the
// evaluation fields; mutation events carry actor, target, and the
// before/after records.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`

	// Decision fields.
	UserID         string `json:"user_id,omitempty"`
	Resource       string `json:"resource,omitempty"`
	Decision       string `json:"decision,omitempty"`
	Source         string `json:"source,omitempty"`
	RoleID         string `json:"role_id,omitempty"`
	RuleID         string `json:"rule_id,omitempty"`
	UnknownSubject bool   `json:"unknown_subject,omitempty"`

	// Mutation fields.
	ActorID  string `json:"actor_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`
	Before   any    `json:"before,omitempty"`
	After    any    `json:"after,omitempty"`

	// Version is the snapshot version the event belongs to.
	Version uint64 `json:"snapshot_version,omitempty"`
}

// Sink persists batches of audit events. Implementations should treat a
// batch atomically; the recorder retries whole batches on error.
type Sink interface {
	Deliver(ctx context.Context, events []Event) error
}

func decisionEvent(ev permission.Evaluation) Event {
	return Event{
		ID:             uuid.New().String(),
		Kind:           KindDecision,
		Action:         ev.Action,
		CreatedAt:      time.Now(),
		UserID:         ev.UserID,
		Resource:       ev.Resource,
		Decision:       string(ev.Decision),
		Source:         string(ev.Source),
		RoleID:         ev.RoleID,
		RuleID:         ev.RuleID,
		UnknownSubject: ev.UnknownSubject,
		Version:        ev.Version,
	}
}

func mutationEvent(m permission.Mutation) Event {
	at := m.At
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		ID:        uuid.New().String(),
		Kind:      KindMutation,
		Action:    string(m.Kind),
		CreatedAt: at,
		ActorID:   m.ActorID,
		TargetID:  m.TargetID,
		Before:    m.Before,
		After:     m.After,
		Version:   m.Version,
	}
}
