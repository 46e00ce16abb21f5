package audit_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildflow/permkit/pkg/audit"
	"github.com/buildflow/permkit/pkg/permission"
)

// flakySink fails the first failures deliveries, then accepts.
type flakySink struct {
	mu       sync.Mutex
	failures int
	attempts int
	events   []audit.Event
}

func (s *flakySink) Deliver(_ context.Context, events []audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.attempts <= s.failures {
		return errors.New("sink down")
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *flakySink) delivered() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *flakySink) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func sampleEvaluation() permission.Evaluation {
	return permission.Evaluation{
		UserID:   "u1",
		Resource: "billing",
		Action:   "view",
		Decision: permission.Deny,
		Source:   permission.SourceRestriction,
		RuleID:   "lock1",
		Version:  3,
	}
}

func TestRecorder_DeliversDecisions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := audit.NewMemorySink()
	recorder := audit.NewRecorder(sink, audit.WithFlushInterval(10*time.Millisecond))

	recorder.RecordDecision(ctx, sampleEvaluation())
	require.NoError(t, recorder.Close(ctx))

	events := sink.Events()
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, audit.KindDecision, e.Kind)
	assert.Equal(t, "view", e.Action)
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, "billing", e.Resource)
	assert.Equal(t, string(permission.Deny), e.Decision)
	assert.Equal(t, string(permission.SourceRestriction), e.Source)
	assert.Equal(t, "lock1", e.RuleID)
	assert.Equal(t, uint64(3), e.Version)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestRecorder_DeliversMutations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := audit.NewMemorySink()
	recorder := audit.NewRecorder(sink)

	at := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	recorder.RecordMutation(ctx, permission.Mutation{
		Kind:     permission.MutationRoleDeleted,
		ActorID:  "admin-1",
		TargetID: "viewer",
		At:       at,
		Version:  9,
		Before:   permission.Role{ID: "viewer", Name: "viewer"},
	})
	require.NoError(t, recorder.Close(ctx))

	events := sink.Events()
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, audit.KindMutation, e.Kind)
	assert.Equal(t, string(permission.MutationRoleDeleted), e.Action)
	assert.Equal(t, "admin-1", e.ActorID)
	assert.Equal(t, "viewer", e.TargetID)
	assert.Equal(t, at, e.CreatedAt)
	assert.Equal(t, uint64(9), e.Version)
	assert.NotNil(t, e.Before)
}

func TestRecorder_RetriesWithBackoff(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := &flakySink{failures: 2}
	recorder := audit.NewRecorder(sink,
		audit.WithMaxAttempts(3),
		audit.WithBackoff(audit.FixedBackoff{Interval: time.Millisecond}),
		audit.WithFlushInterval(5*time.Millisecond),
	)

	recorder.RecordDecision(ctx, sampleEvaluation())
	require.NoError(t, recorder.Close(ctx))

	assert.Equal(t, 3, sink.attemptCount())
	assert.Len(t, sink.delivered(), 1)
}

func TestRecorder_DropsAfterRetriesExhaust(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := &flakySink{failures: 100}
	recorder := audit.NewRecorder(sink,
		audit.WithMaxAttempts(2),
		audit.WithBackoff(audit.FixedBackoff{Interval: time.Millisecond}),
		audit.WithLogger(slog.New(slog.DiscardHandler)),
	)

	recorder.RecordDecision(ctx, sampleEvaluation())
	require.NoError(t, recorder.Close(ctx))

	// Exactly maxAttempts tries, nothing delivered, and the caller was
	// never blocked or failed.
	assert.Equal(t, 2, sink.attemptCount())
	assert.Empty(t, sink.delivered())
}

func TestRecorder_BatchesUpToBatchSize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := &flakySink{}
	recorder := audit.NewRecorder(sink,
		audit.WithBatchSize(10),
		audit.WithFlushInterval(time.Hour), // only size-triggered flushes
	)

	for i := 0; i < 25; i++ {
		recorder.RecordDecision(ctx, sampleEvaluation())
	}
	require.NoError(t, recorder.Close(ctx))

	assert.Len(t, sink.delivered(), 25)
	// 25 events with batch size 10: two full batches plus the drain.
	assert.LessOrEqual(t, sink.attemptCount(), 3)
}

func TestRecorder_RecordAfterCloseDoesNotPanic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := audit.NewMemorySink()
	recorder := audit.NewRecorder(sink, audit.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, recorder.Close(ctx))

	assert.NotPanics(t, func() {
		recorder.RecordDecision(ctx, sampleEvaluation())
	})
	assert.Equal(t, 0, sink.Len())
}

func TestRecorder_DoubleCloseReturnsClosed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	recorder := audit.NewRecorder(audit.NewMemorySink(), audit.WithLogger(slog.New(slog.DiscardHandler)))

	require.NoError(t, recorder.Close(ctx))
	assert.ErrorIs(t, recorder.Close(ctx), audit.ErrRecorderClosed)
}

func TestRecorder_PanicsOnNilSink(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		audit.NewRecorder(nil)
	})
}

func TestRecorder_ImplementsPermissionRecorder(t *testing.T) {
	t.Parallel()

	var _ permission.Recorder = audit.NewRecorder(audit.NewMemorySink())
}
