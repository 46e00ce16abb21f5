package permission

import "context"

// Recorder receives decisions and mutations for the audit trail. A
// recorder must never block the caller: delivery to the external sink is
// the recorder's problem, and a failure there must not affect the
// evaluation or the mutation that triggered it.
type Recorder interface {
	RecordDecision(ctx context.Context, ev Evaluation)
	RecordMutation(ctx context.Context, m Mutation)
}

// NopRecorder discards everything. It is the default when no recorder is
// configured.
type NopRecorder struct{}

func (NopRecorder) RecordDecision(context.Context, Evaluation) {}
func (NopRecorder) RecordMutation(context.Context, Mutation)   {}
