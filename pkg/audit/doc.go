// Package audit records permission decisions and role/user mutations as
// an append-only stream of events delivered to a pluggable sink.
//
// The recorder is fire-and-forget by design: recording never blocks or
// fails the evaluation that triggered it. Events are queued in memory,
// batched by a background worker, and delivered with bounded retries and
// backoff. When the queue is full or retries exhaust, events are written
// to the local structured log instead of being silently lost.
//
// # Usage
//
//	sink := audit.NewMemorySink()
//	recorder := audit.NewRecorder(sink,
//	    audit.WithBatchSize(50),
//	    audit.WithMaxAttempts(5),
//	)
//	defer recorder.Close(context.Background())
//
//	store := permission.NewStore(permission.WithStoreRecorder(recorder))
//	engine := permission.New(store, permission.WithRecorder(recorder))
//
// # Sinks
//
// A sink persists batches of events:
//
//	type Sink interface {
//	    Deliver(ctx context.Context, events []Event) error
//	}
//
// The package ships three: MemorySink (tests and local development),
// RedisSink (a Redis Stream per deployment), and PostgresSink (one row
// per event). Delivery should be atomic per batch; the recorder retries
// whole batches.
package audit
