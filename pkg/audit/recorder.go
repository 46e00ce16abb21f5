package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/buildflow/permkit/pkg/permission"
)

// Recorder queues audit events and delivers them to a sink from a
// background worker. It satisfies permission.Recorder: recording is
// non-blocking and infallible from the caller's point of view.
type Recorder struct {
	sink Sink
	log  *slog.Logger

	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once

	batchSize       int
	flushInterval   time.Duration
	deliveryTimeout time.Duration
	maxAttempts     int
	backoff         BackoffStrategy
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithBufferSize sets the in-memory queue capacity. Events arriving at a
// full queue are logged locally and dropped rather than blocking the
// evaluation path. Defaults to 1000.
func WithBufferSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.queue = make(chan Event, n)
		}
	}
}

// WithBatchSize sets the target events per delivery. Defaults to 100.
func WithBatchSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithFlushInterval bounds how long a partial batch waits in memory.
// Defaults to 200ms.
func WithFlushInterval(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.flushInterval = d
		}
	}
}

// WithDeliveryTimeout bounds each delivery attempt. Defaults to 5s.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.deliveryTimeout = d
		}
	}
}

// WithMaxAttempts sets how many times a batch is tried before it is
// logged locally and dropped. Defaults to 3.
func WithMaxAttempts(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBackoff sets the retry delay strategy.
func WithBackoff(b BackoffStrategy) Option {
	return func(r *Recorder) {
		if b != nil {
			r.backoff = b
		}
	}
}

// WithLogger sets the logger used for local fallback when the sink is
// unreachable or the queue overflows.
func WithLogger(log *slog.Logger) Option {
	return func(r *Recorder) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRecorder creates a recorder and starts its delivery worker.
func NewRecorder(sink Sink, opts ...Option) *Recorder {
	if sink == nil {
		panic("audit: sink cannot be nil")
	}

	r := &Recorder{
		sink:            sink,
		log:             slog.Default(),
		done:            make(chan struct{}),
		batchSize:       100,
		flushInterval:   200 * time.Millisecond,
		deliveryTimeout: 5 * time.Second,
		maxAttempts:     3,
		backoff:         defaultBackoff(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.queue == nil {
		r.queue = make(chan Event, 1000)
	}

	r.wg.Add(1)
	go r.worker()
	return r
}

// RecordDecision queues an audited evaluation. Never blocks.
func (r *Recorder) RecordDecision(ctx context.Context, ev permission.Evaluation) {
	r.enqueue(ctx, decisionEvent(ev))
}

// RecordMutation queues a committed role/user mutation. Never blocks.
func (r *Recorder) RecordMutation(ctx context.Context, m permission.Mutation) {
	r.enqueue(ctx, mutationEvent(m))
}

func (r *Recorder) enqueue(ctx context.Context, e Event) {
	select {
	case <-r.done:
		r.logEvent(ctx, "audit recorder closed, event logged locally", e)
		return
	default:
	}

	select {
	case r.queue <- e:
	default:
		// Queue full. Audit must never apply backpressure to the
		// evaluation path, so the event goes to the local log instead.
		r.logEvent(ctx, "audit queue full, event logged locally", e)
	}
}

func (r *Recorder) logEvent(ctx context.Context, msg string, e Event) {
	r.log.ErrorContext(ctx, msg,
		"event_id", e.ID,
		"kind", e.Kind,
		"action", e.Action,
		"user_id", e.UserID,
		"actor_id", e.ActorID,
		"target_id", e.TargetID,
		"resource", e.Resource,
		"decision", e.Decision,
		"source", e.Source,
	)
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]Event, 0, r.batchSize)
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-r.queue:
			batch = append(batch, e)
			if len(batch) >= r.batchSize {
				r.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}

		case <-r.done:
			// Drain whatever is already queued, then deliver once more.
			for {
				select {
				case e := <-r.queue:
					batch = append(batch, e)
				default:
					if len(batch) > 0 {
						r.flush(batch)
					}
					return
				}
			}
		}
	}
}

// flush delivers one batch with retries. Delivery runs on a background
// context so caller timeouts can never cascade into the sink.
func (r *Recorder) flush(batch []Event) {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), r.deliveryTimeout)
		err = r.sink.Deliver(ctx, batch)
		cancel()
		if err == nil {
			return
		}
		if attempt < r.maxAttempts {
			time.Sleep(r.backoff.NextInterval(attempt))
		}
	}

	r.log.Error("audit delivery failed, batch logged locally and dropped",
		"error", err,
		"events", len(batch),
	)
	for _, e := range batch {
		r.logEvent(context.Background(), "undelivered audit event", e)
	}
}

// Close shuts the recorder down, draining queued events. The context
// bounds how long the final delivery may take. A second Close returns
// ErrRecorderClosed.
func (r *Recorder) Close(ctx context.Context) error {
	first := false
	r.once.Do(func() {
		first = true
		close(r.done)
	})
	if !first {
		return ErrRecorderClosed
	}

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
