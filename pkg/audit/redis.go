package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisSink appends audit events to a Redis Stream. Streams preserve
// insertion order and support consumer groups, which suits an
// append-only audit trail consumed by a separate archiver.
type RedisSink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// RedisSinkOption configures a RedisSink.
type RedisSinkOption func(*RedisSink)

// WithStream sets the stream key. Defaults to "permkit:audit".
func WithStream(stream string) RedisSinkOption {
	return func(s *RedisSink) {
		if stream != "" {
			s.stream = stream
		}
	}
}

// WithMaxLen caps the stream length approximately (XADD MAXLEN ~).
// Zero means unbounded.
func WithMaxLen(n int64) RedisSinkOption {
	return func(s *RedisSink) {
		if n > 0 {
			s.maxLen = n
		}
	}
}

// NewRedisSink creates a sink writing to the given Redis client.
func NewRedisSink(client redis.UniversalClient, opts ...RedisSinkOption) *RedisSink {
	if client == nil {
		panic("audit: redis client cannot be nil")
	}
	s := &RedisSink{
		client: client,
		stream: "permkit:audit",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver appends the batch as one pipelined sequence of XADD calls.
func (s *RedisSink) Deliver(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return errors.Join(ErrSinkUnavailable, err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			MaxLen: s.maxLen,
			Approx: s.maxLen > 0,
			Values: map[string]any{
				"id":      e.ID,
				"kind":    string(e.Kind),
				"action":  e.Action,
				"payload": string(payload),
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(ErrSinkUnavailable, err)
	}
	return nil
}
