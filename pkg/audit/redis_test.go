package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildflow/permkit/pkg/audit"
)

func TestRedisSink_Deliver(t *testing.T) {
	t.Parallel()

	t.Run("appends events to the stream in order", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		sink := audit.NewRedisSink(client)

		events := []audit.Event{
			{
				ID:        "ev-1",
				Kind:      audit.KindDecision,
				Action:    "delete",
				CreatedAt: time.Now(),
				UserID:    "u1",
				Resource:  "documents",
				Decision:  "deny",
				Source:    "restriction",
			},
			{
				ID:        "ev-2",
				Kind:      audit.KindMutation,
				Action:    "role_deleted",
				CreatedAt: time.Now(),
				ActorID:   "admin-1",
				TargetID:  "editor",
				Version:   3,
			},
		}
		require.NoError(t, sink.Deliver(context.Background(), events))

		entries, err := client.XRange(context.Background(), "permkit:audit", "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, "ev-1", entries[0].Values["id"])
		assert.Equal(t, "decision", entries[0].Values["kind"])
		assert.Equal(t, "delete", entries[0].Values["action"])
		assert.Equal(t, "ev-2", entries[1].Values["id"])
		assert.Equal(t, "mutation", entries[1].Values["kind"])

		var decoded audit.Event
		payload, ok := entries[0].Values["payload"].(string)
		require.True(t, ok)
		require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
		assert.Equal(t, "u1", decoded.UserID)
		assert.Equal(t, "documents", decoded.Resource)
		assert.Equal(t, "deny", decoded.Decision)
	})

	t.Run("custom stream name", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		sink := audit.NewRedisSink(client, audit.WithStream("acme:trail"))

		require.NoError(t, sink.Deliver(context.Background(), []audit.Event{{ID: "ev-1", Kind: audit.KindDecision, Action: "read"}}))

		entries, err := client.XRange(context.Background(), "acme:trail", "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "ev-1", entries[0].Values["id"])
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		sink := audit.NewRedisSink(client)

		require.NoError(t, sink.Deliver(context.Background(), nil))
		assert.False(t, mr.Exists("permkit:audit"))
	})

	t.Run("unreachable server returns sink unavailable", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		sink := audit.NewRedisSink(client)
		mr.Close()

		err := sink.Deliver(context.Background(), []audit.Event{{ID: "ev-1", Kind: audit.KindDecision, Action: "read"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, audit.ErrSinkUnavailable)
	})

	t.Run("nil client panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { audit.NewRedisSink(nil) })
	})
}
