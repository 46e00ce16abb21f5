// Package redis bootstraps the Redis connection used by the Redis
// Streams audit sink.
//
// Connect retries until the server answers a ping or the configured
// timeout elapses, which covers the common case of the service and
// Redis starting together:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	sink := audit.NewRedisSink(client)
package redis
