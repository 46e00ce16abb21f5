package redis

import "time"

// Config controls the connection and startup retry behavior. It is
// populated from the environment via pkg/config.
type Config struct {
	ConnectionURL  string        `env:"PERMKIT_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"PERMKIT_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"PERMKIT_REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"PERMKIT_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}
