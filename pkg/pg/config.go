package pg

import "time"

// Config controls the connection pool and startup retry behavior. It
// is populated from the environment via pkg/config.
type Config struct {
	ConnectionString  string        `env:"PERMKIT_PG_CONN_URL,required"`
	MaxOpenConns      int32         `env:"PERMKIT_PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"PERMKIT_PG_MAX_IDLE_CONNS" envDefault:"5"`
	HealthCheckPeriod time.Duration `env:"PERMKIT_PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"PERMKIT_PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"PERMKIT_PG_MAX_CONN_LIFETIME" envDefault:"30m"`

	RetryAttempts int           `env:"PERMKIT_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"PERMKIT_PG_RETRY_INTERVAL" envDefault:"5s"`

	MigrationsTable string `env:"PERMKIT_PG_MIGRATIONS_TABLE" envDefault:"permkit_schema_migrations"`
}
