// Package config loads application configuration from environment
// variables into annotated structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
// the first Load in a process reads the default .env file (missing
// files are fine), then env.Parse fills the struct from the
// environment using field tags.
//
// Usage:
//
//	type AuditConfig struct {
//		Stream   string `env:"AUDIT_STREAM" envDefault:"permkit:audit"`
//		Buffer   int    `env:"AUDIT_BUFFER" envDefault:"1000"`
//		RedisURL string `env:"AUDIT_REDIS_URL,required"`
//	}
//
//	var cfg AuditConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
package config
