package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full environment surface of the server. Every value has a
// development default except the secrets, which must be provided.
type Config struct {
	Addr        string `envconfig:"ADDR" default:":8080"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"go-social"`

	DatabaseDSN string `envconfig:"DB_DSN" required:"true"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Empty disables tracing.
	TraceEndpoint string `envconfig:"OTEL_ENDPOINT" default:""`

	// Membership lookups on the dispatch path are bounded so a storage hang
	// stalls a single dispatch, never the connection handlers.
	MembershipTimeout time.Duration `envconfig:"MEMBERSHIP_TIMEOUT" default:"3s"`

	OutboxStream     string        `envconfig:"OUTBOX_STREAM" default:"dispatch:retry"`
	OutboxGroup      string        `envconfig:"OUTBOX_GROUP" default:"dispatch-workers"`
	OutboxRetryDelay time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"5s"`
}

// Load reads a local .env file if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
