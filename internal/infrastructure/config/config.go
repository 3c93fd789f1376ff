package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	JWTSecret string `env:"JWT_SECRET, required"`

	Auth   AuthConfig
	HTTP   HTTPConfig
	Notify NotifyConfig
	Mongo  MongoConfig
	Redis  RedisConfig
}

type AuthConfig struct {
	TokenTTL      time.Duration `env:"TOKEN_TTL,      default=24h"`
	BcryptCost    int           `env:"BCRYPT_COST,    default=10"`
	PhoneRegion   string        `env:"PHONE_REGION,   default=US"`
	ResetCodeTTL  time.Duration `env:"RESET_CODE_TTL, default=15m"`
	AdminEmail    string        `env:"ADMIN_EMAIL"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
}

type HTTPConfig struct {
	CORSOrigins []string `env:"CORS_ORIGINS, default=*"`
	LoginRate   float64  `env:"LOGIN_RATE,   default=1"`
	LoginBurst  int      `env:"LOGIN_BURST,  default=5"`
}

type NotifyConfig struct {
	Workers int `env:"NOTIFY_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=printease"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=10"`
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("config: JWT_SECRET must be at least 16 characters")
	}
	return &cfg, nil
}
