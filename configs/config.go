package configs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type Config struct {
	Port string `env:"PORT, default=3004"`

	DBDriver          string        `env:"DB_DRIVER, default=postgres"`
	DBHost            string        `env:"DB_HOST, default=localhost"`
	DBPort            int           `env:"DB_PORT, default=5432"`
	DBUser            string        `env:"DB_USER, default=postgres"`
	DBPassword        string        `env:"DB_PASSWORD"`
	DBName            string        `env:"DB_NAME, default=taskboard"`
	DBSSLMode         string        `env:"DB_SSLMODE, default=disable"`
	DBPath            string        `env:"DB_PATH, default=taskboard.db"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS, default=25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS, default=5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME, default=1h"`

	// An empty RedisHost disables the cache.
	RedisHost string        `env:"REDIS_HOST"`
	RedisPort int           `env:"REDIS_PORT, default=6379"`
	RedisDB   int           `env:"REDIS_DB, default=0"`
	CacheTTL  time.Duration `env:"CACHE_TTL, default=1h"`

	LogDir string `env:"LOG_DIR, default=logs"`

	RateLimitMax     int           `env:"RATE_LIMIT_MAX, default=100"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW, default=1m"`
	CORSAllowOrigins string        `env:"CORS_ALLOW_ORIGINS, default=*"`
}

// LoadConfig reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func LoadConfig(ctx context.Context) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.RateLimitMax < 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must not be negative")
	}
	return nil
}

// DSN returns the data source name for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.DBPath)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func (c Config) CacheEnabled() bool {
	return c.RedisHost != ""
}
