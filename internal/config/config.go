package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Session  SessionConfig
	Stream   StreamConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret              string
	StaffTokenTTLHours     int
	BcryptCost             int
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// SessionConfig names the credential cookies and controls the native session lifetime.
type SessionConfig struct {
	CustomerCookie string
	AdminCookie    string
	StaffCookie    string
	TTLMinutes     int
	SecureCookies  bool
	KeyPrefix      string
}

// StreamConfig controls the notification stream.
type StreamConfig struct {
	KeepAliveSeconds    int
	WriteTimeoutSeconds int
	OutboxFrames        int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "storefront-live"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret"),
			StaffTokenTTLHours:     getEnvAsInt("AUTH_STAFF_TOKEN_TTL_HOURS", 24),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
			BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
		Session: SessionConfig{
			CustomerCookie: getEnv("SESSION_CUSTOMER_COOKIE", "storefront_session"),
			AdminCookie:    getEnv("SESSION_ADMIN_COOKIE", "admin_session"),
			StaffCookie:    getEnv("SESSION_STAFF_COOKIE", "staff_token"),
			TTLMinutes:     getEnvAsInt("SESSION_TTL_MINUTES", 60*24*7),
			SecureCookies:  getEnvAsBool("SESSION_SECURE_COOKIES", false),
			KeyPrefix:      getEnv("SESSION_KEY_PREFIX", "storefront:"),
		},
		Stream: StreamConfig{
			KeepAliveSeconds:    getEnvAsInt("STREAM_KEEPALIVE_SECONDS", 30),
			WriteTimeoutSeconds: getEnvAsInt("STREAM_WRITE_TIMEOUT_SECONDS", 10),
			OutboxFrames:        getEnvAsInt("STREAM_OUTBOX_FRAMES", 64),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// StaffTokenTTL returns the absolute lifetime of a staff session token.
func (a AuthConfig) StaffTokenTTL() time.Duration {
	if a.StaffTokenTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.StaffTokenTTLHours) * time.Hour
}

// TTL returns the native session lifetime.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// KeepAlive returns the keep-alive interval for open streams.
func (s StreamConfig) KeepAlive() time.Duration {
	if s.KeepAliveSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.KeepAliveSeconds) * time.Second
}

// WriteTimeout bounds a single frame write before the client is dropped.
func (s StreamConfig) WriteTimeout() time.Duration {
	if s.WriteTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
