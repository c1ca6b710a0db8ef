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
	Identity IdentityConfig
	Backend  BackendConfig
	Login    LoginConfig
	Session  SessionConfig
	Operator OperatorConfig
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
	Addr                  string
	Password              string
	DB                    int
	LeaderboardTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// IdentityConfig points at the passwordless identity provider.
type IdentityConfig struct {
	BaseURL               string
	SecretKey             string
	TokenSecret           string
	Audience              string
	RequestTimeoutSeconds int
}

// BackendConfig points at the testnet REST API.
type BackendConfig struct {
	BaseURL               string
	APIKey                string
	RequestTimeoutSeconds int
}

// LoginConfig holds the per-session login state machine defaults.
type LoginConfig struct {
	Redirect  string
	TimeoutMS int
}

// SessionConfig controls the in-memory session registry.
type SessionConfig struct {
	CookieName        string
	IdleTTLSeconds    int
	SweepIntervalSecs int
	CookieSecure      bool
}

// OperatorConfig guards the /internal routes.
type OperatorConfig struct {
	KeyHash string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	timeoutMS, err := strconv.Atoi(getEnv("LOGIN_TIMEOUT_MS", "-1"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_TIMEOUT_MS: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	// The front end historically read API_URL on the server and
	// NEXT_PUBLIC_API_URL in the browser; accept either.
	backendURL := getEnv("API_URL", os.Getenv("NEXT_PUBLIC_API_URL"))
	backendKey := getEnv("API_KEY", os.Getenv("NEXT_PUBLIC_API_KEY"))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "testnet-portal"),
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
			Addr:                  getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:              os.Getenv("REDIS_PASSWORD"),
			DB:                    redisDB,
			LeaderboardTTLSeconds: getEnvAsInt("REDIS_LEADERBOARD_TTL_SECONDS", 30),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Identity: IdentityConfig{
			BaseURL:               os.Getenv("IDENTITY_BASE_URL"),
			SecretKey:             os.Getenv("IDENTITY_SECRET_KEY"),
			TokenSecret:           getEnv("IDENTITY_TOKEN_SECRET", "dev-secret"),
			Audience:              os.Getenv("IDENTITY_AUDIENCE"),
			RequestTimeoutSeconds: getEnvAsInt("IDENTITY_REQUEST_TIMEOUT_SECONDS", 10),
		},
		Backend: BackendConfig{
			BaseURL:               backendURL,
			APIKey:                backendKey,
			RequestTimeoutSeconds: getEnvAsInt("API_REQUEST_TIMEOUT_SECONDS", 10),
		},
		Login: LoginConfig{
			Redirect:  os.Getenv("LOGIN_REDIRECT"),
			TimeoutMS: timeoutMS,
		},
		Session: SessionConfig{
			CookieName:        getEnv("SESSION_COOKIE_NAME", "portal_session"),
			IdleTTLSeconds:    getEnvAsInt("SESSION_IDLE_TTL_SECONDS", 1800),
			SweepIntervalSecs: getEnvAsInt("SESSION_SWEEP_INTERVAL_SECONDS", 60),
			CookieSecure:      getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Operator: OperatorConfig{
			KeyHash: os.Getenv("OPERATOR_KEY_HASH"),
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
	return seconds(a.RequestTimeoutSeconds)
}

// RequestTimeout returns the provider call timeout.
func (i IdentityConfig) RequestTimeout() time.Duration {
	return seconds(i.RequestTimeoutSeconds)
}

// RequestTimeout returns the backend call timeout.
func (b BackendConfig) RequestTimeout() time.Duration {
	return seconds(b.RequestTimeoutSeconds)
}

// Timeout returns the watchdog duration; negative means disabled.
func (l LoginConfig) Timeout() time.Duration {
	if l.TimeoutMS < 0 {
		return -1
	}
	return time.Duration(l.TimeoutMS) * time.Millisecond
}

// IdleTTL returns how long an untouched session is kept.
func (s SessionConfig) IdleTTL() time.Duration {
	return seconds(s.IdleTTLSeconds)
}

// SweepInterval returns how often idle sessions are collected.
func (s SessionConfig) SweepInterval() time.Duration {
	return seconds(s.SweepIntervalSecs)
}

// LeaderboardTTL returns the leaderboard cache lifetime.
func (r RedisConfig) LeaderboardTTL() time.Duration {
	return seconds(r.LeaderboardTTLSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
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
