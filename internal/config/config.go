package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Queue        QueueConfig
	Notification NotificationConfig
	Dashboard    DashboardConfig
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
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	MigrationsDir   string
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	ConnectAttempts int
	ApplicationName string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	KeyPrefix   string
	DialTimeout time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string // json or console
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	AccessTokenTTLMinutes   int
	AdminTokenTTLMinutes    int
	CookieName              string
	CookieSecure            bool
	PasswordResetTTLMinutes int
	BcryptCost              int
	AdminMaxLoginAttempts   int
	AdminLockMinutes        int
	AdminPasswordExpiryDays int
}

// RateLimitConfig configures the Redis token bucket placed in front of auth routes.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// QueueConfig holds RabbitMQ settings for the email pipeline.
type QueueConfig struct {
	URL        string
	EmailQueue string
	Prefetch   int
}

// NotificationConfig holds email sender values.
type NotificationConfig struct {
	EmailFrom   string
	FrontendURL string
}

// DashboardConfig controls metric caching and recomputation.
type DashboardConfig struct {
	OverviewCacheTTL time.Duration
	MetricTTL        time.Duration
	RefreshInterval  time.Duration
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
			Name:                  getEnv("APP_NAME", "datifyy-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        maxConns,
			MinConns:        minConns,
			RunMigrations:   runMigrations,
			MigrationsDir:   getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:  connMaxIdle,
			ConnMaxLifeSec:  connMaxLife,
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
			ApplicationName: getEnv("POSTGRES_APPLICATION_NAME", "datifyy-service"),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          redisDB,
			PoolSize:    getEnvAsInt("REDIS_POOL_SIZE", 20),
			KeyPrefix:   getEnv("REDIS_KEY_PREFIX", "datifyy:"),
			DialTimeout: getEnvAsDuration("REDIS_DIAL_TIMEOUT", 3*time.Second),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60*24*7),
			AdminTokenTTLMinutes:    getEnvAsInt("AUTH_ADMIN_TOKEN_TTL_MINUTES", 60*8),
			CookieName:              getEnv("AUTH_COOKIE_NAME", "token"),
			CookieSecure:            getEnvAsBool("AUTH_COOKIE_SECURE", false),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminMaxLoginAttempts:   getEnvAsInt("AUTH_ADMIN_MAX_LOGIN_ATTEMPTS", 5),
			AdminLockMinutes:        getEnvAsInt("AUTH_ADMIN_LOCK_MINUTES", 30),
			AdminPasswordExpiryDays: getEnvAsInt("AUTH_ADMIN_PASSWORD_EXPIRY_DAYS", 90),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Capacity:       getEnvAsInt("RATE_LIMIT_CAPACITY", 10),
			RefillTokens:   getEnvAsInt("RATE_LIMIT_REFILL_TOKENS", 1),
			RefillInterval: getEnvAsDuration("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
			TTL:            getEnvAsDuration("RATE_LIMIT_TTL", 10*time.Minute),
			Prefix:         getEnv("RATE_LIMIT_PREFIX", "rl:auth"),
		},
		Queue: QueueConfig{
			URL:        os.Getenv("RABBITMQ_URL"),
			EmailQueue: getEnv("RABBITMQ_EMAIL_QUEUE", "notifications.email"),
			Prefetch:   getEnvAsInt("RABBITMQ_PREFETCH", 20),
		},
		Notification: NotificationConfig{
			EmailFrom:   getEnv("NOTIFY_EMAIL_FROM", "hello@datifyy.com"),
			FrontendURL: getEnv("FRONTEND_URL", "https://datifyy.com"),
		},
		Dashboard: DashboardConfig{
			OverviewCacheTTL: getEnvAsDuration("DASHBOARD_OVERVIEW_CACHE_TTL", 5*time.Minute),
			MetricTTL:        getEnvAsDuration("DASHBOARD_METRIC_TTL", 15*time.Minute),
			RefreshInterval:  getEnvAsDuration("DASHBOARD_REFRESH_INTERVAL", 10*time.Minute),
		},
	}

	if cfg.App.IsProduction() && cfg.Auth.JWTSecret == "dev-secret" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must be set in production")
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
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

// AdminLockDuration returns how long an admin account stays locked.
func (a AuthConfig) AdminLockDuration() time.Duration {
	return time.Duration(a.AdminLockMinutes) * time.Minute
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
