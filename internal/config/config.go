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
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	SLA          SLAConfig
	Worker       WorkerConfig
	Notification NotificationConfig
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

// AuthConfig defines token verification parameters. Identity lives in the
// platform's auth service; this service only verifies bearer tokens.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// SLAConfig carries the platform fallback response windows and the grace
// period before a responsible party may close a resolved issue.
type SLAConfig struct {
	DefaultEmergencyHours int
	DefaultUrgentHours    int
	DefaultRoutineHours   int
	DefaultLowHours       int
	CloseGraceHours       int
	ConfigCacheTTLSeconds int
}

// WorkerConfig controls the background overdue sweep.
type WorkerConfig struct {
	OverdueSweepSeconds int
	OverdueSweepLimit   int
	Enabled             bool
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "tenancy-issue-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
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
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		SLA: SLAConfig{
			DefaultEmergencyHours: getEnvAsInt("SLA_DEFAULT_EMERGENCY_HOURS", 4),
			DefaultUrgentHours:    getEnvAsInt("SLA_DEFAULT_URGENT_HOURS", 24),
			DefaultRoutineHours:   getEnvAsInt("SLA_DEFAULT_ROUTINE_HOURS", 72),
			DefaultLowHours:       getEnvAsInt("SLA_DEFAULT_LOW_HOURS", 168),
			CloseGraceHours:       getEnvAsInt("ISSUE_CLOSE_GRACE_HOURS", 72),
			ConfigCacheTTLSeconds: getEnvAsInt("SLA_CONFIG_CACHE_TTL_SECONDS", 300),
		},
		Worker: WorkerConfig{
			OverdueSweepSeconds: getEnvAsInt("OVERDUE_SWEEP_INTERVAL_SECONDS", 60),
			OverdueSweepLimit:   getEnvAsInt("OVERDUE_SWEEP_BATCH_LIMIT", 200),
			Enabled:             getEnvAsBool("OVERDUE_SWEEP_ENABLED", true),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
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

// CloseGrace returns the grace period as a duration.
func (s SLAConfig) CloseGrace() time.Duration {
	return time.Duration(s.CloseGraceHours) * time.Hour
}

// ConfigCacheTTL returns how long cached agency SLA configs stay fresh.
func (s SLAConfig) ConfigCacheTTL() time.Duration {
	if s.ConfigCacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.ConfigCacheTTLSeconds) * time.Second
}

// SweepInterval returns the overdue sweep cadence.
func (w WorkerConfig) SweepInterval() time.Duration {
	if w.OverdueSweepSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(w.OverdueSweepSeconds) * time.Second
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
