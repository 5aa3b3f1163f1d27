package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Workshift WorkshiftConfig
	Metrics   MetricsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WorkshiftConfig carries house policy defaults and job scheduling knobs.
type WorkshiftConfig struct {
	DefaultPoolHours     float64
	DefaultShiftHours    float64
	DefaultSignOutCutoff time.Duration
	DefaultVerifyCutoff  time.Duration
	CollectorInterval    time.Duration
	StandingsInterval    time.Duration
	SemesterCacheTTL     time.Duration
	StandingsCacheTTL    time.Duration
	AnonymousUsername    string
	WorkerConcurrency    int
	WorkerRetries        int
}

// MetricsConfig toggles the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Workshift = WorkshiftConfig{
		DefaultPoolHours:     v.GetFloat64("WORKSHIFT_DEFAULT_POOL_HOURS"),
		DefaultShiftHours:    v.GetFloat64("WORKSHIFT_DEFAULT_SHIFT_HOURS"),
		DefaultSignOutCutoff: parseDuration(v.GetString("WORKSHIFT_SIGN_OUT_CUTOFF"), 24*time.Hour),
		DefaultVerifyCutoff:  parseDuration(v.GetString("WORKSHIFT_VERIFY_CUTOFF"), 2*time.Hour),
		CollectorInterval:    parseDuration(v.GetString("WORKSHIFT_COLLECTOR_INTERVAL"), 15*time.Minute),
		StandingsInterval:    parseDuration(v.GetString("WORKSHIFT_STANDINGS_INTERVAL"), 24*time.Hour),
		SemesterCacheTTL:     parseDuration(v.GetString("WORKSHIFT_SEMESTER_CACHE_TTL"), 5*time.Minute),
		StandingsCacheTTL:    parseDuration(v.GetString("WORKSHIFT_STANDINGS_CACHE_TTL"), time.Minute),
		AnonymousUsername:    v.GetString("WORKSHIFT_ANONYMOUS_USERNAME"),
		WorkerConcurrency:    v.GetInt("WORKSHIFT_WORKER_CONCURRENCY"),
		WorkerRetries:        v.GetInt("WORKSHIFT_WORKER_RETRIES"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "workshift")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev-secret")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("WORKSHIFT_DEFAULT_POOL_HOURS", 5.0)
	v.SetDefault("WORKSHIFT_DEFAULT_SHIFT_HOURS", 1.0)
	v.SetDefault("WORKSHIFT_ANONYMOUS_USERNAME", "anonymous")
	v.SetDefault("WORKSHIFT_WORKER_CONCURRENCY", 2)
	v.SetDefault("WORKSHIFT_WORKER_RETRIES", 3)

	v.SetDefault("ENABLE_METRICS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
