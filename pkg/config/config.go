package config

import (
	"errors"
	"io/fs"
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

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Dashboard    DashboardConfig
	Substitution SubstitutionConfig
	Exports      ExportsConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SubstitutionConfig tunes substitute matching.
type SubstitutionConfig struct {
	FuzzWindow       time.Duration
	WarningThreshold int
	CautionThreshold int
	CoverageCacheTTL time.Duration
}

// ExportsConfig bounds report exports. Exports above MaxRows are queued,
// written under Dir and served through a signed URL valid for URLTTL.
type ExportsConfig struct {
	MaxRows       int
	AsyncMaxRows  int
	Dir           string
	Workers       int
	MaxRetries    int
	SigningSecret string
	URLTTL        time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled: v.GetBool("ENABLE_DASHBOARD_CACHE"),
		CacheTTL:     parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 30*time.Second),
	}

	cfg.Substitution = SubstitutionConfig{
		FuzzWindow:       parseDuration(v.GetString("SUBSTITUTE_FUZZ_WINDOW"), 15*time.Minute),
		WarningThreshold: positiveOr(v.GetInt("WORKLOAD_WARNING_THRESHOLD"), 5),
		CautionThreshold: positiveOr(v.GetInt("WORKLOAD_CAUTION_THRESHOLD"), 3),
		CoverageCacheTTL: parseDuration(v.GetString("COVERAGE_CACHE_TTL"), time.Minute),
	}

	cfg.Exports = ExportsConfig{
		MaxRows:       positiveOr(v.GetInt("EXPORTS_MAX_ROWS"), 5000),
		AsyncMaxRows:  positiveOr(v.GetInt("EXPORTS_ASYNC_MAX_ROWS"), 100000),
		Dir:           v.GetString("EXPORTS_DIR"),
		Workers:       positiveOr(v.GetInt("EXPORTS_WORKERS"), 2),
		MaxRetries:    v.GetInt("EXPORTS_MAX_RETRIES"),
		SigningSecret: v.GetString("EXPORTS_SIGNING_SECRET"),
		URLTTL:        parseDuration(v.GetString("EXPORTS_URL_TTL"), 24*time.Hour),
	}
	if cfg.Exports.SigningSecret == "" {
		cfg.Exports.SigningSecret = cfg.JWT.Secret
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "college_admin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "college-admin-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_DASHBOARD_CACHE", false)
	v.SetDefault("DASHBOARD_CACHE_TTL", "30s")

	v.SetDefault("SUBSTITUTE_FUZZ_WINDOW", "15m")
	v.SetDefault("WORKLOAD_WARNING_THRESHOLD", 5)
	v.SetDefault("WORKLOAD_CAUTION_THRESHOLD", 3)
	v.SetDefault("COVERAGE_CACHE_TTL", "1m")

	v.SetDefault("EXPORTS_MAX_ROWS", 5000)
	v.SetDefault("EXPORTS_ASYNC_MAX_ROWS", 100000)
	v.SetDefault("EXPORTS_DIR", "./exports")
	v.SetDefault("EXPORTS_WORKERS", 2)
	v.SetDefault("EXPORTS_MAX_RETRIES", 2)
	v.SetDefault("EXPORTS_SIGNING_SECRET", "")
	v.SetDefault("EXPORTS_URL_TTL", "24h")
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

// SetConfigFile bypasses viper's not-found detection, so a missing .env
// surfaces as a path error.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
