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

	Database       DatabaseConfig
	Redis          RedisConfig
	JWT            JWTConfig
	CORS           CORSConfig
	Log            LogConfig
	Attendance     AttendanceConfig
	Reconciliation ReconciliationConfig
	Reports        ReportsConfig
	Uploads        UploadsConfig
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnectAttempts int
	// TimeZone is the session time zone. It follows the facility calendar so
	// CURRENT_DATE agrees with the service's "today".
	TimeZone string
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
	// OpTimeout bounds every cache round trip; a timed out read is a miss.
	OpTimeout time.Duration
	PoolSize  int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level     string
	Format    string
	SkipPaths []string
}

// AttendanceConfig holds the facility calendar and presence cache tuning.
type AttendanceConfig struct {
	Timezone           string
	StatusCacheEnabled bool
	StatusCacheTTL     time.Duration
	BackfillEntryTime  string
	BackfillExitTime   string
	HistoryDefaultDays int
}

// ReconciliationConfig drives the end-of-day automatic exit job.
type ReconciliationConfig struct {
	Enabled        bool
	Schedule       string
	ClosingTime    string
	SystemDocument string
	FallbackRoles  []string
	Note           string
	TriggerToken   string
	Timeout        time.Duration
}

// ReportsConfig configures asynchronous report generation.
type ReportsConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// UploadsConfig controls where identity-document photos are stored.
type UploadsConfig struct {
	StorageDir       string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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
		URL:             v.GetString("DATABASE_URL"),
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnectAttempts: v.GetInt("DB_CONNECT_ATTEMPTS"),
		TimeZone:        v.GetString("ATTENDANCE_TIMEZONE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:   v.GetBool("REDIS_ENABLED"),
		URL:       v.GetString("REDIS_URL"),
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		OpTimeout: parseDuration(v.GetString("REDIS_OP_TIMEOUT"), 300*time.Millisecond),
		PoolSize:  v.GetInt("REDIS_POOL_SIZE"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:     v.GetString("LOG_LEVEL"),
		Format:    v.GetString("LOG_FORMAT"),
		SkipPaths: splitAndTrim(v.GetString("LOG_SKIP_PATHS")),
	}

	cfg.Attendance = AttendanceConfig{
		Timezone:           v.GetString("ATTENDANCE_TIMEZONE"),
		StatusCacheEnabled: v.GetBool("ATTENDANCE_STATUS_CACHE"),
		StatusCacheTTL:     parseDuration(v.GetString("ATTENDANCE_STATUS_CACHE_TTL"), 10*time.Minute),
		BackfillEntryTime:  v.GetString("ATTENDANCE_BACKFILL_ENTRY_TIME"),
		BackfillExitTime:   v.GetString("ATTENDANCE_BACKFILL_EXIT_TIME"),
		HistoryDefaultDays: v.GetInt("ATTENDANCE_HISTORY_DAYS"),
	}

	cfg.Reconciliation = ReconciliationConfig{
		Enabled:        v.GetBool("ENABLE_RECONCILIATION"),
		Schedule:       v.GetString("RECONCILIATION_SCHEDULE"),
		ClosingTime:    v.GetString("RECONCILIATION_CLOSING_TIME"),
		SystemDocument: v.GetString("RECONCILIATION_SYSTEM_DOCUMENT"),
		FallbackRoles:  splitAndTrim(v.GetString("RECONCILIATION_FALLBACK_ROLES")),
		Note:           v.GetString("RECONCILIATION_NOTE"),
		TriggerToken:   v.GetString("RECONCILIATION_TRIGGER_TOKEN"),
		Timeout:        parseDuration(v.GetString("RECONCILIATION_TIMEOUT"), 4*time.Minute),
	}

	cfg.Reports = ReportsConfig{
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	maxUpload := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		StorageDir:       v.GetString("UPLOADS_STORAGE_DIR"),
		MaxFileSizeBytes: maxUpload,
		AllowedMIMEs:     splitAndTrim(v.GetString("UPLOADS_ALLOWED_MIME_TYPES")),
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
	v.SetDefault("DB_NAME", "guarderia")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONNECT_ATTEMPTS", 5)
	v.SetDefault("DATABASE_URL", "")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_OP_TIMEOUT", "300ms")
	v.SetDefault("REDIS_POOL_SIZE", 10)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "guarderia-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_SKIP_PATHS", "/health,/metrics")

	v.SetDefault("ATTENDANCE_TIMEZONE", "America/Bogota")
	v.SetDefault("ATTENDANCE_STATUS_CACHE", false)
	v.SetDefault("ATTENDANCE_STATUS_CACHE_TTL", "10m")
	v.SetDefault("ATTENDANCE_BACKFILL_ENTRY_TIME", "08:00:00")
	v.SetDefault("ATTENDANCE_BACKFILL_EXIT_TIME", "15:00:00")
	v.SetDefault("ATTENDANCE_HISTORY_DAYS", 30)

	v.SetDefault("ENABLE_RECONCILIATION", true)
	v.SetDefault("RECONCILIATION_SCHEDULE", "0 18 * * *")
	v.SetDefault("RECONCILIATION_CLOSING_TIME", "18:00:00")
	v.SetDefault("RECONCILIATION_SYSTEM_DOCUMENT", "SISTEMA_AUTO")
	v.SetDefault("RECONCILIATION_FALLBACK_ROLES", "admin,coordinador")
	v.SetDefault("RECONCILIATION_NOTE", "Salida automática registrada por el sistema a las 18:00")
	v.SetDefault("RECONCILIATION_TRIGGER_TOKEN", "")
	v.SetDefault("RECONCILIATION_TIMEOUT", "4m")

	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)

	v.SetDefault("UPLOADS_STORAGE_DIR", "./uploads")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("UPLOADS_ALLOWED_MIME_TYPES", "image/jpeg,image/png")
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
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
