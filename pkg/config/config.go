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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	SMTP          SMTPConfig
	Attachments   AttachmentsConfig
	Exports       ExportsConfig
	Stats         StatsConfig
	Notifications NotificationsConfig
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
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SMTPConfig holds outbound mail settings for complaint notifications.
type SMTPConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// AttachmentsConfig controls complaint attachment storage and validation.
type AttachmentsConfig struct {
	StorageDir        string
	MaxFileSizeBytes  int64
	AllowedExtensions []string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
}

// ExportsConfig governs CSV/PDF report generation.
type ExportsConfig struct {
	StorageDir string
	PDFRowCap  int
}

// StatsConfig tunes dashboard statistics caching.
type StatsConfig struct {
	CacheTTL time.Duration
}

// NotificationsConfig tunes the asynchronous email dispatcher.
type NotificationsConfig struct {
	EmailWorkers int
	EmailRetries int
	RetryDelay   time.Duration
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
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.SMTP = SMTPConfig{
		Enabled:  v.GetBool("SMTP_ENABLED"),
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		Username: v.GetString("SMTP_USERNAME"),
		Password: v.GetString("SMTP_PASSWORD"),
		From:     v.GetString("SMTP_FROM"),
	}

	maxAttachmentSize := v.GetInt64("ATTACHMENTS_MAX_FILE_SIZE")
	if maxAttachmentSize <= 0 {
		maxAttachmentSize = 10 * 1024 * 1024
	}
	cfg.Attachments = AttachmentsConfig{
		StorageDir:        v.GetString("ATTACHMENTS_STORAGE_DIR"),
		MaxFileSizeBytes:  maxAttachmentSize,
		AllowedExtensions: splitAndTrim(v.GetString("ATTACHMENTS_ALLOWED_EXTENSIONS")),
		SignedURLSecret:   v.GetString("ATTACHMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("ATTACHMENTS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		StorageDir: v.GetString("EXPORTS_STORAGE_DIR"),
		PDFRowCap:  v.GetInt("EXPORTS_PDF_ROW_CAP"),
	}

	cfg.Stats = StatsConfig{
		CacheTTL: parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		EmailWorkers: v.GetInt("NOTIFICATIONS_EMAIL_WORKERS"),
		EmailRetries: v.GetInt("NOTIFICATIONS_EMAIL_RETRIES"),
		RetryDelay:   parseDuration(v.GetString("NOTIFICATIONS_RETRY_DELAY"), 5*time.Second),
	}

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
	v.SetDefault("DB_NAME", "complaint_desk")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SMTP_ENABLED", false)
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "noreply@complaint-desk.local")

	v.SetDefault("ATTACHMENTS_STORAGE_DIR", "./uploads")
	v.SetDefault("ATTACHMENTS_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("ATTACHMENTS_ALLOWED_EXTENSIONS", "pdf,jpg,jpeg,png,docx")
	v.SetDefault("ATTACHMENTS_SIGNED_URL_SECRET", "dev_attachments_secret")
	v.SetDefault("ATTACHMENTS_SIGNED_URL_TTL", "30m")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_PDF_ROW_CAP", 100)

	v.SetDefault("STATS_CACHE_TTL", "5m")

	v.SetDefault("NOTIFICATIONS_EMAIL_WORKERS", 1)
	v.SetDefault("NOTIFICATIONS_EMAIL_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_RETRY_DELAY", "5s")
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
