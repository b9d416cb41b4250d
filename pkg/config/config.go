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

	RecordStore  RecordStoreConfig
	Catalog      CatalogConfig
	Autosave     AutosaveConfig
	Achievements AchievementsConfig
	Jobs         JobsConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
}

// RecordStoreConfig points the gateway at the hosted record store.
type RecordStoreConfig struct {
	BaseURL       string
	ApplicationID string
	APIKey        string
	RowsPerPage   int
}

// CatalogConfig locates the static content-catalog document used to enrich
// activities with media URLs. The document is optional at runtime.
type CatalogConfig struct {
	URL          string
	FetchTimeout time.Duration
	CacheTTL     time.Duration
}

// AutosaveConfig tunes the debounced save queue and the wizard autosave loop.
type AutosaveConfig struct {
	Debounce    time.Duration
	Interval    time.Duration
	GracePeriod time.Duration
}

// AchievementsConfig gates achievement evaluation.
type AchievementsConfig struct {
	Enabled bool
}

// JobsConfig tunes the background queue running catalog refreshes.
type JobsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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

	cfg.RecordStore = RecordStoreConfig{
		BaseURL:       v.GetString("RECORD_STORE_BASE_URL"),
		ApplicationID: v.GetString("RECORD_STORE_APP_ID"),
		APIKey:        v.GetString("RECORD_STORE_API_KEY"),
		RowsPerPage:   v.GetInt("RECORD_STORE_ROWS_PER_PAGE"),
	}

	cfg.Catalog = CatalogConfig{
		URL:          v.GetString("CONTENT_CATALOG_URL"),
		FetchTimeout: parseDuration(v.GetString("CONTENT_CATALOG_TIMEOUT"), 10*time.Second),
		CacheTTL:     parseDuration(v.GetString("CONTENT_CATALOG_CACHE_TTL"), time.Hour),
	}

	cfg.Autosave = AutosaveConfig{
		Debounce:    parseDuration(v.GetString("AUTOSAVE_DEBOUNCE"), 500*time.Millisecond),
		Interval:    parseDuration(v.GetString("AUTOSAVE_INTERVAL"), 30*time.Second),
		GracePeriod: parseDuration(v.GetString("AUTOSAVE_GRACE_PERIOD"), 5*time.Second),
	}

	cfg.Achievements = AchievementsConfig{
		Enabled: v.GetBool("ENABLE_ACHIEVEMENTS"),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		BufferSize: v.GetInt("JOBS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("RECORD_STORE_BASE_URL", "https://api.knack.com/v1")
	v.SetDefault("RECORD_STORE_APP_ID", "")
	v.SetDefault("RECORD_STORE_API_KEY", "")
	v.SetDefault("RECORD_STORE_ROWS_PER_PAGE", 1000)

	v.SetDefault("CONTENT_CATALOG_URL", "")
	v.SetDefault("CONTENT_CATALOG_TIMEOUT", "10s")
	v.SetDefault("CONTENT_CATALOG_CACHE_TTL", "1h")

	v.SetDefault("AUTOSAVE_DEBOUNCE", "500ms")
	v.SetDefault("AUTOSAVE_INTERVAL", "30s")
	v.SetDefault("AUTOSAVE_GRACE_PERIOD", "5s")

	v.SetDefault("ENABLE_ACHIEVEMENTS", true)
	v.SetDefault("JOBS_WORKERS", 1)
	v.SetDefault("JOBS_BUFFER_SIZE", 16)
	v.SetDefault("JOBS_MAX_RETRIES", 2)
	v.SetDefault("JOBS_RETRY_DELAY", "1s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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
