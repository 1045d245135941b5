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

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Planner  PlannerConfig
	Exports  ExportConfig
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

// PlannerConfig tunes the production planning engine.
type PlannerConfig struct {
	Enabled              bool
	ProposalTTL          time.Duration
	HorizonDays          int
	MaxSimulationDays    int
	MaxIterations        int
	PlateCleanupDelay    time.Duration
	GlobalPlateInventory int
	BlockLogRetention    int
}

// ExportConfig toggles plan export endpoints and tunes the background
// export pipeline.
type ExportConfig struct {
	Enabled         bool
	Dir             string
	SignSecret      string
	URLTTL          time.Duration
	ArtifactTTL     time.Duration
	CleanupInterval time.Duration
	Workers         int
	QueueSize       int
	MaxRetries      int
	RetryDelay      time.Duration
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

	cfg.Planner = PlannerConfig{
		Enabled:              v.GetBool("ENABLE_PLANNER"),
		ProposalTTL:          parseDuration(v.GetString("PLANNER_PROPOSAL_TTL"), 30*time.Minute),
		HorizonDays:          v.GetInt("PLANNER_HORIZON_DAYS"),
		MaxSimulationDays:    v.GetInt("PLANNER_MAX_SIMULATION_DAYS"),
		MaxIterations:        v.GetInt("PLANNER_MAX_ITERATIONS"),
		PlateCleanupDelay:    parseDuration(v.GetString("PLANNER_PLATE_CLEANUP_DELAY"), 30*time.Minute),
		GlobalPlateInventory: v.GetInt("PLANNER_GLOBAL_PLATE_INVENTORY"),
		BlockLogRetention:    v.GetInt("PLANNER_BLOCK_LOG_RETENTION"),
	}

	cfg.Exports = ExportConfig{
		Enabled:         v.GetBool("ENABLE_PLAN_EXPORTS"),
		Dir:             v.GetString("EXPORT_DIR"),
		SignSecret:      v.GetString("EXPORT_SIGN_SECRET"),
		URLTTL:          parseDuration(v.GetString("EXPORT_URL_TTL"), 24*time.Hour),
		ArtifactTTL:     parseDuration(v.GetString("EXPORT_ARTIFACT_TTL"), 72*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORT_CLEANUP_INTERVAL"), time.Hour),
		Workers:         v.GetInt("EXPORT_WORKERS"),
		QueueSize:       v.GetInt("EXPORT_QUEUE_SIZE"),
		MaxRetries:      v.GetInt("EXPORT_MAX_RETRIES"),
		RetryDelay:      parseDuration(v.GetString("EXPORT_RETRY_DELAY"), 5*time.Second),
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
	v.SetDefault("DB_NAME", "printfleet")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_PLANNER", true)
	v.SetDefault("PLANNER_PROPOSAL_TTL", "30m")
	v.SetDefault("PLANNER_HORIZON_DAYS", 14)
	v.SetDefault("PLANNER_MAX_SIMULATION_DAYS", 30)
	v.SetDefault("PLANNER_MAX_ITERATIONS", 20000)
	v.SetDefault("PLANNER_PLATE_CLEANUP_DELAY", "30m")
	v.SetDefault("PLANNER_GLOBAL_PLATE_INVENTORY", 50)
	v.SetDefault("PLANNER_BLOCK_LOG_RETENTION", 500)

	v.SetDefault("ENABLE_PLAN_EXPORTS", true)
	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_SIGN_SECRET", "dev_export_secret")
	v.SetDefault("EXPORT_URL_TTL", "24h")
	v.SetDefault("EXPORT_ARTIFACT_TTL", "72h")
	v.SetDefault("EXPORT_CLEANUP_INTERVAL", "1h")
	v.SetDefault("EXPORT_WORKERS", 2)
	v.SetDefault("EXPORT_QUEUE_SIZE", 16)
	v.SetDefault("EXPORT_MAX_RETRIES", 3)
	v.SetDefault("EXPORT_RETRY_DELAY", "5s")
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
