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
	Generator GeneratorConfig
	Exam      ExamConfig
	Export    ExportConfig
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
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GeneratorConfig carries the default knobs for teaching-timetable runs.
// Request options override these per invocation.
type GeneratorConfig struct {
	MaxPeriodsPerDayPerTeacher int
	PreferMorningForDifficult  bool
	AllowBackToBackDifficult   bool
	LockTTL                    time.Duration
}

// ExamConfig carries the default knobs for exam derivation.
type ExamConfig struct {
	MaxExamsPerDay int
	PrioritizeCore bool
}

// ExportConfig tunes timetable export rendering.
type ExportConfig struct {
	Enabled           bool
	WorkerConcurrency int
	ArtifactTTL       time.Duration
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

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Generator = GeneratorConfig{
		MaxPeriodsPerDayPerTeacher: v.GetInt("GENERATOR_MAX_PERIODS_PER_TEACHER_DAY"),
		PreferMorningForDifficult:  v.GetBool("GENERATOR_PREFER_MORNING_FOR_DIFFICULT"),
		AllowBackToBackDifficult:   v.GetBool("GENERATOR_ALLOW_BACK_TO_BACK_DIFFICULT"),
		LockTTL:                    parseDuration(v.GetString("GENERATOR_LOCK_TTL"), 5*time.Minute),
	}

	cfg.Exam = ExamConfig{
		MaxExamsPerDay: v.GetInt("EXAM_MAX_PER_DAY"),
		PrioritizeCore: v.GetBool("EXAM_PRIORITIZE_CORE"),
	}

	cfg.Export = ExportConfig{
		Enabled:           v.GetBool("ENABLE_EXPORT"),
		WorkerConcurrency: v.GetInt("EXPORT_WORKER_CONCURRENCY"),
		ArtifactTTL:       parseDuration(v.GetString("EXPORT_ARTIFACT_TTL"), time.Hour),
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
	v.SetDefault("DB_NAME", "sma_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GENERATOR_MAX_PERIODS_PER_TEACHER_DAY", 6)
	v.SetDefault("GENERATOR_PREFER_MORNING_FOR_DIFFICULT", true)
	v.SetDefault("GENERATOR_ALLOW_BACK_TO_BACK_DIFFICULT", false)
	v.SetDefault("GENERATOR_LOCK_TTL", "5m")

	v.SetDefault("EXAM_MAX_PER_DAY", 3)
	v.SetDefault("EXAM_PRIORITIZE_CORE", true)

	v.SetDefault("ENABLE_EXPORT", true)
	v.SetDefault("EXPORT_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORT_ARTIFACT_TTL", "1h")
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
