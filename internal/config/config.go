package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	Log      LogConfig      `toml:"log"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
	LLM      LLMConfig      `toml:"llm"`
	OCR      OCRConfig      `toml:"ocr"`
	Storage  StorageConfig  `toml:"storage"`
	Cache    CacheConfig    `toml:"cache"`
	PDF      PDFConfig      `toml:"pdf"`
}

type AppConfig struct {
	Name        string `toml:"name"`
	Env         string `toml:"env"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	GinMode     string `toml:"gin_mode"`
	CORSOrigins string `toml:"cors_origins"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// DatabaseConfig selects the gorm dialector. DSN wins over the discrete
// fields when set; sqlite only uses Path.
type DatabaseConfig struct {
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DB       string `toml:"db"`
	Params   string `toml:"params"`
	Path     string `toml:"path"`
}

type RedisConfig struct {
	Addr                   string `toml:"addr"`
	Password               string `toml:"password"`
	DB                     int    `toml:"db"`
	HistoryTTLSeconds      int    `toml:"history_ttl_seconds"`
	HistoryDirtyTTLSeconds int    `toml:"history_dirty_ttl_seconds"`
}

type RabbitMQConfig struct {
	URL         string `toml:"url"`
	OCRJobQueue string `toml:"ocr_job_queue"`
}

type LLMConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	HistoryLimit   int    `toml:"history_limit"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type OCRConfig struct {
	Model        string `toml:"model"`
	MaxImageEdge int    `toml:"max_image_edge"`
}

type StorageConfig struct {
	Driver     string `toml:"driver"`
	UploadsDir string `toml:"uploads_dir"`
	S3Bucket   string `toml:"s3_bucket"`
	S3Region   string `toml:"s3_region"`
	S3Prefix   string `toml:"s3_prefix"`
	S3Endpoint string `toml:"s3_endpoint"`
}

type CacheConfig struct {
	ContextTTLSeconds int `toml:"context_ttl_seconds"`
}

type PDFConfig struct {
	FontPath string `toml:"font_path"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// DatabaseDSN renders the connection string for the configured driver.
func (c *Config) DatabaseDSN() string {
	d := c.Database
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			d.Host, d.Port, d.User, d.Password, d.DB)
		if d.Params != "" {
			dsn += " " + d.Params
		}
		return dsn
	case "sqlite":
		return d.Path
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			d.User,
			d.Password,
			d.Host,
			d.Port,
			d.DB,
			d.Params,
		)
	}
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "legaldesk",
			Env:         "dev",
			Host:        "0.0.0.0",
			Port:        8080,
			GinMode:     "debug",
			CORSOrigins: "*",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "127.0.0.1",
			Port:     3306,
			User:     "root",
			Password: "",
			DB:       "legaldesk",
			Params:   "parseTime=true&loc=Local&charset=utf8mb4",
			Path:     "legaldesk.db",
		},
		Redis: RedisConfig{
			Addr:                   "",
			Password:               "",
			DB:                     0,
			HistoryTTLSeconds:      60,
			HistoryDirtyTTLSeconds: 5,
		},
		RabbitMQ: RabbitMQConfig{
			URL:         "",
			OCRJobQueue: "ocr.jobs",
		},
		LLM: LLMConfig{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta/openai/",
			APIKey:         "",
			Model:          "gemini-2.5-flash",
			HistoryLimit:   10,
			TimeoutSeconds: 90,
		},
		OCR: OCRConfig{
			Model:        "gemini-2.5-pro",
			MaxImageEdge: 2048,
		},
		Storage: StorageConfig{
			Driver:     "local",
			UploadsDir: "public/uploads",
		},
		Cache: CacheConfig{
			ContextTTLSeconds: 3600,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.CORSOrigins = getEnv("CORS_ORIGINS", cfg.App.CORSOrigins)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Output = getEnv("LOG_OUTPUT", cfg.Log.Output)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DATABASE_URL", cfg.Database.DSN)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DB = getEnv("DB_NAME", cfg.Database.DB)
	cfg.Database.Params = getEnv("DB_PARAMS", cfg.Database.Params)
	cfg.Database.Path = getEnv("DB_PATH", cfg.Database.Path)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.HistoryTTLSeconds = getEnvAsInt("REDIS_HISTORY_TTL_SECONDS", cfg.Redis.HistoryTTLSeconds)
	cfg.Redis.HistoryDirtyTTLSeconds = getEnvAsInt("REDIS_HISTORY_DIRTY_TTL_SECONDS", cfg.Redis.HistoryDirtyTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.OCRJobQueue = getEnv("RABBITMQ_OCR_JOB_QUEUE", cfg.RabbitMQ.OCRJobQueue)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", getEnv("GEMINI_API_KEY", cfg.LLM.APIKey))
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.HistoryLimit = getEnvAsInt("LLM_HISTORY_LIMIT", cfg.LLM.HistoryLimit)
	cfg.LLM.TimeoutSeconds = getEnvAsInt("LLM_TIMEOUT_SECONDS", cfg.LLM.TimeoutSeconds)

	cfg.OCR.Model = getEnv("OCR_MODEL", cfg.OCR.Model)
	cfg.OCR.MaxImageEdge = getEnvAsInt("OCR_MAX_IMAGE_EDGE", cfg.OCR.MaxImageEdge)

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.UploadsDir = getEnv("UPLOADS_DIR", cfg.Storage.UploadsDir)
	cfg.Storage.S3Bucket = getEnv("S3_BUCKET", cfg.Storage.S3Bucket)
	cfg.Storage.S3Region = getEnv("S3_REGION", cfg.Storage.S3Region)
	cfg.Storage.S3Prefix = getEnv("S3_PREFIX", cfg.Storage.S3Prefix)
	cfg.Storage.S3Endpoint = getEnv("S3_ENDPOINT", cfg.Storage.S3Endpoint)

	cfg.Cache.ContextTTLSeconds = getEnvAsInt("CACHE_CONTEXT_TTL_SECONDS", cfg.Cache.ContextTTLSeconds)

	cfg.PDF.FontPath = getEnv("PDF_FONT_PATH", cfg.PDF.FontPath)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
