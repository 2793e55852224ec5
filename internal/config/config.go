// internal/config/config.go
package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Cache    CacheConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// StoreConfig selects and configures the event store backend. The "fs"
// backend keeps partitions under RootDir; the "s3" backend talks to any
// S3-compatible endpoint (MinIO, HDFS S3 gateway).
type StoreConfig struct {
	Backend   string
	RootDir   string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type CacheConfig struct {
	Enabled        bool
	RedisURL       string
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	MasterTTLHours int
}

type PipelineConfig struct {
	WorkerCount      int
	OpTimeoutSeconds int
	AnomalySigma     float64
}

// OpTimeout returns the per-operation storage/query timeout.
func (p PipelineConfig) OpTimeout() time.Duration {
	if p.OpTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.OpTimeoutSeconds) * time.Second
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "replenish")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("STORE_BACKEND", "fs")
		viper.SetDefault("STORE_ROOT_DIR", "./data")
		viper.SetDefault("STORE_ENDPOINT", "")
		viper.SetDefault("STORE_ACCESS_KEY", "")
		viper.SetDefault("STORE_SECRET_KEY", "")
		viper.SetDefault("STORE_BUCKET", "replenish")
		viper.SetDefault("STORE_REGION", "us-east-1")
		viper.SetDefault("STORE_USE_SSL", false)
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_MASTER_TTL_HOURS", 12)
		viper.SetDefault("PIPELINE_WORKER_COUNT", 4)
		viper.SetDefault("PIPELINE_OP_TIMEOUT_SECONDS", 30)
		viper.SetDefault("PIPELINE_ANOMALY_SIGMA", 3.0)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Store: StoreConfig{
				Backend:   viper.GetString("STORE_BACKEND"),
				RootDir:   viper.GetString("STORE_ROOT_DIR"),
				Endpoint:  viper.GetString("STORE_ENDPOINT"),
				AccessKey: viper.GetString("STORE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORE_SECRET_KEY"),
				Bucket:    viper.GetString("STORE_BUCKET"),
				Region:    viper.GetString("STORE_REGION"),
				UseSSL:    viper.GetBool("STORE_USE_SSL"),
			},
			Cache: CacheConfig{
				Enabled:        viper.GetBool("CACHE_ENABLED"),
				RedisURL:       viper.GetString("REDIS_URL"),
				RedisHost:      viper.GetString("REDIS_HOST"),
				RedisPort:      viper.GetString("REDIS_PORT"),
				RedisPassword:  viper.GetString("REDIS_PASSWORD"),
				RedisDB:        viper.GetInt("REDIS_DB"),
				MasterTTLHours: viper.GetInt("CACHE_MASTER_TTL_HOURS"),
			},
			Pipeline: PipelineConfig{
				WorkerCount:      viper.GetInt("PIPELINE_WORKER_COUNT"),
				OpTimeoutSeconds: viper.GetInt("PIPELINE_OP_TIMEOUT_SECONDS"),
				AnomalySigma:     viper.GetFloat64("PIPELINE_ANOMALY_SIGMA"),
			},
		}
	})

	return instance
}
