// Package config loads service configuration from a YAML file, an
// optional .env file and the process environment, in that order.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Storage   StorageConfig
	LLM       LLMConfig
	Ingest    IngestConfig
	Retrieval RetrievalConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	Mode               string
	ShutdownTimeoutSec int
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Type      string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type IngestConfig struct {
	ChunkSize         int
	ChunkOverlap      int
	MaxFileSizeMB     int
	Concurrency       int
	MaxRetries        int
	ProcessTimeoutMin int
	StaleAfterMin     int
}

type RetrievalConfig struct {
	MaxChunks      int
	MaxChars       int
	FallbackPerDoc int
}

type LogConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration, looking for config.yaml in the working
// directory, ./config or /etc/lessongen. A missing file is fine,
// defaults plus environment still produce a runnable config.
func Load() (*Config, error) {
	// .env 先进环境, viper 的 AutomaticEnv 再统一读取
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/lessongen")

	viper.SetEnvPrefix("LESSONGEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyLegacyEnv(&config)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.shutdownTimeoutSec", 5)

	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "lessongen")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("storage.type", "minio")
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.bucket", "lessongen-documents")
	viper.SetDefault("storage.useSSL", false)

	viper.SetDefault("llm.baseURL", "https://api.deepseek.com/v1")
	viper.SetDefault("llm.model", "deepseek-chat")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.maxTokens", 3000)
	viper.SetDefault("llm.timeoutSec", 120)

	viper.SetDefault("ingest.chunkSize", 800)
	viper.SetDefault("ingest.chunkOverlap", 100)
	viper.SetDefault("ingest.maxFileSizeMB", 20)
	viper.SetDefault("ingest.concurrency", 5)
	viper.SetDefault("ingest.maxRetries", 3)
	viper.SetDefault("ingest.processTimeoutMin", 30)
	viper.SetDefault("ingest.staleAfterMin", 15)

	viper.SetDefault("retrieval.maxChunks", 20)
	viper.SetDefault("retrieval.maxChars", 6000)
	viper.SetDefault("retrieval.fallbackPerDoc", 3)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.encoding", "json")
}

// applyLegacyEnv 兼容早期部署直接写裸变量名的 .env 文件
func applyLegacyEnv(cfg *Config) {
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	switch cfg.Storage.Type {
	case "minio":
		applyStorageEnv(&cfg.Storage, "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_ENDPOINT", "MINIO_REGION", "MINIO_BUCKET_NAME")
	case "s3":
		applyStorageEnv(&cfg.Storage, "AWS_ACCESS_KEY", "AWS_SECRET_KEY", "AWS_ENDPOINT", "AWS_REGION", "AWS_S3_BUCKET_NAME")
	}
}

func applyStorageEnv(sc *StorageConfig, accessKey, secretKey, endpoint, region, bucket string) {
	if v := os.Getenv(accessKey); v != "" {
		sc.AccessKey = v
	}
	if v := os.Getenv(secretKey); v != "" {
		sc.SecretKey = v
	}
	if v := os.Getenv(endpoint); v != "" {
		sc.Endpoint = v
	}
	if v := os.Getenv(region); v != "" {
		sc.Region = v
	}
	if v := os.Getenv(bucket); v != "" {
		sc.Bucket = v
	}
}

func (c *Config) validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("config: mongo.uri is required")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("config: storage.bucket is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("config: llm.apiKey is required (or set OPENAI_API_KEY)")
	}
	return nil
}
