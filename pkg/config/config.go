package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DBConfig 数据库配置
type DBConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	MaxConns int32  `yaml:"max_conns"`
	// 慢查询阈值
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// MQConfig 消息队列配置
type MQConfig struct {
	URL                 string `yaml:"url"`
	Queue               string `yaml:"queue"`
	RoutingKey          string `yaml:"routing_key"`
	ProcessedRoutingKey string `yaml:"processed_routing_key"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// GmailConfig points at an already-authorized OAuth client; the worker
// does not run the interactive consent flow.
type GmailConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	User            string `yaml:"user"`
	Label           string `yaml:"label"`
}

type GeminiConfig struct {
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	APIVersion string        `yaml:"api_version"`
	Timeout    time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

type ScraperConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MinWords  int           `yaml:"min_words"`
	UserAgent string        `yaml:"user_agent"`
}

type ResolverConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type WorkerConfig struct {
	Concurrency int           `yaml:"concurrency"`
	DedupTTL    time.Duration `yaml:"dedup_ttl"`
	MaxRetries  int64         `yaml:"max_retries"`
}

// TracingConfig OpenTelemetry 配置，默认关闭
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Config 是 worker 的完整配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	MQ       MQConfig       `yaml:"mq"`
	Redis    RedisConfig    `yaml:"redis"`
	DB       DBConfig       `yaml:"db"`
	Gmail    GmailConfig    `yaml:"gmail"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Storage  StorageConfig  `yaml:"storage"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Resolver ResolverConfig `yaml:"resolver"`
	Worker   WorkerConfig   `yaml:"worker"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// Load 加载多环境配置、解码为 Config、应用环境变量覆盖并补齐默认值
func Load(env, configDir string) (*Config, error) {
	merged, err := LoadConfig(env, configDir)
	if err != nil {
		return nil, err
	}

	cfg, err := Decode(merged)
	if err != nil {
		return nil, err
	}

	OverrideServerFromEnv(&cfg.Server)
	OverrideMQFromEnv(&cfg.MQ)
	OverrideRedisFromEnv(&cfg.Redis)
	OverrideDBFromEnv(&cfg.DB)
	OverrideGeminiFromEnv(&cfg.Gemini)
	OverrideStorageFromEnv(&cfg.Storage)
	OverrideTracingFromEnv(&cfg.Tracing)

	cfg.applyDefaults()
	return cfg, nil
}

// Decode 将合并后的 map 转成强类型配置
func Decode(merged map[string]interface{}) (*Config, error) {
	raw, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode merged config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8090"
	}
	if c.MQ.Queue == "" {
		c.MQ.Queue = "gmail.notification.q"
	}
	if c.MQ.RoutingKey == "" {
		c.MQ.RoutingKey = "gmail.notification"
	}
	if c.MQ.ProcessedRoutingKey == "" {
		c.MQ.ProcessedRoutingKey = "press_release.processed"
	}
	if c.Gmail.User == "" {
		c.Gmail.User = "me"
	}
	if c.Gmail.Label == "" {
		c.Gmail.Label = "INBOX"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "models/gemini-2.0-flash"
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = "https://generativelanguage.googleapis.com/"
	}
	if c.Gemini.APIVersion == "" {
		c.Gemini.APIVersion = "v1beta"
	}
	if c.Gemini.Timeout == 0 {
		c.Gemini.Timeout = 60 * time.Second
	}
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = "press-release-results/"
	}
	if c.Scraper.Timeout == 0 {
		c.Scraper.Timeout = 30 * time.Second
	}
	if c.Scraper.MinWords == 0 {
		c.Scraper.MinWords = 5
	}
	if c.Resolver.Timeout == 0 {
		c.Resolver.Timeout = 5 * time.Second
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 1
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "otel-collector:4317"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "prsummarizer-worker"
	}
	if c.Tracing.SampleRatio <= 0 {
		c.Tracing.SampleRatio = 1
	}
	if c.DB.MaxConns <= 0 {
		// 每个 worker 同时最多一次 upsert，多留一个给 schema 检查
		c.DB.MaxConns = int32(c.Worker.Concurrency) + 1
	}
	if c.Worker.DedupTTL == 0 {
		c.Worker.DedupTTL = 24 * time.Hour
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 5
	}
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

func OverrideGeminiFromEnv(cfg *GeminiConfig) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.APIKey = key
	}
}

func OverrideStorageFromEnv(cfg *StorageConfig) {
	if bucket := os.Getenv("BUCKET_NAME"); bucket != "" {
		cfg.Bucket = bucket
	}
}

func OverrideTracingFromEnv(cfg *TracingConfig) {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
		cfg.Enabled = true
	}
}
