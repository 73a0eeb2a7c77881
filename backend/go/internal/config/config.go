package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 服务的配置。
type ServerConfig struct {
	Address         string `yaml:"address"`         // 监听地址，例如 ":8000"
	GRPCAddress     string `yaml:"grpcAddress"`     // gRPC 健康检查地址，为空时不启动
	UploadDir       string `yaml:"uploadDir"`       // 上传文件的临时目录，为空时使用系统临时目录
	MaxUploadMB     int    `yaml:"maxUploadMB"`     // 单个上传文件的最大体积 (MB)
	ShutdownTimeout string `yaml:"shutdownTimeout"` // 优雅关闭的超时时间，例如 "10s"
}

// IngestionConfig 定义了文档抽取、切分和向量化的参数。
type IngestionConfig struct {
	ChunkSize            int      `yaml:"chunkSize"`
	ChunkOverlap         int      `yaml:"chunkOverlap"`
	CSVBatchRows         int      `yaml:"csvBatchRows"`
	EncodingSniffBytes   int      `yaml:"encodingSniffBytes"`
	DocxSectionChars     int      `yaml:"docxSectionChars"`
	EmbedBatchSize       int      `yaml:"embedBatchSize"`
	EmbedConcurrency     int      `yaml:"embedConcurrency"`
	DisabledCapabilities []string `yaml:"disabledCapabilities"` // 需要关闭的能力，例如 ["pdf"]
	OfficeLicenseKey     string   `yaml:"officeLicenseKey"`     // unioffice 计量许可证密钥
}

// RetrievalConfig 定义了检索和相关性判断的参数。
type RetrievalConfig struct {
	FullContextMaxChunks int      `yaml:"fullContextMaxChunks"`
	BroadWidthCap        int      `yaml:"broadWidthCap"`
	AugmentTerms         []string `yaml:"augmentTerms"`
	AugmentBatch         int      `yaml:"augmentBatch"`
	MinUniqueBroad       int      `yaml:"minUniqueBroad"`
	MinOverlap           float64  `yaml:"minOverlap"`
}

// SessionConfig 定义了会话的上限。全部为 0 / 空时不限制、不过期。
type SessionConfig struct {
	Capacity  int    `yaml:"capacity"`  // 最多保存的会话数
	MaxChunks int    `yaml:"maxChunks"` // 所有会话的分块总数上限
	TTL       string `yaml:"ttl"`       // 会话存活时间，例如 "2h"
}

// EmbeddingConfig 定义了 Embedding 提供商的配置。
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // hashing | openai | ollama | gemini | huggingface
	Model      string `yaml:"model"`
	APIKey     string `yaml:"apiKey"`
	BaseURL    string `yaml:"baseURL"`
	Dimensions int    `yaml:"dimensions"`
}

// LLMConfig 定义了 LLM 提供商的配置。
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai | ollama | gemini | huggingface | none
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseURL"`
	Temperature float32 `yaml:"temperature"`
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。brokers 为空时不发布事件。
type KafkaConfig struct {
	Brokers         []string `yaml:"brokers"`         // Kafka Broker 地址列表
	Topic           string   `yaml:"topic"`           // 会话事件主题
	AutoCreateTopic bool     `yaml:"autoCreateTopic"` // 启动时自动创建主题
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。限流按客户端 IP 分别计数。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "tokenBucket", "fixedWindow"
	MaxClients  int               `yaml:"maxClients"`
	FixedWindow FixedWindowConfig `yaml:"fixedWindow"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Logger     LoggerConfig     `yaml:"logger"`
	Server     ServerConfig     `yaml:"server"`
	Ingestion  IngestionConfig  `yaml:"ingestion"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Session    SessionConfig    `yaml:"session"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

// Default 返回一个已填充全部默认值的配置。
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 为所有未设置的字段填充默认值。
func (c *AppConfig) ApplyDefaults() {
	setString(&c.App.Name, "docqa")
	setString(&c.App.Version, "dev")
	setString(&c.App.Environment, "development")
	setString(&c.Logger.Level, "info")

	setString(&c.Server.Address, ":8000")
	setString(&c.Server.UploadDir, os.TempDir())
	setInt(&c.Server.MaxUploadMB, 50)
	setString(&c.Server.ShutdownTimeout, "10s")

	setInt(&c.Ingestion.ChunkSize, 1000)
	setInt(&c.Ingestion.ChunkOverlap, 200)
	setInt(&c.Ingestion.CSVBatchRows, 100)
	setInt(&c.Ingestion.EncodingSniffBytes, 10000)
	setInt(&c.Ingestion.DocxSectionChars, 1000)
	setInt(&c.Ingestion.EmbedBatchSize, 64)
	setInt(&c.Ingestion.EmbedConcurrency, 4)

	setInt(&c.Retrieval.FullContextMaxChunks, 15)
	setInt(&c.Retrieval.BroadWidthCap, 15)
	if len(c.Retrieval.AugmentTerms) == 0 {
		c.Retrieval.AugmentTerms = []string{"main", "function", "key", "important", "overview", "content"}
	}
	setInt(&c.Retrieval.AugmentBatch, 3)
	setInt(&c.Retrieval.MinUniqueBroad, 5)
	if c.Retrieval.MinOverlap <= 0 {
		c.Retrieval.MinOverlap = 0.1
	}

	setString(&c.Embedding.Provider, "hashing")
	setInt(&c.Embedding.Dimensions, 256)
	setString(&c.LLM.Provider, "none")

	setString(&c.Kafka.Topic, "docqa_session_events")

	rl := &c.Middleware.RateLimiter
	setString(&rl.Algorithm, "tokenBucket")
	setInt(&rl.MaxClients, 10000)
	if rl.TokenBucket.Rate <= 0 {
		rl.TokenBucket.Rate = 5
	}
	setInt(&rl.TokenBucket.Capacity, 20)
	setInt(&rl.FixedWindow.Limit, 100)
	setString(&rl.FixedWindow.Window, "1m")

	cb := &c.Middleware.CircuitBreaker
	if cb.FailureThreshold == 0 {
		cb.FailureThreshold = 5
	}
	if cb.SuccessThreshold == 0 {
		cb.SuccessThreshold = 2
	}
	setString(&cb.Timeout, "30s")
}

// ApplyEnv 用环境变量覆盖密钥等敏感配置。只覆盖非空的环境变量。
func (c *AppConfig) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	override := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	override(&c.Logger.Level, "DOCQA_LOG_LEVEL")
	override(&c.Server.Address, "DOCQA_ADDRESS")
	override(&c.Server.GRPCAddress, "DOCQA_GRPC_ADDRESS")
	override(&c.Embedding.Provider, "DOCQA_EMBEDDING_PROVIDER")
	override(&c.LLM.Provider, "DOCQA_LLM_PROVIDER")

	for _, p := range []struct {
		provider string
		key      string
	}{
		{"openai", "OPENAI_API_KEY"},
		{"gemini", "GEMINI_API_KEY"},
		{"huggingface", "HUGGINGFACE_API_KEY"},
	} {
		if c.Embedding.Provider == p.provider && c.Embedding.APIKey == "" {
			override(&c.Embedding.APIKey, p.key)
		}
		if c.LLM.Provider == p.provider && c.LLM.APIKey == "" {
			override(&c.LLM.APIKey, p.key)
		}
	}
}

// Validate 检查配置之间的约束。
func (c *AppConfig) Validate() error {
	if c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("ingestion.chunkOverlap (%d) 必须在 [0, chunkSize=%d) 之间",
			c.Ingestion.ChunkOverlap, c.Ingestion.ChunkSize)
	}
	if c.Retrieval.MinOverlap > 1 {
		return fmt.Errorf("retrieval.minOverlap 必须在 (0, 1] 之间，当前为 %v", c.Retrieval.MinOverlap)
	}
	if c.Session.Capacity < 0 || c.Session.MaxChunks < 0 {
		return fmt.Errorf("session.capacity 和 session.maxChunks 不能为负数")
	}
	for name, d := range map[string]string{
		"server.shutdownTimeout":            c.Server.ShutdownTimeout,
		"session.ttl":                       c.Session.TTL,
		"middleware.circuitBreaker.timeout": c.Middleware.CircuitBreaker.Timeout,
	} {
		if _, err := parseDuration(d); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ShutdownTimeoutDuration 返回解析后的优雅关闭超时时间。
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	d, _ := parseDuration(s.ShutdownTimeout)
	return d
}

// TTLDuration 返回会话存活时间，0 表示永不过期。
func (s SessionConfig) TTLDuration() time.Duration {
	d, _ := parseDuration(s.TTL)
	return d
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件，然后填充默认值。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取、解析或校验失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}
	return &cfg, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func setString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if *dst <= 0 {
		*dst = v
	}
}
