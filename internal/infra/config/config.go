package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	LLM         LLMConfig         `yaml:"llm"`
	FAQ         FAQConfig         `yaml:"faq"`
	VectorStore VectorStoreConfig `yaml:"vectorStore"`
	Auth        AuthConfig        `yaml:"auth"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LLMConfig contains settings for the OpenAI-compatible endpoint (OpenAI, Ollama).
type LLMConfig struct {
	APIKey         string  `yaml:"apiKey"`
	BaseURL        string  `yaml:"baseUrl"`
	Model          string  `yaml:"model"`
	EmbeddingModel string  `yaml:"embeddingModel"`
	Temperature    float32 `yaml:"temperature"`
}

// FAQConfig controls the chatbot.
type FAQConfig struct {
	Tiers              TiersConfig     `yaml:"tiers"`
	DistanceThreshold  float64         `yaml:"distanceThreshold"`
	GenerativeTimeout  time.Duration   `yaml:"generativeTimeout"`
	TopK               int             `yaml:"topK"`
	MaxContextTokens   int             `yaml:"maxContextTokens"`
	TokenEncoding      string          `yaml:"tokenEncoding"`
	Prompt             string          `yaml:"prompt"`
	UngroundedSentinel string          `yaml:"ungroundedSentinel"`
	Messages           MessagesConfig  `yaml:"messages"`
	WriteBack          WriteBackConfig `yaml:"writeBack"`
	RefreshInterval    time.Duration   `yaml:"refreshInterval"`
	TopRecommendations int             `yaml:"topRecommendations"`
	MaxGenerate        int             `yaml:"maxGenerate"`
	Redis              RedisConfig     `yaml:"redis"`
	Postgres           PostgresConfig  `yaml:"postgres"`
	SQLite             SQLiteConfig    `yaml:"sqlite"`
	Seed               SeedConfig      `yaml:"seed"`
	Generator          GeneratorConfig `yaml:"generator"`
}

// TiersConfig enables the answering strategies.
type TiersConfig struct {
	KNN        bool `yaml:"knn"`
	Generative bool `yaml:"generative"`
}

// MessagesConfig overrides the fixed Spanish replies. Empty fields keep the defaults.
type MessagesConfig struct {
	InternalError     string `yaml:"internalError"`
	GenerativeFailure string `yaml:"generativeFailure"`
	NoAnswer          string `yaml:"noAnswer"`
	EmptyQuestion     string `yaml:"emptyQuestion"`
}

// WriteBackConfig controls the learning loop.
type WriteBackConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Async             bool   `yaml:"async"`
	PersistUngrounded bool   `yaml:"persistUngrounded"`
	QueueKey          string `yaml:"queueKey"`
}

// RedisConfig contains connection information for trending counters and the write-back queue.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// SQLiteConfig points at an embedded database file used when no Postgres DSN is set.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// SeedConfig names the CSV used to populate an empty FAQ table.
type SeedConfig struct {
	Path string   `yaml:"path"`
	R2   R2Config `yaml:"r2"`
}

// R2Config locates a seed object in R2 or any S3-compatible store.
type R2Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Key       string `yaml:"key"`
}

// GeneratorConfig tunes synthetic FAQ generation.
type GeneratorConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Prompt      string   `yaml:"prompt"`
	Topics      []string `yaml:"topics"`
	TopK        int      `yaml:"topK"`
	MaxAttempts int      `yaml:"maxAttempts"`
	Temperature float32  `yaml:"temperature"`
}

// VectorStoreConfig selects the passage retriever backing the generative tier.
type VectorStoreConfig struct {
	Provider      string `yaml:"provider"`
	Table         string `yaml:"table"`
	Dimensions    int    `yaml:"dimensions"`
	PassagesPath  string `yaml:"passagesPath"`
	ChunkWords    int    `yaml:"chunkWords"`
	ChunkOverlap  int    `yaml:"chunkOverlap"`
	HashEmbedding bool   `yaml:"hashEmbedding"`
}

// AuthConfig configures the admin login.
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"tokenTtl"`
	Admins   []AdminConfig `yaml:"admins"`
}

// AdminConfig is one operator account; PasswordHash is a bcrypt hash.
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"passwordHash"`
}

// Vector store providers.
const (
	VectorStoreMemory   = "memory"
	VectorStorePgvector = "pgvector"
)

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("FAQ_KNN_ENABLED"); v != "" {
		cfg.FAQ.Tiers.KNN = parseBool(v)
	}
	if v := os.Getenv("FAQ_GENERATIVE_ENABLED"); v != "" {
		cfg.FAQ.Tiers.Generative = parseBool(v)
	}
	if v := os.Getenv("FAQ_DISTANCE_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FAQ.DistanceThreshold = parsed
		}
	}
	if v := os.Getenv("FAQ_GENERATIVE_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.FAQ.GenerativeTimeout = parsed
		}
	}
	if v := os.Getenv("FAQ_TOP_K"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.TopK = parsed
		}
	}
	if v := os.Getenv("FAQ_PROMPT"); v != "" {
		cfg.FAQ.Prompt = v
	}
	if v := os.Getenv("FAQ_WRITE_BACK_ENABLED"); v != "" {
		cfg.FAQ.WriteBack.Enabled = parseBool(v)
	}
	if v := os.Getenv("FAQ_WRITE_BACK_ASYNC"); v != "" {
		cfg.FAQ.WriteBack.Async = parseBool(v)
	}
	if v := os.Getenv("FAQ_REFRESH_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.FAQ.RefreshInterval = parsed
		}
	}
	if v := os.Getenv("FAQ_RECOMMENDATIONS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.TopRecommendations = parsed
		}
	}
	if v := os.Getenv("FAQ_REDIS_ENABLED"); v != "" {
		cfg.FAQ.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("FAQ_REDIS_ADDR"); v != "" {
		cfg.FAQ.Redis.Addr = v
	}
	if v := os.Getenv("FAQ_POSTGRES_DSN"); v != "" {
		cfg.FAQ.Postgres.DSN = v
	}
	if v := os.Getenv("FAQ_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("FAQ_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.FAQ.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("FAQ_SQLITE_PATH"); v != "" {
		cfg.FAQ.SQLite.Path = v
	}
	if v := os.Getenv("FAQ_SEED_PATH"); v != "" {
		cfg.FAQ.Seed.Path = v
	}
	if v := os.Getenv("R2_ENDPOINT"); v != "" {
		cfg.FAQ.Seed.R2.Endpoint = v
	}
	if v := os.Getenv("R2_ACCESS_KEY"); v != "" {
		cfg.FAQ.Seed.R2.AccessKey = v
	}
	if v := os.Getenv("R2_SECRET_KEY"); v != "" {
		cfg.FAQ.Seed.R2.SecretKey = v
	}
	if v := os.Getenv("R2_BUCKET"); v != "" {
		cfg.FAQ.Seed.R2.Bucket = v
	}
	if v := os.Getenv("R2_SEED_KEY"); v != "" {
		cfg.FAQ.Seed.R2.Key = v
	}
	if v := os.Getenv("VECTOR_STORE_PROVIDER"); v != "" {
		cfg.VectorStore.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("VECTOR_STORE_PASSAGES_PATH"); v != "" {
		cfg.VectorStore.PassagesPath = v
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("AUTH_TOKEN_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Retry.BaseBackoff = parsed
		}
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/api/v1/chat",
					"/api/v1/admin/faq/generate",
					"/api/v1/admin/faq/import",
				},
			},
		},
		LLM: LLMConfig{
			BaseURL:        "http://localhost:11434/v1",
			Model:          "llama3",
			EmbeddingModel: "nomic-embed-text",
			Temperature:    0.2,
		},
		FAQ: FAQConfig{
			Tiers: TiersConfig{
				KNN:        true,
				Generative: true,
			},
			DistanceThreshold:  faq.DefaultDistanceThreshold,
			GenerativeTimeout:  faq.DefaultGenerativeTimeout,
			TopK:               faq.DefaultTopK,
			MaxContextTokens:   3000,
			TokenEncoding:      "cl100k_base",
			Prompt:             faq.DefaultPrompt,
			UngroundedSentinel: faq.DefaultUngroundedAnswer,
			WriteBack: WriteBackConfig{
				Enabled:  true,
				QueueKey: "faqbot:writeback",
			},
			TopRecommendations: 10,
			MaxGenerate:        50,
			Redis: RedisConfig{
				Prefix: "faqbot",
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
			Generator: GeneratorConfig{
				Enabled:     true,
				TopK:        faq.DefaultGeneratorTopK,
				Temperature: 0.7,
			},
		},
		VectorStore: VectorStoreConfig{
			Provider:     VectorStoreMemory,
			Table:        "knowledge_passages",
			Dimensions:   768,
			PassagesPath: "data/documents",
			ChunkWords:   200,
			ChunkOverlap: 40,
		},
		Auth: AuthConfig{
			TokenTTL: 12 * time.Hour,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.FAQ.DistanceThreshold < 0 || c.FAQ.DistanceThreshold > 1 {
		return errors.New("faq.distanceThreshold must be within [0, 1]")
	}
	if c.FAQ.GenerativeTimeout <= 0 {
		return errors.New("faq.generativeTimeout must be positive")
	}
	if c.FAQ.TopK <= 0 {
		return errors.New("faq.topK must be positive")
	}
	if c.FAQ.MaxContextTokens < 0 {
		return errors.New("faq.maxContextTokens cannot be negative")
	}
	if c.FAQ.Tiers.Generative && strings.TrimSpace(c.FAQ.Prompt) == "" {
		return errors.New("faq.prompt cannot be empty when the generative tier is enabled")
	}
	if c.FAQ.RefreshInterval < 0 {
		return errors.New("faq.refreshInterval cannot be negative")
	}
	if c.FAQ.TopRecommendations < 0 {
		return errors.New("faq.topRecommendations cannot be negative")
	}
	if c.FAQ.MaxGenerate < 0 {
		return errors.New("faq.maxGenerate cannot be negative")
	}
	if c.FAQ.Redis.Enabled && strings.TrimSpace(c.FAQ.Redis.Addr) == "" {
		return errors.New("faq.redis.addr cannot be empty when redis is enabled")
	}
	if c.FAQ.Seed.Path != "" && c.FAQ.Seed.R2.Bucket != "" {
		return errors.New("faq.seed.path and faq.seed.r2 are mutually exclusive")
	}
	if c.FAQ.Seed.R2.Bucket != "" && strings.TrimSpace(c.FAQ.Seed.R2.Key) == "" {
		return errors.New("faq.seed.r2.key cannot be empty when a bucket is set")
	}
	switch c.VectorStore.Provider {
	case VectorStoreMemory:
	case VectorStorePgvector:
		if strings.TrimSpace(c.FAQ.Postgres.DSN) == "" {
			return errors.New("vectorStore.provider pgvector requires faq.postgres.dsn")
		}
		if c.VectorStore.Dimensions <= 0 {
			return errors.New("vectorStore.dimensions must be positive")
		}
	default:
		return fmt.Errorf("vectorStore.provider %q is not supported", c.VectorStore.Provider)
	}
	if !c.VectorStore.HashEmbedding && strings.TrimSpace(c.LLM.EmbeddingModel) == "" {
		return errors.New("llm.embeddingModel cannot be empty")
	}
	if len(c.Auth.Admins) > 0 && len(c.Auth.Secret) < 16 {
		return errors.New("auth.secret must be at least 16 characters when admins are configured")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.tokenTtl must be positive")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}

// SelectorConfig maps the faq section onto the selection policy.
func (c FAQConfig) SelectorConfig() faq.SelectorConfig {
	return faq.SelectorConfig{
		Tiers:              faq.Tiers{KNN: c.Tiers.KNN, Generative: c.Tiers.Generative},
		DistanceThreshold:  c.DistanceThreshold,
		GenerativeTimeout:  c.GenerativeTimeout,
		UngroundedSentinel: c.UngroundedSentinel,
		Messages:           c.messages(),
	}
}

// ServiceConfig maps the faq section onto the service knobs.
func (c FAQConfig) ServiceConfig() faq.Config {
	return faq.Config{
		TopRecommendations: c.TopRecommendations,
		WriteBack: faq.WriteBackConfig{
			Enabled:           c.WriteBack.Enabled,
			Async:             c.WriteBack.Async,
			PersistUngrounded: c.WriteBack.PersistUngrounded,
		},
		Messages:        c.messages(),
		RefreshInterval: c.RefreshInterval,
		MaxGenerate:     c.MaxGenerate,
	}
}

func (c FAQConfig) messages() faq.Messages {
	return faq.Messages{
		InternalError:     c.Messages.InternalError,
		GenerativeFailure: c.Messages.GenerativeFailure,
		NoAnswer:          c.Messages.NoAnswer,
		EmptyQuestion:     c.Messages.EmptyQuestion,
	}
}
