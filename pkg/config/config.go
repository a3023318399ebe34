package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultSentinel marks the line of model output that carries the generated query.
const DefaultSentinel = "Cypher Query: "

// Config holds all configuration for ekaya-cypher-eval.
// Configuration can come from a YAML file or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// AllowedOrigins is a comma-separated CORS allow list for the chat API.
	AllowedOrigins string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-default:"http://127.0.0.1:8080,http://localhost:8080"`

	Neo4j     Neo4jConfig     `yaml:"neo4j"`
	LLM       LLMConfig       `yaml:"llm"`
	Judge     JudgeConfig     `yaml:"judge"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Eval      EvalConfig      `yaml:"eval"`
	Dataset   DatasetConfig   `yaml:"dataset"`

	// Database is the optional PostgreSQL store for evaluation runs.
	Database DatabaseConfig `yaml:"database"`

	// Redis is the optional judge score cache.
	Redis RedisConfig `yaml:"redis"`

	Metrics MetricsConfig `yaml:"metrics"`

	OpenAIAPIKey    string `yaml:"-" env:"OPENAI_API_KEY"`    // Secret - not in YAML
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
	GeminiAPIKey    string `yaml:"-" env:"GEMINI_API_KEY"`    // Secret - not in YAML
}

// Neo4jConfig holds graph store connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri" env:"NEO4J_URI" env-default:"bolt://localhost:7687"`
	User     string `yaml:"user" env:"NEO4J_USER" env-default:"neo4j"`
	Password string `yaml:"-" env:"NEO4J_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"NEO4J_DATABASE" env-default:"neo4j"`
	// MaxConnections sizes the driver pool. Zero means "match eval.workers".
	MaxConnections int `yaml:"max_connections" env:"NEO4J_MAX_CONNECTIONS" env-default:"0"`
}

// ProviderConfig selects a model behind one of the supported LLM providers.
type ProviderConfig struct {
	Provider    string
	Endpoint    string
	Model       string
	Temperature float64
	MaxTokens   int
}

// LLMConfig configures the model that generates queries and chat answers.
type LLMConfig struct {
	Provider    string  `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint    string  `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	Model       string  `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o"`
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`
	MaxTokens   int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"1024"`
}

// ProviderConfig returns the generic provider view of the generator settings.
func (c LLMConfig) ProviderConfig() ProviderConfig {
	return ProviderConfig{Provider: c.Provider, Endpoint: c.Endpoint, Model: c.Model, Temperature: c.Temperature, MaxTokens: c.MaxTokens}
}

// JudgeConfig configures the relevancy and correctness judge.
type JudgeConfig struct {
	Provider    string  `yaml:"provider" env:"JUDGE_PROVIDER" env-default:"openai"`
	Endpoint    string  `yaml:"endpoint" env:"JUDGE_ENDPOINT" env-default:""`
	Model       string  `yaml:"model" env:"JUDGE_MODEL" env-default:"gpt-4o"`
	Temperature float64 `yaml:"temperature" env:"JUDGE_TEMPERATURE" env-default:"0"`
	MaxTokens   int     `yaml:"max_tokens" env:"JUDGE_MAX_TOKENS" env-default:"512"`

	MaxRetries       int           `yaml:"max_retries" env:"JUDGE_MAX_RETRIES" env-default:"3"`
	CircuitThreshold int           `yaml:"circuit_threshold" env:"JUDGE_CIRCUIT_THRESHOLD" env-default:"5"`
	CircuitReset     time.Duration `yaml:"circuit_reset" env:"JUDGE_CIRCUIT_RESET" env-default:"30s"`
	CacheTTL         time.Duration `yaml:"cache_ttl" env:"JUDGE_CACHE_TTL" env-default:"168h"`
}

// ProviderConfig returns the generic provider view of the judge settings.
func (c JudgeConfig) ProviderConfig() ProviderConfig {
	return ProviderConfig{Provider: c.Provider, Endpoint: c.Endpoint, Model: c.Model, Temperature: c.Temperature, MaxTokens: c.MaxTokens}
}

// EmbeddingConfig configures the embedding model used by the retrieval index.
type EmbeddingConfig struct {
	Provider string `yaml:"provider" env:"EMBEDDING_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"EMBEDDING_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	// Dimensions must match the model output; vector stores create their index with it.
	Dimensions int `yaml:"dimensions" env:"EMBEDDING_DIMENSIONS" env-default:"1536"`
}

// RetrievalConfig selects and configures the vector store behind the RAG strategy.
type RetrievalConfig struct {
	Backend    string `yaml:"backend" env:"RETRIEVAL_BACKEND" env-default:"memory"`
	TopK       int    `yaml:"top_k" env:"RETRIEVAL_TOP_K" env-default:"3"`
	Collection string `yaml:"collection" env:"RETRIEVAL_COLLECTION" env-default:"cypher_examples"`

	QdrantHost   string `yaml:"qdrant_host" env:"QDRANT_HOST" env-default:"localhost"`
	QdrantPort   int    `yaml:"qdrant_port" env:"QDRANT_PORT" env-default:"6334"`
	QdrantUseTLS bool   `yaml:"qdrant_use_tls" env:"QDRANT_USE_TLS" env-default:"false"`
	QdrantAPIKey string `yaml:"-" env:"QDRANT_API_KEY"` // Secret - not in YAML

	RedisIndexPrefix string `yaml:"redis_index_prefix" env:"RETRIEVAL_REDIS_PREFIX" env-default:"example:"`
}

// EvalConfig controls the evaluation runner.
type EvalConfig struct {
	Workers        int           `yaml:"workers" env:"EVAL_WORKERS" env-default:"4"`
	ExampleTimeout time.Duration `yaml:"example_timeout" env:"EVAL_EXAMPLE_TIMEOUT" env-default:"60s"`
	Sentinel       string        `yaml:"sentinel" env:"EVAL_SENTINEL"` // Defaults to DefaultSentinel
	OutputDir      string        `yaml:"output_dir" env:"EVAL_OUTPUT_DIR" env-default:"data"`
	SummaryFile    string        `yaml:"summary_file" env:"EVAL_SUMMARY_FILE" env-default:"evaluation_summary.txt"`
	RankBy         string        `yaml:"rank_by" env:"EVAL_RANK_BY" env-default:"answer_correctness"`
	Strategies     string        `yaml:"strategies" env:"EVAL_STRATEGIES" env-default:"no_context,few_shot,rag"`
}

// StrategyList returns the configured strategy names.
func (c EvalConfig) StrategyList() []string {
	return splitList(c.Strategies)
}

// DatasetConfig locates the evaluation data files.
type DatasetConfig struct {
	Dir           string  `yaml:"dir" env:"DATASET_DIR" env-default:"data"`
	Source        string  `yaml:"source" env:"DATASET_SOURCE" env-default:"cypher_eval_with_results.csv"`
	Queries       string  `yaml:"queries" env:"DATASET_QUERIES" env-default:"cypher_eval.csv"`
	TrainFile     string  `yaml:"train_file" env:"DATASET_TRAIN_FILE" env-default:"train_data.csv"`
	TestFile      string  `yaml:"test_file" env:"DATASET_TEST_FILE" env-default:"test_data.csv"`
	TestSize      float64 `yaml:"test_size" env:"DATASET_TEST_SIZE" env-default:"0.3"`
	Seed          int64   `yaml:"seed" env:"DATASET_SEED" env-default:"42"`
	ShipmentsFile string  `yaml:"shipments_file" env:"DATASET_SHIPMENTS_FILE" env-default:"shipments.json"`
}

// DatabaseConfig holds PostgreSQL configuration for persisted runs.
// Persistence is disabled when Host is empty.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:""`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_cypher_eval"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// Enabled reports whether a results database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration for the judge cache and the redis vector backend.
// The cache is disabled when Host is empty.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Enabled reports whether Redis is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// MetricsConfig controls the Prometheus endpoint of the serve command.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Path    string `yaml:"path" env:"METRICS_PATH" env-default:"/metrics"`
}

var (
	validProviders = map[string]bool{"openai": true, "anthropic": true, "gemini": true}
	validBackends  = map[string]bool{"memory": true, "qdrant": true, "redis": true}
)

// Load reads configuration from the YAML file at path with environment variable overrides.
// When the file does not exist only the environment and defaults are used.
// The version parameter is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(statErr, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	if cfg.Eval.Sentinel == "" {
		cfg.Eval.Sentinel = DefaultSentinel
	}
	if cfg.Neo4j.MaxConnections < cfg.Eval.Workers {
		cfg.Neo4j.MaxConnections = cfg.Eval.Workers
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate checks values cleanenv cannot express as tags.
func (c *Config) validate() error {
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	if !validProviders[c.Judge.Provider] {
		return fmt.Errorf("unsupported judge provider %q", c.Judge.Provider)
	}
	if c.Embedding.Provider != "openai" && c.Embedding.Provider != "gemini" {
		return fmt.Errorf("unsupported embedding provider %q", c.Embedding.Provider)
	}
	if !validBackends[c.Retrieval.Backend] {
		return fmt.Errorf("unsupported retrieval backend %q", c.Retrieval.Backend)
	}
	if c.Retrieval.Backend == "redis" && !c.Redis.Enabled() {
		return fmt.Errorf("retrieval backend redis requires redis.host")
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK)
	}
	if c.Eval.Workers < 1 {
		return fmt.Errorf("eval.workers must be at least 1, got %d", c.Eval.Workers)
	}
	if c.Eval.ExampleTimeout <= 0 {
		return fmt.Errorf("eval.example_timeout must be positive")
	}
	if c.Dataset.TestSize <= 0 || c.Dataset.TestSize >= 1 {
		return fmt.Errorf("dataset.test_size must be between 0 and 1, got %v", c.Dataset.TestSize)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	if c.Embedding.Dimensions < 1 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	return nil
}

// AllowedOriginList returns the parsed CORS allow list.
func (c *Config) AllowedOriginList() []string {
	return splitList(c.AllowedOrigins)
}

// APIKey returns the credential for the named provider.
func (c *Config) APIKey(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return ""
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
