package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingEnv reports a required environment variable that is unset.
var ErrMissingEnv = errors.New("missing required environment variable")

// Config holds all application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Vector   VectorConfig   `mapstructure:"vector"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Splitter SplitterConfig `mapstructure:"splitter"`
	Rerank   RerankConfig   `mapstructure:"rerank"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Server   ServerConfig   `mapstructure:"server"`
	Hello    HelloConfig    `mapstructure:"hello"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	EmbedModel  string  `mapstructure:"embed_model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	// Zero disables the retry wrapper.
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type VectorConfig struct {
	Backend     string `mapstructure:"backend"` // qdrant, pgvector, memory
	URL         string `mapstructure:"url"`
	APIKey      string `mapstructure:"api_key"`
	GRPCPort    int    `mapstructure:"grpc_port"`
	Collection  string `mapstructure:"collection"`
	TopK        int    `mapstructure:"top_k"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type GitHubConfig struct {
	Username   string   `mapstructure:"username"`
	Token      string   `mapstructure:"token"`
	Extensions []string `mapstructure:"extensions"`
	// RequestsPerSecond paces API calls; zero means unlimited.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type SplitterConfig struct {
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	Encoding     string `mapstructure:"encoding"`
}

type RerankConfig struct {
	// Model is a Hugging Face cross-encoder id. Empty or "none" keeps
	// vector-score order.
	Model    string `mapstructure:"model"`
	ModelDir string `mapstructure:"model_dir"`
	TopN     int    `mapstructure:"top_n"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	OpsAddr string `mapstructure:"ops_addr"`
}

type HelloConfig struct {
	Title   string `mapstructure:"title"`
	Version string `mapstructure:"version"`
	Addr    string `mapstructure:"addr"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Mode selects which process a configuration is validated for.
type Mode int

const (
	ModeServe Mode = iota
	ModeIngest
)

// envBindings maps config keys onto the unprefixed variables the deployment
// manifests already use.
var envBindings = map[string]string{
	"llm.api_key":       "OPENAI_API_KEY",
	"vector.collection": "COLLECTION_NAME",
	"vector.url":        "QDRANT_URL",
	"vector.api_key":    "QDRANT_API_KEY",
	"github.username":   "GITHUB_USERNAME",
	"github.token":      "ACCESS_TOKEN",
	"hello.title":       "PROJECT_TITLE",
	"hello.version":     "PROJECT_VERSION",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.embed_model", "text-embedding-ada-002")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.timeout", time.Duration(0))
	v.SetDefault("llm.max_retries", 0)

	v.SetDefault("vector.backend", "qdrant")
	v.SetDefault("vector.url", "")
	v.SetDefault("vector.api_key", "")
	v.SetDefault("vector.grpc_port", 6334)
	v.SetDefault("vector.collection", "")
	v.SetDefault("vector.top_k", 2)
	v.SetDefault("vector.postgres_dsn", "")

	v.SetDefault("github.username", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.extensions", []string{".py"})
	v.SetDefault("github.requests_per_second", 0.0)

	v.SetDefault("splitter.chunk_size", 1500)
	v.SetDefault("splitter.chunk_overlap", 200)
	v.SetDefault("splitter.encoding", "cl100k_base")

	v.SetDefault("rerank.model", "cross-encoder/ms-marco-MiniLM-L-2-v2")
	v.SetDefault("rerank.model_dir", "./models")
	v.SetDefault("rerank.top_n", 3)

	v.SetDefault("graph.uri", "")
	v.SetDefault("graph.username", "neo4j")
	v.SetDefault("graph.password", "")

	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "codefinder-ingest")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.ops_addr", ":8081")

	v.SetDefault("hello.title", "Hello API")
	v.SetDefault("hello.version", "0.1.0")
	v.SetDefault("hello.addr", ":8080")

	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "pretty")
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("LLM temperature %.2f is outside recommended range [0.0, 2.0]", c.LLM.Temperature))
	}

	if c.LLM.MaxTokens < 0 {
		warnings = append(warnings, fmt.Sprintf("LLM max_tokens %d is negative", c.LLM.MaxTokens))
	}

	if c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize && c.Splitter.ChunkSize > 0 {
		warnings = append(warnings, fmt.Sprintf("splitter chunk_overlap %d is not smaller than chunk_size %d", c.Splitter.ChunkOverlap, c.Splitter.ChunkSize))
	}

	switch c.Vector.Backend {
	case "", "qdrant", "pgvector", "memory":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown vector backend %q", c.Vector.Backend))
	}

	return warnings
}

// Overrides carries command-line flags that take precedence over the config
// file and the environment. Empty fields leave the loaded value alone.
type Overrides struct {
	Backend  string
	Username string
}

// Apply copies the non-empty overrides onto c. Call it before Require so
// the checks see the effective values.
func (c *Config) Apply(o Overrides) {
	if o.Backend != "" {
		c.Vector.Backend = o.Backend
	}
	if o.Username != "" {
		c.GitHub.Username = o.Username
	}
}

// Require reports every required variable that is missing for the given
// process mode.
func (c *Config) Require(mode Mode) error {
	var errs []error
	missing := func(name string) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissingEnv, name))
	}

	if c.LLM.APIKey == "" {
		missing("OPENAI_API_KEY")
	}
	if c.Vector.Collection == "" {
		missing("COLLECTION_NAME")
	}
	switch c.Vector.Backend {
	case "", "qdrant":
		if c.Vector.URL == "" {
			missing("QDRANT_URL")
		}
	case "pgvector":
		if c.Vector.PostgresDSN == "" {
			missing("CODEFINDER_VECTOR_POSTGRES_DSN")
		}
	}
	if mode == ModeIngest {
		if c.GitHub.Username == "" {
			missing("GITHUB_USERNAME")
		}
		if c.GitHub.Token == "" {
			missing("ACCESS_TOKEN")
		}
	}
	return errors.Join(errs...)
}

// Load reads configuration from an optional .env file, an optional config
// file and the environment. An empty path skips the config file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("CODEFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
