package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/andratr/bmtool1/domain"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yml
var defaultRules []byte

// Config is the full application configuration.
type Config struct {
	HTTP        HTTPConfig          `yaml:"http"`
	Logging     LoggingConfig       `yaml:"logging"`
	Embedding   EmbeddingConfig     `yaml:"embedding"`
	Providers   ProvidersConfig     `yaml:"providers"`
	Qdrant      QdrantConfig        `yaml:"qdrant"`
	Weaviate    WeaviateConfig      `yaml:"weaviate"`
	Experiments ExperimentsConfig   `yaml:"experiments"`
	Ingestion   IngestionConfig     `yaml:"ingestion"`
	Carbon      domain.CarbonConfig `yaml:"carbon"`
	Rules       RulesConfig         `yaml:"rules"`

	// Path is the YAML file the configuration was read from, if any.
	Path string `yaml:"-"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
	// Traces writes finished otel spans to stderr.
	Traces bool `yaml:"traces"`
}

// EmbeddingConfig selects the embedding backend shared by ingestion and
// retrieval. Dimensions must match the model's output size.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions uint64 `yaml:"dimensions"`
}

// ProviderConfig configures one chat provider. A provider without the
// credentials it needs is not registered.
type ProviderConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseUrl,omitempty"`
}

type ProvidersConfig struct {
	Default    string         `yaml:"default"`
	Ollama     ProviderConfig `yaml:"ollama"`
	OpenAI     ProviderConfig `yaml:"openai"`
	Anthropic  ProviderConfig `yaml:"anthropic"`
	OpenRouter ProviderConfig `yaml:"openrouter"`
	Gemini     ProviderConfig `yaml:"gemini"`
}

// ModelFor returns the configured chat model of provider, or "" for an
// unknown provider.
func (p ProvidersConfig) ModelFor(provider string) string {
	switch provider {
	case "ollama":
		return p.Ollama.Model
	case "openai":
		return p.OpenAI.Model
	case "anthropic":
		return p.Anthropic.Model
	case "openrouter":
		return p.OpenRouter.Model
	case "gemini":
		return p.Gemini.Model
	}
	return ""
}

type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
}

type WeaviateConfig struct {
	Host   string `yaml:"host"`
	Scheme string `yaml:"scheme"`
	Class  string `yaml:"class"`
}

// ExperimentsConfig configures the experiment store. An empty DSN
// disables persistence.
type ExperimentsConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"maxConns"`
}

type IngestionConfig struct {
	Workers int `yaml:"workers"`
}

// RulesConfig points at a mapping rules file. Without a path the built-in
// rules are used.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		HTTP:    HTTPConfig{Addr: ":8090"},
		Logging: LoggingConfig{Level: "info"},
		Embedding: EmbeddingConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		},
		Providers: ProvidersConfig{
			Default:    "ollama",
			Ollama:     ProviderConfig{BaseURL: "http://localhost:11434", Model: "llama3.1"},
			OpenAI:     ProviderConfig{Model: "gpt-4o-mini"},
			Anthropic:  ProviderConfig{Model: "claude-3-5-haiku-latest"},
			OpenRouter: ProviderConfig{Model: "openai/gpt-4o-mini", BaseURL: "https://openrouter.ai/api/v1"},
			Gemini:     ProviderConfig{Model: "gemini-2.0-flash"},
		},
		Qdrant:      QdrantConfig{Addr: "localhost:6334", Collection: "plsql_java_mappings"},
		Weaviate:    WeaviateConfig{Host: "localhost:8080", Scheme: "http", Class: "FrameworkSymbol"},
		Experiments: ExperimentsConfig{MaxConns: 5},
		Ingestion:   IngestionConfig{Workers: 2},
		Carbon:      domain.DefaultCarbonConfig(),
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and environment variables, in that order. Variables from
// .env.local are loaded into the environment first when the file exists.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env.local")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Path = path
	}
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.Providers.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	setString(&c.Providers.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	setString(&c.Providers.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Providers.Ollama.BaseURL, "OLLAMA_URL")
	setString(&c.Qdrant.Addr, "QDRANT_ADDR")
	setString(&c.Weaviate.Host, "WEAVIATE_HOST")
	setString(&c.Experiments.DSN, "EXPERIMENTS_DSN")
	setString(&c.Logging.Level, "BMTOOL_LOG_LEVEL")
	setString(&c.HTTP.Addr, "BMTOOL_HTTP_ADDR")

	if v := os.Getenv("BMTOOL_TRACES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.Traces = b
		} else {
			log.Warn().Str("value", v).Msg("ignoring invalid BMTOOL_TRACES")
		}
	}

	if v := os.Getenv("BMTOOL_INGEST_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Ingestion.Workers = n
		} else {
			log.Warn().Str("value", v).Msg("ignoring invalid BMTOOL_INGEST_WORKERS")
		}
	}
}

func setString(dst *string, env string) {
	if v, ok := os.LookupEnv(env); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func (c *Config) validate() error {
	var problems []string
	if c.Embedding.Dimensions == 0 {
		problems = append(problems, "embedding.dimensions must be positive")
	}
	switch c.Embedding.Provider {
	case "ollama", "openai", "gemini":
	default:
		problems = append(problems, fmt.Sprintf("embedding.provider %q is not one of ollama, openai, gemini", c.Embedding.Provider))
	}
	if c.Ingestion.Workers < 1 {
		problems = append(problems, "ingestion.workers must be at least 1")
	}
	if c.Experiments.MaxConns < 0 {
		problems = append(problems, "experiments.maxConns must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

type rulesFile struct {
	Rules []domain.MappingRule `yaml:"rules"`
}

// LoadRules reads and compiles the mapping rules. A configured rules path
// replaces the built-in rules entirely.
func (c *Config) LoadRules() (*domain.RuleSet, error) {
	data, source := defaultRules, "built-in rules"
	if c.Rules.Path != "" {
		var err error
		if data, err = os.ReadFile(c.Rules.Path); err != nil {
			return nil, fmt.Errorf("read rules: %w", err)
		}
		source = c.Rules.Path
	}
	return ParseRules(data, source)
}

// ParseRules decodes a rules document and validates every rule.
func ParseRules(data []byte, source string) (*domain.RuleSet, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("%s: no rules defined", source)
	}
	rules, err := domain.NewRuleSet(f.Rules)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	log.Debug().Str("source", source).Int("rules", rules.Len()).Msg("mapping rules loaded")
	return rules, nil
}

// WatchedFiles lists the files whose change requires a restart.
func (c *Config) WatchedFiles() []string {
	var out []string
	if c.Path != "" {
		out = append(out, c.Path)
	}
	if c.Rules.Path != "" {
		out = append(out, c.Rules.Path)
	}
	return out
}
