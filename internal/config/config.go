package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the ohadai retrieval API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Cache     CacheConfig     `yaml:"cache"`
	Lexical   LexicalConfig   `yaml:"lexical"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds document store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // openai (default)
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"`
}

// CorpusConfig holds corpus loading settings.
type CorpusConfig struct {
	Path      string `yaml:"path"`
	IndexName string `yaml:"index_name"`
}

// RetrievalConfig holds fusion pipeline settings.
type RetrievalConfig struct {
	LexicalWeight       float64 `yaml:"lexical_weight"`
	VectorWeight        float64 `yaml:"vector_weight"`
	Strategy            string  `yaml:"strategy"` // weighted (default), rrf
	CandidateMultiplier int     `yaml:"candidate_multiplier"`
	RerankTopN          int     `yaml:"rerank_top_n"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"`
	TTLSec     int  `yaml:"ttl_sec"`
}

// LexicalConfig holds BM25 parameters.
type LexicalConfig struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.CacheTTLSec <= 0 {
		c.Embedding.CacheTTLSec = 7 * 24 * 3600
	}
	if c.Corpus.IndexName == "" {
		c.Corpus.IndexName = "ohadai:idx"
	}
	if c.Retrieval.LexicalWeight == 0 && c.Retrieval.VectorWeight == 0 {
		c.Retrieval.LexicalWeight = 0.3
		c.Retrieval.VectorWeight = 0.7
	}
	if c.Retrieval.Strategy == "" {
		c.Retrieval.Strategy = "weighted"
	}
	if c.Retrieval.CandidateMultiplier <= 0 {
		c.Retrieval.CandidateMultiplier = 4
	}
	if c.Retrieval.RerankTopN <= 0 {
		c.Retrieval.RerankTopN = 10
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 512
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Lexical.K1 == 0 {
		c.Lexical.K1 = 1.2
	}
	if c.Lexical.B == 0 {
		c.Lexical.B = 0.75
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "memory":
		// no addresses needed
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	if c.Embedding.Provider != "openai" && c.Embedding.Provider != "none" {
		return fmt.Errorf("embedding.provider must be \"openai\" or \"none\", got %q", c.Embedding.Provider)
	}
	if c.Retrieval.LexicalWeight < 0 || c.Retrieval.VectorWeight < 0 {
		return fmt.Errorf("retrieval weights must be non-negative, got lexical=%g vector=%g",
			c.Retrieval.LexicalWeight, c.Retrieval.VectorWeight)
	}
	if c.Retrieval.LexicalWeight+c.Retrieval.VectorWeight == 0 {
		return fmt.Errorf("at least one retrieval weight must be positive")
	}
	switch c.Retrieval.Strategy {
	case "weighted", "rrf":
		// ok
	default:
		return fmt.Errorf("retrieval.strategy must be \"weighted\" or \"rrf\", got %q", c.Retrieval.Strategy)
	}
	if c.Lexical.K1 < 0 {
		return fmt.Errorf("lexical.k1 must be non-negative, got %g", c.Lexical.K1)
	}
	if c.Lexical.B < 0 || c.Lexical.B > 1 {
		return fmt.Errorf("lexical.b must be in [0, 1], got %g", c.Lexical.B)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
