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

// Config holds the newsrank service configuration. Keyword tables are part of
// the config and load once at startup; nothing reads them from disk per call.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Keywords  KeywordsConfig  `yaml:"keywords"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StorageConfig holds the embedded document store settings.
type StorageConfig struct {
	Path     string `yaml:"path"`      // badger directory
	InMemory bool   `yaml:"in_memory"` // ephemeral store, used by tests and demos
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"` // OpenAI-compatible endpoint
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	MaxChars   int    `yaml:"max_chars"` // input truncation before embedding
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
	// IncludeVectorOnly surfaces documents that matched only semantically.
	// Off in production: vector-only hits dilute precision.
	IncludeVectorOnly bool `yaml:"include_vector_only"`
}

// RankingConfig holds model artifact and training settings.
type RankingConfig struct {
	ArtifactPath       string  `yaml:"artifact_path"`
	BackupDir          string  `yaml:"backup_dir"`
	MinLabeledExamples int     `yaml:"min_labeled_examples"`
	Rounds             int     `yaml:"rounds"`
	LearningRate       float64 `yaml:"learning_rate"`
	NumLeaves          int     `yaml:"num_leaves"`
	MaxDepth           int     `yaml:"max_depth"`
	Seed               int64   `yaml:"seed"`
	EvalK              int     `yaml:"eval_k"` // NDCG@k on the validation groups
}

// SourceConfig is one news feed.
type SourceConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Enabled  *bool  `yaml:"enabled"` // nil means enabled
}

// IngestConfig holds the background ingestion settings.
type IngestConfig struct {
	IntervalSec        int            `yaml:"interval_sec"`
	InitialDelaySec    int            `yaml:"initial_delay_sec"`
	LimitPerSource     int            `yaml:"limit_per_source"`
	MaxConcurrentEmbed int            `yaml:"max_concurrent_embeddings"`
	MaxAgeDays         int            `yaml:"max_age_days"` // 0 keeps everything
	DedupeCapacity     int            `yaml:"dedupe_capacity"`
	DedupeTTLSec       int            `yaml:"dedupe_ttl_sec"`
	Sources            []SourceConfig `yaml:"sources"`
}

// EntityLexeme is one entry of the entity lexicon used by the built-in
// extractor: a canonical normalized form plus its surface aliases.
type EntityLexeme struct {
	Canonical string   `yaml:"canonical"`
	Type      string   `yaml:"type"` // person, organization, location
	Aliases   []string `yaml:"aliases"`
}

// KeywordsConfig holds the lexical tables. All of them ship with defaults
// mirroring the curated production lists; a config file may extend them.
type KeywordsConfig struct {
	PhraseSynonyms  map[string][]string `yaml:"phrase_synonyms"`
	Synonyms        map[string][]string `yaml:"synonyms"`
	StopWords       []string            `yaml:"stop_words"`
	HighAuthority   []string            `yaml:"high_authority_sources"`
	MediumAuthority []string            `yaml:"medium_authority_sources"`
	Critical        []string            `yaml:"critical_keywords"`
	High            []string            `yaml:"high_keywords"`
	Exclude         []string            `yaml:"exclude_keywords"`
	Banking         []string            `yaml:"banking_keywords"`
	Entities        []EntityLexeme      `yaml:"entities"`
	MorphForms      map[string][]string `yaml:"morph_forms"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", configPath, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
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
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8001
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/news"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "bge-m3"
	}
	if c.Embedding.MaxChars <= 0 {
		c.Embedding.MaxChars = 8000
	}
	if c.Search.DefaultTopK <= 0 {
		c.Search.DefaultTopK = 20
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 100
	}
	if c.Ranking.ArtifactPath == "" {
		c.Ranking.ArtifactPath = "data/ltr_model.json"
	}
	if c.Ranking.BackupDir == "" {
		c.Ranking.BackupDir = "data/backups"
	}
	if c.Ranking.MinLabeledExamples <= 0 {
		c.Ranking.MinLabeledExamples = 50
	}
	if c.Ranking.Rounds <= 0 {
		c.Ranking.Rounds = 200
	}
	if c.Ranking.LearningRate <= 0 {
		c.Ranking.LearningRate = 0.05
	}
	if c.Ranking.NumLeaves <= 0 {
		c.Ranking.NumLeaves = 31
	}
	if c.Ranking.MaxDepth <= 0 {
		c.Ranking.MaxDepth = 6
	}
	if c.Ranking.EvalK <= 0 {
		c.Ranking.EvalK = 10
	}
	if c.Ingest.IntervalSec <= 0 {
		c.Ingest.IntervalSec = 3600
	}
	if c.Ingest.InitialDelaySec <= 0 {
		c.Ingest.InitialDelaySec = 300
	}
	if c.Ingest.LimitPerSource <= 0 {
		c.Ingest.LimitPerSource = 50
	}
	if c.Ingest.MaxConcurrentEmbed <= 0 {
		c.Ingest.MaxConcurrentEmbed = 5
	}
	if c.Ingest.DedupeCapacity <= 0 {
		c.Ingest.DedupeCapacity = 10000
	}
	if c.Ingest.DedupeTTLSec <= 0 {
		c.Ingest.DedupeTTLSec = 86400
	}
	c.Keywords.applyDefaults()
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url is required")
	}
	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k %d exceeds max_top_k %d",
			c.Search.DefaultTopK, c.Search.MaxTopK)
	}
	for i, e := range c.Keywords.Entities {
		switch e.Type {
		case "person", "organization", "location":
		default:
			return fmt.Errorf("keywords.entities[%d].type must be person, organization or location, got %q", i, e.Type)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file: internal/config -> project root
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
