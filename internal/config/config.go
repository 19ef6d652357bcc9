// Package config loads voltcat configuration from YAML with environment
// overrides for credentials and file locations.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all voltcat configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM backend configuration
	LLM LLMConfig `yaml:"llm"`

	// Catalog store configuration
	Catalog CatalogConfig `yaml:"catalog"`

	// Optional embedding engine for semantic retrieval
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the model gateway.
type LLMConfig struct {
	Provider        string `yaml:"provider"` // gemini
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	BaseURL         string `yaml:"base_url"`
	Timeout         string `yaml:"timeout"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

// CatalogConfig configures the taxonomy and knowledge base files.
type CatalogConfig struct {
	TaxonomyPath      string `yaml:"taxonomy_path"`
	KnowledgeBasePath string `yaml:"knowledge_base_path"`

	// FewShotK is the number of retrieved examples per prompt
	FewShotK int `yaml:"few_shot_k"`
}

// EmbeddingConfig configures the optional embedding engine.
// Provider "none" keeps retrieval on the deterministic token-overlap path.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // none, genai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "voltcat",
		Version: "0.3.0",

		LLM: LLMConfig{
			Provider:        "gemini",
			Model:           "gemini-2.5-flash",
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			Timeout:         "120s",
			MaxOutputTokens: 1024,
		},

		Catalog: CatalogConfig{
			TaxonomyPath:      "categories.json",
			KnowledgeBasePath: "standard-inventory.json",
			FewShotK:          3,
		},

		Embedding: EmbeddingConfig{
			Provider: "none",
			Model:    "gemini-embedding-001",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
// Missing file is not an error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variables on top of file values.
// GEMINI_API_KEY is preferred over GOOGLE_API_KEY.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}

	// Embedding engine shares the Gemini credential unless given its own
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = c.LLM.APIKey
	}

	if model := os.Getenv("VOLTCAT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if path := os.Getenv("VOLTCAT_TAXONOMY"); path != "" {
		c.Catalog.TaxonomyPath = path
	}
	if path := os.Getenv("VOLTCAT_KNOWLEDGE_BASE"); path != "" {
		c.Catalog.KnowledgeBasePath = path
	}
}

// TimeoutDuration parses the LLM timeout string, defaulting to 120s.
func (c *LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured: set GEMINI_API_KEY or GOOGLE_API_KEY, or llm.api_key in the config file")
	}
	if c.Catalog.TaxonomyPath == "" {
		return fmt.Errorf("catalog.taxonomy_path not configured")
	}
	if c.Catalog.KnowledgeBasePath == "" {
		return fmt.Errorf("catalog.knowledge_base_path not configured")
	}
	return nil
}
