// Package config loads and validates the engine configuration from a YAML
// file, applying defaults for anything omitted.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Provider names accepted for generation.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config is the root engine configuration.
type Config struct {
	// Model selects the generation provider and its parameters.
	Model ModelConfig `yaml:"model"`

	// Retrieval configures the knowledge base embeddings and search.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Engine bounds the agent loop.
	Engine EngineConfig `yaml:"engine"`

	// Storage selects checkpoint and vector persistence paths. Empty paths
	// keep everything in memory.
	Storage StorageConfig `yaml:"storage"`

	// Export configures the artifact sink.
	Export ExportConfig `yaml:"export"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig holds generation provider settings.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // openai, anthropic, mock
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// RetrievalConfig holds knowledge base settings.
type RetrievalConfig struct {
	EmbeddingModel string `yaml:"embedding_model"`
	TopK           int    `yaml:"top_k"`
}

// EngineConfig bounds the agent loop.
type EngineConfig struct {
	MaxIterations   int `yaml:"max_iterations"`
	EventBufferSize int `yaml:"event_buffer_size"`
}

// StorageConfig selects persistence paths.
type StorageConfig struct {
	CheckpointPath string `yaml:"checkpoint_path"`
	VectorPath     string `yaml:"vector_path"`
}

// ExportConfig configures the artifact sink.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    ProviderOpenAI,
			Name:        "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   2048,
		},
		Retrieval: RetrievalConfig{
			EmbeddingModel: "text-embedding-3-small",
			TopK:           3,
		},
		Engine: EngineConfig{
			MaxIterations:   10,
			EventBufferSize: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path, fills defaults and validates. A missing
// file is not an error: defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Model.Provider == "" {
		c.Model.Provider = d.Model.Provider
	}
	if c.Model.Name == "" {
		c.Model.Name = d.Model.Name
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = d.Model.MaxTokens
	}
	if c.Retrieval.EmbeddingModel == "" {
		c.Retrieval.EmbeddingModel = d.Retrieval.EmbeddingModel
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = d.Retrieval.TopK
	}
	if c.Engine.MaxIterations == 0 {
		c.Engine.MaxIterations = d.Engine.MaxIterations
	}
	if c.Engine.EventBufferSize == 0 {
		c.Engine.EventBufferSize = d.Engine.EventBufferSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("model temperature %v out of range [0, 2]", c.Model.Temperature)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval top_k must be at least 1, got %d", c.Retrieval.TopK)
	}
	if c.Engine.MaxIterations < 1 {
		return fmt.Errorf("engine max_iterations must be at least 1, got %d", c.Engine.MaxIterations)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	return nil
}
