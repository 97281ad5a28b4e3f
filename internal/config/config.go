package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root service configuration. The yaml file carries model and
// retrieval tunables; the API credential and listen port come from the
// environment and override any file values.
type Config struct {
	Port           int       `yaml:"port"`
	OpenRouterKey  string    `yaml:"openrouter_key"`
	OpenRouterBase string    `yaml:"openrouter_base"`
	EmbeddingModel string    `yaml:"embedding_model"`
	InferenceModel string    `yaml:"inference_model"`
	RAG            RAGConfig `yaml:"rag"`
}

// RAGConfig configures chunking, retrieval and the completion retry loop.
type RAGConfig struct {
	ChunkSize       int `yaml:"chunk_size"`
	ChunkOverlap    int `yaml:"chunk_overlap"`
	TopK            int `yaml:"top_k"`
	MinContextChars int `yaml:"min_context_chars"`
	MaxAttempts     int `yaml:"max_attempts"`
}

// Load reads the config file at path, applies defaults for unset fields and
// environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = 5000
	}
	if cfg.OpenRouterBase == "" {
		cfg.OpenRouterBase = "https://openrouter.ai/api/v1"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.InferenceModel == "" {
		cfg.InferenceModel = "openai/gpt-4o-mini"
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 800
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 50
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 4
	}
	if cfg.RAG.MinContextChars == 0 {
		cfg.RAG.MinContextChars = 20
	}
	if cfg.RAG.MaxAttempts == 0 {
		cfg.RAG.MaxAttempts = 3
	}
}

func applyEnv(cfg *Config) {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		cfg.OpenRouterKey = key
	}
	if base := os.Getenv("OPENROUTER_BASE"); base != "" {
		cfg.OpenRouterBase = base
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
}

func validate(cfg *Config) error {
	if cfg.OpenRouterKey == "" {
		return fmt.Errorf("missing API key: set OPENROUTER_API_KEY or openrouter_key")
	}
	if cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)",
			cfg.RAG.ChunkOverlap, cfg.RAG.ChunkSize)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Port)
	}
	return nil
}
