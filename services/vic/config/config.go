// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the service configuration from YAML with
// environment overrides. Tuning tables (phonetic corrections, grounding
// patterns, ranking weights) live here as data so they can be changed
// without a rebuild.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/lostlondon/vic/services/vic/answer"
	"github.com/lostlondon/vic/services/vic/background"
	"github.com/lostlondon/vic/services/vic/grounding"
	"github.com/lostlondon/vic/services/vic/normalize"
	"github.com/lostlondon/vic/services/vic/retrieval"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// WeaviateConfig configures the vector store connection.
type WeaviateConfig struct {
	// URL is scheme://host:port. Empty enables lightweight mode with an
	// in-memory index and no audit persistence.
	URL string `yaml:"url"`
}

// EmbeddingConfig points at the embedding sidecar.
type EmbeddingConfig struct {
	ServiceURL string `yaml:"service_url" validate:"required,url"`
}

// LLMConfig selects the generation backend.
type LLMConfig struct {
	Backend string `yaml:"backend" validate:"oneof=anthropic openai"`
	Model   string `yaml:"model"`
}

// GraphConfig points at the knowledge graph sidecar. Empty disables graph
// enrichment.
type GraphConfig struct {
	ServiceURL string `yaml:"service_url" validate:"omitempty,url"`
}

// TelemetryConfig configures trace export.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Weaviate  WeaviateConfig  `yaml:"weaviate"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Graph     GraphConfig     `yaml:"graph"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`

	// CachePath is the Badger directory for the response cache.
	CachePath string `yaml:"cache_path" validate:"required"`

	Answer     answer.Config          `yaml:"answer"`
	Retrieval  retrieval.Config       `yaml:"retrieval"`
	Background background.Config      `yaml:"background"`
	Grounding  grounding.Config       `yaml:"grounding"`
	Normalize  []normalize.Correction `yaml:"normalize"`

	// CorrectionMarkers override the built-in correction detection
	// patterns when nonempty.
	CorrectionMarkers []string `yaml:"correction_markers"`
}

// Default returns the configuration the service ships with.
func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: ":8085"},
		Embedding: EmbeddingConfig{ServiceURL: "http://localhost:8001"},
		LLM:       LLMConfig{Backend: "anthropic"},
		Logging:   LoggingConfig{Level: "info", JSON: true},
		CachePath: "/var/lib/vic/cache",

		Answer:     answer.DefaultConfig(),
		Retrieval:  retrieval.DefaultConfig(),
		Background: background.DefaultConfig(),
		Grounding:  grounding.DefaultConfig(),
		Normalize:  normalize.DefaultCorrections,
	}
}

// Load reads the YAML file at path (optional), applies environment
// overrides, and validates the result. A missing path loads defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	applyEnvOverrides(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides lets deployment env vars win over the file. These are
// the knobs that differ per environment; everything else stays in YAML.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VIC_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("WEAVIATE_URL"); v != "" {
		cfg.Weaviate.URL = v
	}
	if v := os.Getenv("EMBEDDING_SERVICE_URL"); v != "" {
		cfg.Embedding.ServiceURL = v
	}
	if v := os.Getenv("LLM_BACKEND_TYPE"); v != "" {
		cfg.LLM.Backend = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("GRAPH_SERVICE_URL"); v != "" {
		cfg.Graph.ServiceURL = v
	}
	if v := os.Getenv("OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
		cfg.Telemetry.Enabled = true
	}
	if v := os.Getenv("VIC_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if os.Getenv("DEBUG") != "" {
		cfg.Answer.Debug = true
	}
	cfg.Answer.Backend = cfg.LLM.Backend
}
