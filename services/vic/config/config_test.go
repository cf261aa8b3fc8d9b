// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8085", cfg.Server.Addr)
	assert.Equal(t, "anthropic", cfg.LLM.Backend)
	assert.Equal(t, 2, cfg.Answer.ResultLimit)
	assert.Equal(t, 50, cfg.Retrieval.VectorTopN)
	assert.NotEmpty(t, cfg.Normalize)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
llm:
  backend: openai
  model: gpt-4o-mini
answer:
  result_limit: 3
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "openai", cfg.LLM.Backend)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Answer.ResultLimit)
	// Untouched sections keep defaults.
	assert.Equal(t, "/var/lib/vic/cache", cfg.CachePath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("WEAVIATE_URL", "http://weaviate:8080")
	t.Setenv("LLM_BACKEND_TYPE", "openai")
	t.Setenv("DEBUG", "1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://weaviate:8080", cfg.Weaviate.URL)
	assert.Equal(t, "openai", cfg.LLM.Backend)
	assert.Equal(t, "openai", cfg.Answer.Backend)
	assert.True(t, cfg.Answer.Debug)
}

func TestLoad_RejectsInvalidBackend(t *testing.T) {
	t.Setenv("LLM_BACKEND_TYPE", "carrier-pigeon")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_RejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vic.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
