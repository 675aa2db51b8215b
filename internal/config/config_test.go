// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv points HOME at a temp dir and clears every variable the loader reads.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, name := range []string{
		"STUDYMATE_MISTRAL_API_KEY", "VITE_MISTRAL_API_KEY", "MISTRAL_API_KEY",
		"STUDYMATE_MISTRAL_URL", "STUDYMATE_MODEL", "STUDYMATE_API_URL",
		"VITE_API_URL", "STUDYMATE_RAG_STREAMING", "STUDYMATE_LOG_FILE",
	} {
		t.Setenv(name, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://api.mistral.ai", cfg.Mistral.BaseURL)
	assert.Equal(t, "mistral-large-latest", cfg.Mistral.Model)
	assert.Equal(t, 0.7, cfg.Mistral.Temperature)
	assert.Equal(t, 1000, cfg.Mistral.MaxTokens)
	assert.Equal(t, "http://localhost:5000", cfg.RAG.BaseURL)
	assert.True(t, cfg.RAG.Streaming)
	assert.Equal(t, 20, cfg.RAG.MaxUploadMB)
	assert.True(t, cfg.UI.ShowQuickActions)
	assert.Empty(t, cfg.Mistral.APIKey)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad mistral url", func(c *Config) { c.Mistral.BaseURL = "ftp://x" }, "mistral.base_url"},
		{"temperature too high", func(c *Config) { c.Mistral.Temperature = 3 }, "mistral.temperature"},
		{"zero max tokens", func(c *Config) { c.Mistral.MaxTokens = 0 }, "mistral.max_tokens"},
		{"negative rate", func(c *Config) { c.Mistral.RequestsPerMinute = -1 }, "mistral.requests_per_minute"},
		{"rag url without host", func(c *Config) { c.RAG.BaseURL = "http://" }, "rag.base_url"},
		{"upload limit above 20", func(c *Config) { c.RAG.MaxUploadMB = 50 }, "rag.max_upload_mb"},
		{"negative timeout", func(c *Config) { c.RAG.RequestTimeoutSecs = -5 }, "rag.request_timeout_secs"},
		{"invalid theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"invalid level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "neon"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "ui.theme")
	assert.Contains(t, err.Error(), "log.level")
}

func TestConfig_MissingAPIKeyIsValid(t *testing.T) {
	cfg := Default()
	cfg.Mistral.APIKey = ""
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SetDefaultsTrimsSlash(t *testing.T) {
	cfg := &Config{}
	cfg.RAG.BaseURL = "http://study.local:5000/"
	cfg.SetDefaults()

	assert.Equal(t, "http://study.local:5000", cfg.RAG.BaseURL)
	assert.Equal(t, "https://api.mistral.ai", cfg.Mistral.BaseURL)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, "info", cfg.Log.Level)
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("STUDYMATE_MISTRAL_API_KEY", "sk-primary")
	t.Setenv("VITE_MISTRAL_API_KEY", "sk-vite")
	t.Setenv("STUDYMATE_MODEL", "mistral-small-latest")
	t.Setenv("VITE_API_URL", "http://rag.example:8080")
	t.Setenv("STUDYMATE_RAG_STREAMING", "false")
	t.Setenv("STUDYMATE_LOG_FILE", "/tmp/sm.log")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "sk-primary", cfg.Mistral.APIKey)
	assert.Equal(t, "mistral-small-latest", cfg.Mistral.Model)
	assert.Equal(t, "http://rag.example:8080", cfg.RAG.BaseURL)
	assert.False(t, cfg.RAG.Streaming)
	assert.Equal(t, "/tmp/sm.log", cfg.Log.File)
}

func TestConfig_ViteKeyFallback(t *testing.T) {
	isolateEnv(t)
	t.Setenv("VITE_MISTRAL_API_KEY", "sk-vite")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "sk-vite", cfg.Mistral.APIKey)
}

func TestLoadDotEnv_DoesNotOverrideSetVariables(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "VITE_MISTRAL_API_KEY=from-dotenv\nSTUDYMATE_MODEL=from-dotenv\n")

	t.Setenv("STUDYMATE_MODEL", "from-shell")
	// godotenv treats an empty value as set, so unset the key explicitly
	os.Unsetenv("VITE_MISTRAL_API_KEY")

	LoadDotEnv(path)

	assert.Equal(t, "from-dotenv", os.Getenv("VITE_MISTRAL_API_KEY"))
	assert.Equal(t, "from-shell", os.Getenv("STUDYMATE_MODEL"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NotPanics(t, func() { LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")) })
}

// =============================================================================
// FILE LOADING
// =============================================================================

func TestLoadFromPath_TOML(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[mistral]
model = "mistral-small-latest"
temperature = 0.2

[rag]
base_url = "http://rag.internal:5000/"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "mistral-small-latest", cfg.Mistral.Model)
	assert.Equal(t, 0.2, cfg.Mistral.Temperature)
	assert.Equal(t, 1000, cfg.Mistral.MaxTokens, "unset keys keep defaults")
	assert.Equal(t, "http://rag.internal:5000", cfg.RAG.BaseURL)
	assert.True(t, cfg.RAG.Streaming)
}

func TestLoadFromPath_YAML(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
rag:
  streaming: false
  request_timeout_secs: 30
ui:
  theme: light
  show_quick_actions: false
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.False(t, cfg.RAG.Streaming)
	assert.Equal(t, 30, cfg.RAG.RequestTimeoutSecs)
	assert.Equal(t, "light", cfg.UI.Theme)
	assert.False(t, cfg.UI.ShowQuickActions)
}

func TestLoadFromPath_Invalid(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[ui]\ntheme = \"neon\"\n")

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui.theme")
}

func TestLoadFromPath_Malformed(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[mistral\nmodel = ")

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestLoad_PrefersTOMLOverYAML(t *testing.T) {
	home := isolateEnv(t)
	writeFile(t, filepath.Join(home, ".studymate", "config.toml"), "[mistral]\nmodel = \"from-toml\"\n")
	writeFile(t, filepath.Join(home, ".studymate", "config.yaml"), "mistral:\n  model: from-yaml\n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-toml", cfg.Mistral.Model)
}

func TestLoad_FallsBackToYAML(t *testing.T) {
	home := isolateEnv(t)
	writeFile(t, filepath.Join(home, ".studymate", "config.yaml"), "mistral:\n  model: from-yaml\n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", cfg.Mistral.Model)
}

func TestLoad_DefaultsWhenNoFiles(t *testing.T) {
	isolateEnv(t)
	t.Setenv("STUDYMATE_API_URL", "http://env-rag:9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://env-rag:9000", cfg.RAG.BaseURL)
	assert.Equal(t, "mistral-large-latest", cfg.Mistral.Model)
}

func TestLoad_BadFileReportsErrorWithDefaults(t *testing.T) {
	home := isolateEnv(t)
	writeFile(t, filepath.Join(home, ".studymate", "config.toml"), "not = [valid")

	cfg, err := Load()
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "mistral-large-latest", cfg.Mistral.Model)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Mistral.Model = "mistral-medium-latest"
	cfg.RAG.Streaming = false
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if info.Mode().Perm()&0077 != 0 && os.PathSeparator == '/' {
		t.Errorf("config file permissions = %o, want owner-only", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral-medium-latest", loaded.Mistral.Model)
	assert.False(t, loaded.RAG.Streaming)
}

// =============================================================================
// GET / SET / STRING
// =============================================================================

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("rag.base_url")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", val)

	require.NoError(t, cfg.Set("mistral.max_tokens", "2048"))
	assert.Equal(t, 2048, cfg.Mistral.MaxTokens)

	require.NoError(t, cfg.Set("rag.streaming", "no"))
	assert.False(t, cfg.RAG.Streaming)

	require.NoError(t, cfg.Set("mistral.temperature", 0.3))
	assert.Equal(t, 0.3, cfg.Mistral.Temperature)

	_, err = cfg.Get("invalid.key")
	assert.Error(t, err)

	err = cfg.Set("mistral.max_tokens", "lots")
	assert.Error(t, err)

	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestConfig_AllKeysResolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestConfig_StringRedactsKey(t *testing.T) {
	cfg := Default()
	cfg.Mistral.APIKey = "sk-secret-value"

	out := cfg.String()
	assert.NotContains(t, out, "sk-secret-value")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "sk-secret-value", cfg.Mistral.APIKey, "String must not modify the config")
}

func TestConfig_Clone(t *testing.T) {
	original := Default()
	clone := original.Clone()
	clone.Mistral.Model = "cloned"

	assert.Equal(t, "mistral-large-latest", original.Mistral.Model)
}

// =============================================================================
// GLOBAL
// =============================================================================

func TestConfig_GlobalInitialization(t *testing.T) {
	isolateEnv(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	cfg := Global()
	require.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.Mistral.Model)
}

func TestConfig_SetGlobalBeforeFirstUse(t *testing.T) {
	isolateEnv(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	custom := Default()
	custom.Mistral.Model = "custom-model"
	SetGlobal(custom)

	assert.Equal(t, "custom-model", Global().Mistral.Model)
}

// TestConfig_ConcurrentAccess checks Global and SetGlobal under the race detector.
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolateEnv(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}
