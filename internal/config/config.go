// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/studymate/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete studymate configuration.
type Config struct {
	Mistral MistralConfig `toml:"mistral" yaml:"mistral" json:"mistral"`
	RAG     RAGConfig     `toml:"rag" yaml:"rag" json:"rag"`
	UI      UIConfig      `toml:"ui" yaml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" yaml:"log" json:"log"`
}

// MistralConfig configures the general chat backend.
type MistralConfig struct {
	APIKey            string  `toml:"api_key" yaml:"api_key" json:"api_key"`
	BaseURL           string  `toml:"base_url" yaml:"base_url" json:"base_url"`
	Model             string  `toml:"model" yaml:"model" json:"model"`
	Temperature       float64 `toml:"temperature" yaml:"temperature" json:"temperature"`
	MaxTokens         int     `toml:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
	RequestsPerMinute int     `toml:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RAGConfig configures the document service.
type RAGConfig struct {
	BaseURL            string `toml:"base_url" yaml:"base_url" json:"base_url"`
	Streaming          bool   `toml:"streaming" yaml:"streaming" json:"streaming"`
	MaxUploadMB        int    `toml:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	RequestTimeoutSecs int    `toml:"request_timeout_secs" yaml:"request_timeout_secs" json:"request_timeout_secs"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	Theme            string `toml:"theme" yaml:"theme" json:"theme"`
	ShowQuickActions bool   `toml:"show_quick_actions" yaml:"show_quick_actions" json:"show_quick_actions"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	File  string `toml:"file" yaml:"file" json:"file"`
	Level string `toml:"level" yaml:"level" json:"level"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Mistral: MistralConfig{
			BaseURL:           "https://api.mistral.ai",
			Model:             "mistral-large-latest",
			Temperature:       0.7,
			MaxTokens:         1000,
			RequestsPerMinute: 30,
		},
		RAG: RAGConfig{
			BaseURL:            "http://localhost:5000",
			Streaming:          true,
			MaxUploadMB:        20,
			RequestTimeoutSecs: 120,
		},
		UI: UIConfig{
			Theme:            "dark",
			ShowQuickActions: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns ~/.studymate.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("no home directory: %w", err)
	}
	return filepath.Join(home, ".studymate"), nil
}

// ConfigPathTOML returns ~/.studymate/config.toml.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathYAML returns ~/.studymate/config.yaml.
func ConfigPathYAML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultLogPath returns where the log file goes when none is configured.
func DefaultLogPath() string {
	dir, err := ConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "studymate.log")
	}
	return filepath.Join(dir, "studymate.log")
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the settings studymate starts with.
// A .env file in the working directory is read first, then TOML, then YAML,
// falling back to defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	LoadDotEnv(".env")

	paths := make([]string, 0, 2)
	if p, err := ConfigPathTOML(); err == nil {
		paths = append(paths, p)
	}
	if p, err := ConfigPathYAML(); err == nil {
		paths = append(paths, p)
	}

	var loadErr error
	for _, path := range paths {
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err == nil {
			return cfg, nil
		}
		if loadErr == nil {
			loadErr = err
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("settings from environment: %w", err)
	}

	// A broken file is reported but does not stop startup
	return cfg, loadErr
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read %s: %v\n", path, err)
	}
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("toml: %w", err)
	}
	return nil
}

// LoadYAML decodes a YAML file over cfg.
func LoadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("yaml: %w", err)
	}
	return nil
}

// LoadFromPath reads one file, applies environment overrides and validates.
// Files ending in .yaml or .yml are YAML; everything else is TOML.
func LoadFromPath(path string) (*Config, error) {
	// Start from defaults so booleans absent from the file keep their default
	cfg := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := LoadYAML(cfg, path); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to ~/.studymate/config.toml.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# studymate configuration file\n")
	b.WriteString("# Generated by studymate - edit with care\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	// The file may hold an API key
	if err := util.AtomicWriteFileWithDir(path, []byte(b.String()), 0600, 0700); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one rejected setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors lists every rejected setting.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "settings are valid"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration. A missing Mistral API key is not an
// error here: the chat client reports it as a configuration banner so the
// document features stay usable.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validateURL(c.Mistral.BaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "mistral.base_url", Message: err.Error()})
	}
	if c.Mistral.Temperature < 0 || c.Mistral.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "mistral.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %g", c.Mistral.Temperature),
		})
	}
	if c.Mistral.MaxTokens < 1 {
		errs = append(errs, ValidationError{
			Field:   "mistral.max_tokens",
			Message: fmt.Sprintf("must be positive, got %d", c.Mistral.MaxTokens),
		})
	}
	if c.Mistral.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "mistral.requests_per_minute",
			Message: "cannot be negative",
		})
	}

	if err := validateURL(c.RAG.BaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "rag.base_url", Message: err.Error()})
	}
	if c.RAG.MaxUploadMB < 1 || c.RAG.MaxUploadMB > 20 {
		errs = append(errs, ValidationError{
			Field:   "rag.max_upload_mb",
			Message: fmt.Sprintf("must be between 1 and 20, got %d", c.RAG.MaxUploadMB),
		})
	}
	if c.RAG.RequestTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "rag.request_timeout_secs",
			Message: "cannot be negative",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL has no host")
	}
	return nil
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Mistral.BaseURL == "" {
		c.Mistral.BaseURL = defaults.Mistral.BaseURL
	}
	if c.Mistral.Model == "" {
		c.Mistral.Model = defaults.Mistral.Model
	}
	if c.Mistral.MaxTokens == 0 {
		c.Mistral.MaxTokens = defaults.Mistral.MaxTokens
	}
	if c.RAG.BaseURL == "" {
		c.RAG.BaseURL = defaults.RAG.BaseURL
	}
	if c.RAG.MaxUploadMB == 0 {
		c.RAG.MaxUploadMB = defaults.RAG.MaxUploadMB
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}

	c.Mistral.BaseURL = strings.TrimRight(c.Mistral.BaseURL, "/")
	c.RAG.BaseURL = strings.TrimRight(c.RAG.BaseURL, "/")
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - STUDYMATE_MISTRAL_API_KEY: overrides mistral.api_key
//     (VITE_MISTRAL_API_KEY and MISTRAL_API_KEY are also accepted)
//   - STUDYMATE_MISTRAL_URL: overrides mistral.base_url
//   - STUDYMATE_MODEL: overrides mistral.model
//   - STUDYMATE_API_URL: overrides rag.base_url (VITE_API_URL also accepted)
//   - STUDYMATE_RAG_STREAMING: overrides rag.streaming
//   - STUDYMATE_LOG_FILE: overrides log.file
func (c *Config) ApplyEnvOverrides() {
	if key := firstEnv("STUDYMATE_MISTRAL_API_KEY", "VITE_MISTRAL_API_KEY", "MISTRAL_API_KEY"); key != "" {
		c.Mistral.APIKey = key
	}

	if u := os.Getenv("STUDYMATE_MISTRAL_URL"); u != "" {
		c.Mistral.BaseURL = u
	}

	if model := os.Getenv("STUDYMATE_MODEL"); model != "" {
		c.Mistral.Model = model
	}

	if u := firstEnv("STUDYMATE_API_URL", "VITE_API_URL"); u != "" {
		c.RAG.BaseURL = u
	}

	if streaming := os.Getenv("STUDYMATE_RAG_STREAMING"); streaming != "" {
		c.RAG.Streaming = parseBool(streaming)
	}

	if file := os.Getenv("STUDYMATE_LOG_FILE"); file != "" {
		c.Log.File = file
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// DOTTED KEYS
// =============================================================================

// Get returns the value of a dotted key such as "rag.base_url".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a dotted key, converting strings to the field type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("%s is read-only", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field
// equivalent. Acronym fields (RAG, APIKey, BaseURL) match case-insensitively.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	return strings.Join(parts, "")
}

// setFieldValue parses string input for scalar fields and otherwise
// assigns or converts value.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("not a whole number: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("not a number: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys lists the keys accepted by Get and Set.
func GetAllKeys() []string {
	return []string{
		"mistral.api_key",
		"mistral.base_url",
		"mistral.model",
		"mistral.temperature",
		"mistral.max_tokens",
		"mistral.requests_per_minute",
		"rag.base_url",
		"rag.streaming",
		"rag.max_upload_mb",
		"rag.request_timeout_secs",
		"ui.theme",
		"ui.show_quick_actions",
		"log.file",
		"log.level",
	}
}

// =============================================================================
// COPY AND DISPLAY
// =============================================================================

// Clone returns a copy of the configuration. All fields are values.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the config as TOML with the API key redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Mistral.APIKey != "" {
		safe.Mistral.APIKey = "[REDACTED]"
	}

	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}

// =============================================================================
// PROCESS-WIDE SETTINGS
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide settings, loading them on first use.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the process-wide settings.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting forgets the process-wide settings.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
