// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for studymate.
//
// Supports TOML and YAML configuration formats, a .env file for secrets,
// sensible defaults, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - MistralConfig: General chat backend (key, model, sampling)
//   - RAGConfig: Document service location and streaming mode
//   - UIConfig, LogConfig: Presentation and log file settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (STUDYMATE_*, plus VITE_MISTRAL_API_KEY and VITE_API_URL)
//   - ./.env (only fills variables that are not already set)
//   - ~/.studymate/config.toml
//   - ~/.studymate/config.yaml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model := cfg.Mistral.Model
package config
