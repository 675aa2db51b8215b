// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/studymate/internal/config"
)

// Execute prints the effective configuration with the API key redacted.
func (c *ConfigShowCmd) Execute(args []string) error {
	c.app.plainOutput()
	if c.Keys {
		for _, key := range config.GetAllKeys() {
			fmt.Fprintln(c.app.out, key)
		}
		return nil
	}
	cfg, err := c.app.Config()
	if err != nil {
		return err
	}
	fmt.Fprint(c.app.out, cfg.String())
	return nil
}

// Execute prints one setting.
func (c *ConfigGetCmd) Execute(args []string) error {
	cfg, err := c.app.Config()
	if err != nil {
		return err
	}
	value, err := cfg.Get(c.Args.Key)
	if err != nil {
		return usageErrorf("config get", "%v", err)
	}
	if isSecretKey(c.Args.Key) && value != "" {
		value = "[REDACTED]"
	}
	fmt.Fprintln(c.app.out, value)
	return nil
}

// Execute changes one setting in the config file. Only what the file
// already holds plus the new value is written; environment overrides are
// never persisted.
func (c *ConfigSetCmd) Execute(args []string) error {
	path, err := c.app.configFilePath()
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return err
		}
	}
	if err := cfg.Set(c.Args.Key, c.Args.Value); err != nil {
		return usageErrorf("config set", "%v", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}

	c.app.plainOutput()
	shown := c.Args.Value
	if isSecretKey(c.Args.Key) {
		shown = "[REDACTED]"
	}
	fmt.Fprintf(c.app.out, "%s %s = %s (%s)\n", SuccessStyle.Render("Set"), c.Args.Key, shown, path)
	return nil
}

// Execute prints where configuration and logs live.
func (c *ConfigPathCmd) Execute(args []string) error {
	c.app.plainOutput()
	path := c.app.opts.ConfigPath
	if path == "" {
		p, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		path = p
	}
	logPath := config.DefaultLogPath()
	if cfg, err := c.app.Config(); err == nil && cfg.Log.File != "" {
		logPath = cfg.Log.File
	}
	fmt.Fprintln(c.app.out, RenderLabel("Config", path))
	fmt.Fprintln(c.app.out, RenderLabel("Log", logPath))
	if dir, err := config.ConfigDir(); err == nil {
		fmt.Fprintln(c.app.out, RenderLabel("History", filepath.Join(dir, "chat_history")))
	}
	return nil
}

// configFilePath is the file config set writes: --config when it names a
// TOML file, otherwise the default TOML path.
func (a *App) configFilePath() (string, error) {
	if p := a.opts.ConfigPath; p != "" {
		ext := strings.ToLower(filepath.Ext(p))
		if ext == ".yaml" || ext == ".yml" {
			return "", usageErrorf("config set", "%s is YAML; edit it directly or use a .toml file", p)
		}
		return p, nil
	}
	return config.ConfigPathTOML()
}

func isSecretKey(key string) bool {
	k := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))
	return strings.HasSuffix(k, "apikey")
}
