package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from an optional YAML file and applies
// environment overrides on top of defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets deployment environments override file settings.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CANVAS_AGENT_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CANVAS_AGENT_GOOGLE_API_KEY"); v != "" {
		cfg.Providers.Google.APIKey = v
	}
	if v := os.Getenv("CANVAS_AGENT_GOOGLE_BASE_URL"); v != "" {
		cfg.Providers.Google.BaseURL = v
	}
	if v := os.Getenv("CANVAS_AGENT_DOCUMENT_BACKEND"); v != "" {
		cfg.Document.Backend = v
	}
	if v := os.Getenv("CANVAS_AGENT_DOCUMENT_PATH"); v != "" {
		cfg.Document.Path = v
	}
	if v := os.Getenv("CANVAS_AGENT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate rejects configurations the runtime cannot serve.
func (c *Config) Validate() error {
	switch c.Document.Backend {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.Document.Path) == "" {
			return fmt.Errorf("config: document.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("config: unknown document backend %q", c.Document.Backend)
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("config: server.addr is required")
	}
	return nil
}
